package component

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/cyclekit/driver"
)

func newCaptureLogger(verbose bool) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewLogger("capture", base, nil, verbose), &buf
}

func TestNewLoggerDefaults(t *testing.T) {
	logger := NewLogger("c1", nil, nil, false)
	require.NotNil(t, logger)
	assert.False(t, logger.Verbose())

	verbose := NewLogger("c1", nil, nil, true)
	assert.True(t, verbose.Verbose())
}

func TestDebugEnvEnablesVerbose(t *testing.T) {
	t.Setenv(DebugEnv, "1")
	logger := NewLogger("c1", nil, nil, false)
	assert.True(t, logger.Verbose())

	t.Setenv(DebugEnv, "false")
	logger = NewLogger("c1", nil, nil, false)
	assert.False(t, logger.Verbose())
}

func TestWarnCarriesComponentAttr(t *testing.T) {
	logger, buf := newCaptureLogger(false)
	logger.Warn("something odd", "key", "value")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "capture", entry["component"])
	assert.Equal(t, "something odd", entry["msg"])
	assert.Equal(t, "value", entry["key"])
}

func TestTraceIsGatedByVerbose(t *testing.T) {
	quiet, quietBuf := newCaptureLogger(false)
	quiet.TraceAction(Action{Type: "PING"})
	quiet.TraceSinkSend("OUT", Action{Type: "PING"})
	quiet.TraceRender()
	quiet.TraceResponse(driver.ResponseEvent{RequestID: "r1"})
	assert.Zero(t, quietBuf.Len())

	loud, loudBuf := newCaptureLogger(true)
	loud.TraceAction(Action{Type: "PING", RequestID: "r1"})
	assert.Contains(t, loudBuf.String(), "action dispatched")
	assert.Contains(t, loudBuf.String(), "PING")
}

func TestLogEntryShape(t *testing.T) {
	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     "WARN",
		Component: "counter",
		Message:   "m",
	}

	data, err := json.Marshal(entry)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "counter", decoded["component"])
	// Empty detail is omitted from the wire form.
	_, hasDetail := decoded["detail"]
	assert.False(t, hasDetail)
}
