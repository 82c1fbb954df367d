package component

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360/cyclekit/driver"
)

// DebugEnv is the environment variable enabling verbose runtime tracing
// process-wide. Tracing is side-channel only and never affects stream
// values.
const DebugEnv = "CYCLEKIT_DEBUG"

func debugEnabled() bool {
	v := os.Getenv(DebugEnv)
	return v != "" && v != "0" && v != "false"
}

// LogEntry is a structured diagnostic entry. When a NATS connection is
// configured the entry is also published to logs.{component} for remote
// consumption.
type LogEntry struct {
	Timestamp string `json:"timestamp"` // RFC3339 format
	Level     string `json:"level"`
	Component string `json:"component"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"`
}

// Logger provides diagnostics for one component instance. It wraps a
// standard slog.Logger for local logging, gates verbose tracing behind the
// component's Verbose flag or CYCLEKIT_DEBUG, and optionally publishes
// entries to NATS.
type Logger struct {
	componentName string
	logger        *slog.Logger
	nc            *nats.Conn
	verbose       bool
}

// NewLogger creates a component logger. nc may be nil to disable NATS
// publishing.
func NewLogger(componentName string, logger *slog.Logger, nc *nats.Conn, verbose bool) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{
		componentName: componentName,
		logger:        logger.With("component", componentName),
		nc:            nc,
		verbose:       verbose || debugEnabled(),
	}
}

// Verbose reports whether trace-level diagnostics are enabled.
func (cl *Logger) Verbose() bool {
	return cl.verbose
}

// Warn logs a warning-level message.
func (cl *Logger) Warn(msg string, args ...any) {
	cl.logger.Warn(msg, args...)
	cl.publish("WARN", msg, "")
}

// Error logs an error-level message with error details.
func (cl *Logger) Error(msg string, err error, args ...any) {
	cl.logger.Error(msg, append(args, "error", err)...)
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	cl.publish("ERROR", msg, detail)
}

// TraceAction records an action entering the bus.
func (cl *Logger) TraceAction(a Action) {
	if !cl.verbose {
		return
	}
	cl.logger.Debug("action dispatched", "type", a.Type, "request_id", a.RequestID)
	cl.publish("DEBUG", "action dispatched", a.Type)
}

// TraceRoute records a method/route registration.
func (cl *Logger) TraceRoute(method, route string, target any) {
	if !cl.verbose {
		return
	}
	cl.logger.Debug("route registered", "method", method, "route", route, "target", fmt.Sprintf("%v", target))
	cl.publish("DEBUG", "route registered", method+" "+route)
}

// TraceReducer records a reducer registration.
func (cl *Logger) TraceReducer(sink, actionType string) {
	if !cl.verbose {
		return
	}
	cl.logger.Debug("reducer registered", "sink", sink, "action", actionType)
	cl.publish("DEBUG", "reducer registered", sink+"/"+actionType)
}

// TraceSinkSend records data sent to a non-state sink.
func (cl *Logger) TraceSinkSend(sink string, a Action) {
	if !cl.verbose {
		return
	}
	cl.logger.Debug("sink send", "sink", sink, "action", a.Type, "request_id", a.RequestID)
	cl.publish("DEBUG", "sink send", sink)
}

// TraceRender records a completed view recomputation.
func (cl *Logger) TraceRender() {
	if !cl.verbose {
		return
	}
	cl.logger.Debug("render complete")
	cl.publish("DEBUG", "render complete", "")
}

// TraceResponse records a response delivered back to the request source.
func (cl *Logger) TraceResponse(ev driver.ResponseEvent) {
	if !cl.verbose {
		return
	}
	cl.logger.Debug("response delivered",
		"request_id", ev.RequestID, "command", ev.Command, "action", ev.ActionType)
	cl.publish("DEBUG", "response delivered", ev.RequestID)
}

// publish sends a log entry to NATS when a connection is configured.
// Publishing failures are logged locally and never affect the stream path.
func (cl *Logger) publish(level, message, detail string) {
	nc := cl.nc
	if nc == nil {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level,
		Component: cl.componentName,
		Message:   message,
		Detail:    detail,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		cl.logger.Error("failed to marshal log entry", "error", err)
		return
	}

	subject := "logs." + cl.componentName
	if err := nc.Publish(subject, data); err != nil {
		cl.logger.Error("failed to publish log entry", "error", err, "subject", subject)
	}
}
