package httpdriver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/cyclekit/component"
	"github.com/c360/cyclekit/config"
	"github.com/c360/cyclekit/driver"
	"github.com/c360/cyclekit/errors"
	"github.com/c360/cyclekit/stream"
)

func newTestDriver(t *testing.T, cfg config.HTTPConfig) (*Driver, *stream.Loop, context.CancelFunc) {
	t.Helper()
	loop := stream.NewLoop()
	d := New(loop, cfg, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)
	return d, loop, cancel
}

func counterComponent(t *testing.T, loop *stream.Loop, d *Driver) *component.Component {
	t.Helper()
	c, err := component.New(component.Config{
		Name:         "counter",
		Loop:         loop,
		Sources:      component.Sources{component.DefaultRequestSource: d},
		InitialState: map[string]any{"count": 5},
		Model: component.Model{
			"GET_COUNT": component.SinkReducers{
				component.DefaultRequestSource: func(state, _ any, _ component.DispatchFunc, _ *driver.RequestRef) any {
					return map[string]any{"count": state.(map[string]any)["count"]}
				},
			},
		},
		Request: component.RequestMap{
			"GET": {"/count": "GET_COUNT"},
		},
		Response: func(sel *component.ResponseSelector) map[string]*stream.Stream[component.Response] {
			return map[string]*stream.Stream[component.Response]{
				"json": sel.Select("GET_COUNT"),
			}
		},
	})
	require.NoError(t, err)
	return c
}

func TestRequestRoundTrip(t *testing.T) {
	d, loop, cancel := newTestDriver(t, config.HTTPConfig{})
	defer cancel()

	c := counterComponent(t, loop, d)
	defer c.Close()

	rec := httptest.NewRecorder()
	d.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/count", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "json", rec.Header().Get("X-Cyclekit-Command"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(5), body["count"])
}

func TestURLParamsAndBodyArePropagated(t *testing.T) {
	d, loop, cancel := newTestDriver(t, config.HTTPConfig{})
	defer cancel()

	var seen *driver.RequestRef
	c, err := component.New(component.Config{
		Name:    "echo",
		Loop:    loop,
		Sources: component.Sources{component.DefaultRequestSource: d},
		Request: component.RequestMap{
			"POST": {
				"/items/{id}": component.RouteFunc(func(_ any, req *driver.RequestRef) any {
					seen = req
					return req.Params["id"]
				}),
			},
		},
	})
	require.NoError(t, err)
	defer c.Close()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/items/42", strings.NewReader(`{"name":"thing"}`))
	d.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "42", seen.Params["id"])
	assert.Equal(t, map[string]any{"name": "thing"}, seen.Body)
	assert.Equal(t, `"42"`, strings.TrimSpace(rec.Body.String()))
}

func TestRateLimitRejectsBursts(t *testing.T) {
	d, loop, cancel := newTestDriver(t, config.HTTPConfig{RateLimit: 1, RateBurst: 1})
	defer cancel()

	c := counterComponent(t, loop, d)
	defer c.Close()

	first := httptest.NewRecorder()
	d.Handler().ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/count", nil))
	require.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	d.Handler().ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/count", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestMethodRegistrationAfterStartFails(t *testing.T) {
	loop := stream.NewLoop()
	d := New(loop, config.HTTPConfig{Addr: "127.0.0.1:0"}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Start(ctx) }()
	time.Sleep(50 * time.Millisecond)

	_, err := d.Method("GET", "/late")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrAlreadyStarted)

	cancel()
	require.NoError(t, <-done)
}

func TestSnapshotRoundTrip(t *testing.T) {
	loop := stream.NewLoop()
	d := New(loop, config.HTTPConfig{}, nil, nil)

	path := filepath.Join(t.TempDir(), "state.msgpack")
	require.NoError(t, d.SaveSnapshot(path, map[string]any{"count": 7}))

	var hydrated []any
	d.Snapshot().Subscribe(func(v any) { hydrated = append(hydrated, v) })

	require.NoError(t, d.LoadSnapshot(path))
	require.Len(t, hydrated, 1)

	state, ok := hydrated[0].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 7, state["count"])
}

func TestLoadSnapshotMissingFileIsNoOp(t *testing.T) {
	loop := stream.NewLoop()
	d := New(loop, config.HTTPConfig{}, nil, nil)

	var hydrated int
	d.Snapshot().Subscribe(func(any) { hydrated++ })

	require.NoError(t, d.LoadSnapshot(filepath.Join(t.TempDir(), "absent.msgpack")))
	assert.Zero(t, hydrated)
}

func TestLoadSnapshotCorruptFileIsDataError(t *testing.T) {
	loop := stream.NewLoop()
	d := New(loop, config.HTTPConfig{}, nil, nil)

	path := filepath.Join(t.TempDir(), "corrupt.msgpack")
	require.NoError(t, os.WriteFile(path, []byte{0xc1}, 0o600))

	err := d.LoadSnapshot(path)
	require.Error(t, err)
	assert.True(t, errors.IsData(err))
}
