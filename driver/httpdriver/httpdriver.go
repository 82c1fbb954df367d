// Package httpdriver adapts inbound HTTP traffic to the driver capability
// interfaces. Each registered method/route pair becomes a request stream; a
// matched HTTP request is parked until the component delivers a correlated
// response event, which is written back as the HTTP response body.
package httpdriver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/c360/cyclekit/config"
	"github.com/c360/cyclekit/driver"
	"github.com/c360/cyclekit/errors"
	"github.com/c360/cyclekit/metric"
	"github.com/c360/cyclekit/stream"
)

// responseWait bounds how long a parked request waits for the component to
// answer before the driver gives up with 504.
const responseWait = 30 * time.Second

// Driver is an HTTP request source. It implements driver.MethodSelector,
// driver.Correlatable, driver.Hydratable and driver.ResponseSink.
type Driver struct {
	loop    *stream.Loop
	router  chi.Router
	limiter *rate.Limiter
	logger  *slog.Logger
	server  *http.Server
	timeout time.Duration

	mu         sync.Mutex
	methods    map[string]*stream.Stream[*driver.RequestRef]
	correlated map[string]*stream.Stream[any]
	pending    map[string]chan driver.ResponseEvent

	snapshots *stream.Stream[any]
	started   bool
}

var (
	_ driver.MethodSelector = (*Driver)(nil)
	_ driver.Correlatable   = (*Driver)(nil)
	_ driver.Hydratable     = (*Driver)(nil)
	_ driver.ResponseSink   = (*Driver)(nil)
)

// New builds an HTTP driver from the host configuration. The metrics
// registry's handler is mounted at /metrics when a registry is provided.
func New(loop *stream.Loop, cfg config.HTTPConfig, logger *slog.Logger, metrics *metric.Registry) *Driver {
	if logger == nil {
		logger = slog.Default()
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	router := chi.NewRouter()
	if metrics != nil {
		router.Handle("/metrics", metrics.Handler())
	}

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Driver{
		loop:    loop,
		router:  router,
		limiter: limiter,
		logger:  logger.With("component", "httpdriver"),
		timeout: timeout,
		server: &http.Server{
			Addr:              cfg.Addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
		methods:    make(map[string]*stream.Stream[*driver.RequestRef]),
		correlated: make(map[string]*stream.Stream[any]),
		pending:    make(map[string]chan driver.ResponseEvent),
		snapshots:  stream.New[any](loop),
	}
}

// Method registers a chi route for the method/route pair and returns the
// stream of matched requests. Repeated calls for the same pair share one
// stream. Routes must be registered before Start.
func (d *Driver) Method(method, route string) (*stream.Stream[*driver.RequestRef], error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return nil, errors.WrapConfig(errors.ErrAlreadyStarted,
			"HTTPDriver", "Method", "route registration after start")
	}

	key := method + " " + route
	if st, ok := d.methods[key]; ok {
		return st, nil
	}

	st := stream.New[*driver.RequestRef](d.loop)
	d.methods[key] = st
	d.router.MethodFunc(method, route, d.handler(st))
	return st, nil
}

// Request returns the correlated effect stream for one request id. External
// systems push into it through Correlate.
func (d *Driver) Request(id string) *stream.Stream[any] {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, ok := d.correlated[id]
	if !ok {
		st = stream.New[any](d.loop)
		d.correlated[id] = st
	}
	return st
}

// Correlate pushes a driver-level effect for an in-flight request id.
func (d *Driver) Correlate(id string, v any) {
	d.Request(id).Next(v)
}

// Snapshot returns the hydration snapshot stream.
func (d *Driver) Snapshot() *stream.Stream[any] {
	return d.snapshots
}

// Deliver completes the parked HTTP request matching the event's
// correlation id. Events for unknown or already-answered requests are
// dropped; only the first delivery per request writes the response.
func (d *Driver) Deliver(ev driver.ResponseEvent) {
	d.mu.Lock()
	ch, ok := d.pending[ev.RequestID]
	if ok {
		delete(d.pending, ev.RequestID)
	}
	d.mu.Unlock()

	if !ok {
		d.logger.Debug("response without parked request", "request_id", ev.RequestID)
		return
	}
	ch <- ev
}

// LoadSnapshot reads a msgpack-encoded state snapshot from disk and pushes
// it onto the hydration stream. Missing files are not an error; hydration is
// best effort.
func (d *Driver) LoadSnapshot(path string) error {
	data, err := os.ReadFile(path) // #nosec G304 -- path is operator-supplied
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.WrapData(err, "HTTPDriver", "LoadSnapshot", "read snapshot file")
	}

	var state any
	if err := msgpack.Unmarshal(data, &state); err != nil {
		return errors.WrapData(err, "HTTPDriver", "LoadSnapshot", "decode snapshot")
	}

	d.snapshots.Next(state)
	return nil
}

// SaveSnapshot writes a msgpack-encoded state snapshot to disk.
func (d *Driver) SaveSnapshot(path string, state any) error {
	data, err := msgpack.Marshal(state)
	if err != nil {
		return errors.WrapData(err, "HTTPDriver", "SaveSnapshot", "encode snapshot")
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.WrapData(err, "HTTPDriver", "SaveSnapshot", "write snapshot file")
	}
	return nil
}

// Handler exposes the underlying router for embedding the driver in an
// existing server instead of calling Start.
func (d *Driver) Handler() http.Handler {
	return d.router
}

// Start serves HTTP until the context is cancelled, then shuts down
// gracefully within the configured timeout.
func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return errors.WrapConfig(errors.ErrAlreadyStarted, "HTTPDriver", "Start", "start check")
	}
	d.started = true
	d.mu.Unlock()

	d.logger.Info("http driver listening", "addr", d.server.Addr)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := d.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, "HTTPDriver", "Start", "serve")
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "HTTPDriver", "Start", "shutdown")
		}
		return nil
	})
	return g.Wait()
}

// handler adapts one matched HTTP request into a RequestRef, parks the
// request, and writes back the first correlated response event.
func (d *Driver) handler(st *stream.Stream[*driver.RequestRef]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.limiter != nil && !d.limiter.Allow() {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		req := d.buildRequest(r)

		reply := make(chan driver.ResponseEvent, 1)
		d.mu.Lock()
		d.pending[req.ID] = reply
		d.mu.Unlock()
		defer func() {
			d.mu.Lock()
			delete(d.pending, req.ID)
			correlated := d.correlated[req.ID]
			delete(d.correlated, req.ID)
			d.mu.Unlock()
			if correlated != nil {
				correlated.Done()
			}
		}()

		d.loop.Post(func() { st.Next(req) })

		ctx := r.Context()
		select {
		case ev := <-reply:
			d.writeResponse(w, ev)
		case <-time.After(responseWait):
			http.Error(w, "component did not respond", http.StatusGatewayTimeout)
		case <-ctx.Done():
		}
	}
}

func (d *Driver) buildRequest(r *http.Request) *driver.RequestRef {
	req := driver.NewRequestRef(uuid.NewString(), r.Method, r.URL.Path, r.Header)

	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		for i, key := range rctx.URLParams.Keys {
			req.Params[key] = rctx.URLParams.Values[i]
		}
	}
	for _, c := range r.Cookies() {
		req.Cookies[c.Name] = c.Value
	}

	if r.Body != nil {
		data, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err == nil && len(data) > 0 {
			var body any
			if json.Unmarshal(data, &body) == nil {
				req.Body = body
			} else {
				req.Body = string(data)
			}
		}
	}
	return req
}

func (d *Driver) writeResponse(w http.ResponseWriter, ev driver.ResponseEvent) {
	w.Header().Set("Content-Type", "application/json")
	if ev.Command != "" {
		w.Header().Set("X-Cyclekit-Command", ev.Command)
	}
	if err := json.NewEncoder(w).Encode(ev.Data); err != nil {
		d.logger.Error("failed to encode response", "error", err, "request_id", ev.RequestID)
	}
}
