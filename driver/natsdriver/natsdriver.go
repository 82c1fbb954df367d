// Package natsdriver adapts NATS subjects to the driver capability
// interfaces. Subject traffic becomes selectable event streams, and NATS
// request-reply becomes the same request/response shape the HTTP driver
// speaks: a requests.{method}.{route} message parks until the component
// delivers a correlated response, which is sent back as the reply.
package natsdriver

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/c360/cyclekit/config"
	"github.com/c360/cyclekit/driver"
	"github.com/c360/cyclekit/errors"
	"github.com/c360/cyclekit/stream"
)

// RequestIDHeader carries an externally assigned correlation id on inbound
// request messages. Absent, the driver assigns one.
const RequestIDHeader = "Cyclekit-Request-Id"

// Driver is a NATS-backed request source. It implements driver.Selectable,
// driver.MethodSelector, driver.Correlatable and driver.ResponseSink.
type Driver struct {
	nc     *nats.Conn
	loop   *stream.Loop
	logger *slog.Logger

	mu         sync.Mutex
	selects    map[string]*stream.Stream[any]
	methods    map[string]*stream.Stream[*driver.RequestRef]
	correlated map[string]*stream.Stream[any]
	pending    map[string]*nats.Msg
	subs       []*nats.Subscription
}

var (
	_ driver.Selectable     = (*Driver)(nil)
	_ driver.MethodSelector = (*Driver)(nil)
	_ driver.Correlatable   = (*Driver)(nil)
	_ driver.ResponseSink   = (*Driver)(nil)
)

// Connect dials NATS with the configured reconnection policy and wraps the
// connection in a driver.
func Connect(loop *stream.Loop, cfg config.NATSConfig, logger *slog.Logger) (*Driver, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
	)
	if err != nil {
		return nil, errors.WrapConfig(err, "NATSDriver", "Connect", "dial")
	}
	return New(loop, nc, logger), nil
}

// New wraps an existing NATS connection. The caller keeps ownership of the
// connection unless Close is used.
func New(loop *stream.Loop, nc *nats.Conn, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		nc:         nc,
		loop:       loop,
		logger:     logger.With("component", "natsdriver"),
		selects:    make(map[string]*stream.Stream[any]),
		methods:    make(map[string]*stream.Stream[*driver.RequestRef]),
		correlated: make(map[string]*stream.Stream[any]),
		pending:    make(map[string]*nats.Msg),
	}
}

// Conn exposes the underlying connection for diagnostics publishing.
func (d *Driver) Conn() *nats.Conn {
	return d.nc
}

// Select subscribes the subject and returns its decoded event stream.
// Payloads that decode as JSON are delivered decoded; anything else is
// delivered as a raw byte slice.
func (d *Driver) Select(subject string) *stream.Stream[any] {
	d.mu.Lock()
	defer d.mu.Unlock()

	if st, ok := d.selects[subject]; ok {
		return st
	}

	st := stream.New[any](d.loop)
	d.selects[subject] = st

	sub, err := d.nc.Subscribe(subject, func(msg *nats.Msg) {
		v := decodePayload(msg.Data)
		d.loop.Post(func() { st.Next(v) })
	})
	if err != nil {
		d.logger.Error("subject subscription failed", "subject", subject, "error", err)
		return st
	}
	d.subs = append(d.subs, sub)
	return st
}

// Method subscribes requests.{method}.{route} and returns the stream of
// matched request events. Route slashes map to subject token separators.
func (d *Driver) Method(method, route string) (*stream.Stream[*driver.RequestRef], error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := method + " " + route
	if st, ok := d.methods[key]; ok {
		return st, nil
	}

	st := stream.New[*driver.RequestRef](d.loop)
	subject := requestSubject(method, route)

	sub, err := d.nc.Subscribe(subject, func(msg *nats.Msg) {
		req := d.buildRequest(method, route, msg)
		d.loop.Post(func() { st.Next(req) })
	})
	if err != nil {
		return nil, errors.WrapConfig(err, "NATSDriver", "Method", "subscribe "+subject)
	}

	d.methods[key] = st
	d.subs = append(d.subs, sub)
	return st, nil
}

// Request returns the correlated effect stream for one request id.
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

// Deliver answers the parked request message matching the event's
// correlation id. Only the first delivery per request sends the reply.
func (d *Driver) Deliver(ev driver.ResponseEvent) {
	d.mu.Lock()
	msg, ok := d.pending[ev.RequestID]
	if ok {
		delete(d.pending, ev.RequestID)
	}
	correlated := d.correlated[ev.RequestID]
	delete(d.correlated, ev.RequestID)
	d.mu.Unlock()

	if correlated != nil {
		correlated.Done()
	}
	if !ok {
		d.logger.Debug("response without parked request", "request_id", ev.RequestID)
		return
	}

	data, err := json.Marshal(ev.Data)
	if err != nil {
		d.logger.Error("failed to encode reply", "error", err, "request_id", ev.RequestID)
		return
	}
	if err := msg.Respond(data); err != nil {
		d.logger.Error("failed to send reply", "error", err, "request_id", ev.RequestID)
	}
}

// Close drains every subscription and closes the connection.
func (d *Driver) Close() {
	d.mu.Lock()
	subs := d.subs
	d.subs = nil
	d.mu.Unlock()

	for _, sub := range subs {
		if err := sub.Unsubscribe(); err != nil {
			d.logger.Warn("unsubscribe failed", "error", err)
		}
	}
	d.nc.Close()
}

func (d *Driver) buildRequest(method, route string, msg *nats.Msg) *driver.RequestRef {
	id := msg.Header.Get(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}

	req := driver.NewRequestRef(id, method, route, nil)
	req.Body = decodePayload(msg.Data)

	if msg.Reply != "" {
		d.mu.Lock()
		d.pending[id] = msg
		d.mu.Unlock()
	}
	return req
}

func decodePayload(data []byte) any {
	if len(data) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return data
	}
	return v
}

func requestSubject(method, route string) string {
	route = strings.Trim(route, "/")
	route = strings.ReplaceAll(route, "/", ".")
	if route == "" {
		route = "root"
	}
	return "requests." + strings.ToLower(method) + "." + route
}
