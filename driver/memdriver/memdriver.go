// Package memdriver provides an in-memory driver implementing every driver
// capability. It backs component tests and embedded setups where no real
// transport exists: test code pushes events in, the component under test
// consumes them through the ordinary capability interfaces.
package memdriver

import (
	"fmt"
	"sync"

	"github.com/c360/cyclekit/driver"
	"github.com/c360/cyclekit/stream"
)

// Source is an in-memory driver. The zero value is not usable; construct
// with New. All streams are created lazily and share the source's loop.
type Source struct {
	loop *stream.Loop

	mu       sync.Mutex
	selects  map[string]*stream.Stream[any]
	methods  map[string]*stream.Stream[*driver.RequestRef]
	requests map[string]*stream.Stream[any]

	states     *stream.Stream[any]
	snapshots  *stream.Stream[any]
	deliveries *stream.Stream[driver.ResponseEvent]

	delivered []driver.ResponseEvent
}

var (
	_ driver.Selectable        = (*Source)(nil)
	_ driver.Correlatable      = (*Source)(nil)
	_ driver.ScopedStateSource = (*Source)(nil)
	_ driver.MethodSelector    = (*Source)(nil)
	_ driver.Hydratable        = (*Source)(nil)
	_ driver.ResponseSink      = (*Source)(nil)
)

// New builds an in-memory source bound to the given loop.
func New(loop *stream.Loop) *Source {
	return &Source{
		loop:       loop,
		selects:    make(map[string]*stream.Stream[any]),
		methods:    make(map[string]*stream.Stream[*driver.RequestRef]),
		requests:   make(map[string]*stream.Stream[any]),
		states:     stream.New[any](loop).Remember(),
		snapshots:  stream.New[any](loop),
		deliveries: stream.New[driver.ResponseEvent](loop),
	}
}

// Select returns the event stream for one route or id.
func (s *Source) Select(routeOrID string) *stream.Stream[any] {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.selects[routeOrID]
	if !ok {
		st = stream.New[any](s.loop)
		s.selects[routeOrID] = st
	}
	return st
}

// Method returns the request stream for one method and route pattern.
func (s *Source) Method(method, route string) (*stream.Stream[*driver.RequestRef], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + route
	st, ok := s.methods[key]
	if !ok {
		st = stream.New[*driver.RequestRef](s.loop)
		s.methods[key] = st
	}
	return st, nil
}

// Request returns the correlated effect stream for one request id.
func (s *Source) Request(id string) *stream.Stream[any] {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.requests[id]
	if !ok {
		st = stream.New[any](s.loop)
		s.requests[id] = st
	}
	return st
}

// State returns the live state stream. The stream is remembered.
func (s *Source) State() *stream.Stream[any] {
	return s.states
}

// Scope narrows the source's state to the named child slice.
func (s *Source) Scope(key string) driver.StateSource {
	return driver.ScopeState(s, key)
}

// Snapshot returns the hydration snapshot stream.
func (s *Source) Snapshot() *stream.Stream[any] {
	return s.snapshots
}

// Deliver records an outbound response event and republishes it on the
// delivery stream.
func (s *Source) Deliver(ev driver.ResponseEvent) {
	s.mu.Lock()
	s.delivered = append(s.delivered, ev)
	s.mu.Unlock()
	s.deliveries.Next(ev)
}

// Deliveries returns a copy of every response event delivered so far.
func (s *Source) Deliveries() []driver.ResponseEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]driver.ResponseEvent, len(s.delivered))
	copy(out, s.delivered)
	return out
}

// DeliveryStream returns the live stream of delivered response events.
func (s *Source) DeliveryStream() *stream.Stream[driver.ResponseEvent] {
	return s.deliveries
}

// EmitSelect pushes one event onto the named select stream.
func (s *Source) EmitSelect(routeOrID string, v any) {
	s.Select(routeOrID).Next(v)
}

// EmitRequest pushes one request event onto the matching method stream.
func (s *Source) EmitRequest(method, route string, req *driver.RequestRef) {
	st, err := s.Method(method, route)
	if err != nil {
		panic(fmt.Sprintf("memdriver: method %q unavailable: %v", method, err))
	}
	st.Next(req)
}

// EmitCorrelated pushes one correlated effect for the given request id.
func (s *Source) EmitCorrelated(id string, v any) {
	s.Request(id).Next(v)
}

// PushState pushes one value onto the state stream.
func (s *Source) PushState(v any) {
	s.states.Next(v)
}

// PushSnapshot pushes one hydration snapshot.
func (s *Source) PushSnapshot(v any) {
	s.snapshots.Next(v)
}
