// Package driver defines the contract between CycleKit components and the
// stream drivers that feed them. A driver is any value placed in a
// component's source map; the runtime depends only on the narrow capability
// interfaces below, never on concrete driver types.
//
// The capability interfaces replace duck-typed probing: a driver declares
// what it can do by implementing Selectable, Correlatable, StateSource,
// MethodSelector, Hydratable, or ScopedStateSource, and component wiring
// checks for exactly the capabilities it needs at construction time.
package driver

import (
	"net/http"

	"github.com/c360/cyclekit/stream"
)

// Selectable is a source that can narrow its event stream by route or id.
// Structural (DOM-like) sources and generic event sources implement this.
type Selectable interface {
	Select(routeOrID string) *stream.Stream[any]
}

// Correlatable is a source that can replay driver-level effects tagged with
// a request correlation id. The request/response layer merges every
// Correlatable source's Request stream when collecting responses for an
// action-routed request. Multiple responses per request are allowed and all
// are delivered.
type Correlatable interface {
	Request(id string) *stream.Stream[any]
}

// StateSource is a source exposing a live state value stream. The stream is
// expected to be remembered: subscribing late yields the current value.
type StateSource interface {
	State() *stream.Stream[any]
}

// ScopedStateSource is a StateSource that can produce a narrowed view of
// itself for a named child. Scoping is pure view construction over the
// parent's state values; it never mutates the parent source.
type ScopedStateSource interface {
	StateSource
	Scope(key string) StateSource
}

// MethodSelector is a request-bearing source exposing per-HTTP-method
// selectors keyed by route pattern. Method returns a stream of matched
// request events for the given method and route, or an error if the method
// capability is not available.
type MethodSelector interface {
	Method(method, route string) (*stream.Stream[*RequestRef], error)
}

// Hydratable is a request/response source that can supply an initial state
// snapshot. Each snapshot value becomes a HYDRATE action on the bus.
type Hydratable interface {
	Snapshot() *stream.Stream[any]
}

// ResponseSink is a source that accepts the component's outbound
// request/response traffic. Drivers implementing this receive every
// ResponseEvent the component emits on its request/response sink.
type ResponseSink interface {
	Deliver(ev ResponseEvent)
}

// RequestRef is a deduplicatable unit of inbound request traffic. Two
// consecutive request events with equal IDs are treated as one logical
// request.
type RequestRef struct {
	ID      string
	Method  string
	URL     string
	Params  map[string]string
	Body    any
	Cookies map[string]string

	header http.Header
}

// NewRequestRef builds a request event carrying the given header set.
func NewRequestRef(id, method, url string, header http.Header) *RequestRef {
	return &RequestRef{
		ID:      id,
		Method:  method,
		URL:     url,
		Params:  map[string]string{},
		Cookies: map[string]string{},
		header:  header,
	}
}

// Get returns the named request header, or the empty string.
func (r *RequestRef) Get(key string) string {
	if r == nil || r.header == nil {
		return ""
	}
	return r.header.Get(key)
}

// ResponseEvent is the response delivery shape merged into a component's
// request/response sink. Every event carries the correlation id of the
// request it answers.
type ResponseEvent struct {
	RequestID  string
	ActionType string
	Command    string
	Data       any
}
