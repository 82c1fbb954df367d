package component

import "github.com/c360/cyclekit/driver"

// Built-in action types synthesized by the runtime. User models may register
// reducers for them like any other action; INITIALIZE handlers may only
// target the state sink.
const (
	// ActionBootstrap fires once at startup, after the configured number
	// of bootstrap turn boundaries.
	ActionBootstrap = "BOOTSTRAP"
	// ActionInitialize seeds the state sink with the initial state
	// snapshot before any live action is processed.
	ActionInitialize = "INITIALIZE"
	// ActionHydrate carries an initial snapshot supplied by the
	// request/response driver.
	ActionHydrate = "HYDRATE"
	// ActionFunction tags responses produced directly by a function route,
	// with no round-trip through the action bus. Function-originated
	// responses pass any response selection filter.
	ActionFunction = "FUNCTION"
)

// Action is a named event record driving exactly one round of reducer
// application. Actions are immutable value records. RequestID, when present,
// ties the action to an originating request for later response correlation.
type Action struct {
	Type      string
	Data      any
	RequestID string
	Req       *driver.RequestRef
}

// DispatchFunc schedules delivery of a new action. When handed to a reducer,
// delivery is deferred to the next processing turn: the reducer that issued
// the dispatch completes, and its result is applied, before the dispatched
// action is processed.
type DispatchFunc func(actionType string, data any)

type abortSentinel struct{ _ int8 }

func (*abortSentinel) String() string { return "component.Abort" }

// Abort is the sentinel a state reducer returns to mean "no state change".
// It is a process-unique pointer value, distinguishable from any legitimate
// state a reducer could return, and never appears in the emitted state
// sequence.
var Abort any = &abortSentinel{}
