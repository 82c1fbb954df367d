package component

import (
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/c360/cyclekit/driver"
	"github.com/c360/cyclekit/metric"
	"github.com/c360/cyclekit/stream"
)

// Default role bindings. Each can be renamed per component in Config.
const (
	DefaultDOMSink       = "DOM"
	DefaultStateSource   = "STATE"
	DefaultRequestSource = "ROUTER"
)

// Sources is the capability map a component is constructed against. Values
// are driver instances; the runtime depends only on the capability
// interfaces in the driver package.
type Sources map[string]any

// IntentFunc derives the component's own actions from its sources. The
// returned value must be either a *stream.Stream[Action] or a
// map[string]*stream.Stream[any] keyed by action type (each data occurrence
// is wrapped into an Action of that type). Anything else is a configuration
// error at construction time.
type IntentFunc func(src Sources) any

// ReducerFunc computes either a new state or an effect value from the
// current state and incoming action data. State reducers may return Abort to
// leave the state unchanged. Effect reducers run against the cached
// side-channel state, not the live state stream.
type ReducerFunc func(state, data any, dispatch DispatchFunc, req *driver.RequestRef) any

// SinkReducers maps sink names to the reducer handling one action type on
// each of those sinks.
type SinkReducers map[string]ReducerFunc

// Model maps action types to their reducers. A value is either a bare
// ReducerFunc — shorthand for "state sink only" — or a SinkReducers map.
// The model is compiled into a typed registry at construction; any other
// value type is a configuration error.
type Model map[string]any

// RouteFunc is a request target invoked synchronously with the cached state
// and the matched request. Its return value becomes a ready-made response
// tagged FUNCTION, with no round-trip through the action bus.
type RouteFunc func(state any, req *driver.RequestRef) any

// RequestMap declares method and route handlers: method → route pattern →
// target. A target is either an action type name (string) or a RouteFunc.
type RequestMap map[string]map[string]any

// ResponseFunc selects and formats request-correlated sink emissions. It
// receives a selector over the merged response stream and returns a mapping
// from command name to the stream of responses to deliver under that
// command.
type ResponseFunc func(sel *ResponseSelector) map[string]*stream.Stream[Response]

// ViewInput is the named-parameter object a view function is invoked with.
type ViewInput struct {
	State    any
	Children map[string]any
}

// ViewFunc is an opaque pure function from a render input to a render-tree
// value. The runtime never inspects the returned value.
type ViewFunc func(in ViewInput) any

// Factory instantiates a child component against the (possibly narrowed)
// source set it is given. The loop is the parent's scheduler; the factory
// must pass it through as the child Config's Loop so the whole tree shares
// one logical thread of control.
type Factory func(src Sources, loop *stream.Loop) (*Component, error)

// Config is the declarative description a component is constructed from.
type Config struct {
	// Name identifies the component in diagnostics. Required.
	Name string

	// Sources is the capability map. Required keys are driver-specific.
	Sources Sources

	// Intent derives the component's own actions. Optional.
	Intent IntentFunc

	// Model maps action types to reducers per sink. Optional.
	Model Model

	// Request declares method+route handlers against the request source.
	// Optional.
	Request RequestMap

	// Response selects and formats request-correlated responses. Only
	// valid together with Request.
	Response ResponseFunc

	// View renders the component. Optional; without it the structural
	// sink emits a single nil render.
	View ViewFunc

	// Children declares nested component factories by name.
	Children map[string]Factory

	// InitialState seeds the state sink before any live action.
	InitialState any

	// IsRoot marks the root of a component tree. Rootless components get
	// an explicit no-op intent/model default rather than relying on
	// global state.
	IsRoot bool

	// Role bindings. Empty values take the defaults DOM, STATE, ROUTER.
	DOMSinkName       string
	StateSourceName   string
	RequestSourceName string

	// DispatchTurns is how many turn boundaries a reducer-issued dispatch
	// waits for; BootstrapTurns the same for the BOOTSTRAP action. They
	// are independent knobs. Zero values mean 1.
	DispatchTurns  int
	BootstrapTurns int

	// Loop is the scheduler to wire on. A root component without one
	// gets a fresh loop; children inherit the parent's.
	Loop *stream.Loop

	// Logger receives diagnostics. Defaults to slog.Default().
	Logger *slog.Logger

	// Metrics records runtime counters. Optional.
	Metrics *metric.Runtime

	// Verbose enables debug tracing of dispatch, registration, sink
	// sends, renders and response delivery. The CYCLEKIT_DEBUG
	// environment variable turns it on process-wide.
	Verbose bool

	// Diagnostics, when set, additionally publishes log entries to NATS
	// under logs.{component}. Side-channel only.
	Diagnostics *nats.Conn
}

// withDefaults resolves role bindings and scheduling knobs.
func (cfg Config) withDefaults() Config {
	if cfg.DOMSinkName == "" {
		cfg.DOMSinkName = DefaultDOMSink
	}
	if cfg.StateSourceName == "" {
		cfg.StateSourceName = DefaultStateSource
	}
	if cfg.RequestSourceName == "" {
		cfg.RequestSourceName = DefaultRequestSource
	}
	if cfg.DispatchTurns <= 0 {
		cfg.DispatchTurns = 1
	}
	if cfg.BootstrapTurns <= 0 {
		cfg.BootstrapTurns = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return cfg
}
