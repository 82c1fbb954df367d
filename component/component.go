package component

import (
	"sync"

	"github.com/c360/cyclekit/driver"
	"github.com/c360/cyclekit/errors"
	"github.com/c360/cyclekit/metric"
	"github.com/c360/cyclekit/stream"
)

// Component is a fully wired instance of a declarative Config: an action
// bus, a reducer engine, request/response correlation, child composition,
// and a view scheduler, all producing one named sink set.
//
// A component is constructed once per mount and torn down with Close, which
// propagates teardown to every derived stream and recursively to every
// child.
type Component struct {
	name    string
	cfg     Config
	loop    *stream.Loop
	logger  *Logger
	metrics *metric.Runtime

	bus      *actionBus
	children *childSet
	states   *stream.Stream[any]
	sinks    map[string]*stream.Stream[any]

	// Router streams are retained so Close can complete them: route and
	// correlation subscriptions register their cleanup on these streams,
	// not on any sink.
	responses    *stream.Stream[Response]
	outResponses *stream.Stream[any]

	// currentState is the side-channel cache of the last delivered state:
	// written only by the state subscription, read by effect reducers and
	// request handlers that need synchronous access outside the state
	// stream's own propagation.
	mu           sync.RWMutex
	currentState any
	err          error
	closed       bool
}

// New wires a component from its declarative description. All configuration
// errors are raised here, before any stream processing begins.
func New(cfg Config) (*Component, error) {
	cfg = cfg.withDefaults()

	if cfg.Name == "" {
		return nil, errors.WrapConfig(errors.ErrMissingName, "Component", "New", "config validation")
	}
	if cfg.Sources == nil {
		// Explicit default branch: a rootless component may be wired
		// with no sources at all.
		cfg.Sources = Sources{}
	}

	loop := cfg.Loop
	if loop == nil {
		loop = stream.NewLoop()
	}

	logger := NewLogger(cfg.Name, cfg.Logger, cfg.Diagnostics, cfg.Verbose)

	c := &Component{
		name:    cfg.Name,
		cfg:     cfg,
		loop:    loop,
		logger:  logger,
		metrics: cfg.Metrics,
	}

	if cfg.IsRoot && cfg.Intent == nil && cfg.Model == nil {
		logger.Warn("root component has neither intent nor model")
	}

	registry, err := compileModel(cfg.Model, cfg.StateSourceName, logger)
	if err != nil {
		return nil, err
	}
	// Default INITIALIZE handler: the seed snapshot becomes the first
	// state value. A model-declared INITIALIZE override replaces it.
	if _, ok := registry.lookup(cfg.StateSourceName, ActionInitialize); !ok {
		initErr := registry.add(cfg.StateSourceName, ActionInitialize,
			func(_, data any, _ DispatchFunc, _ *driver.RequestRef) any { return data })
		if initErr != nil {
			return nil, initErr
		}
	}

	c.bus = newActionBus(cfg.Name, loop, logger, cfg.Metrics, cfg.DispatchTurns)
	if err := c.bus.attachIntent(cfg.Intent, cfg.Sources); err != nil {
		return nil, err
	}

	engine := &modelEngine{name: cfg.Name, registry: registry, logger: logger, metrics: cfg.Metrics}

	// State pipeline: deferred reducer thunks folded over the value
	// current at emission time. Abort results never reach the emitted
	// sequence.
	c.states = stream.New[any](loop).Remember()
	c.states.Subscribe(c.setState)

	updates := engine.wireState(c.bus)
	updates.Subscribe(func(u stateUpdate) {
		next := u.apply(c.CurrentState())
		if next == Abort {
			return
		}
		c.states.Next(next)
	})

	effects := engine.wireEffects(c.bus, c.CurrentState, c.fail)

	c.responses, err = wireRequests(cfg, c.bus, c.CurrentState, effects, logger, cfg.Metrics)
	if err != nil {
		return nil, err
	}
	c.outResponses, err = wireResponses(cfg, c.responses, loop, logger, cfg.Metrics)
	if err != nil {
		return nil, err
	}

	c.children, err = wireChildren(cfg, loop, c.CurrentState)
	if err != nil {
		return nil, err
	}

	view := wireView(cfg, c.states, c.children.dom, loop, logger, cfg.Metrics)

	c.assembleSinks(effects, c.outResponses, view)
	c.wireRequestSource()

	// An external state source feeds the same live state stream the
	// component's own reducers do; the cache follows whatever is
	// delivered last.
	externalState := false
	if src, ok := cfg.Sources[cfg.StateSourceName].(driver.StateSource); ok {
		externalState = true
		sub := src.State().Subscribe(c.states.Next)
		c.states.OnDone(sub.Unsubscribe)
	}

	// Seed INITIALIZE ahead of bootstrap and live traffic. A component
	// fed purely by an external state source is not seeded with nil.
	if cfg.InitialState != nil || !externalState {
		c.bus.seedInitialize(cfg.InitialState)
	}
	c.bus.bootstrap(cfg.BootstrapTurns)

	return c, nil
}

// assembleSinks builds the component's final sink set: the union of the
// declared source names, the model's sinks, and the children's sinks. The
// structural sink carries the view output; every other sink merges the
// parent's model-derived emissions with the children's.
func (c *Component) assembleSinks(
	effects map[string]*stream.Stream[any],
	outResponses *stream.Stream[any],
	view *stream.Stream[any],
) {
	names := map[string]struct{}{
		c.cfg.DOMSinkName:       {},
		c.cfg.StateSourceName:   {},
		c.cfg.RequestSourceName: {},
	}
	for name := range c.cfg.Sources {
		names[name] = struct{}{}
	}
	for name := range effects {
		names[name] = struct{}{}
	}
	for name := range c.children.merged {
		names[name] = struct{}{}
	}

	c.sinks = make(map[string]*stream.Stream[any], len(names))
	for name := range names {
		switch name {
		case c.cfg.DOMSinkName:
			c.sinks[name] = view
		case c.cfg.StateSourceName:
			parts := append([]*stream.Stream[any]{c.states}, c.children.merged[name]...)
			c.sinks[name] = stream.Merge(c.loop, parts...).Remember()
		default:
			var parts []*stream.Stream[any]
			if name == c.cfg.RequestSourceName && outResponses != nil {
				parts = append(parts, outResponses)
			}
			if eff, ok := effects[name]; ok {
				parts = append(parts, eff)
			}
			parts = append(parts, c.children.merged[name]...)
			c.sinks[name] = stream.Merge(c.loop, parts...)
		}
	}
}

// wireRequestSource connects the request/response sink back to a source
// that accepts deliveries, and maps driver-supplied snapshots to HYDRATE
// actions.
func (c *Component) wireRequestSource() {
	src, ok := c.cfg.Sources[c.cfg.RequestSourceName]
	if !ok {
		return
	}

	if sink, ok := src.(driver.ResponseSink); ok {
		out := c.sinks[c.cfg.RequestSourceName]
		sub := out.Subscribe(func(v any) {
			if ev, ok := v.(driver.ResponseEvent); ok {
				sink.Deliver(ev)
			}
		})
		out.OnDone(sub.Unsubscribe)
	}

	if hydratable, ok := src.(driver.Hydratable); ok {
		c.bus.attachHydrate(hydratable.Snapshot())
	}
}

// Name returns the component's diagnostic identifier.
func (c *Component) Name() string {
	return c.name
}

// Loop returns the scheduler the component tree runs on.
func (c *Component) Loop() *stream.Loop {
	return c.loop
}

// Sinks returns the component's full named sink set.
func (c *Component) Sinks() map[string]*stream.Stream[any] {
	return c.sinks
}

// Sink returns one named sink, or nil if the component does not produce it.
func (c *Component) Sink(name string) *stream.Stream[any] {
	return c.sinks[name]
}

// State returns the component's own live state stream. It never terminates
// except on teardown.
func (c *Component) State() *stream.Stream[any] {
	return c.states
}

// CurrentState returns the cached side-channel copy of the last delivered
// state. It may lag a state reducer that has been scheduled but not yet
// delivered in the current synchronous batch.
func (c *Component) CurrentState() any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentState
}

// Dispatch injects an action from outside the component, scheduled on the
// loop's current turn. Dispatching against a closed component drops the
// action.
func (c *Component) Dispatch(actionType string, data any) {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		c.logger.Error("action dispatched after close", errors.ErrStreamClosed,
			"action", actionType)
		c.metrics.RecordDrop(c.name, "dispatch_after_close")
		return
	}
	c.bus.Post(Action{Type: actionType, Data: data})
}

// Err returns the first fatal processing error, if any.
func (c *Component) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Close tears down the component: every derived stream completes and every
// child component closes recursively. Idempotent.
func (c *Component) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.children.close()
	c.bus.actions.Done()
	c.states.Done()
	// Completing the response streams detaches every route subscription
	// from the driver's method streams and every correlation
	// subscription along with them.
	if c.responses != nil {
		c.responses.Done()
	}
	if c.outResponses != nil {
		c.outResponses.Done()
	}
	for _, sink := range c.sinks {
		sink.Done()
	}
}

func (c *Component) setState(s any) {
	c.mu.Lock()
	c.currentState = s
	c.mu.Unlock()
}

func (c *Component) fail(err error) {
	c.mu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.mu.Unlock()
}
