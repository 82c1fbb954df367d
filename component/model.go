package component

import (
	"fmt"
	"reflect"
	"time"

	"github.com/c360/cyclekit/driver"
	"github.com/c360/cyclekit/errors"
	"github.com/c360/cyclekit/metric"
	"github.com/c360/cyclekit/stream"
)

// SinkEvent is the stamped form of a non-state effect value. Object-like
// reducer returns are wrapped so every request-driven effect carries the
// correlation id and originating action type of the action that produced it.
type SinkEvent struct {
	RequestID  string
	ActionType string
	Data       any
}

type reducerKind int

const (
	stateKind reducerKind = iota
	effectKind
)

type reducerEntry struct {
	sink       string
	actionType string
	kind       reducerKind
	fn         ReducerFunc
}

// reducerRegistry is the typed registry built once at construction: a
// mapping from (sink, action type) to a tagged reducer variant. All shape
// validation happens here, not during stream processing.
type reducerRegistry struct {
	stateSink string
	entries   map[string]map[string]reducerEntry // sink → action type → entry
}

func newReducerRegistry(stateSink string) *reducerRegistry {
	return &reducerRegistry{
		stateSink: stateSink,
		entries:   make(map[string]map[string]reducerEntry),
	}
}

func (r *reducerRegistry) add(sink, actionType string, fn ReducerFunc) error {
	if fn == nil {
		return errors.WrapConfig(
			fmt.Errorf("action %q sink %q: %w", actionType, sink, errors.ErrInvalidModel),
			"ModelEngine", "add", "reducer validation")
	}

	kind := effectKind
	if sink == r.stateSink {
		kind = stateKind
	}

	byAction, ok := r.entries[sink]
	if !ok {
		byAction = make(map[string]reducerEntry)
		r.entries[sink] = byAction
	}
	if _, exists := byAction[actionType]; exists {
		// Deterministic: duplicate (type, sink) registration always errors.
		return errors.WrapConfig(
			fmt.Errorf("action %q sink %q: %w", actionType, sink, errors.ErrDuplicateReducer),
			"ModelEngine", "add", "duplicate registration check")
	}

	byAction[actionType] = reducerEntry{sink: sink, actionType: actionType, kind: kind, fn: fn}
	return nil
}

func (r *reducerRegistry) lookup(sink, actionType string) (reducerEntry, bool) {
	byAction, ok := r.entries[sink]
	if !ok {
		return reducerEntry{}, false
	}
	entry, ok := byAction[actionType]
	return entry, ok
}

func (r *reducerRegistry) sinks() []string {
	names := make([]string, 0, len(r.entries))
	for sink := range r.entries {
		names = append(names, sink)
	}
	return names
}

// compileModel builds the typed registry from the declarative model map. A
// model entry is either a bare reducer (state-sink shorthand) or a sink →
// reducer map. INITIALIZE handlers may only target the state sink; handlers
// for other sinks under INITIALIZE are dropped with a warning.
func compileModel(model Model, stateSink string, logger *Logger) (*reducerRegistry, error) {
	registry := newReducerRegistry(stateSink)

	for actionType, spec := range model {
		switch v := spec.(type) {
		case ReducerFunc:
			if err := registry.add(stateSink, actionType, v); err != nil {
				return nil, err
			}
			logger.TraceReducer(stateSink, actionType)
		case func(state, data any, dispatch DispatchFunc, req *driver.RequestRef) any:
			if err := registry.add(stateSink, actionType, v); err != nil {
				return nil, err
			}
			logger.TraceReducer(stateSink, actionType)
		case SinkReducers:
			if err := addSinkReducers(registry, actionType, v, stateSink, logger); err != nil {
				return nil, err
			}
		case map[string]ReducerFunc:
			if err := addSinkReducers(registry, actionType, v, stateSink, logger); err != nil {
				return nil, err
			}
		default:
			return nil, errors.WrapConfig(
				fmt.Errorf("action %q: %w", actionType, errors.ErrInvalidModel),
				"ModelEngine", "compileModel", "model entry validation")
		}
	}

	return registry, nil
}

func addSinkReducers(
	registry *reducerRegistry, actionType string, reducers map[string]ReducerFunc,
	stateSink string, logger *Logger,
) error {
	for sink, fn := range reducers {
		if actionType == ActionInitialize && sink != stateSink {
			logger.Warn("INITIALIZE handler may only target the state sink; dropping",
				"sink", sink)
			continue
		}
		if err := registry.add(sink, actionType, fn); err != nil {
			return err
		}
		logger.TraceReducer(sink, actionType)
	}
	return nil
}

// stateUpdate is a deferred state transition: apply executes the reducer
// against the state value current at emission time, returning the new state
// or Abort.
type stateUpdate struct {
	action Action
	apply  func(state any) any
}

// modelEngine maps action types to reducer applications per sink: one
// merged state-update stream for the state sink, and one merged effect
// stream per non-state sink.
type modelEngine struct {
	name     string
	registry *reducerRegistry
	logger   *Logger
	metrics  *metric.Runtime
}

// wireState produces the state sink's update stream. Reducer application is
// deferred until fold time so it executes against the state current at
// emission.
func (m *modelEngine) wireState(bus *actionBus) *stream.Stream[stateUpdate] {
	stateSink := m.registry.stateSink
	return stream.FilterMap(bus.Actions(), func(a Action) (stateUpdate, bool) {
		entry, ok := m.registry.lookup(stateSink, a.Type)
		if !ok {
			return stateUpdate{}, false
		}
		fn := entry.fn
		return stateUpdate{
			action: a,
			apply: func(state any) any {
				start := time.Now()
				defer func() {
					m.metrics.ObserveReducer(m.name, stateSink, time.Since(start))
				}()
				return fn(state, a.Data, bus.Dispatch, a.Req)
			},
		}, true
	})
}

// wireEffects produces one merged stream per non-state sink. Effect
// reducers execute immediately against the cached side-channel state; the
// return-type policy stamps object values and rejects unsupported kinds.
func (m *modelEngine) wireEffects(
	bus *actionBus, readState func() any, onFatal func(error),
) map[string]*stream.Stream[any] {
	effects := make(map[string]*stream.Stream[any])

	for _, sink := range m.registry.sinks() {
		if sink == m.registry.stateSink {
			continue
		}
		effects[sink] = stream.FilterMap(bus.Actions(), func(a Action) (any, bool) {
			entry, ok := m.registry.lookup(sink, a.Type)
			if !ok {
				return nil, false
			}

			start := time.Now()
			result := entry.fn(readState(), a.Data, bus.Dispatch, a.Req)
			m.metrics.ObserveReducer(m.name, sink, time.Since(start))

			if result == Abort {
				return nil, false
			}
			stamped, err := m.stampEffect(result, a, sink)
			if err != nil {
				m.logger.Error("unsupported reducer return", err, "sink", sink, "action", a.Type)
				m.metrics.RecordDrop(m.name, "unsupported_return")
				onFatal(err)
				return nil, false
			}

			m.logger.TraceSinkSend(sink, a)
			return stamped, true
		})
	}

	return effects
}

// stampEffect applies the non-state return-type policy: scalars and
// functions pass through unchanged, object values are stamped with the
// request id and action type, nil is allowed but logged, and anything else
// is fatal.
func (m *modelEngine) stampEffect(v any, a Action, sink string) (any, error) {
	if v == nil {
		m.logger.Warn("effect reducer returned nil", "sink", sink, "action", a.Type)
		return nil, nil
	}
	if _, ok := v.(SinkEvent); ok {
		return v, nil
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.Func:
		return v, nil
	case reflect.Struct, reflect.Map, reflect.Slice, reflect.Array, reflect.Pointer:
		return SinkEvent{RequestID: a.RequestID, ActionType: a.Type, Data: v}, nil
	default:
		return nil, errors.WrapFatal(
			fmt.Errorf("%w: %T", errors.ErrUnsupportedReturn, v),
			"ModelEngine", "stampEffect", "reducer return type")
	}
}
