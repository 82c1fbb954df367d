package component

import (
	"github.com/c360/cyclekit/errors"
	"github.com/c360/cyclekit/metric"
	"github.com/c360/cyclekit/stream"
)

// actionBus merges every source of actions into one ordered stream:
// intent-derived actions, the BOOTSTRAP action, HYDRATE actions from driver
// snapshots, and actions injected by reducers through dispatch. It owns
// re-entrant dispatch: reducer-issued dispatches are deferred to the next
// turn so the issuing reducer fully settles before the dispatched action is
// processed.
type actionBus struct {
	name          string
	loop          *stream.Loop
	actions       *stream.Stream[Action]
	logger        *Logger
	metrics       *metric.Runtime
	dispatchTurns int
}

func newActionBus(name string, loop *stream.Loop, logger *Logger, metrics *metric.Runtime, dispatchTurns int) *actionBus {
	return &actionBus{
		name:          name,
		loop:          loop,
		actions:       stream.New[Action](loop),
		logger:        logger,
		metrics:       metrics,
		dispatchTurns: dispatchTurns,
	}
}

// Actions returns the bus's ordered action stream.
func (b *actionBus) Actions() *stream.Stream[Action] {
	return b.actions
}

// Inject delivers an action synchronously. The caller must already be
// running on the loop — request-triggered actions take this path because
// the caller is outside any reducer context.
func (b *actionBus) Inject(a Action) {
	b.logger.TraceAction(a)
	b.metrics.RecordAction(b.name, a.Type)
	b.actions.Next(a)
}

// Post delivers an action from any goroutine on the loop's current turn.
func (b *actionBus) Post(a Action) {
	b.loop.Post(func() { b.Inject(a) })
}

// Dispatch is the reducer-facing injection path: delivery waits for the
// configured number of turn boundaries, bounding synchronous recursion and
// preserving "current action fully settles before the next begins".
func (b *actionBus) Dispatch(actionType string, data any) {
	b.loop.After(b.dispatchTurns, func() {
		b.Inject(Action{Type: actionType, Data: data})
	})
}

// attachIntent validates the intent result and merges its actions into the
// bus. The result must be an action stream or an action-type → data-stream
// map; anything else is a configuration error.
func (b *actionBus) attachIntent(intent IntentFunc, src Sources) error {
	if intent == nil {
		return nil
	}

	switch v := intent(src).(type) {
	case *stream.Stream[Action]:
		sub := v.Subscribe(b.Inject)
		b.actions.OnDone(sub.Unsubscribe)
	case map[string]*stream.Stream[any]:
		for actionType, data := range v {
			if data == nil {
				return errors.WrapConfig(errors.ErrInvalidIntent,
					"ActionBus", "attachIntent", "nil data stream for "+actionType)
			}
			sub := data.Subscribe(func(d any) {
				b.Inject(Action{Type: actionType, Data: d})
			})
			b.actions.OnDone(sub.Unsubscribe)
		}
	default:
		return errors.WrapConfig(errors.ErrInvalidIntent, "ActionBus", "attachIntent", "intent result validation")
	}
	return nil
}

// bootstrap schedules the one-shot BOOTSTRAP action after the configured
// number of turn boundaries. Independent of the dispatch deferral knob.
func (b *actionBus) bootstrap(turns int) {
	b.loop.After(turns, func() {
		b.Inject(Action{Type: ActionBootstrap})
	})
}

// attachHydrate maps driver-supplied snapshots into HYDRATE actions.
func (b *actionBus) attachHydrate(snapshots *stream.Stream[any]) {
	sub := snapshots.Subscribe(func(s any) {
		b.Inject(Action{Type: ActionHydrate, Data: s})
	})
	b.actions.OnDone(sub.Unsubscribe)
}

// seedInitialize queues the INITIALIZE pseudo-action carrying the initial
// state snapshot on the current turn, ahead of bootstrap and any live
// action, so the first state value is deterministic.
func (b *actionBus) seedInitialize(initialState any) {
	b.loop.Post(func() {
		b.Inject(Action{Type: ActionInitialize, Data: initialState})
	})
}
