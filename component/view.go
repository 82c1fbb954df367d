package component

import (
	"github.com/c360/cyclekit/metric"
	"github.com/c360/cyclekit/stream"
)

// wireView builds the structural sink: the view function applied to the
// combination of the live state stream and the structural child mapping.
// Bursts of synchronous changes are coalesced to one recomputation per
// turn, and the latest render is remembered so late subscribers receive the
// current render immediately.
func wireView(
	cfg Config, states *stream.Stream[any], dom map[string]*stream.Stream[any],
	loop *stream.Loop, logger *Logger, metrics *metric.Runtime,
) *stream.Stream[any] {
	if cfg.View == nil {
		// A viewless component still carries a structural sink so
		// parents can address it uniformly; it renders nil exactly
		// once.
		return stream.StartWith[any](stream.New[any](loop), nil)
	}

	// Latest-value snapshots are loop-confined: all constituent streams
	// deliver on the same loop, one emission at a time.
	var (
		latestState any
		hasState    bool
	)
	children := make(map[string]any, len(dom))

	changes := stream.New[struct{}](loop)

	stateSub := states.Subscribe(func(s any) {
		latestState = s
		hasState = true
		changes.Next(struct{}{})
	})
	changes.OnDone(stateSub.Unsubscribe)

	for name, childDOM := range dom {
		sub := childDOM.Subscribe(func(v any) {
			children[name] = v
			changes.Next(struct{}{})
		})
		changes.OnDone(sub.Unsubscribe)
	}

	coalesced := stream.Coalesce(changes)
	rendered := stream.FilterMap(coalesced, func(struct{}) (any, bool) {
		if !hasState {
			return nil, false
		}
		snapshot := make(map[string]any, len(children))
		for k, v := range children {
			snapshot[k] = v
		}
		result := cfg.View(ViewInput{State: latestState, Children: snapshot})
		metrics.RecordRender(cfg.Name)
		logger.TraceRender()
		return result, true
	})

	out := rendered.Remember()
	out.OnDone(changes.Done)
	return out
}
