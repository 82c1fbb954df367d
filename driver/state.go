package driver

import (
	"reflect"

	"github.com/c360/cyclekit/stream"
)

// Lens is a pure view over a parent state value: Get projects the child's
// slice out of the parent, Set writes a new child value back, returning the
// updated parent. Neither function may mutate its argument.
type Lens struct {
	Get func(parent any) any
	Set func(parent any, child any) any
}

// KeyLens is the default lens used to narrow a parent state to a named
// child: the child's slice is parent[key] when the parent state is a
// map[string]any, nil otherwise. Set copies the parent map before writing.
func KeyLens(key string) Lens {
	return Lens{
		Get: func(parent any) any {
			m, ok := parent.(map[string]any)
			if !ok {
				return nil
			}
			return m[key]
		},
		Set: func(parent any, child any) any {
			m, ok := parent.(map[string]any)
			if !ok {
				return parent
			}
			next := make(map[string]any, len(m))
			for k, v := range m {
				next[k] = v
			}
			next[key] = child
			return next
		},
	}
}

// stateView is a read-only StateSource derived from a parent through a lens.
type stateView struct {
	states *stream.Stream[any]
}

func (v *stateView) State() *stream.Stream[any] {
	return v.states
}

func (v *stateView) Scope(key string) StateSource {
	return ScopeStateLens(v, KeyLens(key))
}

// ScopeState narrows parent to the named child slice with the default key
// lens. Repeated identical child views are dropped so a parent update that
// does not touch the child's slice produces no child emission.
func ScopeState(parent StateSource, key string) StateSource {
	return ScopeStateLens(parent, KeyLens(key))
}

// ScopeStateLens narrows parent through an explicit lens.
func ScopeStateLens(parent StateSource, lens Lens) StateSource {
	projected := stream.Map(parent.State(), lens.Get)
	deduped := stream.DropRepeatsFunc(projected, func(prev, next any) bool {
		return reflect.DeepEqual(prev, next)
	})
	return &stateView{states: deduped.Remember()}
}
