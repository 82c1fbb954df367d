package component

import (
	"fmt"

	"github.com/c360/cyclekit/driver"
	"github.com/c360/cyclekit/errors"
	"github.com/c360/cyclekit/stream"
)

// childSet holds the instantiated children of one component and their sinks,
// split by aggregation style: the structural sink is indexed by child name
// so a view function can address each child individually, every other sink
// is merged.
type childSet struct {
	components map[string]*Component
	dom        map[string]*stream.Stream[any]
	merged     map[string][]*stream.Stream[any]
}

// wireChildren instantiates every declared child against the parent's
// source set, narrowing the state source to the child's state slice by
// child name when a state source is present. A child's state emissions are
// written back through the same name-key lens, so the parent's state sink
// carries full parent snapshots with the child's slice updated in place.
func wireChildren(cfg Config, loop *stream.Loop, readState func() any) (*childSet, error) {
	set := &childSet{
		components: make(map[string]*Component, len(cfg.Children)),
		dom:        make(map[string]*stream.Stream[any], len(cfg.Children)),
		merged:     make(map[string][]*stream.Stream[any]),
	}
	if len(cfg.Children) == 0 {
		return set, nil
	}

	stateSrc, hasState := cfg.Sources[cfg.StateSourceName].(driver.StateSource)

	for name, factory := range cfg.Children {
		if factory == nil {
			return nil, errors.WrapConfig(
				fmt.Errorf("child %q has nil factory: %w", name, errors.ErrInvalidSources),
				"ChildAggregator", "wireChildren", "factory validation")
		}

		childSources := make(Sources, len(cfg.Sources))
		for k, v := range cfg.Sources {
			childSources[k] = v
		}
		if hasState {
			if scoped, ok := stateSrc.(driver.ScopedStateSource); ok {
				childSources[cfg.StateSourceName] = scoped.Scope(name)
			} else {
				childSources[cfg.StateSourceName] = driver.ScopeState(stateSrc, name)
			}
		}

		child, err := factory(childSources, loop)
		if err != nil {
			return nil, errors.WrapConfig(err,
				"ChildAggregator", "wireChildren", fmt.Sprintf("child %q construction", name))
		}
		set.components[name] = child

		lens := driver.KeyLens(name)
		for sinkName, sink := range child.Sinks() {
			if sinkName == cfg.DOMSinkName {
				set.dom[name] = sink
				continue
			}
			if sinkName == cfg.StateSourceName {
				sink = stream.Map(sink, func(v any) any {
					return lens.Set(readState(), v)
				})
			}
			set.merged[sinkName] = append(set.merged[sinkName], sink)
		}
	}

	return set, nil
}

// close tears down every child component.
func (cs *childSet) close() {
	for _, child := range cs.components {
		child.Close()
	}
}
