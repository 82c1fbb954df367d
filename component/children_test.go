package component

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/cyclekit/driver"
	"github.com/c360/cyclekit/driver/memdriver"
	"github.com/c360/cyclekit/errors"
	"github.com/c360/cyclekit/stream"
)

func childViewFactory(name string) Factory {
	return func(src Sources, loop *stream.Loop) (*Component, error) {
		return New(Config{
			Name:    name,
			Loop:    loop,
			Sources: src,
			View: func(in ViewInput) any {
				return fmt.Sprintf("%s:%v", name, in.State)
			},
		})
	}
}

func TestChildStateIsScopedByName(t *testing.T) {
	loop := stream.NewLoop()
	src := memdriver.New(loop)

	cfg := Config{
		Name:     "parent",
		Loop:     loop,
		Sources:  Sources{DefaultStateSource: src},
		Children: map[string]Factory{"kid": childViewFactory("kid")},
		View: func(in ViewInput) any {
			return map[string]any{
				"own": in.State,
				"kid": in.Children["kid"],
			}
		},
	}

	c, err := New(cfg)
	require.NoError(t, err)
	defer c.Close()

	var last any
	c.Sink(DefaultDOMSink).Subscribe(func(v any) { last = v })
	loop.Flush()

	src.PushState(map[string]any{"kid": map[string]any{"n": 1}, "other": true})
	loop.Flush()

	require.NotNil(t, last)
	render := last.(map[string]any)
	assert.Equal(t, map[string]any{"kid": map[string]any{"n": 1}, "other": true}, render["own"])
	assert.Equal(t, "kid:map[n:1]", render["kid"])
}

func TestChildStateUpdatesOnlyOnItsSlice(t *testing.T) {
	loop := stream.NewLoop()
	src := memdriver.New(loop)

	var kidStates []any
	factory := func(s Sources, l *stream.Loop) (*Component, error) {
		kid, err := New(Config{Name: "kid", Loop: l, Sources: s})
		if err != nil {
			return nil, err
		}
		kid.State().Subscribe(func(v any) { kidStates = append(kidStates, v) })
		return kid, nil
	}

	c, err := New(Config{
		Name:     "parent",
		Loop:     loop,
		Sources:  Sources{DefaultStateSource: src},
		Children: map[string]Factory{"kid": factory},
	})
	require.NoError(t, err)
	defer c.Close()
	loop.Flush()

	src.PushState(map[string]any{"kid": 1, "other": "a"})
	src.PushState(map[string]any{"kid": 1, "other": "b"})
	src.PushState(map[string]any{"kid": 2, "other": "b"})
	loop.Flush()

	// The untouched-slice update produces no child emission.
	assert.Equal(t, []any{1, 2}, kidStates)
}

func TestChildSinksMergeIntoParent(t *testing.T) {
	loop := stream.NewLoop()

	factory := func(s Sources, l *stream.Loop) (*Component, error) {
		return New(Config{
			Name: "kid",
			Loop: l,
			Model: Model{
				"EMIT": SinkReducers{
					"OUT": func(_, _ any, _ DispatchFunc, _ *driver.RequestRef) any {
						return "from-kid"
					},
				},
			},
		})
	}

	c, err := New(Config{
		Name:     "parent",
		Loop:     loop,
		Children: map[string]Factory{"kid": factory},
	})
	require.NoError(t, err)
	defer c.Close()
	loop.Flush()

	var out []any
	require.NotNil(t, c.Sink("OUT"))
	c.Sink("OUT").Subscribe(func(v any) { out = append(out, v) })

	c.children.components["kid"].Dispatch("EMIT", nil)
	loop.Flush()

	assert.Equal(t, []any{"from-kid"}, out)
}

func TestNilChildFactoryIsConfigError(t *testing.T) {
	loop := stream.NewLoop()
	_, err := New(Config{
		Name:     "parent",
		Loop:     loop,
		Children: map[string]Factory{"kid": nil},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidSources)
}

func TestFailingChildConstructionPropagates(t *testing.T) {
	loop := stream.NewLoop()
	factory := func(Sources, *stream.Loop) (*Component, error) {
		return New(Config{Loop: loop}) // missing name
	}

	_, err := New(Config{
		Name:     "parent",
		Loop:     loop,
		Children: map[string]Factory{"kid": factory},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrMissingName)
}

func TestCloseCascadesToChildren(t *testing.T) {
	loop := stream.NewLoop()
	c, err := New(Config{
		Name:     "parent",
		Loop:     loop,
		Children: map[string]Factory{"kid": childViewFactory("kid")},
	})
	require.NoError(t, err)
	loop.Flush()

	kid := c.children.components["kid"]
	c.Close()

	assert.True(t, kid.State().Closed())
}

func TestChildStateWritesBackIntoParentStateSink(t *testing.T) {
	loop := stream.NewLoop()
	src := memdriver.New(loop)

	factory := func(s Sources, l *stream.Loop) (*Component, error) {
		return New(Config{
			Name:    "kid",
			Loop:    l,
			Sources: s,
			Model: Model{
				"BUMP": ReducerFunc(func(state, _ any, _ DispatchFunc, _ *driver.RequestRef) any {
					return state.(int) + 1
				}),
			},
		})
	}

	c, err := New(Config{
		Name:     "parent",
		Loop:     loop,
		Sources:  Sources{DefaultStateSource: src},
		Children: map[string]Factory{"kid": factory},
	})
	require.NoError(t, err)
	defer c.Close()

	var last any
	c.Sink(DefaultStateSource).Subscribe(func(v any) { last = v })
	loop.Flush()

	src.PushState(map[string]any{"kid": 1, "other": "a"})
	loop.Flush()

	c.children.components["kid"].Dispatch("BUMP", nil)
	loop.Flush()

	// The child's new state is lensed back into the parent snapshot.
	assert.Equal(t, map[string]any{"kid": 2, "other": "a"}, last)
}
