package component

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/cyclekit/errors"
	"github.com/c360/cyclekit/stream"
)

func counterRegistration() Registration {
	return Registration{
		Name:        "counter",
		Description: "incrementing counter",
		Version:     "1.0.0",
		Factory: func(src Sources, loop *stream.Loop) (*Component, error) {
			cfg := counterConfig(loop)
			cfg.Sources = src
			return New(cfg)
		},
	}
}

func TestRegistryRegisterValidation(t *testing.T) {
	r := NewRegistry()

	err := r.Register(Registration{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrMissingName)

	err = r.Register(Registration{Name: "bare"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnknownFactory)

	require.NoError(t, r.Register(counterRegistration()))
	err = r.Register(counterRegistration())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrDuplicateFactory)
}

func TestRegistryMountAndUnmount(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(counterRegistration()))

	loop := stream.NewLoop()
	c, err := r.Mount("counter-main", "counter", Sources{}, loop)
	require.NoError(t, err)
	loop.Flush()

	got, ok := r.Instance("counter-main")
	require.True(t, ok)
	assert.Same(t, c, got)

	_, err = r.Mount("other", "missing", Sources{}, loop)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnknownFactory)

	require.NoError(t, r.Unmount("counter-main"))
	assert.True(t, c.State().Closed())

	err = r.Unmount("counter-main")
	require.Error(t, err)
}

func TestRegistryDuplicateInstanceRejected(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(counterRegistration()))

	loop := stream.NewLoop()
	_, err := r.Mount("one", "counter", Sources{}, loop)
	require.NoError(t, err)

	dup, err := r.Mount("one", "counter", Sources{}, loop)
	require.Error(t, err)
	assert.Nil(t, dup)
	assert.ErrorIs(t, err, errors.ErrDuplicateFactory)
}

func TestRegistryListSorted(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		reg := counterRegistration()
		reg.Name = name
		require.NoError(t, r.Register(reg))
	}

	infos := r.List()
	require.Len(t, infos, 3)
	assert.Equal(t, "alpha", infos[0].Name)
	assert.Equal(t, "mid", infos[1].Name)
	assert.Equal(t, "zeta", infos[2].Name)
}

func TestRegistryCloseAll(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(counterRegistration()))

	loop := stream.NewLoop()
	a, err := r.Mount("a", "counter", Sources{}, loop)
	require.NoError(t, err)
	b, err := r.Mount("b", "counter", Sources{}, loop)
	require.NoError(t, err)

	r.CloseAll()
	assert.True(t, a.State().Closed())
	assert.True(t, b.State().Closed())

	_, ok := r.Instance("a")
	assert.False(t, ok)
}
