package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamDeliversInOrder(t *testing.T) {
	loop := NewLoop()
	s := New[int](loop)

	var got []int
	s.Subscribe(func(v int) { got = append(got, v) })

	s.Next(1)
	s.Next(2)
	s.Next(3)

	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestStreamMulticast(t *testing.T) {
	loop := NewLoop()
	s := New[string](loop)

	var a, b []string
	s.Subscribe(func(v string) { a = append(a, v) })
	s.Subscribe(func(v string) { b = append(b, v) })

	s.Next("x")

	assert.Equal(t, []string{"x"}, a)
	assert.Equal(t, []string{"x"}, b)
}

func TestStreamUnsubscribeStopsDelivery(t *testing.T) {
	loop := NewLoop()
	s := New[int](loop)

	var got []int
	sub := s.Subscribe(func(v int) { got = append(got, v) })

	s.Next(1)
	sub.Unsubscribe()
	s.Next(2)

	assert.Equal(t, []int{1}, got)
}

func TestStreamRememberReplaysLatest(t *testing.T) {
	loop := NewLoop()
	s := New[int](loop).Remember()

	s.Next(1)
	s.Next(2)

	var got []int
	s.Subscribe(func(v int) { got = append(got, v) })
	s.Next(3)

	// Late subscriber sees the current value immediately, then live ones.
	assert.Equal(t, []int{2, 3}, got)
}

func TestStreamWithoutRememberSkipsLateSubscriber(t *testing.T) {
	loop := NewLoop()
	s := New[int](loop)

	s.Next(1)

	var got []int
	s.Subscribe(func(v int) { got = append(got, v) })

	assert.Empty(t, got)
}

func TestStreamDoneStopsEmissionAndRunsTeardown(t *testing.T) {
	loop := NewLoop()
	s := New[int](loop)

	var got []int
	tornDown := 0
	s.Subscribe(func(v int) { got = append(got, v) })
	s.OnDone(func() { tornDown++ })

	s.Next(1)
	s.Done()
	s.Done() // idempotent
	s.Next(2)

	assert.Equal(t, []int{1}, got)
	assert.Equal(t, 1, tornDown)
	assert.True(t, s.Closed())
}

func TestStreamOnDoneAfterCompletionRunsImmediately(t *testing.T) {
	loop := NewLoop()
	s := New[int](loop)
	s.Done()

	ran := false
	s.OnDone(func() { ran = true })
	assert.True(t, ran)
}

func TestMapTransformsValues(t *testing.T) {
	loop := NewLoop()
	src := New[int](loop)
	doubled := Map(src, func(v int) int { return v * 2 })

	var got []int
	doubled.Subscribe(func(v int) { got = append(got, v) })

	src.Next(1)
	src.Next(4)

	assert.Equal(t, []int{2, 8}, got)
}

func TestMapPropagatesTeardown(t *testing.T) {
	loop := NewLoop()
	src := New[int](loop)
	derived := Map(src, func(v int) int { return v })
	leaf := Filter(derived, func(int) bool { return true })

	src.Done()

	assert.True(t, derived.Closed())
	assert.True(t, leaf.Closed())
}

func TestFilterMapDropsAndMaps(t *testing.T) {
	loop := NewLoop()
	src := New[int](loop)
	odds := FilterMap(src, func(v int) (string, bool) {
		if v%2 == 0 {
			return "", false
		}
		return "odd", true
	})

	var got []string
	odds.Subscribe(func(v string) { got = append(got, v) })

	src.Next(1)
	src.Next(2)
	src.Next(3)

	assert.Equal(t, []string{"odd", "odd"}, got)
}

func TestMergeInterleavesArrivalOrder(t *testing.T) {
	loop := NewLoop()
	a := New[int](loop)
	b := New[int](loop)
	merged := Merge(loop, a, b)

	var got []int
	merged.Subscribe(func(v int) { got = append(got, v) })

	a.Next(1)
	b.Next(2)
	a.Next(3)

	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestMergeIntoAttachesLateSource(t *testing.T) {
	loop := NewLoop()
	dst := New[int](loop)
	late := New[int](loop)

	var got []int
	dst.Subscribe(func(v int) { got = append(got, v) })

	MergeInto(dst, late)
	late.Next(7)

	assert.Equal(t, []int{7}, got)
}

func TestCombine2WaitsForBothThenTracksLatest(t *testing.T) {
	loop := NewLoop()
	a := New[int](loop)
	b := New[string](loop)
	combined := Combine2(a, b, func(x int, y string) string {
		return y
	})

	var got []string
	combined.Subscribe(func(v string) { got = append(got, v) })

	a.Next(1)
	require.Empty(t, got, "must not emit before both sources produced")

	b.Next("first")
	a.Next(2)
	b.Next("second")

	assert.Equal(t, []string{"first", "first", "second"}, got)
}

func TestDropRepeatsFuncSuppressesConsecutiveOnly(t *testing.T) {
	loop := NewLoop()
	src := New[string](loop)
	deduped := DropRepeatsFunc(src, func(prev, next string) bool { return prev == next })

	var got []string
	deduped.Subscribe(func(v string) { got = append(got, v) })

	src.Next("a")
	src.Next("a")
	src.Next("b")
	src.Next("a")

	assert.Equal(t, []string{"a", "b", "a"}, got)
}

func TestCoalesceEmitsLatestOncePerTurn(t *testing.T) {
	loop := NewLoop()
	src := New[int](loop)
	coalesced := Coalesce(src)

	var got []int
	coalesced.Subscribe(func(v int) { got = append(got, v) })

	loop.Post(func() {
		src.Next(1)
		src.Next(2)
		src.Next(3)
	})
	loop.Flush()

	assert.Equal(t, []int{3}, got)

	loop.Post(func() { src.Next(4) })
	loop.Flush()

	assert.Equal(t, []int{3, 4}, got)
}

func TestStartWithEmitsInitialThenSource(t *testing.T) {
	loop := NewLoop()
	src := New[int](loop)

	out := StartWith(src, 0)

	var got []int
	out.Subscribe(func(v int) { got = append(got, v) })

	src.Next(1)
	src.Next(2)
	loop.Flush()

	assert.Equal(t, []int{0, 1, 2}, got)

	// Late subscribers replay only the latest value.
	var late []int
	out.Subscribe(func(v int) { late = append(late, v) })
	assert.Equal(t, []int{2}, late)

	src.Done()
	assert.True(t, out.Closed())
}
