package stream

// Map creates a stream emitting fn(v) for every v the source emits.
// Completion of the source completes the result.
func Map[T, U any](src *Stream[T], fn func(T) U) *Stream[U] {
	out := New[U](src.loop)
	sub := src.Subscribe(func(v T) {
		out.Next(fn(v))
	})
	out.OnDone(sub.Unsubscribe)
	src.OnDone(out.Done)
	return out
}

// Filter creates a stream emitting only the source values that satisfy pred.
func Filter[T any](src *Stream[T], pred func(T) bool) *Stream[T] {
	out := New[T](src.loop)
	sub := src.Subscribe(func(v T) {
		if pred(v) {
			out.Next(v)
		}
	})
	out.OnDone(sub.Unsubscribe)
	src.OnDone(out.Done)
	return out
}

// FilterMap combines Filter and Map in one pass: fn returns the mapped value
// and whether it should be emitted.
func FilterMap[T, U any](src *Stream[T], fn func(T) (U, bool)) *Stream[U] {
	out := New[U](src.loop)
	sub := src.Subscribe(func(v T) {
		if u, ok := fn(v); ok {
			out.Next(u)
		}
	})
	out.OnDone(sub.Unsubscribe)
	src.OnDone(out.Done)
	return out
}

// Merge creates a stream interleaving the emissions of every source in
// arrival order. The merged stream stays open until explicitly completed;
// action and sink streams are live, possibly infinite sequences.
func Merge[T any](loop *Loop, srcs ...*Stream[T]) *Stream[T] {
	out := New[T](loop)
	for _, src := range srcs {
		sub := src.Subscribe(out.Next)
		out.OnDone(sub.Unsubscribe)
	}
	return out
}

// MergeInto subscribes src into an existing merge target. Used when sources
// attach after the merged stream was created (late-bound drivers, children).
func MergeInto[T any](dst *Stream[T], src *Stream[T]) {
	sub := src.Subscribe(dst.Next)
	dst.OnDone(sub.Unsubscribe)
}

// Combine2 creates a stream of fn(a, b) over the latest values of both
// sources, emitting once both have produced a value and again on every
// subsequent update of either.
func Combine2[A, B, R any](a *Stream[A], b *Stream[B], fn func(A, B) R) *Stream[R] {
	out := New[R](a.loop)

	// Combination state is loop-confined: all deliveries happen on the
	// owning loop, one at a time.
	var (
		lastA A
		lastB B
		seenA bool
		seenB bool
	)

	emit := func() {
		if seenA && seenB {
			out.Next(fn(lastA, lastB))
		}
	}

	subA := a.Subscribe(func(v A) {
		lastA = v
		seenA = true
		emit()
	})
	subB := b.Subscribe(func(v B) {
		lastB = v
		seenB = true
		emit()
	})
	out.OnDone(subA.Unsubscribe)
	out.OnDone(subB.Unsubscribe)
	a.OnDone(out.Done)
	b.OnDone(out.Done)
	return out
}

// StartWith prefixes the source with an initial value: the result remembers
// initial at construction, so every subscriber sees it (by replay) ahead of
// any source emission, then follows the source.
func StartWith[T any](src *Stream[T], initial T) *Stream[T] {
	out := New[T](src.loop).Remember()
	out.Next(initial)
	sub := src.Subscribe(out.Next)
	out.OnDone(sub.Unsubscribe)
	src.OnDone(out.Done)
	return out
}

// DropRepeatsFunc suppresses a value that eq considers equal to the
// immediately preceding one. Standard de-duplication semantics: only
// consecutive repeats are dropped.
func DropRepeatsFunc[T any](src *Stream[T], eq func(prev, next T) bool) *Stream[T] {
	out := New[T](src.loop)

	var (
		prev T
		seen bool
	)

	sub := src.Subscribe(func(v T) {
		if seen && eq(prev, v) {
			return
		}
		prev = v
		seen = true
		out.Next(v)
	})
	out.OnDone(sub.Unsubscribe)
	src.OnDone(out.Done)
	return out
}

// Coalesce batches synchronous bursts: however many values the source emits
// within one turn, the result emits only the latest of them, once, at the
// next turn boundary. This is debounce-to-next-turn, not time-based
// throttling.
func Coalesce[T any](src *Stream[T]) *Stream[T] {
	out := New[T](src.loop)

	var (
		latest  T
		pending bool
	)

	sub := src.Subscribe(func(v T) {
		latest = v
		if pending {
			return
		}
		pending = true
		src.loop.NextTurn(func() {
			pending = false
			out.Next(latest)
		})
	})
	out.OnDone(sub.Unsubscribe)
	src.OnDone(out.Done)
	return out
}
