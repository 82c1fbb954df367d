// Package stream provides the push-based dataflow primitives CycleKit
// components are wired with: multicast streams, a cooperative event loop, and
// the small operator set the runtime needs (map, filter, merge, combine,
// drop-repeats, next-turn coalescing).
//
// Streams are hot and multicast: every subscriber observes the same emissions,
// delivery is synchronous within one emission, and teardown propagates through
// derived streams. All emission is expected to happen on the owning Loop.
package stream

import "sync"

// Subscription represents an active observer registration on a Stream.
type Subscription struct {
	cancel func()
}

// Unsubscribe removes the observer. Safe to call more than once.
func (s Subscription) Unsubscribe() {
	if s.cancel != nil {
		s.cancel()
	}
}

type observer[T any] struct {
	id   uint64
	next func(T)
}

// Stream is a hot, multicast push stream of values of type T.
//
// The zero value is not usable; create streams with New. Emission (Next) must
// happen on the stream's Loop so that the runtime's ordering guarantees hold:
// two values pushed in order are delivered to every subscriber in that order,
// each delivery running synchronously to completion.
type Stream[T any] struct {
	loop *Loop

	mu        sync.Mutex
	subs      []observer[T]
	nextID    uint64
	last      T
	hasLast   bool
	remember  bool
	done      bool
	teardowns []func()
}

// New creates an empty stream bound to the given loop.
func New[T any](loop *Loop) *Stream[T] {
	return &Stream[T]{loop: loop}
}

// Loop returns the loop this stream emits on.
func (s *Stream[T]) Loop() *Loop {
	return s.loop
}

// Remember marks the stream as replaying: late subscribers immediately
// receive the most recent value before any future ones. Returns the stream
// for chaining.
func (s *Stream[T]) Remember() *Stream[T] {
	s.mu.Lock()
	s.remember = true
	s.mu.Unlock()
	return s
}

// Next pushes a value to every current subscriber. Emissions after Done are
// ignored.
func (s *Stream[T]) Next(v T) {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.last = v
	s.hasLast = true
	observers := make([]observer[T], len(s.subs))
	copy(observers, s.subs)
	s.mu.Unlock()

	// Delivery happens outside the lock: observers may subscribe,
	// unsubscribe, or emit on other streams synchronously.
	for _, o := range observers {
		o.next(v)
	}
}

// Subscribe registers fn to be called for each emission. If the stream is
// remembering and has a current value, fn is invoked with it immediately.
func (s *Stream[T]) Subscribe(fn func(T)) Subscription {
	if fn == nil {
		return Subscription{}
	}

	s.mu.Lock()
	if s.done {
		replay := s.remember && s.hasLast
		last := s.last
		s.mu.Unlock()
		if replay {
			fn(last)
		}
		return Subscription{}
	}

	id := s.nextID
	s.nextID++
	s.subs = append(s.subs, observer[T]{id: id, next: fn})
	replay := s.remember && s.hasLast
	last := s.last
	s.mu.Unlock()

	if replay {
		fn(last)
	}

	return Subscription{cancel: func() { s.unsubscribe(id) }}
}

// Done completes the stream: subscribers are dropped and every registered
// teardown runs once, in reverse registration order. Idempotent.
func (s *Stream[T]) Done() {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.done = true
	s.subs = nil
	teardowns := s.teardowns
	s.teardowns = nil
	s.mu.Unlock()

	for i := len(teardowns) - 1; i >= 0; i-- {
		teardowns[i]()
	}
}

// OnDone registers fn to run when the stream completes. If the stream is
// already complete, fn runs immediately.
func (s *Stream[T]) OnDone(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		fn()
		return
	}
	s.teardowns = append(s.teardowns, fn)
	s.mu.Unlock()
}

// Closed reports whether the stream has completed.
func (s *Stream[T]) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func (s *Stream[T]) unsubscribe(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, o := range s.subs {
		if o.id == id {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}
