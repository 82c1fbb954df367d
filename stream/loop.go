package stream

import (
	"context"
	"sync"
)

// Loop is the single logical thread of control for a component tree.
// Concurrency is modeled entirely as interleaved stream emissions scheduled on
// one loop; there are no parallel reducer invocations and no locks are needed
// inside operator state.
//
// A "turn" is one drain of the ready queue. Tasks posted while draining join
// the current turn; tasks scheduled with NextTurn wait for the turn boundary.
// Re-entrant dispatch is bounded by turn boundaries rather than wall-clock
// delay.
type Loop struct {
	mu       sync.Mutex
	ready    []func()
	deferred []func()
	wake     chan struct{}
}

// NewLoop creates an empty loop.
func NewLoop() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
	}
}

// Post schedules task on the current turn. Safe to call from any goroutine;
// the task runs on whichever goroutine drains the loop.
func (l *Loop) Post(task func()) {
	if task == nil {
		return
	}
	l.mu.Lock()
	l.ready = append(l.ready, task)
	l.mu.Unlock()
	l.signal()
}

// NextTurn schedules task to run after the current turn's queue fully drains.
// This is the scheduling primitive behind re-entrant dispatch: the reducer
// that issued a dispatch completes, and its result is applied, before the
// dispatched action is processed.
func (l *Loop) NextTurn(task func()) {
	if task == nil {
		return
	}
	l.mu.Lock()
	l.deferred = append(l.deferred, task)
	l.mu.Unlock()
	l.signal()
}

// After schedules task to run after the given number of turn boundaries.
// After(0, task) is Post; After(1, task) is NextTurn.
func (l *Loop) After(turns int, task func()) {
	if turns <= 0 {
		l.Post(task)
		return
	}
	if turns == 1 {
		l.NextTurn(task)
		return
	}
	l.NextTurn(func() {
		l.After(turns-1, task)
	})
}

// Flush drains the loop synchronously until both the ready queue and every
// promoted deferred queue are empty. Intended for tests and embedded use
// where no background Run goroutine exists.
func (l *Loop) Flush() {
	for {
		task := l.next()
		if task == nil {
			return
		}
		task()
	}
}

// Run drains the loop on the calling goroutine until ctx is canceled,
// sleeping between wakeups. All stream delivery for the component tree
// happens here.
func (l *Loop) Run(ctx context.Context) {
	for {
		l.Flush()
		select {
		case <-ctx.Done():
			return
		case <-l.wake:
		}
	}
}

// next pops the next runnable task, promoting deferred tasks at the turn
// boundary. Returns nil when the loop is idle.
func (l *Loop) next() func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.ready) == 0 {
		if len(l.deferred) == 0 {
			return nil
		}
		// Turn boundary: the deferred queue becomes the next turn.
		l.ready = l.deferred
		l.deferred = nil
	}

	task := l.ready[0]
	l.ready = l.ready[1:]
	return task
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}
