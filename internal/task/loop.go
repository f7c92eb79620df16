package task

import (
	"context"
	"sync"
)

// Poster schedules a continuation on the interactive thread.
type Poster interface {
	Post(fn func())
}

// PosterFunc adapts a function to Poster.
type PosterFunc func(fn func())

// Post implements Poster.
func (f PosterFunc) Post(fn func()) { f(fn) }

// Loop is the interactive thread's continuation queue. Workers Post into
// it; the owning goroutine runs the continuations in FIFO order with Drain
// or Run. Post never blocks.
type Loop struct {
	mu      sync.Mutex
	pending []func()
	wake    chan struct{}
}

var _ Poster = (*Loop)(nil)

// NewLoop creates an empty Loop.
func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post queues fn. It is safe to call from any goroutine.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Drain runs every continuation queued so far on the calling goroutine and
// returns how many ran. Continuations posted while draining wait for the
// next call.
func (l *Loop) Drain() int {
	l.mu.Lock()
	batch := l.pending
	l.pending = nil
	l.mu.Unlock()

	for _, fn := range batch {
		fn()
	}
	return len(batch)
}

// Pending returns the number of queued continuations.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// Run drains continuations as they arrive until ctx is done, then drains
// once more and returns ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-l.wake:
			l.Drain()
		case <-ctx.Done():
			l.Drain()
			return ctx.Err()
		}
	}
}
