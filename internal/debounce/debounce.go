// Package debounce coalesces bursts of input into a single downstream call
// and drops results that a newer input has superseded.
package debounce

import (
	"context"
	"sync"
	"time"
)

// DefaultWait is the quiescence window used for search boxes and sliders.
const DefaultWait = 700 * time.Millisecond

// Func does the work for value v. It runs outside the Debouncer's lock and
// should stop early when ctx is cancelled. The returned apply func, if any, is
// called only when v is still the newest value, so stale results never land.
type Func[T any] func(ctx context.Context, v T) (apply func())

// Debouncer runs fn once input has been quiet for the wait window.
type Debouncer[T any] struct {
	wait time.Duration
	fn   Func[T]
	base context.Context

	mu      sync.Mutex
	timer   *time.Timer
	cancel  context.CancelFunc
	gen     uint64
	stopped bool
}

// New returns a Debouncer bound to ctx. Cancelling ctx stops it.
func New[T any](ctx context.Context, wait time.Duration, fn Func[T]) *Debouncer[T] {
	if wait <= 0 {
		wait = DefaultWait
	}
	return &Debouncer[T]{wait: wait, fn: fn, base: ctx}
}

// Trigger records v as the newest input. Any pending call is rescheduled and
// any call already running for an older value is cancelled.
func (d *Debouncer[T]) Trigger(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	d.gen++
	gen := d.gen
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.wait, func() { d.run(gen, v) })
}

func (d *Debouncer[T]) run(gen uint64, v T) {
	d.mu.Lock()
	if gen != d.gen || d.stopped {
		d.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(d.base)
	d.cancel = cancel
	d.mu.Unlock()

	apply := d.fn(ctx, v)

	d.mu.Lock()
	defer d.mu.Unlock()
	stale := gen != d.gen || d.stopped || ctx.Err() != nil
	cancel()
	if stale {
		return
	}
	d.cancel = nil
	if apply != nil {
		apply()
	}
}

// Stop cancels pending and running work. Later Triggers are ignored.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}
