// Package debounce delays a call until a quiet period has elapsed, restarting
// the wait on every new call.
package debounce

import (
	"sync"
	"time"

	"github.com/comitanigiacomo/kanso-grid/internal/core/clock"
)

type Debouncer[T any] struct {
	mu    sync.Mutex
	clock clock.Clock
	delay time.Duration
	fn    func(T)

	timer   clock.Timer
	pending bool
	value   T
	gen     uint64
}

func New[T any](delay time.Duration, clk clock.Clock, fn func(T)) *Debouncer[T] {
	if clk == nil {
		clk = clock.Real()
	}
	return &Debouncer[T]{clock: clk, delay: delay, fn: fn}
}

// Call records v as the latest value and (re)arms the timer. Only the last
// value of a burst reaches fn.
func (d *Debouncer[T]) Call(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.value = v
	d.pending = true
	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	if !d.pending || gen != d.gen {
		d.mu.Unlock()
		return
	}
	v := d.value
	d.pending = false
	d.timer = nil
	d.mu.Unlock()

	d.fn(v)
}

// Flush runs the pending call immediately, if any.
func (d *Debouncer[T]) Flush() {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	v := d.value
	d.pending = false
	d.gen++
	d.mu.Unlock()

	d.fn(v)
}

// Cancel drops the pending call without running it.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = false
	d.gen++
}

func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}
