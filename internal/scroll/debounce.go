package scroll

import (
	"time"

	"k8s.io/utils/clock"
)

// DefaultDelay is the trailing debounce delay used when none is configured.
const DefaultDelay = 100 * time.Millisecond

// Poster hands a callback to the goroutine that owns the debounced state.
type Poster func(fn func()) bool

// Debouncer coalesces bursts of Trigger calls into a single trailing call of
// fn, made once the delay has passed without another Trigger. Every method
// must be called from the goroutine that Poster delivers to.
type Debouncer struct {
	clock     clock.WithDelayedExecution
	post      Poster
	fn        func()
	delay     time.Duration
	immediate bool

	timer clock.Timer
	gen   uint64
}

// NewDebouncer returns a trailing debouncer. A non-positive delay uses
// DefaultDelay.
func NewDebouncer(clk clock.WithDelayedExecution, post Poster, delay time.Duration, fn func()) *Debouncer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer{clock: clk, post: post, fn: fn, delay: delay}
}

// SetImmediate makes the first Trigger of a burst call fn right away, in
// addition to the trailing call.
func (d *Debouncer) SetImmediate(immediate bool) {
	d.immediate = immediate
}

// SetDelay changes the delay used by subsequent Triggers.
func (d *Debouncer) SetDelay(delay time.Duration) {
	if delay <= 0 {
		delay = DefaultDelay
	}
	d.delay = delay
}

// Delay returns the configured delay.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Trigger cancels the pending timer, if any, and schedules a new one.
func (d *Debouncer) Trigger() {
	leading := d.immediate && d.timer == nil
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.delay, func() {
		d.post(func() { d.fire(gen) })
	})
	if leading {
		d.call()
	}
}

// Stop cancels the pending call without running it.
func (d *Debouncer) Stop() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}

func (d *Debouncer) fire(gen uint64) {
	// a timer stopped after its callback was already queued
	if gen != d.gen {
		return
	}
	d.timer = nil
	d.call()
}

func (d *Debouncer) call() {
	d.fn()
}
