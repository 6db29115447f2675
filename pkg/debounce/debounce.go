// Package debounce coalesces bursts of triggers into a single deferred call.
//
// A [Debouncer] schedules its function Delay after the most recent
// [Debouncer.Trigger]. Triggering again before the delay elapses cancels the
// pending call and starts a new wait, so a burst of N triggers produces
// exactly one call. At most one call is pending at any time.
//
// The function runs on a timer goroutine. Callers that own single-threaded
// state should make it post a signal into their own loop rather than touch
// that state directly:
//
//	flush := make(chan struct{}, 1)
//	d := debounce.New(300*time.Millisecond, func() {
//	    select {
//	    case flush <- struct{}{}:
//	    default:
//	    }
//	})
package debounce

import (
	"sync"
	"time"
)

// DefaultDelay is the wait used when New is given a non-positive delay.
const DefaultDelay = 300 * time.Millisecond

// Debouncer delays a function until triggers stop arriving.
type Debouncer struct {
	delay time.Duration
	fn    func()

	mu    sync.Mutex
	timer *time.Timer
	epoch uint64
}

// New returns a Debouncer that calls fn delay after the last trigger.
func New(delay time.Duration, fn func()) *Debouncer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer{delay: delay, fn: fn}
}

// Delay returns the configured wait.
func (d *Debouncer) Delay() time.Duration { return d.delay }

// Trigger (re)schedules the deferred call, cancelling any pending one.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.epoch++
	epoch := d.epoch
	d.timer = time.AfterFunc(d.delay, func() { d.fire(epoch) })
}

// fire runs fn unless a later Trigger or Stop superseded this timer.
// Stop on an AfterFunc timer cannot recall a callback that already started,
// hence the epoch check.
func (d *Debouncer) fire(epoch uint64) {
	d.mu.Lock()
	if epoch != d.epoch || d.timer == nil {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()

	d.fn()
}

// Stop cancels the pending call, if any. It reports whether a call was pending.
func (d *Debouncer) Stop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	d.epoch++
	return true
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
