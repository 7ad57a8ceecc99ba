// Package confirm - Trailing-edge debouncing for field-driven lookups.
package confirm

import (
	"sync"
	"time"
)

// Debouncer coalesces a burst of triggers into a single trailing call: each
// Trigger cancels the pending timer and schedules a fresh one, so only the
// function passed to the last Trigger in a quiescent period runs.
type Debouncer struct {
	clock Clock
	delay time.Duration

	mu    sync.Mutex
	timer Timer
}

// NewDebouncer creates a debouncer with the given trailing delay.
func NewDebouncer(clock Clock, delay time.Duration) *Debouncer {
	if clock == nil {
		clock = SystemClock()
	}
	return &Debouncer{clock: clock, delay: delay}
}

// Trigger schedules f to run after the delay, replacing any pending call.
func (d *Debouncer) Trigger(f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.clock.AfterFunc(d.delay, f)
}

// Stop cancels any pending call. Used when the owning form goes away.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
