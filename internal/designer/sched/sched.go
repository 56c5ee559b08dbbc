package sched

import (
	"sync"
	"time"
)

// Scheduler abstracts wall-clock timers so debounce behavior is
// deterministic under test. The engine never touches package time directly.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

type Timer interface {
	// Stop cancels the timer; reports whether it was still pending.
	Stop() bool
}

// Wall is the production scheduler.
type Wall struct{}

func (Wall) Now() time.Time { return time.Now() }

func (Wall) AfterFunc(d time.Duration, fn func()) Timer {
	return wallTimer{t: time.AfterFunc(d, fn)}
}

type wallTimer struct{ t *time.Timer }

func (w wallTimer) Stop() bool { return w.t.Stop() }

// Debouncer delays fn until a quiet period of the configured duration has
// elapsed since the last Trigger. Safe for concurrent triggering.
type Debouncer struct {
	mu    sync.Mutex
	sched Scheduler
	quiet time.Duration
	fn    func()
	timer Timer
}

func NewDebouncer(s Scheduler, quiet time.Duration, fn func()) *Debouncer {
	return &Debouncer{sched: s, quiet: quiet, fn: fn}
}

// Trigger restarts the quiet-period timer. A burst of triggers within the
// window yields exactly one firing.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.sched.AfterFunc(d.quiet, d.fire)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	d.timer = nil
	fn := d.fn
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Flush fires immediately if a trigger is pending.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	pending := d.timer != nil
	if pending {
		d.timer.Stop()
		d.timer = nil
	}
	fn := d.fn
	d.mu.Unlock()
	if pending && fn != nil {
		fn()
	}
}

// Stop cancels any pending firing.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Pending reports whether a firing is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
