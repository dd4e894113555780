package schedule

import (
	"sync"
	"time"
)

// Throttle collapses bursts of triggers into at most one flush per window.
// The first trigger arms a timer; triggers while it is pending are absorbed.
// When the timer fires, flush runs and must read the latest state itself, so
// the final value of a burst is always delivered.
type Throttle struct {
	mu     sync.Mutex
	clock  Clock
	window time.Duration
	flush  func()
	timer  Timer
}

// NewThrottle creates a throttle that calls flush at most once per window.
func NewThrottle(clock Clock, window time.Duration, flush func()) *Throttle {
	return &Throttle{
		clock:  clock,
		window: window,
		flush:  flush,
	}
}

// Trigger requests a flush. It returns true when it armed a new timer and
// false when one was already pending.
func (t *Throttle) Trigger() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		return false
	}
	t.timer = t.clock.AfterFunc(t.window, t.fire)
	return true
}

func (t *Throttle) fire() {
	t.mu.Lock()
	t.timer = nil
	t.mu.Unlock()

	t.flush()
}

// Pending reports whether a flush is scheduled.
func (t *Throttle) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timer != nil
}

// Stop cancels a pending flush.
func (t *Throttle) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
