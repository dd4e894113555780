package schedule

import (
	"sync"
	"time"
)

// Task runs fn every period until stopped.
type Task struct {
	mu      sync.Mutex
	clock   Clock
	period  time.Duration
	fn      func()
	timer   Timer
	stopped bool
}

// Every schedules fn to run after each period elapses. The first run happens
// one period from now.
func Every(clock Clock, period time.Duration, fn func()) *Task {
	t := &Task{
		clock:  clock,
		period: period,
		fn:     fn,
	}
	t.timer = clock.AfterFunc(period, t.fire)
	return t
}

func (t *Task) fire() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	t.fn()

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.stopped {
		t.timer = t.clock.AfterFunc(t.period, t.fire)
	}
}

// Stop cancels future runs. A run already in progress completes.
func (t *Task) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
	}
}

// Stopped reports whether Stop has been called.
func (t *Task) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}
