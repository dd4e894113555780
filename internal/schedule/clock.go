// Package schedule provides the timer plumbing used by the overlay refresh
// and the scrubber throttle. Everything is expressed against a Clock so tests
// can drive time with FakeClock.
package schedule

import (
	"sync"
	"time"
)

// Clock is the source of time and one-shot timers.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellation handle for a pending callback.
type Timer interface {
	// Stop prevents the callback from running. It returns false if the
	// callback already ran or the timer was already stopped.
	Stop() bool
}

type realClock struct{}

// Real returns a Clock backed by the time package.
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type serializedClock struct {
	Clock
	l sync.Locker
}

// Serialized wraps c so every timer callback runs while holding l. Components
// sharing one locker therefore observe callbacks and direct calls in a single
// order, one at a time.
func Serialized(c Clock, l sync.Locker) Clock {
	return &serializedClock{Clock: c, l: l}
}

func (s *serializedClock) AfterFunc(d time.Duration, f func()) Timer {
	return s.Clock.AfterFunc(d, func() {
		s.l.Lock()
		defer s.l.Unlock()
		f()
	})
}
