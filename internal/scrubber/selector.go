// Package scrubber implements the drag-based time-of-day range selector.
//
// Selector is the pure state machine; Scrubber adds throttled emission of
// the selected window and display formatting.
package scrubber

import (
	"math"

	"github.com/teammap/teammap/internal/util"
	"github.com/teammap/teammap/pkg/core"
)

// DefaultTolerance is the handle hit band as a fraction of track width.
const DefaultTolerance = 0.03

// State is the selector's gesture state.
type State int

const (
	Idle State = iota
	Creating
	DraggingStart
	DraggingEnd
	DraggingMiddle
)

func (s State) String() string {
	switch s {
	case Creating:
		return "creating"
	case DraggingStart:
		return "draggingStart"
	case DraggingEnd:
		return "draggingEnd"
	case DraggingMiddle:
		return "draggingMiddle"
	default:
		return "idle"
	}
}

// dragSession lives between pointer-down and pointer-up.
type dragSession struct {
	mode   State
	anchor float64
	offset float64
}

// Selector owns the selection interval and the active drag, if any.
// It is not safe for concurrent use.
type Selector struct {
	tolerance float64
	minWidth  float64

	interval *core.Interval
	drag     *dragSession
}

// NewSelector creates a Selector. Non-positive arguments select the defaults.
func NewSelector(tolerance, minWidth float64) *Selector {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	if minWidth <= 0 {
		minWidth = core.MinSelectionWidth
	}
	return &Selector{tolerance: tolerance, minWidth: minWidth}
}

// State returns the current gesture state.
func (s *Selector) State() State {
	if s.drag == nil {
		return Idle
	}
	return s.drag.mode
}

// Dragging reports whether a drag session is active.
func (s *Selector) Dragging() bool {
	return s.drag != nil
}

// Interval returns a copy of the current interval.
func (s *Selector) Interval() (core.Interval, bool) {
	if s.interval == nil {
		return core.Interval{}, false
	}
	return *s.interval, true
}

// PointerDown starts a drag at x. Near an edge of the existing interval it
// grabs that handle, inside it grabs the whole window, anywhere else it
// discards the interval and starts a new one.
func (s *Selector) PointerDown(x float64) {
	x = util.Clamp(x, 0, 1)

	if s.interval == nil {
		s.drag = &dragSession{mode: Creating, anchor: x}
		return
	}

	left, right := s.interval.Left, s.interval.Right()
	switch {
	case math.Abs(x-left) < s.tolerance:
		s.drag = &dragSession{mode: DraggingStart, offset: x - left}
	case math.Abs(x-right) < s.tolerance:
		s.drag = &dragSession{mode: DraggingEnd, offset: x - right}
	case x >= left && x <= right:
		s.drag = &dragSession{mode: DraggingMiddle, offset: x - left}
	default:
		s.interval = nil
		s.drag = &dragSession{mode: Creating, anchor: x}
	}
}

// PointerMove updates the interval for the active drag. It returns false
// and changes nothing when no drag is active.
func (s *Selector) PointerMove(x float64) (core.Interval, bool) {
	if s.drag == nil {
		return core.Interval{}, false
	}
	x = util.Clamp(x, 0, 1)
	d := s.drag

	var next core.Interval
	switch d.mode {
	case Creating:
		next = core.Interval{Left: math.Min(d.anchor, x), Width: math.Abs(x - d.anchor)}

	case DraggingStart:
		right := s.interval.Right()
		left := math.Max(0, math.Min(x-d.offset, right-s.minWidth))
		next = core.Interval{Left: left, Width: right - left}

	case DraggingEnd:
		left := s.interval.Left
		width := math.Max(s.minWidth, x-d.offset-left)
		next = core.Interval{Left: left, Width: math.Min(width, 1-left)}

	case DraggingMiddle:
		width := s.interval.Width
		next = core.Interval{Left: util.Clamp(x-d.offset, 0, 1-width), Width: width}
	}

	s.interval = &next
	return next, true
}

// PointerUp ends the active drag. It returns the interval to commit, or
// false when no drag was active or nothing was selected. A created interval
// narrower than the minimum width is kept and committed; it renders as the
// placeholder.
func (s *Selector) PointerUp() (core.Interval, bool) {
	if s.drag == nil {
		return core.Interval{}, false
	}
	s.drag = nil

	if s.interval == nil {
		return core.Interval{}, false
	}
	return *s.interval, true
}

// Clear drops the interval and any active drag.
func (s *Selector) Clear() {
	s.interval = nil
	s.drag = nil
}

// Set installs the window [a, b] directly, clamped to valid bounds. Any
// active drag is abandoned.
func (s *Selector) Set(a, b float64) core.Interval {
	left := util.Clamp(a, 0, 1)
	width := math.Max(s.minWidth, math.Min(1, b)-left)
	if left+width > 1 {
		left = math.Max(0, 1-width)
	}

	s.interval = &core.Interval{Left: left, Width: width}
	s.drag = nil
	return *s.interval
}
