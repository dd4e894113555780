// pkg/core/selection.go
package core

// MinSelectionWidth is the narrowest interval the selector keeps, as a
// fraction of the day.
const MinSelectionWidth = 0.02

// Interval is a time-of-day window on the normalized 0..1 timeline.
type Interval struct {
	Left  float64 `json:"left"`
	Width float64 `json:"width"`
}

// Right returns the end of the window.
func (i Interval) Right() float64 {
	return i.Left + i.Width
}

// Range converts the interval to the wire representation.
func (i Interval) Range() Range {
	return Range{AFrac: i.Left, BFrac: i.Left + i.Width}
}

// Range is the {a_frac, b_frac} pair exchanged with the coordinator.
type Range struct {
	AFrac float64 `json:"a_frac"`
	BFrac float64 `json:"b_frac"`
}

// SelectionSet is a server instruction to restore or clear a selection.
type SelectionSet struct {
	Clear bool
	Range *Range
}
