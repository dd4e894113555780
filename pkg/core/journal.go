package core

import (
	"encoding/json"
	"time"
)

// Selection sources recorded in the journal.
const (
	SourceCommit = "commit" // released by the local scrubber
	SourceServer = "server" // restored by time_selection_set
	SourceClear  = "clear"  // cleared by time_selection_set
)

// Session describes one run of the map client.
type Session struct {
	ID          uint      `json:"id"`
	ViewerTZ    string    `json:"viewerTz"`
	OffsetHours float64   `json:"offsetHours"`
	Coordinator string    `json:"coordinator"`
	StartedAt   time.Time `json:"startedAt"`
}

// SelectionRecord is a committed or server-applied selection window.
type SelectionRecord struct {
	Time   time.Time `json:"time"`
	Source string    `json:"source"`
	AFrac  float64   `json:"aFrac"`
	BFrac  float64   `json:"bFrac"`
}

// Interval returns the window as a selector interval. ok is false for
// clear records.
func (r SelectionRecord) Interval() (Interval, bool) {
	if r.Source == SourceClear {
		return Interval{}, false
	}
	return Interval{Left: r.AFrac, Width: r.BFrac - r.AFrac}, true
}

// ClassificationRecord is a summary of one applied availability update.
type ClassificationRecord struct {
	Time                 time.Time              `json:"time"`
	Statuses             map[string]MarkerState `json:"statuses"`
	HighlightedTimezones []string               `json:"highlightedTimezones,omitempty"`
	Summary              AvailabilitySummary    `json:"summary"`
}

// OverlayRecord is a snapshot of a drawn night overlay.
type OverlayRecord struct {
	Time              time.Time       `json:"time"`
	NightSide         string          `json:"nightSide"`
	DeclinationDeg    float64         `json:"declinationDeg"`
	EquationOfTimeMin float64         `json:"equationOfTimeMin"`
	Points            int             `json:"points"`
	Feature           json.RawMessage `json:"feature,omitempty"`
}
