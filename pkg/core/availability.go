// pkg/core/availability.go
package core

// MarkerState is the availability classification rendered on a person's marker.
type MarkerState int

const (
	StateUnset MarkerState = iota - 1
	StateOff
	StateEdge
	StateWorking
)

// Marker classes applied to the rendering surface.
const (
	ClassWorking = "state-working"
	ClassEdge    = "state-edge"
	ClassOff     = "state-off"
)

// StateClasses lists every class owned by availability rendering.
var StateClasses = []string{ClassWorking, ClassEdge, ClassOff}

// StateFromCode maps the coordinator's integer code to a MarkerState.
// Anything other than 1 or 2 is treated as off.
func StateFromCode(code int) MarkerState {
	switch code {
	case 2:
		return StateWorking
	case 1:
		return StateEdge
	default:
		return StateOff
	}
}

// Class returns the surface class for the state, or "" when unset.
func (s MarkerState) Class() string {
	switch s {
	case StateWorking:
		return ClassWorking
	case StateEdge:
		return ClassEdge
	case StateOff:
		return ClassOff
	default:
		return ""
	}
}

func (s MarkerState) String() string {
	switch s {
	case StateWorking:
		return "working"
	case StateEdge:
		return "edge"
	case StateOff:
		return "off"
	default:
		return "unset"
	}
}

// Classification is an inbound availability update keyed by person ID.
// An empty map means every marker returns to unset.
type Classification struct {
	Statuses             map[string]MarkerState
	HighlightedTimezones []string
}

// AvailabilitySummary counts markers per state.
type AvailabilitySummary struct {
	Working int `json:"working"`
	Edge    int `json:"edge"`
	Off     int `json:"off"`
	Unset   int `json:"unset"`
}
