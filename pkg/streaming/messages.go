package streaming

import (
	"encoding/json"
)

// Message type constants matching the coordinator protocol.
const (
	// outbound
	TypeHoverRange  = "hover_range"
	TypeCommitRange = "commit_range"
	TypeSetViewerTZ = "set_viewer_tz"
	TypeShowProfile = "show_profile"

	// inbound
	TypeOverlapUpdate    = "overlap_update"
	TypeTimeSelectionSet = "time_selection_set"
	TypeAck              = "ack"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the coordinator's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// RangePayload carries a selection window for hover_range and commit_range.
type RangePayload struct {
	AFrac float64 `json:"a_frac"`
	BFrac float64 `json:"b_frac"`
}

// ViewerTZPayload registers the viewer's timezone and its current raw
// offset in hours.
type ViewerTZPayload struct {
	TZ          string  `json:"tz"`
	OffsetHours float64 `json:"offset_hours"`
}

// ShowProfilePayload asks the coordinator to open a person's profile.
type ShowProfilePayload struct {
	UserID string `json:"user_id"`
}

// OverlapUpdatePayload is the raw classification update. Values are kept
// raw so that a malformed entry only drops its own key.
type OverlapUpdatePayload struct {
	Statuses             map[string]json.RawMessage `json:"statuses"`
	HighlightedTimezones []string                   `json:"highlighted_timezones,omitempty"`
}

// TimeSelectionSetPayload is either {clear: true} or {a_frac, b_frac}.
type TimeSelectionSetPayload struct {
	Clear bool     `json:"clear,omitempty"`
	AFrac *float64 `json:"a_frac,omitempty"`
	BFrac *float64 `json:"b_frac,omitempty"`
}
