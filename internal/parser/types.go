package parser

import "encoding/json"

// rosterEntry is one team member as served by the roster endpoint. IDs may
// be numbers or strings; coordinates may come as separate fields or as a
// "lon,lat" location string.
type rosterEntry struct {
	ID             json.RawMessage `json:"id"`
	Name           string          `json:"name"`
	Longitude      *float64        `json:"longitude"`
	Latitude       *float64        `json:"latitude"`
	Location       string          `json:"location"`
	Timezone       string          `json:"timezone"`
	ProfilePicture string          `json:"profile_picture"`
}

// rosterEnvelope is the object form of the roster response.
type rosterEnvelope struct {
	Users []json.RawMessage `json:"users"`
}
