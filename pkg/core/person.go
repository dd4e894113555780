// pkg/core/person.go
package core

// Person is a team member placed on the map.
type Person struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Longitude      float64 `json:"longitude"`
	Latitude       float64 `json:"latitude"`
	Timezone       string  `json:"timezone"`
	ProfilePicture string  `json:"profile_picture"`
}

// Offset is a UTC offset in fractional hours. Valid is false when no
// resolver strategy produced a value.
type Offset struct {
	Hours float64
	Valid bool
}

// Unresolved is the zero Offset.
var Unresolved = Offset{}
