// Package render defines the host rendering surface the overlay, markers and
// scrubber draw onto.
package render

import (
	"github.com/teammap/teammap/internal/util"
	"github.com/teammap/teammap/pkg/core"

	"github.com/peterstace/simplefeatures/geom"
)

// Layer names used for placeholders.
const (
	LayerNight     = "night"
	LayerTimezones = "timezones"
)

// Rect is a bounding box in client pixels.
type Rect struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// Fraction converts a client x coordinate into a position on the track,
// clamped to [0,1]. A zero-width rect maps everything to 0.
func (r Rect) Fraction(clientX float64) float64 {
	if r.Width <= 0 {
		return 0
	}
	return util.Clamp((clientX-r.Left)/r.Width, 0, 1)
}

// ClassList mutates the visual classes of a single marker.
type ClassList interface {
	Add(class string)
	Remove(classes ...string)
	Contains(class string) bool
}

// Surface is the contract between the core and whatever draws the map.
type Surface interface {
	// SetNightOverlay replaces the night polygon source in place.
	SetNightOverlay(f geom.GeoJSONFeature) error
	// Marker returns the class list for a person's marker.
	Marker(id string) (ClassList, bool)
	// MarkerIDs lists every placed marker.
	MarkerIDs() []string
	// TrackBounds is the scrubber track's bounding box.
	TrackBounds() Rect
	// ShowPlaceholder replaces a layer that could not be drawn with a
	// visible notice.
	ShowPlaceholder(layer, message string)
}

// MarkerPlacer is implemented by surfaces that accept new markers.
type MarkerPlacer interface {
	PlaceMarker(p core.Person, at geom.Point) error
}

// TimezoneLayer is implemented by surfaces that can show timezone boundaries.
type TimezoneLayer interface {
	SetTimezoneOverlay(fc geom.GeoJSONFeatureCollection) error
}
