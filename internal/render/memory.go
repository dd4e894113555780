package render

import (
	"errors"
	"sync"

	"github.com/teammap/teammap/internal/cache"
	"github.com/teammap/teammap/pkg/core"

	"github.com/peterstace/simplefeatures/geom"
)

// ErrSurfaceUnavailable is returned by a MemorySurface that has been told to
// reject overlay updates.
var ErrSurfaceUnavailable = errors.New("render surface unavailable")

// MemorySurface is an in-process Surface. The terminal UI and the headless
// runner draw from it; tests inspect it.
type MemorySurface struct {
	markers *cache.MarkerCache

	mu           sync.RWMutex
	bounds       Rect
	night        *geom.GeoJSONFeature
	nightUpdates int
	timezones    *geom.GeoJSONFeatureCollection
	positions    map[string]geom.Point
	placeholders map[string]string
	failOverlay  error
}

// NewMemorySurface creates an empty surface with the given track bounds.
func NewMemorySurface(bounds Rect) *MemorySurface {
	return &MemorySurface{
		markers:      cache.NewMarkerCache(),
		bounds:       bounds,
		positions:    make(map[string]geom.Point),
		placeholders: make(map[string]string),
	}
}

// AddMarker registers a marker without a position.
func (s *MemorySurface) AddMarker(id string) {
	s.markers.Add(id)
}

// PlaceMarker registers a marker for p at the projected point.
func (s *MemorySurface) PlaceMarker(p core.Person, at geom.Point) error {
	s.markers.Add(p.ID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[p.ID] = at
	return nil
}

// Position returns where a marker was placed.
func (s *MemorySurface) Position(id string) (geom.Point, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.positions[id]
	return p, ok
}

// SetNightOverlay implements Surface.
func (s *MemorySurface) SetNightOverlay(f geom.GeoJSONFeature) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOverlay != nil {
		return s.failOverlay
	}
	s.night = &f
	s.nightUpdates++
	delete(s.placeholders, LayerNight)
	return nil
}

// NightOverlay returns the current night feature and how many times it was
// replaced.
func (s *MemorySurface) NightOverlay() (*geom.GeoJSONFeature, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.night, s.nightUpdates
}

// SetTimezoneOverlay implements TimezoneLayer.
func (s *MemorySurface) SetTimezoneOverlay(fc geom.GeoJSONFeatureCollection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timezones = &fc
	delete(s.placeholders, LayerTimezones)
	return nil
}

// TimezoneOverlay returns the timezone boundaries, if any were drawn.
func (s *MemorySurface) TimezoneOverlay() (*geom.GeoJSONFeatureCollection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timezones, s.timezones != nil
}

// FailOverlay makes subsequent overlay updates return err. Pass nil to
// recover.
func (s *MemorySurface) FailOverlay(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOverlay = err
}

// ShowPlaceholder implements Surface.
func (s *MemorySurface) ShowPlaceholder(layer, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.placeholders[layer] = message
}

// Placeholder returns the notice shown for a layer.
func (s *MemorySurface) Placeholder(layer string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg, ok := s.placeholders[layer]
	return msg, ok
}

// Marker implements Surface.
func (s *MemorySurface) Marker(id string) (ClassList, bool) {
	if !s.markers.Has(id) {
		return nil, false
	}
	return markerClasses{cache: s.markers, id: id}, true
}

// Classes returns a marker's classes, sorted.
func (s *MemorySurface) Classes(id string) []string {
	classes, _ := s.markers.Classes(id)
	return classes
}

// MarkerIDs implements Surface.
func (s *MemorySurface) MarkerIDs() []string {
	return s.markers.IDs()
}

// SetTrackBounds updates the scrubber track's bounding box.
func (s *MemorySurface) SetTrackBounds(r Rect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bounds = r
}

// TrackBounds implements Surface.
func (s *MemorySurface) TrackBounds() Rect {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bounds
}

type markerClasses struct {
	cache *cache.MarkerCache
	id    string
}

func (m markerClasses) Add(class string) {
	m.cache.AddClass(m.id, class)
}

func (m markerClasses) Remove(classes ...string) {
	m.cache.RemoveClasses(m.id, classes...)
}

func (m markerClasses) Contains(class string) bool {
	return m.cache.HasClass(m.id, class)
}
