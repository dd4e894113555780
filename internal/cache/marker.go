package cache

import (
	"sort"
	"sync"
)

// MarkerCache tracks the class set of every placed marker, keyed by person ID.
type MarkerCache struct {
	mu      sync.RWMutex
	markers map[string]map[string]struct{}
}

// NewMarkerCache creates a new MarkerCache
func NewMarkerCache() *MarkerCache {
	return &MarkerCache{
		markers: make(map[string]map[string]struct{}),
	}
}

// Add registers a marker with no classes. Re-adding keeps existing classes.
func (c *MarkerCache) Add(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.markers[id]; !ok {
		c.markers[id] = make(map[string]struct{})
	}
}

// Has reports whether a marker exists
func (c *MarkerCache) Has(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.markers[id]
	return ok
}

// AddClass adds class to the marker. It returns false for unknown markers.
func (c *MarkerCache) AddClass(id, class string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	set, ok := c.markers[id]
	if !ok {
		return false
	}
	set[class] = struct{}{}
	return true
}

// RemoveClasses removes every given class from the marker.
func (c *MarkerCache) RemoveClasses(id string, classes ...string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	set, ok := c.markers[id]
	if !ok {
		return false
	}
	for _, class := range classes {
		delete(set, class)
	}
	return true
}

// HasClass reports whether the marker carries class.
func (c *MarkerCache) HasClass(id, class string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.markers[id][class]
	return ok
}

// Classes returns the marker's classes sorted.
func (c *MarkerCache) Classes(id string) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	set, ok := c.markers[id]
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(set))
	for class := range set {
		out = append(out, class)
	}
	sort.Strings(out)
	return out, true
}

// IDs returns every marker ID sorted.
func (c *MarkerCache) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.markers))
	for id := range c.markers {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Delete removes a marker
func (c *MarkerCache) Delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.markers, id)
}

// Reset clears all markers from the cache
func (c *MarkerCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.markers = make(map[string]map[string]struct{})
}
