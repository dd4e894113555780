package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkerCache_NewMarkerCache(t *testing.T) {
	cache := NewMarkerCache()

	require.NotNil(t, cache)
	assert.NotNil(t, cache.markers)
	assert.Empty(t, cache.IDs())
}

func TestMarkerCache_AddAndClasses(t *testing.T) {
	cache := NewMarkerCache()
	cache.Add("u1")

	require.True(t, cache.Has("u1"))
	classes, ok := cache.Classes("u1")
	require.True(t, ok)
	assert.Empty(t, classes)

	assert.True(t, cache.AddClass("u1", "state-working"))
	assert.True(t, cache.AddClass("u1", "avatar"))

	classes, _ = cache.Classes("u1")
	assert.Equal(t, []string{"avatar", "state-working"}, classes)
	assert.True(t, cache.HasClass("u1", "avatar"))
}

func TestMarkerCache_ReAddKeepsClasses(t *testing.T) {
	cache := NewMarkerCache()
	cache.Add("u1")
	cache.AddClass("u1", "state-edge")
	cache.Add("u1")

	assert.True(t, cache.HasClass("u1", "state-edge"))
}

func TestMarkerCache_UnknownMarker(t *testing.T) {
	cache := NewMarkerCache()

	assert.False(t, cache.Has("ghost"))
	assert.False(t, cache.AddClass("ghost", "state-off"))
	assert.False(t, cache.RemoveClasses("ghost", "state-off"))
	assert.False(t, cache.HasClass("ghost", "state-off"))

	_, ok := cache.Classes("ghost")
	assert.False(t, ok)
}

func TestMarkerCache_RemoveClasses(t *testing.T) {
	cache := NewMarkerCache()
	cache.Add("u1")
	cache.AddClass("u1", "state-working")
	cache.AddClass("u1", "state-off")
	cache.AddClass("u1", "avatar")

	assert.True(t, cache.RemoveClasses("u1", "state-working", "state-off", "state-edge"))

	classes, _ := cache.Classes("u1")
	assert.Equal(t, []string{"avatar"}, classes)
}

func TestMarkerCache_Delete(t *testing.T) {
	cache := NewMarkerCache()

	cache.Add("u1")
	cache.Add("u2")

	cache.Delete("u1")

	assert.False(t, cache.Has("u1"), "expected not to find u1 after delete")
	assert.True(t, cache.Has("u2"), "expected u2 to still exist")
}

func TestMarkerCache_Delete_NonExistent(t *testing.T) {
	cache := NewMarkerCache()

	// Should not panic when deleting non-existent marker
	cache.Delete("nonexistent")
}

func TestMarkerCache_IDsSorted(t *testing.T) {
	cache := NewMarkerCache()
	cache.Add("b")
	cache.Add("c")
	cache.Add("a")

	assert.Equal(t, []string{"a", "b", "c"}, cache.IDs())
}

func TestMarkerCache_Reset(t *testing.T) {
	cache := NewMarkerCache()
	cache.Add("u1")
	cache.Add("u2")

	cache.Reset()

	assert.Empty(t, cache.IDs())
}

func TestMarkerCache_ConcurrentAccess(t *testing.T) {
	cache := NewMarkerCache()
	cache.Add("u1")
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			cache.AddClass("u1", "state-working")
		}()
		go func() {
			defer wg.Done()
			cache.RemoveClasses("u1", "state-working")
		}()
		go func() {
			defer wg.Done()
			cache.Classes("u1")
		}()
	}

	wg.Wait()
}
