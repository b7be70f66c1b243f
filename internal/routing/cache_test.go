package routing

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ridelink/service-navigation/internal/domain/navigation"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestCacheKey_RoundsToSixDecimals(t *testing.T) {
	a := navigation.Coordinate{Latitude: 40.7128004, Longitude: -74.0060001}
	b := navigation.Coordinate{Latitude: 40.7128001, Longitude: -74.0059999}
	to := navigation.Coordinate{Latitude: 40.7589, Longitude: -73.9851}

	assert.Equal(t, CacheKey(a, to), CacheKey(b, to))
	assert.Equal(t, "40.712800,-74.006000->40.758900,-73.985100", CacheKey(a, to))
}

func TestCache_GetWithinTTL(t *testing.T) {
	clock := newFakeClock()
	cache := NewCache(5*time.Minute, 16, clock)

	cache.Put("key", RouteResult{DistanceMeters: 1200})

	clock.Advance(4 * time.Minute)
	result, ok := cache.Get("key")
	assert.True(t, ok)
	assert.Equal(t, 1200.0, result.DistanceMeters)
}

func TestCache_ExpiresAfterTTL(t *testing.T) {
	clock := newFakeClock()
	cache := NewCache(5*time.Minute, 16, clock)

	cache.Put("key", RouteResult{DistanceMeters: 1200})

	clock.Advance(5*time.Minute + time.Second)
	_, ok := cache.Get("key")
	assert.False(t, ok)
	// The expired entry is dropped on lookup, not left behind.
	assert.Zero(t, cache.Len())
}

func TestCache_EvictsOldestWhenFull(t *testing.T) {
	clock := newFakeClock()
	cache := NewCache(5*time.Minute, 3, clock)

	for i := 0; i < 3; i++ {
		cache.Put(fmt.Sprintf("key-%d", i), RouteResult{DistanceMeters: float64(i)})
		clock.Advance(time.Second)
	}
	cache.Put("key-3", RouteResult{DistanceMeters: 3})

	assert.Equal(t, 3, cache.Len())
	_, ok := cache.Get("key-0")
	assert.False(t, ok, "oldest entry should have been evicted")
	_, ok = cache.Get("key-3")
	assert.True(t, ok)
}

func TestCache_PutAtHonorsExplicitTimestamp(t *testing.T) {
	clock := newFakeClock()
	cache := NewCache(5*time.Minute, 16, clock)

	cache.PutAt("stale", RouteResult{}, clock.Now().Add(-10*time.Minute))
	_, ok := cache.Get("stale")
	assert.False(t, ok)

	cache.PutAt("fresh", RouteResult{DistanceMeters: 42}, clock.Now().Add(-time.Minute))
	result, ok := cache.Get("fresh")
	assert.True(t, ok)
	assert.Equal(t, 42.0, result.DistanceMeters)
}

func TestCache_Clear(t *testing.T) {
	cache := NewCache(0, 0, newFakeClock())
	cache.Put("a", RouteResult{})
	cache.Put("b", RouteResult{})

	cache.Clear()
	assert.Zero(t, cache.Len())
}
