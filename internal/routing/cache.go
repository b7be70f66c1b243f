package routing

import (
	"sync"
	"time"

	"github.com/ridelink/service-navigation/internal/domain/navigation"
)

const (
	// DefaultCacheTTL is how long a computed route stays valid.
	DefaultCacheTTL = 5 * time.Minute

	// DefaultCacheMaxEntries bounds the cache; the oldest entry is evicted
	// when the bound is reached.
	DefaultCacheMaxEntries = 256
)

// CacheKey identifies a route calculation by its endpoints rounded to six
// decimal places.
func CacheKey(from, to navigation.Coordinate) string {
	return from.Key() + "->" + to.Key()
}

type cacheEntry struct {
	result     RouteResult
	computedAt time.Time
}

// Cache is a bounded, TTL-bearing store of route results keyed by rounded
// coordinate pairs. It is purely memoized state owned by an Engine instance.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]cacheEntry
	ttl        time.Duration
	maxEntries int
	clock      Clock
}

// NewCache creates a Cache. Non-positive ttl or maxEntries fall back to the
// defaults; a nil clock falls back to the system clock.
func NewCache(ttl time.Duration, maxEntries int, clock Clock) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultCacheMaxEntries
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &Cache{
		entries:    make(map[string]cacheEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		clock:      clock,
	}
}

// Get returns the cached result for the key if present and within TTL.
// Expired entries are removed on lookup.
func (c *Cache) Get(key string) (RouteResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return RouteResult{}, false
	}
	if c.clock.Now().Sub(entry.computedAt) > c.ttl {
		delete(c.entries, key)
		return RouteResult{}, false
	}
	return entry.result, true
}

// Put stores a result under the key, evicting the oldest entry if the cache
// is full.
func (c *Cache) Put(key string, result RouteResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[key] = cacheEntry{result: result, computedAt: c.clock.Now()}
}

// PutAt stores a result with an explicit computation time, used when warming
// the cache from the persistent store.
func (c *Cache) PutAt(key string, result RouteResult, computedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[key] = cacheEntry{result: result, computedAt: computedAt}
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// Len returns the number of stored entries, including any not yet expired.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	first := true
	for key, entry := range c.entries {
		if first || entry.computedAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.computedAt
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}
