package routing

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ridelink/service-navigation/internal/domain/navigation"
)

// FallbackSpeedKmh is the fixed average urban speed assumed when estimating
// the duration of a straight-line fallback route.
const FallbackSpeedKmh = 50.0

// RouteStore is an optional persistent layer under the in-memory cache. The
// engine treats it as best-effort: store failures are logged, never surfaced.
type RouteStore interface {
	Get(ctx context.Context, key string) (RouteResult, time.Time, bool, error)
	Put(ctx context.Context, key string, result RouteResult, computedAt time.Time) error
}

type inflightRoute struct {
	done   chan struct{}
	result RouteResult
	err    error
}

// Engine computes routes between coordinates with memoization, in-flight
// de-duplication, and graceful degradation to a straight-line estimate when
// the routing backend fails.
type Engine struct {
	backend Backend
	cache   *Cache
	store   RouteStore
	ttl     time.Duration
	clock   Clock
	logger  *zap.Logger

	mu       sync.Mutex
	inflight map[string]*inflightRoute
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithStore attaches a persistent route store used to warm the in-memory
// cache and to write results through.
func WithStore(store RouteStore) EngineOption {
	return func(e *Engine) { e.store = store }
}

// WithClock overrides the engine clock, used by tests.
func WithClock(clock Clock) EngineOption {
	return func(e *Engine) {
		e.clock = clock
		e.cache = NewCache(e.ttl, DefaultCacheMaxEntries, clock)
	}
}

// WithCacheTTL overrides the route cache TTL.
func WithCacheTTL(ttl time.Duration) EngineOption {
	return func(e *Engine) {
		if ttl > 0 {
			e.ttl = ttl
			e.cache = NewCache(ttl, DefaultCacheMaxEntries, e.clock)
		}
	}
}

// NewEngine creates a route engine over the given backend.
func NewEngine(backend Backend, logger *zap.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		backend:  backend,
		ttl:      DefaultCacheTTL,
		clock:    SystemClock(),
		logger:   logger,
		inflight: make(map[string]*inflightRoute),
	}
	e.cache = NewCache(e.ttl, DefaultCacheMaxEntries, e.clock)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Route computes a route from one coordinate to another. The only error it
// can return besides context cancellation is a coordinate validation failure;
// backend failures always degrade to a cached straight-line fallback.
func (e *Engine) Route(ctx context.Context, from, to navigation.Coordinate) (RouteResult, error) {
	if err := from.Validate(); err != nil {
		return RouteResult{}, err
	}
	if err := to.Validate(); err != nil {
		return RouteResult{}, err
	}

	key := CacheKey(from, to)
	if result, ok := e.cache.Get(key); ok {
		return result, nil
	}

	if result, ok := e.warmFromStore(ctx, key); ok {
		return result, nil
	}

	e.mu.Lock()
	if call, ok := e.inflight[key]; ok {
		// A calculation for this key is already running; share its result.
		e.mu.Unlock()
		select {
		case <-call.done:
			return call.result, call.err
		case <-ctx.Done():
			return RouteResult{}, ctx.Err()
		}
	}
	call := &inflightRoute{done: make(chan struct{})}
	e.inflight[key] = call
	e.mu.Unlock()

	result := e.compute(ctx, key, from, to)

	call.result = result
	close(call.done)

	e.mu.Lock()
	delete(e.inflight, key)
	e.mu.Unlock()

	return result, nil
}

// ClearCache drops all memoized routes, used when a phase change invalidates
// the active leg.
func (e *Engine) ClearCache() {
	e.cache.Clear()
}

func (e *Engine) compute(ctx context.Context, key string, from, to navigation.Coordinate) RouteResult {
	result, err := e.backend.FetchRoute(ctx, from, to)
	if err != nil {
		e.logger.Warn("routing backend failed, degrading to straight-line fallback",
			zap.String("key", key),
			zap.Error(err),
		)
		result = Fallback(from, to)
	}

	// Fallback results are cached too, so repeated failures do not hammer
	// the backend within the TTL window.
	e.cache.Put(key, result)

	if e.store != nil {
		if err := e.store.Put(ctx, key, result, e.clock.Now()); err != nil {
			e.logger.Warn("route store write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return result
}

func (e *Engine) warmFromStore(ctx context.Context, key string) (RouteResult, bool) {
	if e.store == nil {
		return RouteResult{}, false
	}
	result, computedAt, found, err := e.store.Get(ctx, key)
	if err != nil {
		e.logger.Warn("route store read failed", zap.String("key", key), zap.Error(err))
		return RouteResult{}, false
	}
	if !found || e.clock.Now().Sub(computedAt) > e.ttl {
		return RouteResult{}, false
	}
	e.cache.PutAt(key, result, computedAt)
	return result, true
}

// Fallback builds a straight-line approximation of a route: haversine
// distance, a duration assuming the fixed average urban speed, and a
// synthetic two-point geometry.
func Fallback(from, to navigation.Coordinate) RouteResult {
	distance := HaversineMeters(from, to)
	duration := distance / (FallbackSpeedKmh * 1000.0 / 3600.0)
	return RouteResult{
		DistanceMeters:  distance,
		DurationSeconds: duration,
		Geometry:        []navigation.Coordinate{{Latitude: from.Latitude, Longitude: from.Longitude}, {Latitude: to.Latitude, Longitude: to.Longitude}},
		IsFallback:      true,
	}
}
