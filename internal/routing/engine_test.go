package routing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ridelink/service-navigation/internal/domain/navigation"
)

type fakeBackend struct {
	mu      sync.Mutex
	calls   int
	result  RouteResult
	err     error
	release chan struct{}
}

func (b *fakeBackend) FetchRoute(ctx context.Context, from, to navigation.Coordinate) (RouteResult, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	if b.release != nil {
		<-b.release
	}
	return b.result, b.err
}

func (b *fakeBackend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

var (
	testFrom = navigation.Coordinate{Latitude: 40.7128, Longitude: -74.0060}
	testTo   = navigation.Coordinate{Latitude: 40.7589, Longitude: -73.9851}
)

func TestEngine_RouteUsesBackend(t *testing.T) {
	backend := &fakeBackend{result: RouteResult{DistanceMeters: 6200, DurationSeconds: 840}}
	engine := NewEngine(backend, zap.NewNop())

	result, err := engine.Route(context.Background(), testFrom, testTo)
	require.NoError(t, err)
	assert.Equal(t, 6200.0, result.DistanceMeters)
	assert.False(t, result.IsFallback)
}

func TestEngine_RouteMemoizesWithinTTL(t *testing.T) {
	backend := &fakeBackend{result: RouteResult{DistanceMeters: 6200}}
	engine := NewEngine(backend, zap.NewNop())

	_, err := engine.Route(context.Background(), testFrom, testTo)
	require.NoError(t, err)
	_, err = engine.Route(context.Background(), testFrom, testTo)
	require.NoError(t, err)

	assert.Equal(t, 1, backend.Calls(), "second call within TTL should hit the cache")
}

func TestEngine_RouteRecomputesAfterTTL(t *testing.T) {
	clock := newFakeClock()
	backend := &fakeBackend{result: RouteResult{DistanceMeters: 6200}}
	engine := NewEngine(backend, zap.NewNop(), WithClock(clock))

	_, err := engine.Route(context.Background(), testFrom, testTo)
	require.NoError(t, err)

	clock.Advance(DefaultCacheTTL + time.Second)
	_, err = engine.Route(context.Background(), testFrom, testTo)
	require.NoError(t, err)

	assert.Equal(t, 2, backend.Calls())
}

func TestEngine_RouteFallsBackOnBackendFailure(t *testing.T) {
	backend := &fakeBackend{err: errors.New("connection refused")}
	engine := NewEngine(backend, zap.NewNop())

	result, err := engine.Route(context.Background(), testFrom, testTo)
	require.NoError(t, err, "backend failure degrades, never surfaces")

	assert.True(t, result.IsFallback)
	assert.InDelta(t, 5420, result.DistanceMeters, 10)
	assert.InDelta(t, 390, result.DurationSeconds, 5)
	require.Len(t, result.Geometry, 2)
	assert.Equal(t, testFrom, result.Geometry[0])
	assert.Equal(t, testTo, result.Geometry[1])
}

func TestEngine_FallbackIsCachedToo(t *testing.T) {
	backend := &fakeBackend{err: errors.New("connection refused")}
	engine := NewEngine(backend, zap.NewNop())

	_, err := engine.Route(context.Background(), testFrom, testTo)
	require.NoError(t, err)
	result, err := engine.Route(context.Background(), testFrom, testTo)
	require.NoError(t, err)

	assert.True(t, result.IsFallback)
	assert.Equal(t, 1, backend.Calls(), "repeated failures must not hammer the backend")
}

func TestEngine_ConcurrentSameKeySharesOneFetch(t *testing.T) {
	backend := &fakeBackend{
		result:  RouteResult{DistanceMeters: 6200},
		release: make(chan struct{}),
	}
	engine := NewEngine(backend, zap.NewNop())

	const callers = 5
	var wg sync.WaitGroup
	results := make([]RouteResult, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = engine.Route(context.Background(), testFrom, testTo)
		}(i)
	}

	// Let the goroutines pile up on the in-flight entry before releasing
	// the backend.
	time.Sleep(50 * time.Millisecond)
	close(backend.release)
	wg.Wait()

	assert.Equal(t, 1, backend.Calls())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, 6200.0, results[i].DistanceMeters)
	}
}

func TestEngine_RouteRejectsInvalidCoordinates(t *testing.T) {
	backend := &fakeBackend{}
	engine := NewEngine(backend, zap.NewNop())

	_, err := engine.Route(context.Background(), navigation.Coordinate{Latitude: 91}, testTo)
	require.Error(t, err)
	assert.ErrorIs(t, err, navigation.ErrInvalidCoordinate)
	assert.Zero(t, backend.Calls())

	_, err = engine.Route(context.Background(), testFrom, navigation.Coordinate{Longitude: -181})
	require.Error(t, err)
	assert.ErrorIs(t, err, navigation.ErrInvalidCoordinate)
}

func TestEngine_ClearCacheForcesRecompute(t *testing.T) {
	backend := &fakeBackend{result: RouteResult{DistanceMeters: 6200}}
	engine := NewEngine(backend, zap.NewNop())

	_, err := engine.Route(context.Background(), testFrom, testTo)
	require.NoError(t, err)

	engine.ClearCache()
	_, err = engine.Route(context.Background(), testFrom, testTo)
	require.NoError(t, err)

	assert.Equal(t, 2, backend.Calls())
}

type fakeStore struct {
	mu      sync.Mutex
	entries map[string]storeEntry
	getErr  error
	puts    int
}

type storeEntry struct {
	result     RouteResult
	computedAt time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]storeEntry)}
}

func (s *fakeStore) Get(ctx context.Context, key string) (RouteResult, time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return RouteResult{}, time.Time{}, false, s.getErr
	}
	entry, ok := s.entries[key]
	return entry.result, entry.computedAt, ok, nil
}

func (s *fakeStore) Put(ctx context.Context, key string, result RouteResult, computedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	s.entries[key] = storeEntry{result: result, computedAt: computedAt}
	return nil
}

func TestEngine_WarmsFromStore(t *testing.T) {
	clock := newFakeClock()
	backend := &fakeBackend{result: RouteResult{DistanceMeters: 6200}}
	store := newFakeStore()
	store.entries[CacheKey(testFrom, testTo)] = storeEntry{
		result:     RouteResult{DistanceMeters: 5900},
		computedAt: clock.Now().Add(-time.Minute),
	}
	engine := NewEngine(backend, zap.NewNop(), WithClock(clock), WithStore(store))

	result, err := engine.Route(context.Background(), testFrom, testTo)
	require.NoError(t, err)
	assert.Equal(t, 5900.0, result.DistanceMeters)
	assert.Zero(t, backend.Calls(), "fresh store entry should skip the backend")
}

func TestEngine_IgnoresStaleStoreEntry(t *testing.T) {
	clock := newFakeClock()
	backend := &fakeBackend{result: RouteResult{DistanceMeters: 6200}}
	store := newFakeStore()
	store.entries[CacheKey(testFrom, testTo)] = storeEntry{
		result:     RouteResult{DistanceMeters: 5900},
		computedAt: clock.Now().Add(-DefaultCacheTTL - time.Minute),
	}
	engine := NewEngine(backend, zap.NewNop(), WithClock(clock), WithStore(store))

	result, err := engine.Route(context.Background(), testFrom, testTo)
	require.NoError(t, err)
	assert.Equal(t, 6200.0, result.DistanceMeters)
	assert.Equal(t, 1, backend.Calls())
}

func TestEngine_WritesThroughToStore(t *testing.T) {
	backend := &fakeBackend{result: RouteResult{DistanceMeters: 6200}}
	store := newFakeStore()
	engine := NewEngine(backend, zap.NewNop(), WithStore(store))

	_, err := engine.Route(context.Background(), testFrom, testTo)
	require.NoError(t, err)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, 1, store.puts)
	entry, ok := store.entries[CacheKey(testFrom, testTo)]
	require.True(t, ok)
	assert.Equal(t, 6200.0, entry.result.DistanceMeters)
}
