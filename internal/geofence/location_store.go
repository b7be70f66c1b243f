package geofence

import (
	"context"
	"sync"

	"github.com/ridelink/service-navigation/internal/domain/navigation"
)

// LocationStore is a thread-safe holder for the latest driver location sample.
// It implements LocationSource and is fed by whatever transport delivers
// samples (the kafka location consumer, or a scripted source in tests).
type LocationStore struct {
	mu  sync.RWMutex
	loc navigation.Location
	set bool
}

// NewLocationStore creates an empty store.
func NewLocationStore() *LocationStore {
	return &LocationStore{}
}

// Set replaces the stored sample. Samples older than the stored one are
// ignored so out-of-order delivery cannot move the driver backwards.
func (s *LocationStore) Set(loc navigation.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.set && loc.Timestamp < s.loc.Timestamp {
		return
	}
	s.loc = loc
	s.set = true
}

// Current returns the latest sample, or false when none has arrived yet.
func (s *LocationStore) Current(_ context.Context) (navigation.Location, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loc, s.set
}

// Clear drops the stored sample.
func (s *LocationStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loc = navigation.Location{}
	s.set = false
}
