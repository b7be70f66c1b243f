package geofence

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ridelink/service-navigation/internal/domain/navigation"
	"github.com/ridelink/service-navigation/internal/routing"
)

// DefaultPollInterval is how often the detector samples the driver's distance
// to the active zone.
const DefaultPollInterval = 20 * time.Second

// Event is an edge-triggered zone entry: the driver crossed from outside the
// radius to inside it since the previous check.
type Event struct {
	Kind           navigation.ZoneKind
	Zone           navigation.GeofenceZone
	DistanceMeters float64
	At             time.Time
}

// LocationSource supplies the latest driver location. A false second return
// means no sample is available yet; the check for that tick is skipped.
type LocationSource interface {
	Current(ctx context.Context) (navigation.Location, bool)
}

// Detector polls driver-to-target distance and raises entry events for the
// zone relevant to the current phase. Events fire exactly once per continuous
// inside-dwell.
type Detector struct {
	source      LocationSource
	pickup      navigation.GeofenceZone
	destination navigation.GeofenceZone
	interval    time.Duration
	onEnter     func(Event)
	logger      *zap.Logger

	mu      sync.Mutex
	phase   navigation.Phase
	entered map[navigation.ZoneKind]bool

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewDetector creates a detector for the trip's two zones. onEnter is invoked
// synchronously from the polling goroutine. A non-positive interval falls
// back to the default.
func NewDetector(
	source LocationSource,
	pickup, destination navigation.GeofenceZone,
	interval time.Duration,
	onEnter func(Event),
	logger *zap.Logger,
) *Detector {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if onEnter == nil {
		onEnter = func(Event) {}
	}
	return &Detector{
		source:      source,
		pickup:      pickup,
		destination: destination,
		interval:    interval,
		onEnter:     onEnter,
		logger:      logger,
		phase:       navigation.PhaseToPickup,
		entered:     make(map[navigation.ZoneKind]bool),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// SetPhase gates detection on the given phase and re-arms the entry guard for
// the new leg's zone. During picking_up and the terminal phases both inside
// flags are cleared.
func (d *Detector) SetPhase(phase navigation.Phase) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if phase == d.phase {
		return
	}
	d.phase = phase
	switch phase {
	case navigation.PhaseToPickup:
		d.entered[navigation.ZonePickup] = false
	case navigation.PhaseToDestination:
		d.entered[navigation.ZoneDestination] = false
	case navigation.PhasePickingUp, navigation.PhaseCompleted, navigation.PhaseCancelled:
		d.entered[navigation.ZonePickup] = false
		d.entered[navigation.ZoneDestination] = false
	}
}

// Check performs one distance evaluation. Exposed so tests and the polling
// loop share the same path. Absence of a location is not an error; the check
// is simply skipped.
func (d *Detector) Check(ctx context.Context) {
	d.mu.Lock()
	phase := d.phase
	d.mu.Unlock()

	var zone navigation.GeofenceZone
	switch phase {
	case navigation.PhaseToPickup:
		zone = d.pickup
	case navigation.PhaseToDestination:
		zone = d.destination
	default:
		return
	}

	loc, ok := d.source.Current(ctx)
	if !ok {
		return
	}

	distance := routing.HaversineMeters(loc.Coordinate, zone.Center)

	d.mu.Lock()
	inside := distance <= zone.RadiusMeters
	wasInside := d.entered[zone.Kind]
	d.entered[zone.Kind] = inside
	// Re-check the gate under the lock; the phase may have moved while the
	// location was being read.
	stale := d.phase != phase
	d.mu.Unlock()

	if stale || !inside || wasInside {
		return
	}

	d.logger.Info("geofence entered",
		zap.String("zone", string(zone.Kind)),
		zap.Float64("distance_m", distance),
		zap.Float64("radius_m", zone.RadiusMeters),
	)
	d.onEnter(Event{
		Kind:           zone.Kind,
		Zone:           zone,
		DistanceMeters: distance,
		At:             time.Now().UTC(),
	})
}

// Run polls until the context is cancelled or Stop is called.
func (d *Detector) Run(ctx context.Context) {
	defer close(d.done)
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stop:
			return
		case <-ticker.C:
			d.Check(ctx)
		}
	}
}

// Stop terminates the polling loop deterministically and waits for it to
// exit. Safe to call more than once and before Run.
func (d *Detector) Stop() {
	d.stopOnce.Do(func() { close(d.stop) })
	select {
	case <-d.done:
	case <-time.After(time.Second):
	}
}
