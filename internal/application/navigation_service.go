package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ridelink/service-navigation/internal/domain/navigation"
	"github.com/ridelink/service-navigation/internal/events"
	"github.com/ridelink/service-navigation/internal/geofence"
	"github.com/ridelink/service-navigation/internal/routing"
	"github.com/ridelink/service-navigation/internal/transition"
)

// PhaseConfirmer reports committed phase changes to the ride backend. The
// rest.RideAPI adapter implements it.
type PhaseConfirmer interface {
	ConfirmPhase(ctx context.Context, tripID uuid.UUID, from, to navigation.Phase, trigger navigation.TransitionTrigger) error
}

// EventPublisher publishes lifecycle events. The kafka.Producer implements it.
type EventPublisher interface {
	Publish(ctx context.Context, topic, eventType, key string, payload any) error
}

// PhaseChange is delivered to subscribers synchronously after each commit.
type PhaseChange struct {
	TripID  uuid.UUID
	From    navigation.Phase
	To      navigation.Phase
	Trigger navigation.TransitionTrigger
	Route   *routing.RouteResult
	At      time.Time
}

// PhaseListener observes committed phase changes.
type PhaseListener func(PhaseChange)

// TripParams identifies the trip a NavigationService coordinates. The service
// is single-trip: construct a new instance per trip.
type TripParams struct {
	TripID             uuid.UUID
	DriverID           uuid.UUID
	Pickup             navigation.Coordinate
	Destination        navigation.Coordinate
	PickupRadiusM      float64
	DestinationRadiusM float64
}

// NavigationService is the navigation phase state machine: it validates phase
// transitions against the adjacency table, runs the per-phase action set
// (route recompute, geofence visibility, camera, voice, backend confirm), and
// commits the new phase once everything has settled. The phase change itself
// is never rolled back on side-effect failure; the failure travels in the
// TransitionResult instead.
type NavigationService struct {
	tripID          uuid.UUID
	driverID        uuid.UUID
	pickup          navigation.Coordinate
	destination     navigation.Coordinate
	pickupZone      navigation.GeofenceZone
	destinationZone navigation.GeofenceZone

	engine      *routing.Engine
	coordinator *transition.Coordinator
	renderer    transition.MapRenderer
	source      geofence.LocationSource
	confirmer   PhaseConfirmer
	publisher   EventPublisher
	logger      *zap.Logger

	mu             sync.Mutex
	phase          navigation.Phase
	previousPhase  navigation.Phase
	transitioning  bool
	inFlightTarget navigation.Phase
	lastTrigger    navigation.TransitionTrigger
	lastError      error
	activeRoute    *routing.RouteResult
	cancelReason   string
	torn           bool
	lifeCtx        context.Context
	lifeCancel     context.CancelFunc
	subscribers    []PhaseListener
}

// ServiceOption configures optional collaborators.
type ServiceOption func(*NavigationService)

// WithLocationSource lets the service route from the driver's live position
// instead of the leg's origin.
func WithLocationSource(source geofence.LocationSource) ServiceOption {
	return func(s *NavigationService) { s.source = source }
}

// WithPhaseConfirmer attaches the ride backend confirmation port.
func WithPhaseConfirmer(confirmer PhaseConfirmer) ServiceOption {
	return func(s *NavigationService) { s.confirmer = confirmer }
}

// WithEventPublisher attaches the lifecycle event publisher.
func WithEventPublisher(publisher EventPublisher) ServiceOption {
	return func(s *NavigationService) { s.publisher = publisher }
}

// NewNavigationService creates the state machine for one trip, starting in
// to_pickup. Nil renderer falls back to the explicit no-op.
func NewNavigationService(
	trip TripParams,
	engine *routing.Engine,
	coordinator *transition.Coordinator,
	renderer transition.MapRenderer,
	logger *zap.Logger,
	opts ...ServiceOption,
) *NavigationService {
	if renderer == nil {
		renderer = transition.NoopRenderer{}
	}
	lifeCtx, lifeCancel := context.WithCancel(context.Background())
	s := &NavigationService{
		tripID:          trip.TripID,
		driverID:        trip.DriverID,
		pickup:          trip.Pickup,
		destination:     trip.Destination,
		pickupZone:      navigation.NewGeofenceZone(navigation.ZonePickup, trip.Pickup, trip.PickupRadiusM),
		destinationZone: navigation.NewGeofenceZone(navigation.ZoneDestination, trip.Destination, trip.DestinationRadiusM),
		engine:          engine,
		coordinator:     coordinator,
		renderer:        renderer,
		logger:          logger,
		phase:           navigation.PhaseToPickup,
		previousPhase:   navigation.PhaseWaiting,
		lifeCtx:         lifeCtx,
		lifeCancel:      lifeCancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Phase returns the current navigation phase.
func (s *NavigationService) Phase() navigation.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// IsTransitioning reports whether a transition is in flight.
func (s *NavigationService) IsTransitioning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitioning
}

// LastError returns the side-effect error of the most recent transition, nil
// when it settled cleanly.
func (s *NavigationService) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// ActiveRoute returns the route for the current leg, nil when the phase has
// no leg or the last recompute produced nothing.
func (s *NavigationService) ActiveRoute() *routing.RouteResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeRoute == nil {
		return nil
	}
	route := *s.activeRoute
	return &route
}

// Zones returns the trip's pickup and destination zones.
func (s *NavigationService) Zones() (pickup, destination navigation.GeofenceZone) {
	return s.pickupZone, s.destinationZone
}

// Subscribe registers a listener invoked synchronously after each committed
// phase change.
func (s *NavigationService) Subscribe(fn PhaseListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// TransitionToPhase requests a phase change.
//
// A request naming the currently-active phase, or the target of an in-flight
// transition, settles as an idempotent no-op. A request naming a different
// target while another transition is in flight fails with
// ErrTransitionInFlight. Adjacency violations fail with
// InvalidTransitionError and leave state untouched. After teardown the result
// carries Unmounted=true instead of an error.
func (s *NavigationService) TransitionToPhase(ctx context.Context, target navigation.Phase, trigger navigation.TransitionTrigger) (navigation.TransitionResult, error) {
	if !target.IsValid() {
		return navigation.TransitionResult{}, fmt.Errorf("invalid navigation phase: %s", target)
	}

	s.mu.Lock()
	if s.torn {
		phase := s.phase
		s.mu.Unlock()
		return navigation.TransitionResult{Phase: phase, Unmounted: true}, nil
	}
	if target == s.phase || (s.transitioning && target == s.inFlightTarget) {
		result := navigation.TransitionResult{Phase: s.phase, Previous: s.previousPhase, NoOp: true}
		s.mu.Unlock()
		return result, nil
	}
	if s.transitioning {
		s.mu.Unlock()
		return navigation.TransitionResult{}, navigation.ErrTransitionInFlight
	}
	if !s.phase.CanTransitionTo(target) {
		err := navigation.NewInvalidTransitionError(s.phase, target)
		s.mu.Unlock()
		return navigation.TransitionResult{}, err
	}

	previous := s.phase
	s.transitioning = true
	s.inFlightTarget = target
	s.lastTrigger = trigger
	lifeCtx := s.lifeCtx

	// Pre-transition actions run synchronously before anything else: the old
	// leg's route is no longer meaningful.
	s.activeRoute = nil
	s.mu.Unlock()

	route, sideErr := s.runPhaseActions(ctx, target)

	// Cooperative cancellation: a teardown that happened while the actions
	// were settling wins, and the late result is discarded, never applied.
	select {
	case <-lifeCtx.Done():
		return navigation.TransitionResult{Phase: previous, Unmounted: true}, nil
	default:
	}

	s.mu.Lock()
	if s.torn {
		phase := s.phase
		s.mu.Unlock()
		return navigation.TransitionResult{Phase: phase, Unmounted: true}, nil
	}
	s.phase = target
	s.previousPhase = previous
	s.transitioning = false
	s.inFlightTarget = ""
	s.activeRoute = route
	s.lastError = sideErr
	subscribers := make([]PhaseListener, len(s.subscribers))
	copy(subscribers, s.subscribers)
	s.mu.Unlock()

	s.logger.Info("navigation phase committed",
		zap.String("trip_id", s.tripID.String()),
		zap.String("from", previous.String()),
		zap.String("to", target.String()),
		zap.String("trigger", string(trigger)),
		zap.Bool("side_effects_ok", sideErr == nil),
	)

	change := PhaseChange{
		TripID:  s.tripID,
		From:    previous,
		To:      target,
		Trigger: trigger,
		Route:   route,
		At:      time.Now().UTC(),
	}
	for _, fn := range subscribers {
		fn(change)
	}

	s.publishPhaseChanged(ctx, change)

	return navigation.TransitionResult{Phase: target, Previous: previous, SideEffectErr: sideErr}, nil
}

// Start runs the action set for the initial phase (route toward pickup,
// geofence visibility, camera, voice) without moving the phase.
func (s *NavigationService) Start(ctx context.Context) (navigation.TransitionResult, error) {
	return s.RetryLastTransition(ctx)
}

// RetryLastTransition re-runs the action set for the current phase after a
// partial side-effect failure. The phase itself does not move.
func (s *NavigationService) RetryLastTransition(ctx context.Context) (navigation.TransitionResult, error) {
	s.mu.Lock()
	if s.torn {
		phase := s.phase
		s.mu.Unlock()
		return navigation.TransitionResult{Phase: phase, Unmounted: true}, nil
	}
	if s.transitioning {
		s.mu.Unlock()
		return navigation.TransitionResult{}, navigation.ErrTransitionInFlight
	}
	phase := s.phase
	previous := s.previousPhase
	s.transitioning = true
	s.inFlightTarget = phase
	lifeCtx := s.lifeCtx
	s.mu.Unlock()

	route, sideErr := s.runPhaseActions(ctx, phase)

	select {
	case <-lifeCtx.Done():
		return navigation.TransitionResult{Phase: phase, Unmounted: true}, nil
	default:
	}

	s.mu.Lock()
	s.transitioning = false
	s.inFlightTarget = ""
	s.activeRoute = route
	s.lastError = sideErr
	s.mu.Unlock()

	return navigation.TransitionResult{Phase: phase, Previous: previous, SideEffectErr: sideErr}, nil
}

// HandleGeofenceEnter consumes a detector event and requests the matching
// arrival phase.
func (s *NavigationService) HandleGeofenceEnter(ctx context.Context, ev geofence.Event) {
	var target navigation.Phase
	switch ev.Kind {
	case navigation.ZonePickup:
		target = navigation.PhaseAtPickup
	case navigation.ZoneDestination:
		target = navigation.PhaseAtDestination
	default:
		return
	}
	if _, err := s.TransitionToPhase(ctx, target, navigation.TriggerGeofenceEnter); err != nil {
		s.logger.Warn("geofence-triggered transition rejected",
			zap.String("zone", string(ev.Kind)),
			zap.String("target", target.String()),
			zap.Error(err),
		)
	}
}

// Cancel moves the trip to cancelled from any non-terminal phase.
func (s *NavigationService) Cancel(ctx context.Context, reason string) (navigation.TransitionResult, error) {
	s.mu.Lock()
	s.cancelReason = reason
	s.mu.Unlock()
	return s.TransitionToPhase(ctx, navigation.PhaseCancelled, navigation.TriggerExternal)
}

// Reinitialize re-arms a cleaned-up but still-alive machine so it can resume
// handling transitions. It is invalid after Teardown.
func (s *NavigationService) Reinitialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.torn {
		return navigation.ErrUnmounted
	}
	s.lifeCancel()
	s.lifeCtx, s.lifeCancel = context.WithCancel(context.Background())
	s.transitioning = false
	s.inFlightTarget = ""
	return nil
}

// Cleanup releases in-flight work without destroying the machine: pending
// callbacks observe the cancelled liveness context and discard their results.
// Call Reinitialize to resume.
func (s *NavigationService) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lifeCancel()
	s.transitioning = false
	s.inFlightTarget = ""
}

// Teardown destroys the machine for good. Subsequent transition requests
// settle with Unmounted=true.
func (s *NavigationService) Teardown() {
	s.mu.Lock()
	if s.torn {
		s.mu.Unlock()
		return
	}
	s.torn = true
	s.lifeCancel()
	s.mu.Unlock()
	s.coordinator.Close()
}

// runPhaseActions executes the primary action set for the target phase. The
// actions are issued concurrently and the call returns only once all of them
// have settled. Voice failures are swallowed by the coordinator; everything
// else is joined into the returned error.
func (s *NavigationService) runPhaseActions(ctx context.Context, target navigation.Phase) (*routing.RouteResult, error) {
	var wg sync.WaitGroup
	var routeMu sync.Mutex
	var route *routing.RouteResult
	errCh := make(chan error, 4)

	if from, to, ok := s.routeLegFor(ctx, target); ok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := s.engine.Route(ctx, from, to)
			if err != nil {
				errCh <- fmt.Errorf("route recompute: %w", err)
				return
			}
			routeMu.Lock()
			route = &result
			routeMu.Unlock()
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.applyZoneVisibility(ctx, target); err != nil {
			errCh <- fmt.Errorf("geofence visibility: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.coordinator.Execute(ctx, s.cameraCommandFor(target)); err != nil {
			errCh <- fmt.Errorf("camera transition: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.coordinator.Announce(ctx, announcementFor(target))
	}()

	if s.confirmer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.mu.Lock()
			from := s.phase
			trigger := s.lastTrigger
			s.mu.Unlock()
			if err := s.confirmer.ConfirmPhase(ctx, s.tripID, from, target, trigger); err != nil {
				errCh <- fmt.Errorf("backend confirmation: %w", err)
			}
		}()
	}

	wg.Wait()
	close(errCh)

	var collected []error
	for err := range errCh {
		collected = append(collected, err)
	}
	return route, errors.Join(collected...)
}

// routeLegFor picks the endpoints of the new leg. Only the two driving phases
// carry a route.
func (s *NavigationService) routeLegFor(ctx context.Context, target navigation.Phase) (from, to navigation.Coordinate, ok bool) {
	switch target {
	case navigation.PhaseToPickup:
		if s.source != nil {
			if loc, found := s.source.Current(ctx); found {
				return loc.Coordinate, s.pickup, true
			}
		}
		return navigation.Coordinate{}, navigation.Coordinate{}, false
	case navigation.PhaseToDestination:
		if s.source != nil {
			if loc, found := s.source.Current(ctx); found {
				return loc.Coordinate, s.destination, true
			}
		}
		return s.pickup, s.destination, true
	default:
		return navigation.Coordinate{}, navigation.Coordinate{}, false
	}
}

func (s *NavigationService) applyZoneVisibility(ctx context.Context, target navigation.Phase) error {
	var errs []error
	for _, zone := range []navigation.GeofenceZone{s.pickupZone, s.destinationZone} {
		visible := navigation.ZoneVisible(target, zone.Kind)
		if err := s.renderer.SetGeofenceVisible(ctx, zone.ID.String(), visible); err != nil {
			errs = append(errs, fmt.Errorf("zone %s: %w", zone.Kind, err))
		}
	}
	return errors.Join(errs...)
}

func (s *NavigationService) cameraCommandFor(target navigation.Phase) transition.CameraCommand {
	switch target {
	case navigation.PhaseToPickup:
		return transition.CameraCommand{Mode: transition.ModeRouteOverview, Target: s.pickup, Zoom: 13, Duration: 800 * time.Millisecond}
	case navigation.PhaseToDestination:
		return transition.CameraCommand{Mode: transition.ModeFollowNavigation, Target: s.destination, Zoom: 16, Duration: 800 * time.Millisecond}
	default:
		return transition.CameraCommand{Mode: transition.ModeCenterOnDriver, Duration: 500 * time.Millisecond}
	}
}

func announcementFor(target navigation.Phase) string {
	switch target {
	case navigation.PhaseToPickup:
		return "Head to the pickup point"
	case navigation.PhaseAtPickup:
		return "You have arrived at the pickup point"
	case navigation.PhasePickingUp:
		return "Waiting for the rider"
	case navigation.PhaseToDestination:
		return "Head to the destination"
	case navigation.PhaseAtDestination:
		return "You have arrived at the destination"
	case navigation.PhaseCompleted:
		return "Trip completed"
	case navigation.PhaseCancelled:
		return "Trip cancelled"
	default:
		return ""
	}
}

func (s *NavigationService) publishPhaseChanged(ctx context.Context, change PhaseChange) {
	if s.publisher == nil {
		return
	}
	evt := events.NavigationPhaseChangedEvent{
		TripID:     s.tripID,
		DriverID:   s.driverID,
		From:       change.From.String(),
		To:         change.To.String(),
		Trigger:    string(change.Trigger),
		IsFallback: change.Route != nil && change.Route.IsFallback,
		OccurredAt: change.At,
	}
	if err := s.publisher.Publish(ctx, events.TopicNavigationEvents, events.NavigationPhaseChanged, s.tripID.String(), evt); err != nil {
		s.logger.Warn("failed to publish phase change event",
			zap.String("trip_id", s.tripID.String()),
			zap.Error(err),
		)
	}
}
