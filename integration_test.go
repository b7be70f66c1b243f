//go:build integration

package main_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ridelink/service-navigation/internal/application"
	"github.com/ridelink/service-navigation/internal/domain/navigation"
	"github.com/ridelink/service-navigation/internal/events"
	"github.com/ridelink/service-navigation/internal/kafka"
	"github.com/ridelink/service-navigation/internal/routing"
	"github.com/ridelink/service-navigation/internal/transition"
)

// TestLocationUpdated_ReachesLocationStore verifies that a location.updated
// event published to the bus ends up as the current sample in the location
// store the geofence detector reads from.
func TestLocationUpdated_ReachesLocationStore(t *testing.T) {
	infra := setupKafka(t)
	defer infra.Cleanup()

	stack := setupLocationStack(t, infra.KafkaBrokers)
	defer func() { _ = stack.Consumer.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = stack.Consumer.Start(ctx) }()
	time.Sleep(3 * time.Second) // Wait for consumer group join.

	driverID := uuid.New()
	evt := events.LocationUpdatedEvent{
		DriverID:  driverID,
		Latitude:  40.7128,
		Longitude: -74.0060,
		Timestamp: time.Now().Unix(),
	}
	publishTestEvent(t, infra.KafkaBrokers, events.TopicLocationEvents,
		"service-location", events.LocationUpdated, driverID.String(), evt)

	require.Eventually(t, func() bool {
		loc, ok := stack.Store.Current(ctx)
		return ok && loc.Latitude == 40.7128 && loc.Longitude == -74.0060
	}, 15*time.Second, 200*time.Millisecond, "location sample never reached the store")
}

// TestPhaseTransition_PublishesPhaseChangedEvent verifies that a committed
// phase transition produces a navigation.phase_changed event on the bus.
func TestPhaseTransition_PublishesPhaseChangedEvent(t *testing.T) {
	infra := setupKafka(t)
	defer infra.Cleanup()

	logger, _ := zap.NewDevelopment()
	producer := kafka.NewProducer(infra.KafkaBrokers, "service-navigation", logger)
	defer func() { _ = producer.Close() }()

	engine := routing.NewEngine(staticBackend{}, logger)
	coordinator := transition.NewCoordinator(nil, nil, true, logger)
	defer coordinator.Close()

	trip := application.TripParams{
		TripID:      uuid.New(),
		DriverID:    uuid.New(),
		Pickup:      navigation.Coordinate{Latitude: 40.7128, Longitude: -74.0060},
		Destination: navigation.Coordinate{Latitude: 40.7589, Longitude: -73.9851},
	}
	svc := application.NewNavigationService(trip, engine, coordinator, nil, logger,
		application.WithEventPublisher(producer))

	_, err := svc.TransitionToPhase(context.Background(), navigation.PhaseAtPickup, navigation.TriggerGeofenceEnter)
	require.NoError(t, err)

	ce := consumeOneEvent(t, infra.KafkaBrokers, events.TopicNavigationEvents,
		events.NavigationPhaseChanged, 15*time.Second)

	var changed events.NavigationPhaseChangedEvent
	require.NoError(t, ce.ParseData(&changed))
	assert.Equal(t, trip.TripID, changed.TripID)
	assert.Equal(t, navigation.PhaseToPickup.String(), changed.From)
	assert.Equal(t, navigation.PhaseAtPickup.String(), changed.To)
	assert.Equal(t, string(navigation.TriggerGeofenceEnter), changed.Trigger)
}

// staticBackend keeps the integration tests independent of a routing provider.
type staticBackend struct{}

func (staticBackend) FetchRoute(ctx context.Context, from, to navigation.Coordinate) (routing.RouteResult, error) {
	return routing.RouteResult{DistanceMeters: 6200, DurationSeconds: 840}, nil
}
