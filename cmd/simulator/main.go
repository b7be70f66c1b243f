package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ridelink/service-navigation/internal/application"
	"github.com/ridelink/service-navigation/internal/config"
	"github.com/ridelink/service-navigation/internal/domain/navigation"
	"github.com/ridelink/service-navigation/internal/geofence"
	"github.com/ridelink/service-navigation/internal/kafka"
	"github.com/ridelink/service-navigation/internal/logger"
	"github.com/ridelink/service-navigation/internal/repository"
	"github.com/ridelink/service-navigation/internal/rest"
	"github.com/ridelink/service-navigation/internal/routing"
	"github.com/ridelink/service-navigation/internal/transition"
)

// The simulator drives one scripted trip end to end: a driver approaches the
// pickup zone, picks up the rider, drives to the destination, and completes.
// It is a local development tool, not a protocol surface.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewNamed(cfg.AppEnv, "service-navigation")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting navigation simulator",
		zap.String("routing_backend", cfg.RoutingBackend.BaseURL),
	)

	// Route engine: HTTP backend plus optional persistent cache. With no
	// routing backend running locally, every leg degrades to the
	// straight-line fallback, which is exactly the path worth watching.
	backend := routing.NewHTTPBackend(cfg.RoutingBackend.BaseURL, cfg.RoutingBackend.Timeout)
	engineOpts := []routing.EngineOption{routing.WithCacheTTL(cfg.RouteCache.TTL)}
	if cfg.RouteCache.Path != "" {
		store, err := repository.OpenSQLiteRouteStore(cfg.RouteCache.Path)
		if err != nil {
			log.Fatal("failed to open route cache store", zap.Error(err))
		}
		defer func() { _ = store.Close() }()
		if removed, err := store.Prune(context.Background(), time.Now().Add(-cfg.RouteCache.TTL)); err != nil {
			log.Warn("failed to prune route cache", zap.Error(err))
		} else if removed > 0 {
			log.Info("pruned stale cached routes", zap.Int64("removed", removed))
		}
		engineOpts = append(engineOpts, routing.WithStore(store))
	}
	engine := routing.NewEngine(backend, log, engineOpts...)

	renderer := &loggingRenderer{log: log.Named("map")}
	voice := &loggingVoice{log: log.Named("voice")}
	coordinator := transition.NewCoordinator(renderer, voice, cfg.Voice.Muted, log)

	pickup := navigation.Coordinate{Latitude: 40.712800, Longitude: -74.006000}
	destination := navigation.Coordinate{Latitude: 40.758900, Longitude: -73.985100}
	start := navigation.Coordinate{Latitude: 40.700000, Longitude: -74.015000}

	trip := application.TripParams{
		TripID:             uuid.New(),
		DriverID:           uuid.New(),
		Pickup:             pickup,
		Destination:        destination,
		PickupRadiusM:      cfg.Geofence.PickupRadiusM,
		DestinationRadiusM: cfg.Geofence.DestinationRadiusM,
	}

	locations := geofence.NewLocationStore()

	serviceOpts := []application.ServiceOption{application.WithLocationSource(locations)}
	if os.Getenv("NAV_SIMULATOR_ONLINE") == "true" {
		client := rest.NewClient(cfg.RideAPI.BaseURL, rest.RetryPolicy{
			MaxRetries: cfg.Retry.MaxRetries,
			BaseDelay:  cfg.Retry.BaseDelay,
			MaxDelay:   cfg.Retry.MaxDelay,
			Multiplier: cfg.Retry.Multiplier,
		}, log, rest.WithTimeout(cfg.RideAPI.Timeout))
		serviceOpts = append(serviceOpts, application.WithPhaseConfirmer(rest.NewRideAPI(client)))

		producer := kafka.NewProducer(cfg.Kafka.Brokers, "service-navigation", log)
		defer func() { _ = producer.Close() }()
		serviceOpts = append(serviceOpts, application.WithEventPublisher(producer))
	}

	service := application.NewNavigationService(trip, engine, coordinator, renderer, log, serviceOpts...)
	defer service.Teardown()

	service.Subscribe(func(change application.PhaseChange) {
		fields := []zap.Field{
			zap.String("from", change.From.String()),
			zap.String("to", change.To.String()),
			zap.String("trigger", string(change.Trigger)),
		}
		if change.Route != nil {
			fields = append(fields,
				zap.String("distance", routing.FormatDistance(change.Route.DistanceMeters, 1)),
				zap.String("eta", routing.FormatDuration(change.Route.DurationSeconds)),
				zap.Bool("fallback_route", change.Route.IsFallback),
			)
		}
		log.Info("phase change", fields...)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pickupZone, destZone := service.Zones()
	detector := geofence.NewDetector(locations, pickupZone, destZone, 200*time.Millisecond,
		func(ev geofence.Event) { service.HandleGeofenceEnter(ctx, ev) }, log)
	defer detector.Stop()
	service.Subscribe(func(change application.PhaseChange) { detector.SetPhase(change.To) })
	go detector.Run(ctx)

	if _, err := service.Start(ctx); err != nil {
		log.Fatal("failed to start navigation", zap.Error(err))
	}

	driveLeg(ctx, locations, start, pickup, 20)
	waitForPhase(ctx, service, navigation.PhaseAtPickup)

	mustTransition(ctx, log, service, navigation.PhasePickingUp)
	time.Sleep(500 * time.Millisecond) // rider boards

	mustTransition(ctx, log, service, navigation.PhaseToDestination)

	driveLeg(ctx, locations, pickup, destination, 30)
	waitForPhase(ctx, service, navigation.PhaseAtDestination)

	mustTransition(ctx, log, service, navigation.PhaseCompleted)

	log.Info("trip complete", zap.String("trip_id", trip.TripID.String()))
}

// driveLeg feeds interpolated location samples from one coordinate toward
// another at a steady cadence.
func driveLeg(ctx context.Context, store *geofence.LocationStore, from, to navigation.Coordinate, steps int) {
	for i := 0; i <= steps; i++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(200 * time.Millisecond):
		}
		f := float64(i) / float64(steps)
		store.Set(navigation.Location{
			Coordinate: navigation.Coordinate{
				Latitude:  from.Latitude + (to.Latitude-from.Latitude)*f,
				Longitude: from.Longitude + (to.Longitude-from.Longitude)*f,
			},
			Timestamp: time.Now().UnixMilli(),
		})
	}
}

func waitForPhase(ctx context.Context, service *application.NavigationService, want navigation.Phase) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(100 * time.Millisecond):
		}
		if service.Phase() == want {
			return
		}
	}
}

func mustTransition(ctx context.Context, log *zap.Logger, service *application.NavigationService, target navigation.Phase) {
	result, err := service.TransitionToPhase(ctx, target, navigation.TriggerManual)
	if err != nil {
		log.Fatal("transition failed", zap.String("target", target.String()), zap.Error(err))
	}
	if result.SideEffectErr != nil {
		log.Warn("transition committed with degraded side effects",
			zap.String("target", target.String()),
			zap.Error(result.SideEffectErr),
		)
	}
}

// loggingRenderer is the simulator's stand-in for the map collaborator.
type loggingRenderer struct {
	log *zap.Logger
}

func (r *loggingRenderer) CenterOnDriver(context.Context) error {
	r.log.Info("camera: center on driver")
	return nil
}

func (r *loggingRenderer) FlyTo(_ context.Context, target navigation.Coordinate, zoom, bearing float64) error {
	r.log.Info("camera: fly to",
		zap.Float64("lat", target.Latitude),
		zap.Float64("lng", target.Longitude),
		zap.Float64("zoom", zoom),
		zap.Float64("bearing", bearing),
	)
	return nil
}

func (r *loggingRenderer) SetGeofenceVisible(_ context.Context, zoneID string, visible bool) error {
	r.log.Info("geofence visibility", zap.String("zone_id", zoneID), zap.Bool("visible", visible))
	return nil
}

// loggingVoice is the simulator's stand-in for the voice collaborator.
type loggingVoice struct {
	log *zap.Logger
}

func (v *loggingVoice) Speak(_ context.Context, text string) error {
	v.log.Info("speak", zap.String("text", text))
	return nil
}

func (v *loggingVoice) Stop(context.Context) error { return nil }
