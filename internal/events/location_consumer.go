package events

import (
	"context"
	"encoding/json"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/ridelink/service-navigation/internal/domain/navigation"
	"github.com/ridelink/service-navigation/internal/kafka"
)

// LocationSink receives parsed driver location samples.
type LocationSink interface {
	Set(loc navigation.Location)
}

// LocationEventConsumer listens to driver location events and feeds them to
// the geofence detector's location store.
type LocationEventConsumer struct {
	consumer *kafka.Consumer
	sink     LocationSink
	logger   *zap.Logger
}

// NewLocationEventConsumer creates a new LocationEventConsumer.
func NewLocationEventConsumer(
	brokers []string,
	groupID string,
	sink LocationSink,
	logger *zap.Logger,
) *LocationEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, TopicLocationEvents, logger)
	return &LocationEventConsumer{
		consumer: consumer,
		sink:     sink,
		logger:   logger,
	}
}

// Start begins consuming location events. This blocks until the context is
// cancelled.
func (c *LocationEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *LocationEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *LocationEventConsumer) handleMessage(_ context.Context, msg kafkago.Message) error {
	var cloudEvent kafka.CloudEvent
	if err := json.Unmarshal(msg.Value, &cloudEvent); err != nil {
		c.logger.Error("failed to parse cloud event from location topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case LocationUpdated:
		return c.handleLocationUpdated(cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled location event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *LocationEventConsumer) handleLocationUpdated(cloudEvent kafka.CloudEvent) error {
	var evt LocationUpdatedEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse LocationUpdatedEvent data", zap.Error(err))
		return nil // Don't retry malformed data
	}

	loc := navigation.Location{
		Coordinate: navigation.Coordinate{Latitude: evt.Latitude, Longitude: evt.Longitude},
		Heading:    evt.Heading,
		Speed:      evt.Speed,
		Accuracy:   evt.Accuracy,
		Timestamp:  evt.Timestamp,
	}
	if err := loc.Validate(); err != nil {
		c.logger.Warn("dropping location sample with invalid coordinates",
			zap.Float64("latitude", evt.Latitude),
			zap.Float64("longitude", evt.Longitude),
		)
		return nil
	}

	c.sink.Set(loc)
	return nil
}
