//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"go.uber.org/zap"

	"github.com/ridelink/service-navigation/internal/events"
	"github.com/ridelink/service-navigation/internal/geofence"
	"github.com/ridelink/service-navigation/internal/kafka"
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	KafkaBrokers []string
	Cleanup      func()
}

// locationStack holds the wired-up location consumption pipeline.
type locationStack struct {
	Store    *geofence.LocationStore
	Consumer *events.LocationEventConsumer
}

// setupKafka starts a Kafka testcontainer and pre-creates the topics the
// service uses.
func setupKafka(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()

	// confluent-local supports KRaft natively, no zookeeper needed.
	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	createTopics(t, brokers, events.TopicLocationEvents, events.TopicNavigationEvents)

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
	}

	return &testInfra{KafkaBrokers: brokers, Cleanup: cleanup}
}

// setupLocationStack wires the location consumer into a fresh location store.
func setupLocationStack(t *testing.T, brokers []string) *locationStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	store := geofence.NewLocationStore()
	groupID := fmt.Sprintf("test-navigation-%s", uuid.New().String()[:8])
	consumer := events.NewLocationEventConsumer(brokers, groupID, store, logger)

	return &locationStack{Store: store, Consumer: consumer}
}

// publishTestEvent publishes a CloudEvent-wrapped payload to Kafka.
func publishTestEvent(t *testing.T, brokers []string, topic, source, eventType, key string, payload interface{}) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	producer := kafka.NewProducer(brokers, source, logger)
	defer func() { _ = producer.Close() }()

	require.NoError(t, producer.Publish(context.Background(), topic, eventType, key, payload),
		"failed to publish event")
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	err = controllerConn.CreateTopics(topicConfigs...)
	require.NoError(t, err, "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}
