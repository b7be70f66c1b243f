package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// CloudEvent is the envelope every event on the bus is wrapped in.
type CloudEvent struct {
	ID     string          `json:"id"`
	Source string          `json:"source"`
	Type   string          `json:"type"`
	Time   time.Time       `json:"time"`
	Data   json.RawMessage `json:"data"`
}

// ParseData decodes the event payload into v.
func (e CloudEvent) ParseData(v any) error {
	return json.Unmarshal(e.Data, v)
}

// ParseCloudEvent decodes a raw message value into a CloudEvent.
func ParseCloudEvent(value []byte) (CloudEvent, error) {
	var e CloudEvent
	if err := json.Unmarshal(value, &e); err != nil {
		return CloudEvent{}, fmt.Errorf("parse cloud event: %w", err)
	}
	return e, nil
}

// NewCloudEvent wraps a payload in an envelope.
func NewCloudEvent(source, eventType string, payload any) (CloudEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return CloudEvent{}, fmt.Errorf("marshal event payload: %w", err)
	}
	return CloudEvent{
		ID:     uuid.NewString(),
		Source: source,
		Type:   eventType,
		Time:   time.Now().UTC(),
		Data:   data,
	}, nil
}

// Producer publishes CloudEvents to Kafka.
type Producer struct {
	writer *kafkago.Writer
	source string
	logger *zap.Logger
}

// NewProducer creates a producer identified as source on the given brokers.
func NewProducer(brokers []string, source string, logger *zap.Logger) *Producer {
	return &Producer{
		writer: &kafkago.Writer{
			Addr:                   kafkago.TCP(brokers...),
			Balancer:               &kafkago.LeastBytes{},
			AllowAutoTopicCreation: true,
		},
		source: source,
		logger: logger,
	}
}

// Publish wraps the payload in a CloudEvent and writes it to the topic under
// the given key.
func (p *Producer) Publish(ctx context.Context, topic, eventType, key string, payload any) error {
	evt, err := NewCloudEvent(p.source, eventType, payload)
	if err != nil {
		return err
	}
	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal cloud event: %w", err)
	}

	msg := kafkago.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write message to %s: %w", topic, err)
	}

	p.logger.Debug("event published",
		zap.String("topic", topic),
		zap.String("type", eventType),
		zap.String("key", key),
	)
	return nil
}

// Close closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Consumer reads messages from a topic within a consumer group.
type Consumer struct {
	reader *kafkago.Reader
	logger *zap.Logger
}

// NewConsumer creates a consumer for the topic in the given group.
func NewConsumer(brokers []string, groupID, topic string, logger *zap.Logger) *Consumer {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})
	return &Consumer{reader: reader, logger: logger}
}

// Consume fetches messages and passes each to handler, committing after the
// handler returns nil. Blocks until the context is cancelled.
func (c *Consumer) Consume(ctx context.Context, handler func(ctx context.Context, msg kafkago.Message) error) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("fetch message: %w", err)
		}
		if err := handler(ctx, msg); err != nil {
			c.logger.Error("message handler failed",
				zap.String("topic", msg.Topic),
				zap.Error(err),
			)
			continue
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("commit failed", zap.String("topic", msg.Topic), zap.Error(err))
		}
	}
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
