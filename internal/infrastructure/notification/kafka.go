package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/campuspay/wallet/internal/domain"
)

// KafkaWriter wraps kafka.Writer methods for testing
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher sends events to a Kafka topic keyed by recipient, so one
// user's notifications stay ordered within a partition.
type KafkaPublisher struct {
	writer KafkaWriter
	topic  string
	logger zerolog.Logger
}

// NewKafkaPublisher creates a publisher writing synchronously to topic.
func NewKafkaPublisher(brokers []string, topic string, logger zerolog.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are not configured")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka topic is not configured")
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		WriteTimeout:           10 * time.Second,
		AllowAutoTopicCreation: true,
	}

	return NewKafkaPublisherWithWriter(writer, topic, logger), nil
}

// NewKafkaPublisherWithWriter creates a publisher over an existing writer.
func NewKafkaPublisherWithWriter(writer KafkaWriter, topic string, logger zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, topic: topic, logger: logger}
}

// Publish writes the event and waits for the broker acknowledgement.
func (p *KafkaPublisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	value, err := encode(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.ID, err)
	}

	key := event.Recipient()
	if key == "" {
		key = event.AggregateID
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish event %s to %s: %w", event.ID, p.topic, err)
	}

	p.logger.Debug().Str("topic", p.topic).Str("key", key).Str("event_id", event.ID).Msg("published event")
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
