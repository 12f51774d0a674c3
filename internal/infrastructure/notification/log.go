package notification

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/campuspay/wallet/internal/domain"
)

// LogPublisher writes each event to the log. It is the default sink.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a new LogPublisher.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the event.
func (p *LogPublisher) Publish(_ context.Context, event *domain.OutboxEvent) error {
	p.logger.Info().
		Str("event_id", event.ID).
		Str("event_type", event.EventType).
		Str("aggregate_type", event.AggregateType).
		Str("aggregate_id", event.AggregateID).
		Str("notify", event.Recipient()).
		Interface("payload", event.Payload).
		Msg("notification")

	return nil
}
