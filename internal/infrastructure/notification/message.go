package notification

import (
	"encoding/json"
	"time"

	"github.com/campuspay/wallet/internal/domain"
)

// Message is the wire form of an outbox event handed to external sinks.
type Message struct {
	ID            string         `json:"id"`
	EventType     string         `json:"event_type"`
	AggregateType string         `json:"aggregate_type"`
	AggregateID   string         `json:"aggregate_id"`
	Recipient     string         `json:"recipient,omitempty"`
	Payload       map[string]any `json:"payload"`
	CreatedAt     time.Time      `json:"created_at"`
}

func newMessage(event *domain.OutboxEvent) Message {
	return Message{
		ID:            event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Recipient:     event.Recipient(),
		Payload:       event.Payload,
		CreatedAt:     event.CreatedAt,
	}
}

func encode(event *domain.OutboxEvent) ([]byte, error) {
	return json.Marshal(newMessage(event))
}
