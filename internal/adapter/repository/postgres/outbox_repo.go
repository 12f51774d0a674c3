package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/campuspay/wallet/internal/domain"
	"github.com/campuspay/wallet/internal/usecase"
)

const (
	createOutboxEventSQL = `INSERT INTO outbox_events (id, aggregate_id, aggregate_type, event_type, payload, created_at, published)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	getUnpublishedEventsSQL = `SELECT id, aggregate_id, aggregate_type, event_type, payload, created_at, published, published_at, failed, attempts
FROM outbox_events
WHERE published = FALSE
ORDER BY created_at, id
LIMIT $1`

	markEventPublishedSQL = `UPDATE outbox_events SET published = TRUE, published_at = $2 WHERE id = $1`

	incrementEventAttemptsSQL = `UPDATE outbox_events SET attempts = attempts + 1 WHERE id = $1 RETURNING attempts`

	markEventFailedSQL = `UPDATE outbox_events SET published = TRUE, failed = TRUE, published_at = $2 WHERE id = $1`

	deletePublishedEventsSQL = `DELETE FROM outbox_events WHERE published = TRUE AND published_at < $1`
)

// OutboxRepository implements usecase.OutboxRepository.
type OutboxRepository struct {
	db DB
}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository(db DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Create creates a new outbox event within a transaction.
func (r *OutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	q, err := pgxTx(tx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("encode outbox payload: %w", err)
	}

	_, err = q.Exec(ctx, createOutboxEventSQL,
		event.ID,
		event.AggregateID,
		event.AggregateType,
		event.EventType,
		payload,
		event.CreatedAt,
		event.Published,
	)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}

	return nil
}

// GetUnpublished retrieves the oldest undelivered events.
func (r *OutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	rows, err := r.db.Query(ctx, getUnpublishedEventsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("get unpublished events: %w", err)
	}
	defer rows.Close()

	var events []*domain.OutboxEvent
	for rows.Next() {
		var (
			e       domain.OutboxEvent
			payload []byte
		)
		if err := rows.Scan(
			&e.ID,
			&e.AggregateID,
			&e.AggregateType,
			&e.EventType,
			&payload,
			&e.CreatedAt,
			&e.Published,
			&e.PublishedAt,
			&e.Failed,
			&e.Attempts,
		); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}

		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &e.Payload); err != nil {
				return nil, fmt.Errorf("decode outbox payload %s: %w", e.ID, err)
			}
		}
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get unpublished events: %w", err)
	}

	return events, nil
}

// MarkPublished marks an event as delivered.
func (r *OutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	if _, err := r.db.Exec(ctx, markEventPublishedSQL, id, publishedAt); err != nil {
		return fmt.Errorf("mark event published: %w", err)
	}
	return nil
}

// IncrementAttempts records a failed delivery and returns the new count.
func (r *OutboxRepository) IncrementAttempts(ctx context.Context, id string) (int, error) {
	var attempts int
	if err := r.db.QueryRow(ctx, incrementEventAttemptsSQL, id).Scan(&attempts); err != nil {
		return 0, fmt.Errorf("increment event attempts: %w", err)
	}
	return attempts, nil
}

// MarkFailed stops further deliveries of an event.
func (r *OutboxRepository) MarkFailed(ctx context.Context, id string, failedAt time.Time) error {
	if _, err := r.db.Exec(ctx, markEventFailedSQL, id, failedAt); err != nil {
		return fmt.Errorf("mark event failed: %w", err)
	}
	return nil
}

// DeletePublished deletes published events older than the given time.
func (r *OutboxRepository) DeletePublished(ctx context.Context, before time.Time) (int64, error) {
	cmd, err := r.db.Exec(ctx, deletePublishedEventsSQL, before)
	if err != nil {
		return 0, fmt.Errorf("delete published events: %w", err)
	}
	return cmd.RowsAffected(), nil
}
