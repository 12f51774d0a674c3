package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/campuspay/wallet/internal/domain"
	"github.com/campuspay/wallet/internal/usecase"
)

const paymentRequestColumns = `id, requester_username, requestee_username, amount, status, created_at, updated_at`

const (
	createPaymentRequestSQL = `INSERT INTO payment_requests (` + paymentRequestColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	getPaymentRequestSQL = `SELECT ` + paymentRequestColumns + ` FROM payment_requests WHERE id = $1`

	getPaymentRequestForUpdateSQL = getPaymentRequestSQL + ` FOR UPDATE`

	updatePaymentRequestStatusSQL = `UPDATE payment_requests SET status = $2, updated_at = $3 WHERE id = $1`

	listPaymentRequestsSQL = `SELECT ` + paymentRequestColumns + ` FROM payment_requests
WHERE (($2 = 'incoming' AND requestee_username = $1)
    OR ($2 = 'outgoing' AND requester_username = $1)
    OR ($2 = 'all' AND (requester_username = $1 OR requestee_username = $1)))
  AND ($3 = '' OR status = $3)
ORDER BY created_at DESC, id DESC
LIMIT $4 OFFSET $5`
)

// PaymentRequestRepository implements usecase.PaymentRequestRepository.
type PaymentRequestRepository struct {
	db DB
}

// NewPaymentRequestRepository creates a new PaymentRequestRepository.
func NewPaymentRequestRepository(db DB) *PaymentRequestRepository {
	return &PaymentRequestRepository{db: db}
}

// Create inserts a new payment request.
func (r *PaymentRequestRepository) Create(ctx context.Context, tx usecase.Transaction, req *domain.PaymentRequest) error {
	q, err := pgxTx(tx)
	if err != nil {
		return err
	}

	_, err = q.Exec(ctx, createPaymentRequestSQL,
		req.ID,
		req.RequesterUsername,
		req.RequesteeUsername,
		req.Amount,
		string(req.Status),
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment request: %w", err)
	}

	return nil
}

// GetByID retrieves a payment request by ID.
func (r *PaymentRequestRepository) GetByID(ctx context.Context, id string) (*domain.PaymentRequest, error) {
	return getPaymentRequest(ctx, r.db, getPaymentRequestSQL, id)
}

// GetByIDForUpdate retrieves a payment request by ID with a FOR UPDATE lock.
func (r *PaymentRequestRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.PaymentRequest, error) {
	q, err := pgxTx(tx)
	if err != nil {
		return nil, err
	}
	return getPaymentRequest(ctx, q, getPaymentRequestForUpdateSQL, id)
}

func getPaymentRequest(ctx context.Context, db DB, query, id string) (*domain.PaymentRequest, error) {
	req, err := scanPaymentRequest(db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRequestNotFound
		}
		return nil, fmt.Errorf("get payment request: %w", err)
	}

	return req, nil
}

// UpdateStatus moves a request to a new status.
func (r *PaymentRequestRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, status domain.PaymentRequestStatus, updatedAt time.Time) error {
	q, err := pgxTx(tx)
	if err != nil {
		return err
	}

	cmd, err := q.Exec(ctx, updatePaymentRequestStatusSQL, id, string(status), updatedAt)
	if err != nil {
		return fmt.Errorf("update payment request status: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrRequestNotFound
	}

	return nil
}

// List returns requests matching the filter, newest first.
func (r *PaymentRequestRepository) List(ctx context.Context, filter domain.PaymentRequestFilter) ([]*domain.PaymentRequest, error) {
	direction := filter.Direction
	if direction == "" {
		direction = domain.DirectionAll
	}

	rows, err := r.db.Query(ctx, listPaymentRequestsSQL,
		filter.Username,
		string(direction),
		string(filter.Status),
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list payment requests: %w", err)
	}
	defer rows.Close()

	var requests []*domain.PaymentRequest
	for rows.Next() {
		req, err := scanPaymentRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment request: %w", err)
		}
		requests = append(requests, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list payment requests: %w", err)
	}

	return requests, nil
}

func scanPaymentRequest(row pgx.Row) (*domain.PaymentRequest, error) {
	var (
		req    domain.PaymentRequest
		status string
	)
	if err := row.Scan(
		&req.ID,
		&req.RequesterUsername,
		&req.RequesteeUsername,
		&req.Amount,
		&status,
		&req.CreatedAt,
		&req.UpdatedAt,
	); err != nil {
		return nil, err
	}
	req.Status = domain.PaymentRequestStatus(status)

	return &req, nil
}
