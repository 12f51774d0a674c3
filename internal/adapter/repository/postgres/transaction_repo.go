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

const transactionColumns = `id, sender_username, receiver_username, amount, status, sender_tags, receiver_tags, created_at`

const (
	createTransactionSQL = `INSERT INTO transactions (` + transactionColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	getTransactionSQL = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	getTransactionForUpdateSQL = getTransactionSQL + ` FOR UPDATE`

	updateSenderTagsSQL = `UPDATE transactions SET sender_tags = $2 WHERE id = $1`

	updateReceiverTagsSQL = `UPDATE transactions SET receiver_tags = $2 WHERE id = $1`

	listTransactionsSQL = `SELECT ` + transactionColumns + ` FROM transactions
WHERE sender_username = $1 OR receiver_username = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`

	listTransactionsBetweenSQL = `SELECT ` + transactionColumns + ` FROM transactions
WHERE (sender_username = $1 OR receiver_username = $1)
  AND status
  AND created_at >= $2 AND created_at < $3
ORDER BY created_at, id`
)

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	db DB
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create appends a row to the transaction log.
func (r *TransactionRepository) Create(ctx context.Context, tx usecase.Transaction, record *domain.Transaction) error {
	q, err := pgxTx(tx)
	if err != nil {
		return err
	}

	_, err = q.Exec(ctx, createTransactionSQL,
		record.ID,
		record.SenderUsername,
		record.ReceiverUsername,
		record.Amount,
		record.Status,
		nonNil(record.SenderTags),
		nonNil(record.ReceiverTags),
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a transaction by ID.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	return getTransaction(ctx, r.db, getTransactionSQL, id)
}

// GetByIDForUpdate retrieves a transaction by ID with a FOR UPDATE lock.
func (r *TransactionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Transaction, error) {
	q, err := pgxTx(tx)
	if err != nil {
		return nil, err
	}
	return getTransaction(ctx, q, getTransactionForUpdateSQL, id)
}

func getTransaction(ctx context.Context, db DB, query, id string) (*domain.Transaction, error) {
	record, err := scanTransaction(db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}

	return record, nil
}

// UpdateTags replaces one side's tag list.
func (r *TransactionRepository) UpdateTags(ctx context.Context, tx usecase.Transaction, id string, side domain.TagSide, tags []string) error {
	q, err := pgxTx(tx)
	if err != nil {
		return err
	}

	query := updateSenderTagsSQL
	if side == domain.TagSideReceiver {
		query = updateReceiverTagsSQL
	}

	cmd, err := q.Exec(ctx, query, id, nonNil(tags))
	if err != nil {
		return fmt.Errorf("update tags: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}

	return nil
}

// ListByUsername returns a page of the log involving username, newest first.
func (r *TransactionRepository) ListByUsername(ctx context.Context, username string, limit, offset int) ([]*domain.Transaction, error) {
	return r.list(ctx, listTransactionsSQL, username, limit, offset)
}

// ListByUsernameBetween returns settled rows in [from, to), oldest first.
func (r *TransactionRepository) ListByUsernameBetween(ctx context.Context, username string, from, to time.Time) ([]*domain.Transaction, error) {
	return r.list(ctx, listTransactionsBetweenSQL, username, from, to)
}

func (r *TransactionRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Transaction, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var records []*domain.Transaction
	for rows.Next() {
		record, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	return records, nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	if err := row.Scan(
		&t.ID,
		&t.SenderUsername,
		&t.ReceiverUsername,
		&t.Amount,
		&t.Status,
		&t.SenderTags,
		&t.ReceiverTags,
		&t.CreatedAt,
	); err != nil {
		return nil, err
	}

	t.SenderTags = nonNil(t.SenderTags)
	t.ReceiverTags = nonNil(t.ReceiverTags)

	return &t, nil
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
