package postgres

import (
	"context"
	"fmt"

	"github.com/campuspay/wallet/internal/domain"
	"github.com/campuspay/wallet/internal/usecase"
)

const (
	createWalletEntrySQL = `INSERT INTO wallet_transaction_history (id, user_id, type, amount, created_at)
VALUES ($1, $2, $3, $4, $5)`

	listWalletEntriesSQL = `SELECT id, user_id, type, amount, created_at
FROM wallet_transaction_history
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`
)

// WalletHistoryRepository implements usecase.WalletHistoryRepository.
type WalletHistoryRepository struct {
	db DB
}

// NewWalletHistoryRepository creates a new WalletHistoryRepository.
func NewWalletHistoryRepository(db DB) *WalletHistoryRepository {
	return &WalletHistoryRepository{db: db}
}

// Create appends a history row.
func (r *WalletHistoryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.WalletEntry) error {
	q, err := pgxTx(tx)
	if err != nil {
		return err
	}

	if _, err := q.Exec(ctx, createWalletEntrySQL, entry.ID, entry.UserID, string(entry.Type), entry.Amount, entry.CreatedAt); err != nil {
		return fmt.Errorf("insert wallet entry: %w", err)
	}

	return nil
}

// ListByUser returns a page of an account's history, newest first.
func (r *WalletHistoryRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.WalletEntry, error) {
	rows, err := r.db.Query(ctx, listWalletEntriesSQL, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list wallet entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.WalletEntry
	for rows.Next() {
		var (
			e         domain.WalletEntry
			entryType string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &entryType, &e.Amount, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan wallet entry: %w", err)
		}
		e.Type = domain.WalletEntryType(entryType)
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list wallet entries: %w", err)
	}

	return entries, nil
}
