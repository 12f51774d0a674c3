package usecase

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/campuspay/wallet/internal/domain"
)

// runInTx executes fn as one atomic unit. The whole unit is retried when the
// retrier classifies the failure as transient; fn must therefore be safe to
// run again from the start.
func runInTx(ctx context.Context, tm TransactionManager, retrier Retrier, fn func(ctx context.Context, tx Transaction) error) error {
	attempt := func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := tm.Begin(txCtx)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		if err := fn(txCtx, tx); err != nil {
			return err
		}

		if err := tx.Commit(txCtx); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}

		return nil
	}

	if retrier == nil {
		return attempt()
	}

	return retrier.Retry(ctx, attempt)
}

// lockAccounts locks the named accounts in ascending username order and
// returns them keyed by username.
func lockAccounts(ctx context.Context, repo AccountRepository, tx Transaction, usernames ...string) (map[string]*domain.Account, error) {
	sorted := append([]string(nil), usernames...)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	accounts, err := repo.LockByUsernames(ctx, tx, sorted)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*domain.Account, len(accounts))
	for _, acc := range accounts {
		byName[acc.Username] = acc
	}

	return byName, nil
}

func newEvent(idGen IDGenerator, aggregateType, aggregateID, eventType string, payload map[string]any, at time.Time) *domain.OutboxEvent {
	return &domain.OutboxEvent{
		ID:            idGen.Generate(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     at,
	}
}
