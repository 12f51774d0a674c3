//go:generate mockgen -destination=mocks/mock_interfaces.go -package=mocks github.com/campuspay/wallet/internal/usecase AccountRepository,EventPublisher,OutboxRepository

package usecase

import (
	"context"
	"time"

	"github.com/campuspay/wallet/internal/domain"
)

// AccountRepository defines data access for accounts.
type AccountRepository interface {
	Create(ctx context.Context, tx Transaction, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	// LockByUsernames locks the named accounts FOR UPDATE in ascending
	// username order. Missing accounts are omitted from the result.
	LockByUsernames(ctx context.Context, tx Transaction, usernames []string) ([]*domain.Account, error)
	// AdjustBalance adds delta to the balance and returns the new balance.
	// Callers check sufficiency under the row lock before calling it.
	AdjustBalance(ctx context.Context, tx Transaction, username string, delta int64, updatedAt time.Time) (int64, error)
	SetEnabled(ctx context.Context, tx Transaction, username string, enabled bool, updatedAt time.Time) error
}

// TransactionRepository defines data access for the transaction log.
type TransactionRepository interface {
	Create(ctx context.Context, tx Transaction, record *domain.Transaction) error
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Transaction, error)
	UpdateTags(ctx context.Context, tx Transaction, id string, side domain.TagSide, tags []string) error
	ListByUsername(ctx context.Context, username string, limit, offset int) ([]*domain.Transaction, error)
	// ListByUsernameBetween returns the settled rows involving username with
	// createdAt in [from, to), oldest first.
	ListByUsernameBetween(ctx context.Context, username string, from, to time.Time) ([]*domain.Transaction, error)
}

// PaymentRequestRepository defines data access for payment requests.
type PaymentRequestRepository interface {
	Create(ctx context.Context, tx Transaction, req *domain.PaymentRequest) error
	GetByID(ctx context.Context, id string) (*domain.PaymentRequest, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.PaymentRequest, error)
	UpdateStatus(ctx context.Context, tx Transaction, id string, status domain.PaymentRequestStatus, updatedAt time.Time) error
	List(ctx context.Context, filter domain.PaymentRequestFilter) ([]*domain.PaymentRequest, error)
}

// WalletHistoryRepository defines data access for wallet top-up history.
type WalletHistoryRepository interface {
	Create(ctx context.Context, tx Transaction, entry *domain.WalletEntry) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.WalletEntry, error)
}

// LedgerTotals are system-wide sums used for consistency checks.
type LedgerTotals struct {
	Balances    int64
	Deposits    int64
	Withdrawals int64
}

// LedgerRepository defines data access for ledger-wide operations.
type LedgerRepository interface {
	Totals(ctx context.Context) (LedgerTotals, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	// IncrementAttempts records a failed delivery and returns the new count.
	IncrementAttempts(ctx context.Context, id string) (int, error)
	// MarkFailed stops further delivery attempts for the event.
	MarkFailed(ctx context.Context, id string, failedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) (int64, error)
}

// EventPublisher delivers outbox events to the notification sink.
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.OutboxEvent) error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation when the storage layer reports a transient
// conflict such as a serialization failure.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a claim so the request may be retried.
	Release(ctx context.Context, key string) error
}

// Cache stores short-lived derived values.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}
