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

const accountColumns = `id, username, email, role, balance, enabled, created_at, updated_at`

const (
	createAccountSQL = `INSERT INTO accounts (` + accountColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	getAccountByIDSQL = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	getAccountByUsernameSQL = `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1`

	lockAccountsSQL = `SELECT ` + accountColumns + ` FROM accounts
WHERE username = ANY($1)
ORDER BY username
FOR UPDATE`

	adjustBalanceSQL = `UPDATE accounts SET balance = balance + $2, updated_at = $3
WHERE username = $1
RETURNING balance`

	setEnabledSQL = `UPDATE accounts SET enabled = $2, updated_at = $3 WHERE username = $1`
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	db DB
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new account.
func (r *AccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	q, err := pgxTx(tx)
	if err != nil {
		return err
	}

	_, err = q.Exec(ctx, createAccountSQL,
		account.ID,
		account.Username,
		account.Email,
		string(account.Role),
		account.Balance,
		account.Enabled,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrUsernameTaken
		}
		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.getOne(ctx, getAccountByIDSQL, id)
}

// GetByUsername retrieves an account by username.
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.getOne(ctx, getAccountByUsernameSQL, username)
}

func (r *AccountRepository) getOne(ctx context.Context, query string, arg string) (*domain.Account, error) {
	account, err := scanAccount(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}

	return account, nil
}

// LockByUsernames locks the named accounts FOR UPDATE in username order.
func (r *AccountRepository) LockByUsernames(ctx context.Context, tx usecase.Transaction, usernames []string) ([]*domain.Account, error) {
	q, err := pgxTx(tx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, lockAccountsSQL, usernames)
	if err != nil {
		return nil, fmt.Errorf("lock accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]*domain.Account, 0, len(usernames))
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lock accounts: %w", err)
	}

	return accounts, nil
}

// AdjustBalance adds delta to the account balance and returns the result.
func (r *AccountRepository) AdjustBalance(ctx context.Context, tx usecase.Transaction, username string, delta int64, updatedAt time.Time) (int64, error) {
	q, err := pgxTx(tx)
	if err != nil {
		return 0, err
	}

	var balance int64
	if err := q.QueryRow(ctx, adjustBalanceSQL, username, delta, updatedAt).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrAccountNotFound
		}
		return 0, fmt.Errorf("adjust balance: %w", err)
	}

	return balance, nil
}

// SetEnabled updates the enabled flag.
func (r *AccountRepository) SetEnabled(ctx context.Context, tx usecase.Transaction, username string, enabled bool, updatedAt time.Time) error {
	q, err := pgxTx(tx)
	if err != nil {
		return err
	}

	tag, err := q.Exec(ctx, setEnabledSQL, username, enabled, updatedAt)
	if err != nil {
		return fmt.Errorf("set enabled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		a    domain.Account
		role string
	)
	if err := row.Scan(&a.ID, &a.Username, &a.Email, &role, &a.Balance, &a.Enabled, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Role = domain.Role(role)

	return &a, nil
}
