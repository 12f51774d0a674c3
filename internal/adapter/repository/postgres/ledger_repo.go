package postgres

import (
	"context"
	"fmt"

	"github.com/campuspay/wallet/internal/usecase"
)

const ledgerTotalsSQL = `SELECT
    (SELECT COALESCE(SUM(balance), 0) FROM accounts)::BIGINT,
    (SELECT COALESCE(SUM(amount), 0) FROM wallet_transaction_history WHERE type = 'DEPOSIT')::BIGINT,
    (SELECT COALESCE(SUM(amount), 0) FROM wallet_transaction_history WHERE type = 'WITHDRAWAL')::BIGINT`

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	db DB
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(db DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Totals sums every balance and every wallet adjustment.
func (r *LedgerRepository) Totals(ctx context.Context) (usecase.LedgerTotals, error) {
	var totals usecase.LedgerTotals
	if err := r.db.QueryRow(ctx, ledgerTotalsSQL).Scan(&totals.Balances, &totals.Deposits, &totals.Withdrawals); err != nil {
		return usecase.LedgerTotals{}, fmt.Errorf("ledger totals: %w", err)
	}

	return totals, nil
}
