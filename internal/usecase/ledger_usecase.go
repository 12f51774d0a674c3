package usecase

import (
	"context"

	"github.com/campuspay/wallet/internal/domain"
)

// ConsistencyResult compares the sum of balances with the net of all
// deposits and withdrawals.
type ConsistencyResult struct {
	Consistent       bool
	TotalBalance     int64
	TotalDeposits    int64
	TotalWithdrawals int64
	Difference       int64
}

// LedgerUseCase handles ledger-wide operations.
type LedgerUseCase struct {
	ledgerRepo LedgerRepository
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(ledgerRepo LedgerRepository) *LedgerUseCase {
	return &LedgerUseCase{
		ledgerRepo: ledgerRepo,
	}
}

// CheckConsistency verifies that no money was created or destroyed.
// Accounts start at zero and transfers only move money, so the total of all
// balances must equal deposits minus withdrawals.
func (uc *LedgerUseCase) CheckConsistency(ctx context.Context, actor domain.Identity) (*ConsistencyResult, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	totals, err := uc.ledgerRepo.Totals(ctx)
	if err != nil {
		return nil, err
	}

	expected := totals.Deposits - totals.Withdrawals
	return &ConsistencyResult{
		Consistent:       totals.Balances == expected,
		TotalBalance:     totals.Balances,
		TotalDeposits:    totals.Deposits,
		TotalWithdrawals: totals.Withdrawals,
		Difference:       totals.Balances - expected,
	}, nil
}
