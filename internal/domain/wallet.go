package domain

import "time"

// WalletEntryType tells deposits from withdrawals.
type WalletEntryType string

const (
	WalletDeposit    WalletEntryType = "DEPOSIT"
	WalletWithdrawal WalletEntryType = "WITHDRAWAL"
)

// WalletEntry is one append-only row of wallet top-up history. Amount is
// always positive; Type carries the direction.
type WalletEntry struct {
	ID        string
	UserID    string
	Type      WalletEntryType
	Amount    int64
	CreatedAt time.Time
}

// NewWalletEntry derives the entry type and absolute amount from a signed
// adjustment.
func NewWalletEntry(id, userID string, signedAmount int64, at time.Time) (*WalletEntry, error) {
	if signedAmount == 0 {
		return nil, ErrZeroAdjustment
	}

	entry := &WalletEntry{ID: id, UserID: userID, Type: WalletDeposit, Amount: signedAmount, CreatedAt: at}
	if signedAmount < 0 {
		entry.Type = WalletWithdrawal
		entry.Amount = -signedAmount
	}

	return entry, nil
}
