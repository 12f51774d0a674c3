package domain

import "time"

// Role is the kind of campus user that owns an account.
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleVendor  Role = "VENDOR"
	RoleAdmin   Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleVendor, RoleAdmin:
		return true
	}
	return false
}

// Account is a user's wallet. Balance is held in minor currency units.
type Account struct {
	ID        string
	Username  string
	Email     string
	Role      Role
	Balance   int64
	Enabled   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanDebit reports whether the account covers amount. Exact-balance debits
// are allowed.
func (a *Account) CanDebit(amount int64) bool {
	return a.Balance >= amount
}

// CoversStrictly reports whether the balance is strictly greater than amount.
// Accepting a payment request uses this stricter rule.
func (a *Account) CoversStrictly(amount int64) bool {
	return a.Balance > amount
}

// ValidateDebit checks if the account can be debited by amount.
func (a *Account) ValidateDebit(amount int64) error {
	if !a.CanDebit(amount) {
		return ErrInsufficientFunds
	}
	return nil
}
