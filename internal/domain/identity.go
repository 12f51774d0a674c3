package domain

import "context"

// Identity is the caller as resolved by the authentication layer. The ledger
// trusts it without further credential checks.
type Identity struct {
	AccountID string
	Username  string
	Role      Role
	Enabled   bool
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// CanActFor reports whether the identity may act on the named account.
func (i Identity) CanActFor(username string) bool {
	return i.Username == username || i.IsAdmin()
}

type identityKey struct{}

// ContextWithIdentity returns a copy of ctx carrying id.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity stored by ContextWithIdentity.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
