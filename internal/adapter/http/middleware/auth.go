package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/campuspay/wallet/internal/domain"
	"github.com/campuspay/wallet/internal/infrastructure/auth"
)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// AuthMiddleware resolves the bearer token into the caller identity.
// Disabled accounts are refused before reaching any handler.
func AuthMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			claims, err := verifier.Verify(parts[1])
			if err != nil {
				message := domain.ErrInvalidToken.Message
				if errors.Is(err, domain.ErrExpiredToken) {
					message = domain.ErrExpiredToken.Message
				}
				writeError(w, http.StatusUnauthorized, message)
				return
			}

			id := claims.Identity()
			if !id.Enabled {
				writeError(w, http.StatusForbidden, domain.ErrAccountDisabled.Message)
				return
			}

			ctx := domain.ContextWithIdentity(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole refuses callers without the given role. Admins pass every check.
func RequireRole(role domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := domain.IdentityFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, domain.ErrUnauthenticated.Message)
				return
			}

			if id.Role != role && !id.IsAdmin() {
				writeError(w, http.StatusForbidden, domain.ErrForbidden.Message)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
