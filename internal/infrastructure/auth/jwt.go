package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/campuspay/wallet/internal/domain"
)

// Claims represents the JWT claims
type Claims struct {
	AccountID string      `json:"account_id"`
	Username  string      `json:"username"`
	Role      domain.Role `json:"role"`
	Enabled   bool        `json:"enabled"`
	jwt.RegisteredClaims
}

// Identity converts the claims into the caller identity used by the ledger.
func (c *Claims) Identity() domain.Identity {
	return domain.Identity{
		AccountID: c.AccountID,
		Username:  c.Username,
		Role:      c.Role,
		Enabled:   c.Enabled,
	}
}

// JWTManager manages JWT token creation and validation
type JWTManager struct {
	secretKey     []byte
	tokenDuration time.Duration
	now           func() time.Time
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(secretKey string, tokenDuration time.Duration) *JWTManager {
	return &JWTManager{
		secretKey:     []byte(secretKey),
		tokenDuration: tokenDuration,
		now:           time.Now,
	}
}

// Generate signs a token for the given identity.
func (m *JWTManager) Generate(id domain.Identity) (string, error) {
	if id.Username == "" || !id.Role.Valid() {
		return "", domain.ErrInvalidToken
	}

	now := m.now()
	claims := Claims{
		AccountID: id.AccountID,
		Username:  id.Username,
		Role:      id.Role,
		Enabled:   id.Enabled,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Username,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// Verify verifies a JWT token and returns the claims
func (m *JWTManager) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secretKey, nil
		},
		jwt.WithTimeFunc(m.now),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrExpiredToken
		}
		return nil, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, domain.ErrInvalidToken
	}

	if claims.Username == "" || !claims.Role.Valid() {
		return nil, domain.ErrInvalidToken
	}

	return claims, nil
}
