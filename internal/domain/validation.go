package domain

import (
	"regexp"
	"strings"
)

// Validation constants
const (
	// MaxAmount caps a single movement, in minor units.
	MaxAmount    = int64(1_000_000_000)
	MaxTags      = 10
	MaxTagLength = 32
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]{3,32}$`)

// ValidateUsername validates an account username.
func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

// ValidateAmount validates a positive transfer or request amount.
func ValidateAmount(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if amount > MaxAmount {
		return ErrAmountTooLarge
	}
	return nil
}

// ValidateAdjustment validates a signed wallet adjustment.
func ValidateAdjustment(amount int64) error {
	if amount == 0 {
		return ErrZeroAdjustment
	}
	if amount > MaxAmount || amount < -MaxAmount {
		return ErrAmountTooLarge
	}
	return nil
}

// NormalizeTags trims, drops empties and removes duplicates while keeping
// the caller's order.
func NormalizeTags(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))

	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if len(tag) > MaxTagLength {
			return nil, ErrTagTooLong
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}

	if len(out) > MaxTags {
		return nil, ErrTooManyTags
	}

	return out, nil
}
