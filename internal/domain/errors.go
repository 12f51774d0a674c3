package domain

import (
	"context"
	"errors"
	"strings"
)

// Kind classifies every error the ledger can return. The set is closed:
// callers switch on it exhaustively at the transport boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindBadRequest
	KindInsufficientFunds
	KindUnauthorized
	KindForbidden
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindBadRequest:
		return "bad_request"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindValidation:
		return "validation"
	default:
		return "internal"
	}
}

// FieldError is a single field-level validation message.
type FieldError struct {
	Field   string
	Message string
}

// Error is the ledger's error value.
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
}

// NewError creates an error of the given kind.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// NewValidationError creates a validation error carrying one entry per field.
func NewValidationError(fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Message: "validation failed", Fields: fields}
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}

	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}

	return e.Message + ": " + strings.Join(parts, "; ")
}

// KindOf reports the kind of err. Errors that did not originate in the
// domain are internal.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}

	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}

	return KindInternal
}

// IsTimeout reports whether err came from an expired or cancelled context.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

var (
	// Account errors
	ErrAccountNotFound   = NewError(KindNotFound, "account not found")
	ErrSenderNotFound    = NewError(KindNotFound, "sender account not found")
	ErrReceiverNotFound  = NewError(KindNotFound, "receiver account not found")
	ErrRequesteeNotFound = NewError(KindNotFound, "requestee account not found")
	ErrAccountDisabled   = NewError(KindForbidden, "account is disabled")
	ErrUsernameTaken     = NewError(KindBadRequest, "username is already taken")
	ErrInvalidRole       = NewError(KindBadRequest, "role must be one of STUDENT, VENDOR, ADMIN")
	ErrInvalidUsername   = NewError(KindBadRequest, "username must be 3 to 32 letters, digits, dots, dashes or underscores")

	// Transfer errors
	ErrInvalidAmount       = NewError(KindBadRequest, "amount must be positive")
	ErrAmountTooLarge      = NewError(KindBadRequest, "amount exceeds maximum allowed")
	ErrSameAccount         = NewError(KindBadRequest, "cannot transfer to same account")
	ErrReceiverDisabled    = NewError(KindBadRequest, "receiver account is disabled")
	ErrInsufficientFunds   = NewError(KindInsufficientFunds, "insufficient funds")
	ErrTransactionNotFound = NewError(KindNotFound, "transaction not found")
	ErrNotTransactionParty = NewError(KindForbidden, "only a party to the transaction can do this")
	ErrTooManyTags         = NewError(KindBadRequest, "at most 10 tags are allowed")
	ErrTagTooLong          = NewError(KindBadRequest, "tags must be at most 32 characters")

	// Payment request errors
	ErrRequestNotFound        = NewError(KindNotFound, "payment request not found")
	ErrSelfRequest            = NewError(KindBadRequest, "cannot request payment from yourself")
	ErrRequesteeDisabled      = NewError(KindBadRequest, "requestee account is disabled")
	ErrNotRequestee           = NewError(KindUnauthorized, "only the requestee can respond to this payment request")
	ErrNotRequester           = NewError(KindUnauthorized, "only the requester can cancel this payment request")
	ErrRequestAlreadyAccepted = NewError(KindBadRequest, "payment request has already been accepted")
	ErrRequestCancelled       = NewError(KindBadRequest, "payment request has been cancelled by requester")
	ErrRequestAlreadyRejected = NewError(KindBadRequest, "payment request has already been rejected")
	ErrInsufficientBalance    = NewError(KindBadRequest, "Insufficient balance")
	ErrInvalidDecision        = NewError(KindBadRequest, "decision must be accept or reject")

	// Wallet errors
	ErrZeroAdjustment = NewError(KindBadRequest, "adjustment amount must not be zero")

	// Report errors
	ErrInvalidPreset      = NewError(KindBadRequest, "preset must be one of hour, day, week, month, year")
	ErrInvalidReportRange = NewError(KindBadRequest, "report range must have from before to and span at most 366 days")

	// Auth errors
	ErrForbidden       = NewError(KindForbidden, "operation not permitted for this account")
	ErrUnauthenticated = NewError(KindUnauthorized, "authentication required")
	ErrInvalidToken    = NewError(KindUnauthorized, "invalid token")
	ErrExpiredToken    = NewError(KindUnauthorized, "token has expired")
)
