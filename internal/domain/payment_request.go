package domain

import "time"

// PaymentRequestStatus is the lifecycle state of a payment request.
type PaymentRequestStatus string

const (
	PaymentRequestPending   PaymentRequestStatus = "PENDING"
	PaymentRequestCompleted PaymentRequestStatus = "COMPLETED"
	PaymentRequestRejected  PaymentRequestStatus = "REJECTED"
	PaymentRequestCancelled PaymentRequestStatus = "CANCELLED"
)

// Valid reports whether s is a known status.
func (s PaymentRequestStatus) Valid() bool {
	switch s {
	case PaymentRequestPending, PaymentRequestCompleted, PaymentRequestRejected, PaymentRequestCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are possible from s.
func (s PaymentRequestStatus) Terminal() bool {
	return s != PaymentRequestPending
}

// Decision is the requestee's answer to a payment request.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// Valid reports whether d is accept or reject.
func (d Decision) Valid() bool {
	return d == DecisionAccept || d == DecisionReject
}

// PaymentRequest asks the requestee to pay the requester.
type PaymentRequest struct {
	ID                string
	RequesterUsername string
	RequesteeUsername string
	Amount            int64
	Status            PaymentRequestStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// EnsurePending returns the error describing why r can no longer transition,
// or nil if it is still pending.
func (r *PaymentRequest) EnsurePending() error {
	switch r.Status {
	case PaymentRequestPending:
		return nil
	case PaymentRequestCompleted:
		return ErrRequestAlreadyAccepted
	case PaymentRequestCancelled:
		return ErrRequestCancelled
	case PaymentRequestRejected:
		return ErrRequestAlreadyRejected
	default:
		return NewError(KindInternal, "payment request has unknown status "+string(r.Status))
	}
}

// Visible reports whether id may read r.
func (r *PaymentRequest) Visible(id Identity) bool {
	return id.IsAdmin() || id.Username == r.RequesterUsername || id.Username == r.RequesteeUsername
}

// RequestDirection filters payment requests relative to the caller.
type RequestDirection string

const (
	DirectionIncoming RequestDirection = "incoming"
	DirectionOutgoing RequestDirection = "outgoing"
	DirectionAll      RequestDirection = "all"
)

// PaymentRequestFilter selects payment requests for listing.
type PaymentRequestFilter struct {
	Username  string
	Direction RequestDirection
	Status    PaymentRequestStatus
	Limit     int
	Offset    int
}
