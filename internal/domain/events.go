package domain

import "time"

// Event types
const (
	EventTypeTransferCompleted       = "transfer.completed"
	EventTypePaymentRequestCreated   = "payment_request.created"
	EventTypePaymentRequestAccepted  = "payment_request.accepted"
	EventTypePaymentRequestRejected  = "payment_request.rejected"
	EventTypePaymentRequestCancelled = "payment_request.cancelled"
	EventTypeWalletDeposited         = "wallet.deposited"
	EventTypeWalletWithdrawn         = "wallet.withdrawn"
	EventTypeAccountCreated          = "account.created"
	EventTypeAccountEnabledChanged   = "account.enabled_changed"
)

// Aggregate types
const (
	AggregateTypeTransaction    = "transaction"
	AggregateTypePaymentRequest = "payment_request"
	AggregateTypeWallet         = "wallet"
	AggregateTypeAccount        = "account"
)

// OutboxEvent is a notification recorded in the same transaction as the
// mutation it describes and delivered later.
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
	Failed        bool
	Attempts      int
}

// Recipient returns the username that should be told about the event, taken
// from the payload's "notify" key.
func (e *OutboxEvent) Recipient() string {
	if v, ok := e.Payload["notify"].(string); ok {
		return v
	}
	return ""
}
