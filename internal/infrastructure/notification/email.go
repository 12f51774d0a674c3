package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/campuspay/wallet/internal/domain"
)

// AccountLookup resolves a username to its account.
type AccountLookup interface {
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
}

// Email is the JSON body posted to the mail relay.
type Email struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// EmailPublisher posts one email per event to an HTTP mail relay.
type EmailPublisher struct {
	relayURL string
	from     string
	accounts AccountLookup
	client   *http.Client
	logger   zerolog.Logger
}

// NewEmailPublisher creates a publisher for the relay at relayURL.
func NewEmailPublisher(relayURL, from string, accounts AccountLookup, client *http.Client, logger zerolog.Logger) *EmailPublisher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &EmailPublisher{
		relayURL: relayURL,
		from:     from,
		accounts: accounts,
		client:   client,
		logger:   logger,
	}
}

// Publish sends the event to its recipient. Events without a reachable
// recipient are dropped, since retrying cannot make them deliverable.
func (p *EmailPublisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	username := event.Recipient()
	if username == "" {
		return nil
	}

	account, err := p.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			p.logger.Warn().Str("event_id", event.ID).Str("username", username).Msg("dropping notification for unknown account")
			return nil
		}
		return fmt.Errorf("failed to resolve recipient %s: %w", username, err)
	}
	if account.Email == "" {
		p.logger.Debug().Str("event_id", event.ID).Str("username", username).Msg("recipient has no email address")
		return nil
	}

	body, err := json.Marshal(Email{
		From:    p.from,
		To:      account.Email,
		Subject: subject(event.EventType),
		Body:    render(event),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.relayURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", event.ID)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("mail relay request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mail relay returned status %d", resp.StatusCode)
	}

	return nil
}

func subject(eventType string) string {
	switch eventType {
	case domain.EventTypeTransferCompleted:
		return "You received a payment"
	case domain.EventTypePaymentRequestCreated:
		return "New payment request"
	case domain.EventTypePaymentRequestAccepted:
		return "Your payment request was accepted"
	case domain.EventTypePaymentRequestRejected:
		return "Your payment request was rejected"
	case domain.EventTypePaymentRequestCancelled:
		return "A payment request was cancelled"
	case domain.EventTypeAccountCreated:
		return "Your campus wallet is ready"
	case domain.EventTypeAccountEnabledChanged:
		return "Your wallet status changed"
	case domain.EventTypeWalletDeposited:
		return "Funds added to your wallet"
	case domain.EventTypeWalletWithdrawn:
		return "Funds withdrawn from your wallet"
	default:
		return "Wallet notification"
	}
}

func render(event *domain.OutboxEvent) string {
	var b strings.Builder
	b.WriteString(subject(event.EventType))
	b.WriteString(".\n\n")

	for _, key := range []string{"sender", "requester", "requestee", "amount", "status", "balance", "enabled"} {
		if v, ok := event.Payload[key]; ok {
			fmt.Fprintf(&b, "%s: %v\n", key, v)
		}
	}

	fmt.Fprintf(&b, "\nReference: %s\n", event.AggregateID)
	return b.String()
}
