package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/campuspay/wallet/internal/domain"
	"github.com/campuspay/wallet/internal/usecase"
)

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role"`
	Balance   int64     `json:"balance"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:        a.ID,
		Username:  a.Username,
		Email:     a.Email,
		Role:      string(a.Role),
		Balance:   a.Balance,
		Enabled:   a.Enabled,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// BalanceResponse is an account's current balance in minor units.
type BalanceResponse struct {
	Username string `json:"username"`
	Balance  int64  `json:"balance"`
}

// TransactionResponse represents a settled transfer.
type TransactionResponse struct {
	ID           string    `json:"id"`
	Sender       string    `json:"sender"`
	Receiver     string    `json:"receiver"`
	Amount       int64     `json:"amount"`
	Status       bool      `json:"status"`
	SenderTags   []string  `json:"sender_tags"`
	ReceiverTags []string  `json:"receiver_tags"`
	CreatedAt    time.Time `json:"created_at"`
}

// TransactionFromDomain converts a domain transaction to response.
func TransactionFromDomain(t *domain.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:           t.ID,
		Sender:       t.SenderUsername,
		Receiver:     t.ReceiverUsername,
		Amount:       t.Amount,
		Status:       t.Status,
		SenderTags:   nonNil(t.SenderTags),
		ReceiverTags: nonNil(t.ReceiverTags),
		CreatedAt:    t.CreatedAt,
	}
}

// TransactionsFromDomain converts domain transactions to responses.
func TransactionsFromDomain(txs []*domain.Transaction) []*TransactionResponse {
	result := make([]*TransactionResponse, len(txs))
	for i, t := range txs {
		result[i] = TransactionFromDomain(t)
	}
	return result
}

// ListTransactionsResponse is a page of the transaction log.
type ListTransactionsResponse struct {
	Transactions []*TransactionResponse `json:"transactions"`
}

// PaymentRequestResponse represents a payment request.
type PaymentRequestResponse struct {
	ID        string    `json:"id"`
	Requester string    `json:"requester"`
	Requestee string    `json:"requestee"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PaymentRequestFromDomain converts a domain payment request to response.
func PaymentRequestFromDomain(r *domain.PaymentRequest) *PaymentRequestResponse {
	return &PaymentRequestResponse{
		ID:        r.ID,
		Requester: r.RequesterUsername,
		Requestee: r.RequesteeUsername,
		Amount:    r.Amount,
		Status:    string(r.Status),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// ListPaymentRequestsResponse is a page of payment requests.
type ListPaymentRequestsResponse struct {
	PaymentRequests []*PaymentRequestResponse `json:"payment_requests"`
}

// PaymentRequestsFromDomain converts domain payment requests to a list response.
func PaymentRequestsFromDomain(reqs []*domain.PaymentRequest) ListPaymentRequestsResponse {
	items := make([]*PaymentRequestResponse, len(reqs))
	for i, r := range reqs {
		items[i] = PaymentRequestFromDomain(r)
	}
	return ListPaymentRequestsResponse{PaymentRequests: items}
}

// WalletEntryResponse represents one deposit or withdrawal.
type WalletEntryResponse struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// WalletEntryFromDomain converts a wallet history row to response.
func WalletEntryFromDomain(e *domain.WalletEntry) *WalletEntryResponse {
	return &WalletEntryResponse{
		ID:        e.ID,
		Type:      string(e.Type),
		Amount:    e.Amount,
		CreatedAt: e.CreatedAt,
	}
}

// AdjustWalletResponse is the history row written and the balance after it.
type AdjustWalletResponse struct {
	Entry   *WalletEntryResponse `json:"entry"`
	Balance int64                `json:"balance"`
}

// AdjustResultFromUseCase converts an adjustment result to response.
func AdjustResultFromUseCase(r *usecase.AdjustResult) *AdjustWalletResponse {
	return &AdjustWalletResponse{
		Entry:   WalletEntryFromDomain(r.Entry),
		Balance: r.Balance,
	}
}

// WalletHistoryResponse is a page of wallet history.
type WalletHistoryResponse struct {
	Entries []*WalletEntryResponse `json:"entries"`
}

// WalletHistoryFromDomain converts wallet history rows to a list response.
func WalletHistoryFromDomain(entries []*domain.WalletEntry) WalletHistoryResponse {
	items := make([]*WalletEntryResponse, len(entries))
	for i, e := range entries {
		items[i] = WalletEntryFromDomain(e)
	}
	return WalletHistoryResponse{Entries: items}
}

// SummaryResponse holds the totals for one report window.
type SummaryResponse struct {
	From             time.Time `json:"from"`
	To               time.Time `json:"to"`
	Income           int64     `json:"income"`
	Expenditure      int64     `json:"expenditure"`
	TransactionCount int       `json:"transaction_count"`
	UniqueVisitors   int       `json:"unique_visitors"`
}

func summaryFromDomain(s domain.ReportSummary) *SummaryResponse {
	return &SummaryResponse{
		From:             s.Window.From,
		To:               s.Window.To,
		Income:           s.Income,
		Expenditure:      s.Expenditure,
		TransactionCount: s.TransactionCount,
		UniqueVisitors:   s.UniqueVisitors,
	}
}

// BucketResponse is one point of a report series.
type BucketResponse struct {
	Label       string    `json:"label"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Income      int64     `json:"income"`
	Expenditure int64     `json:"expenditure"`
	Count       int       `json:"count"`
}

// ReportResponse represents an aggregated report.
type ReportResponse struct {
	Username     string           `json:"username"`
	Granularity  string           `json:"granularity"`
	Summary      *SummaryResponse `json:"summary"`
	Series       []BucketResponse `json:"series"`
	Previous     *SummaryResponse `json:"previous,omitempty"`
	IncomeChange *decimal.Decimal `json:"income_change_percent,omitempty"`
}

// ReportFromDomain converts a domain report to response.
func ReportFromDomain(r *domain.Report) *ReportResponse {
	resp := &ReportResponse{
		Username:     r.Username,
		Granularity:  string(r.Granularity),
		Summary:      summaryFromDomain(r.Summary),
		Series:       make([]BucketResponse, len(r.Series)),
		IncomeChange: r.IncomeChange,
	}
	for i, b := range r.Series {
		resp.Series[i] = BucketResponse{
			Label:       b.Label,
			Start:       b.Start,
			End:         b.End,
			Income:      b.Income,
			Expenditure: b.Expenditure,
			Count:       b.Count,
		}
	}
	if r.Previous != nil {
		resp.Previous = summaryFromDomain(*r.Previous)
	}
	return resp
}

// ConsistencyResponse reports whether balances match the money supply.
type ConsistencyResponse struct {
	Consistent       bool  `json:"consistent"`
	TotalBalance     int64 `json:"total_balance"`
	TotalDeposits    int64 `json:"total_deposits"`
	TotalWithdrawals int64 `json:"total_withdrawals"`
	Difference       int64 `json:"difference"`
}

// ConsistencyFromUseCase converts a consistency result to response.
func ConsistencyFromUseCase(r *usecase.ConsistencyResult) *ConsistencyResponse {
	return &ConsistencyResponse{
		Consistent:       r.Consistent,
		TotalBalance:     r.TotalBalance,
		TotalDeposits:    r.TotalDeposits,
		TotalWithdrawals: r.TotalWithdrawals,
		Difference:       r.Difference,
	}
}

// ErrorItem is one error message, optionally tied to a request field.
type ErrorItem struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Errors []ErrorItem `json:"errors"`
}

// NewErrorResponse builds a single-message error body.
func NewErrorResponse(message string) ErrorResponse {
	return ErrorResponse{Errors: []ErrorItem{{Message: message}}}
}

// ErrorFromDomain renders a domain error. Validation errors produce one item
// per field.
func ErrorFromDomain(err *domain.Error) ErrorResponse {
	if len(err.Fields) == 0 {
		return NewErrorResponse(err.Message)
	}

	items := make([]ErrorItem, len(err.Fields))
	for i, f := range err.Fields {
		items[i] = ErrorItem{Message: f.Message, Field: f.Field}
	}
	return ErrorResponse{Errors: items}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
