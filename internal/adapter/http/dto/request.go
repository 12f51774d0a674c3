package dto

import (
	"github.com/campuspay/wallet/internal/domain"
	"github.com/campuspay/wallet/internal/usecase"
)

// CreateAccountRequest represents a request to provision an account.
type CreateAccountRequest struct {
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email"    validate:"omitempty,email"`
	Role     string `json:"role"     validate:"required,role"`
}

// ToCommand converts to a use case command.
func (r *CreateAccountRequest) ToCommand(actor domain.Identity) usecase.CreateAccountCommand {
	return usecase.CreateAccountCommand{
		Actor:    actor,
		Username: r.Username,
		Email:    r.Email,
		Role:     domain.Role(r.Role),
	}
}

// SetEnabledRequest enables or disables an account.
type SetEnabledRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// TransferRequest represents a direct payment from the caller.
type TransferRequest struct {
	Receiver string `json:"receiver" validate:"required"`
	Amount   int64  `json:"amount"   validate:"required,gt=0"`
}

// ToCommand converts to a use case command.
func (r *TransferRequest) ToCommand(sender string) usecase.TransferCommand {
	return usecase.TransferCommand{
		Sender:   sender,
		Receiver: r.Receiver,
		Amount:   r.Amount,
	}
}

// UpdateTagsRequest replaces the caller's tags on a transaction.
type UpdateTagsRequest struct {
	Tags []string `json:"tags" validate:"max=10,dive,max=32"`
}

// CreatePaymentRequestRequest asks another user for money.
type CreatePaymentRequestRequest struct {
	Requestee string `json:"requestee" validate:"required"`
	Amount    int64  `json:"amount"    validate:"required,gt=0"`
}

// ToCommand converts to a use case command.
func (r *CreatePaymentRequestRequest) ToCommand(requester string) usecase.CreatePaymentRequestCommand {
	return usecase.CreatePaymentRequestCommand{
		Requester: requester,
		Requestee: r.Requestee,
		Amount:    r.Amount,
	}
}

// RespondPaymentRequestRequest is the requestee's decision.
type RespondPaymentRequestRequest struct {
	Decision string `json:"decision" validate:"required,oneof=accept reject"`
}

// AdjustWalletRequest deposits (positive) or withdraws (negative) funds.
type AdjustWalletRequest struct {
	Username string `json:"username" validate:"required"`
	Amount   int64  `json:"amount"   validate:"required"`
}

// ToCommand converts to a use case command.
func (r *AdjustWalletRequest) ToCommand(actor domain.Identity) usecase.AdjustWalletCommand {
	return usecase.AdjustWalletCommand{
		Actor:    actor,
		Username: r.Username,
		Amount:   r.Amount,
	}
}
