package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campuspay/wallet/internal/adapter/http/dto"
	"github.com/campuspay/wallet/internal/domain"
	"github.com/campuspay/wallet/internal/usecase"
)

// AccountService defines the behavior needed by AccountHandler.
type AccountService interface {
	CreateAccount(ctx context.Context, cmd usecase.CreateAccountCommand) (*domain.Account, error)
	GetAccount(ctx context.Context, actor domain.Identity, username string) (*domain.Account, error)
	GetBalance(ctx context.Context, actor domain.Identity, username string) (int64, error)
	SetEnabled(ctx context.Context, cmd usecase.SetEnabledCommand) (*domain.Account, error)
}

// AccountHandler handles account-related HTTP requests.
type AccountHandler struct {
	accountUC AccountService
	validate  Validator
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountUC AccountService, validate Validator) *AccountHandler {
	return &AccountHandler{accountUC: accountUC, validate: validate}
}

// Create provisions a new account. Admin only.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req dto.CreateAccountRequest
	if err := decode(r, h.validate, &req); err != nil {
		writeError(w, r, err)
		return
	}

	account, err := h.accountUC.CreateAccount(r.Context(), req.ToCommand(actor))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.AccountFromDomain(account))
}

// Me returns the caller's own account.
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	account, err := h.accountUC.GetAccount(r.Context(), actor, actor.Username)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// Get retrieves an account by username.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	account, err := h.accountUC.GetAccount(r.Context(), actor, chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// Balance returns the account's current balance.
func (h *AccountHandler) Balance(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	username := chi.URLParam(r, "username")
	balance, err := h.accountUC.GetBalance(r.Context(), actor, username)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceResponse{Username: username, Balance: balance})
}

// SetEnabled enables or disables an account. The account itself or an admin
// may call it.
func (h *AccountHandler) SetEnabled(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req dto.SetEnabledRequest
	if err := decode(r, h.validate, &req); err != nil {
		writeError(w, r, err)
		return
	}

	account, err := h.accountUC.SetEnabled(r.Context(), usecase.SetEnabledCommand{
		Actor:    actor,
		Username: chi.URLParam(r, "username"),
		Enabled:  *req.Enabled,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}
