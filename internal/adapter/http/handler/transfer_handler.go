package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campuspay/wallet/internal/adapter/http/dto"
	"github.com/campuspay/wallet/internal/domain"
	"github.com/campuspay/wallet/internal/usecase"
)

// TransferService defines the behavior needed by TransferHandler.
type TransferService interface {
	Transfer(ctx context.Context, cmd usecase.TransferCommand) (*domain.Transaction, error)
	GetTransaction(ctx context.Context, actor domain.Identity, id string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, input usecase.ListTransactionsInput) ([]*domain.Transaction, error)
	UpdateTags(ctx context.Context, cmd usecase.UpdateTagsCommand) (*domain.Transaction, error)
}

// TransferHandler handles direct payments and the transaction log.
type TransferHandler struct {
	transferUC TransferService
	validate   Validator
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(transferUC TransferService, validate Validator) *TransferHandler {
	return &TransferHandler{transferUC: transferUC, validate: validate}
}

// Create pays the receiver from the caller's account.
func (h *TransferHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req dto.TransferRequest
	if err := decode(r, h.validate, &req); err != nil {
		writeError(w, r, err)
		return
	}

	record, err := h.transferUC.Transfer(r.Context(), req.ToCommand(actor.Username))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.TransactionFromDomain(record))
}

// Get retrieves a transaction the caller took part in.
func (h *TransferHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	record, err := h.transferUC.GetTransaction(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(record))
}

// List returns a page of an account's transaction log.
func (h *TransferHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	txs, err := h.transferUC.ListTransactions(r.Context(), usecase.ListTransactionsInput{
		Actor:    actor,
		Username: r.URL.Query().Get("username"),
		Limit:    parseIntQuery(r, "limit", 20),
		Offset:   parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListTransactionsResponse{Transactions: dto.TransactionsFromDomain(txs)})
}

// UpdateTags replaces the caller's tags on a transaction.
func (h *TransferHandler) UpdateTags(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req dto.UpdateTagsRequest
	if err := decode(r, h.validate, &req); err != nil {
		writeError(w, r, err)
		return
	}

	record, err := h.transferUC.UpdateTags(r.Context(), usecase.UpdateTagsCommand{
		Actor:         actor,
		TransactionID: chi.URLParam(r, "id"),
		Tags:          req.Tags,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(record))
}
