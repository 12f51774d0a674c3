package handler

import (
	"context"
	"net/http"

	"github.com/campuspay/wallet/internal/adapter/http/dto"
	"github.com/campuspay/wallet/internal/domain"
	"github.com/campuspay/wallet/internal/usecase"
)

// WalletService defines the behavior needed by WalletHandler.
type WalletService interface {
	Adjust(ctx context.Context, cmd usecase.AdjustWalletCommand) (*usecase.AdjustResult, error)
	History(ctx context.Context, input usecase.WalletHistoryInput) ([]*domain.WalletEntry, error)
}

// WalletHandler handles wallet top-ups and withdrawals.
type WalletHandler struct {
	walletUC WalletService
	validate Validator
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletUC WalletService, validate Validator) *WalletHandler {
	return &WalletHandler{walletUC: walletUC, validate: validate}
}

// Adjust deposits or withdraws funds. Admin only.
func (h *WalletHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req dto.AdjustWalletRequest
	if err := decode(r, h.validate, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.walletUC.Adjust(r.Context(), req.ToCommand(actor))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.AdjustResultFromUseCase(result))
}

// History returns a page of wallet history.
func (h *WalletHandler) History(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	entries, err := h.walletUC.History(r.Context(), usecase.WalletHistoryInput{
		Actor:    actor,
		Username: r.URL.Query().Get("username"),
		Limit:    parseIntQuery(r, "limit", 20),
		Offset:   parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.WalletHistoryFromDomain(entries))
}
