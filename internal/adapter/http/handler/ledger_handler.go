package handler

import (
	"context"
	"net/http"

	"github.com/campuspay/wallet/internal/adapter/http/dto"
	"github.com/campuspay/wallet/internal/domain"
	"github.com/campuspay/wallet/internal/usecase"
)

// LedgerService defines the behavior needed by LedgerHandler.
type LedgerService interface {
	CheckConsistency(ctx context.Context, actor domain.Identity) (*usecase.ConsistencyResult, error)
}

// LedgerHandler handles ledger-wide operations.
type LedgerHandler struct {
	ledgerUC LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerUC LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerUC: ledgerUC}
}

// CheckConsistency checks if the ledger is consistent. An inconsistent ledger
// answers 409 with the same body.
func (h *LedgerHandler) CheckConsistency(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.ledgerUC.CheckConsistency(r.Context(), actor)
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if !result.Consistent {
		status = http.StatusConflict
	}

	writeJSON(w, status, dto.ConsistencyFromUseCase(result))
}
