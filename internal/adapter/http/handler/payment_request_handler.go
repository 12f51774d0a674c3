package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campuspay/wallet/internal/adapter/http/dto"
	"github.com/campuspay/wallet/internal/domain"
	"github.com/campuspay/wallet/internal/usecase"
)

// PaymentRequestService defines the behavior needed by PaymentRequestHandler.
type PaymentRequestService interface {
	Create(ctx context.Context, cmd usecase.CreatePaymentRequestCommand) (*domain.PaymentRequest, error)
	Respond(ctx context.Context, cmd usecase.RespondPaymentRequestCommand) (*domain.PaymentRequest, error)
	Cancel(ctx context.Context, cmd usecase.CancelPaymentRequestCommand) (*domain.PaymentRequest, error)
	Get(ctx context.Context, actor domain.Identity, id string) (*domain.PaymentRequest, error)
	List(ctx context.Context, input usecase.ListPaymentRequestsInput) ([]*domain.PaymentRequest, error)
}

// PaymentRequestHandler handles the payment request lifecycle.
type PaymentRequestHandler struct {
	requestUC PaymentRequestService
	validate  Validator
}

// NewPaymentRequestHandler creates a new PaymentRequestHandler.
func NewPaymentRequestHandler(requestUC PaymentRequestService, validate Validator) *PaymentRequestHandler {
	return &PaymentRequestHandler{requestUC: requestUC, validate: validate}
}

// Create asks the requestee to pay the caller.
func (h *PaymentRequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req dto.CreatePaymentRequestRequest
	if err := decode(r, h.validate, &req); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := h.requestUC.Create(r.Context(), req.ToCommand(actor.Username))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.PaymentRequestFromDomain(created))
}

// Respond accepts or rejects a pending request addressed to the caller.
func (h *PaymentRequestHandler) Respond(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req dto.RespondPaymentRequestRequest
	if err := decode(r, h.validate, &req); err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := h.requestUC.Respond(r.Context(), usecase.RespondPaymentRequestCommand{
		RequestID: chi.URLParam(r, "id"),
		Actor:     actor.Username,
		Decision:  domain.Decision(req.Decision),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PaymentRequestFromDomain(updated))
}

// Cancel withdraws a pending request the caller made.
func (h *PaymentRequestHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := h.requestUC.Cancel(r.Context(), usecase.CancelPaymentRequestCommand{
		RequestID: chi.URLParam(r, "id"),
		Actor:     actor.Username,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PaymentRequestFromDomain(updated))
}

// Get retrieves a request the caller is party to.
func (h *PaymentRequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	req, err := h.requestUC.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PaymentRequestFromDomain(req))
}

// List returns requests involving the caller.
func (h *PaymentRequestHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	reqs, err := h.requestUC.List(r.Context(), usecase.ListPaymentRequestsInput{
		Actor:     actor,
		Direction: domain.RequestDirection(q.Get("direction")),
		Status:    domain.PaymentRequestStatus(q.Get("status")),
		Limit:     parseIntQuery(r, "limit", 20),
		Offset:    parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PaymentRequestsFromDomain(reqs))
}
