package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/campuspay/wallet/internal/adapter/http/dto"
	"github.com/campuspay/wallet/internal/domain"
	"github.com/campuspay/wallet/internal/usecase"
)

// ReportService defines the behavior needed by ReportHandler.
type ReportService interface {
	Generate(ctx context.Context, q usecase.ReportQuery) (*domain.Report, error)
}

// ReportHandler serves income and expenditure reports.
type ReportHandler struct {
	reportUC ReportService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportUC ReportService) *ReportHandler {
	return &ReportHandler{reportUC: reportUC}
}

// Generate builds a report from either ?preset= or ?from=&to= (RFC 3339).
func (h *ReportHandler) Generate(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	query := usecase.ReportQuery{
		Actor:    actor,
		Username: q.Get("username"),
		Preset:   domain.ReportPreset(q.Get("preset")),
	}

	var fields []domain.FieldError
	for _, name := range []string{"from", "to"} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			fields = append(fields, domain.FieldError{Field: name, Message: "Must be an RFC 3339 timestamp"})
			continue
		}
		if name == "from" {
			query.From = &t
		} else {
			query.To = &t
		}
	}

	if raw := q.Get("compare"); raw != "" {
		compare, err := strconv.ParseBool(raw)
		if err != nil {
			fields = append(fields, domain.FieldError{Field: "compare", Message: "Must be true or false"})
		}
		query.Compare = compare
	}

	if len(fields) > 0 {
		writeError(w, r, domain.NewValidationError(fields...))
		return
	}

	if query.Preset == "" && query.From == nil && query.To == nil {
		query.Preset = domain.PresetMonth
	}

	report, err := h.reportUC.Generate(r.Context(), query)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReportFromDomain(report))
}
