package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuspay/wallet/internal/adapter/http/dto"
	"github.com/campuspay/wallet/internal/domain"
	"github.com/campuspay/wallet/internal/usecase"
)

func TestLedgerHandlerCheckConsistency(t *testing.T) {
	tests := []struct {
		name   string
		result *usecase.ConsistencyResult
		status int
	}{
		{"consistent", &usecase.ConsistencyResult{Consistent: true, TotalBalance: 100, TotalDeposits: 120, TotalWithdrawals: 20}, http.StatusOK},
		{"drift", &usecase.ConsistencyResult{Consistent: false, TotalBalance: 90, TotalDeposits: 100, Difference: -10}, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewLedgerHandler(&ledgerServiceStub{
				checkFn: func(context.Context, domain.Identity) (*usecase.ConsistencyResult, error) {
					return tt.result, nil
				},
			})

			rec := serve(t, http.MethodGet, "/ledger/consistency", "/ledger/consistency", h.CheckConsistency, &root, nil)
			require.Equal(t, tt.status, rec.Code)

			var resp dto.ConsistencyResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, *dto.ConsistencyFromUseCase(tt.result), resp)
		})
	}
}

func TestLedgerHandlerCheckConsistencyErrors(t *testing.T) {
	h := NewLedgerHandler(&ledgerServiceStub{
		checkFn: func(_ context.Context, actor domain.Identity) (*usecase.ConsistencyResult, error) {
			if !actor.IsAdmin() {
				return nil, domain.ErrForbidden
			}
			return nil, errors.New("db down")
		},
	})

	rec := serve(t, http.MethodGet, "/ledger/consistency", "/ledger/consistency", h.CheckConsistency, &alice, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(t, http.MethodGet, "/ledger/consistency", "/ledger/consistency", h.CheckConsistency, &root, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decodeErrors(t, rec).Errors[0].Message)
}
