package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuspay/wallet/internal/adapter/http/dto"
	"github.com/campuspay/wallet/internal/domain"
	"github.com/campuspay/wallet/internal/usecase"
)

func TestAccountHandlerCreate(t *testing.T) {
	var got usecase.CreateAccountCommand
	h := NewAccountHandler(&accountServiceStub{
		createFn: func(_ context.Context, cmd usecase.CreateAccountCommand) (*domain.Account, error) {
			got = cmd
			return &domain.Account{ID: "acc-1", Username: cmd.Username, Role: cmd.Role, Enabled: true}, nil
		},
	}, newValidator())

	rec := serve(t, http.MethodPost, "/accounts", "/accounts", h.Create, &root,
		dto.CreateAccountRequest{Username: "alice", Email: "alice@campus.edu", Role: "STUDENT"})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, root, got.Actor)
	assert.Equal(t, domain.RoleStudent, got.Role)

	var resp dto.AccountResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp.Username)
	assert.Zero(t, resp.Balance)
}

func TestAccountHandlerCreateValidation(t *testing.T) {
	h := NewAccountHandler(&accountServiceStub{}, newValidator())

	rec := serve(t, http.MethodPost, "/accounts", "/accounts", h.Create, &root,
		dto.CreateAccountRequest{Username: "a!", Role: "GUEST"})

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	fields := map[string]bool{}
	for _, item := range decodeErrors(t, rec).Errors {
		fields[item.Field] = true
	}
	assert.Equal(t, map[string]bool{"username": true, "role": true}, fields)
}

func TestAccountHandlerRequiresIdentity(t *testing.T) {
	h := NewAccountHandler(&accountServiceStub{}, newValidator())

	rec := serve(t, http.MethodGet, "/accounts/me", "/accounts/me", h.Me, nil, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAccountHandlerBadJSON(t *testing.T) {
	h := NewAccountHandler(&accountServiceStub{}, newValidator())

	rec := serve(t, http.MethodPost, "/accounts", "/accounts", h.Create, &root, "{not json")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid request body", decodeErrors(t, rec).Errors[0].Message)
}

func TestAccountHandlerBalance(t *testing.T) {
	h := NewAccountHandler(&accountServiceStub{
		balanceFn: func(_ context.Context, actor domain.Identity, username string) (int64, error) {
			if !actor.CanActFor(username) {
				return 0, domain.ErrForbidden
			}
			return 1250, nil
		},
	}, newValidator())

	rec := serve(t, http.MethodGet, "/accounts/{username}/balance", "/accounts/alice/balance", h.Balance, &alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.BalanceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, dto.BalanceResponse{Username: "alice", Balance: 1250}, resp)

	rec = serve(t, http.MethodGet, "/accounts/{username}/balance", "/accounts/bob/balance", h.Balance, &alice, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAccountHandlerSetEnabled(t *testing.T) {
	var got usecase.SetEnabledCommand
	h := NewAccountHandler(&accountServiceStub{
		setEnabledFn: func(_ context.Context, cmd usecase.SetEnabledCommand) (*domain.Account, error) {
			got = cmd
			return &domain.Account{Username: cmd.Username, Enabled: cmd.Enabled}, nil
		},
	}, newValidator())

	rec := serve(t, http.MethodPatch, "/accounts/{username}/enabled", "/accounts/bob/enabled", h.SetEnabled, &root, `{"enabled":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, usecase.SetEnabledCommand{Actor: root, Username: "bob", Enabled: false}, got)

	rec = serve(t, http.MethodPatch, "/accounts/{username}/enabled", "/accounts/bob/enabled", h.SetEnabled, &root, `{}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
