package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/campuspay/wallet/internal/adapter/http/dto"
	"github.com/campuspay/wallet/internal/domain"
	"github.com/campuspay/wallet/internal/infrastructure/validation"
	"github.com/campuspay/wallet/internal/usecase"
)

var (
	alice = domain.Identity{AccountID: "acc-alice", Username: "alice", Role: domain.RoleStudent, Enabled: true}
	root  = domain.Identity{AccountID: "acc-root", Username: "root", Role: domain.RoleAdmin, Enabled: true}
)

type accountServiceStub struct {
	createFn     func(ctx context.Context, cmd usecase.CreateAccountCommand) (*domain.Account, error)
	getFn        func(ctx context.Context, actor domain.Identity, username string) (*domain.Account, error)
	balanceFn    func(ctx context.Context, actor domain.Identity, username string) (int64, error)
	setEnabledFn func(ctx context.Context, cmd usecase.SetEnabledCommand) (*domain.Account, error)
}

func (s *accountServiceStub) CreateAccount(ctx context.Context, cmd usecase.CreateAccountCommand) (*domain.Account, error) {
	return s.createFn(ctx, cmd)
}

func (s *accountServiceStub) GetAccount(ctx context.Context, actor domain.Identity, username string) (*domain.Account, error) {
	return s.getFn(ctx, actor, username)
}

func (s *accountServiceStub) GetBalance(ctx context.Context, actor domain.Identity, username string) (int64, error) {
	return s.balanceFn(ctx, actor, username)
}

func (s *accountServiceStub) SetEnabled(ctx context.Context, cmd usecase.SetEnabledCommand) (*domain.Account, error) {
	return s.setEnabledFn(ctx, cmd)
}

type transferServiceStub struct {
	transferFn func(ctx context.Context, cmd usecase.TransferCommand) (*domain.Transaction, error)
	getFn      func(ctx context.Context, actor domain.Identity, id string) (*domain.Transaction, error)
	listFn     func(ctx context.Context, input usecase.ListTransactionsInput) ([]*domain.Transaction, error)
	tagsFn     func(ctx context.Context, cmd usecase.UpdateTagsCommand) (*domain.Transaction, error)
}

func (s *transferServiceStub) Transfer(ctx context.Context, cmd usecase.TransferCommand) (*domain.Transaction, error) {
	return s.transferFn(ctx, cmd)
}

func (s *transferServiceStub) GetTransaction(ctx context.Context, actor domain.Identity, id string) (*domain.Transaction, error) {
	return s.getFn(ctx, actor, id)
}

func (s *transferServiceStub) ListTransactions(ctx context.Context, input usecase.ListTransactionsInput) ([]*domain.Transaction, error) {
	return s.listFn(ctx, input)
}

func (s *transferServiceStub) UpdateTags(ctx context.Context, cmd usecase.UpdateTagsCommand) (*domain.Transaction, error) {
	return s.tagsFn(ctx, cmd)
}

type paymentRequestServiceStub struct {
	createFn  func(ctx context.Context, cmd usecase.CreatePaymentRequestCommand) (*domain.PaymentRequest, error)
	respondFn func(ctx context.Context, cmd usecase.RespondPaymentRequestCommand) (*domain.PaymentRequest, error)
	cancelFn  func(ctx context.Context, cmd usecase.CancelPaymentRequestCommand) (*domain.PaymentRequest, error)
	getFn     func(ctx context.Context, actor domain.Identity, id string) (*domain.PaymentRequest, error)
	listFn    func(ctx context.Context, input usecase.ListPaymentRequestsInput) ([]*domain.PaymentRequest, error)
}

func (s *paymentRequestServiceStub) Create(ctx context.Context, cmd usecase.CreatePaymentRequestCommand) (*domain.PaymentRequest, error) {
	return s.createFn(ctx, cmd)
}

func (s *paymentRequestServiceStub) Respond(ctx context.Context, cmd usecase.RespondPaymentRequestCommand) (*domain.PaymentRequest, error) {
	return s.respondFn(ctx, cmd)
}

func (s *paymentRequestServiceStub) Cancel(ctx context.Context, cmd usecase.CancelPaymentRequestCommand) (*domain.PaymentRequest, error) {
	return s.cancelFn(ctx, cmd)
}

func (s *paymentRequestServiceStub) Get(ctx context.Context, actor domain.Identity, id string) (*domain.PaymentRequest, error) {
	return s.getFn(ctx, actor, id)
}

func (s *paymentRequestServiceStub) List(ctx context.Context, input usecase.ListPaymentRequestsInput) ([]*domain.PaymentRequest, error) {
	return s.listFn(ctx, input)
}

type walletServiceStub struct {
	adjustFn  func(ctx context.Context, cmd usecase.AdjustWalletCommand) (*usecase.AdjustResult, error)
	historyFn func(ctx context.Context, input usecase.WalletHistoryInput) ([]*domain.WalletEntry, error)
}

func (s *walletServiceStub) Adjust(ctx context.Context, cmd usecase.AdjustWalletCommand) (*usecase.AdjustResult, error) {
	return s.adjustFn(ctx, cmd)
}

func (s *walletServiceStub) History(ctx context.Context, input usecase.WalletHistoryInput) ([]*domain.WalletEntry, error) {
	return s.historyFn(ctx, input)
}

type reportServiceStub struct {
	generateFn func(ctx context.Context, q usecase.ReportQuery) (*domain.Report, error)
}

func (s *reportServiceStub) Generate(ctx context.Context, q usecase.ReportQuery) (*domain.Report, error) {
	return s.generateFn(ctx, q)
}

type ledgerServiceStub struct {
	checkFn func(ctx context.Context, actor domain.Identity) (*usecase.ConsistencyResult, error)
}

func (s *ledgerServiceStub) CheckConsistency(ctx context.Context, actor domain.Identity) (*usecase.ConsistencyResult, error) {
	return s.checkFn(ctx, actor)
}

// serve routes a single request through a chi router so URL params resolve.
func serve(t *testing.T, method, pattern, target string, h http.HandlerFunc, id *domain.Identity, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}

	req := httptest.NewRequest(method, target, &buf)
	if id != nil {
		req = req.WithContext(domain.ContextWithIdentity(req.Context(), *id))
	}

	r := chi.NewRouter()
	r.Method(method, pattern, h)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeErrors(t *testing.T, rec *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func newValidator() Validator {
	return validation.New()
}
