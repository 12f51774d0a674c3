package usecase_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/campuspay/wallet/internal/domain"
	"github.com/campuspay/wallet/internal/infrastructure/metrics"
	"github.com/campuspay/wallet/internal/usecase"
	"github.com/campuspay/wallet/internal/usecase/mocks"
)

type fixture struct {
	store    *mocks.Store
	ids      *mocks.SequenceIDGenerator
	metrics  *metrics.Metrics
	accounts *usecase.AccountUseCase
	transfer *usecase.TransferUseCase
	requests *usecase.PaymentRequestUseCase
	wallet   *usecase.WalletUseCase
	reports  *usecase.ReportUseCase
	ledger   *usecase.LedgerUseCase
}

func newFixture(t *testing.T, retrier usecase.Retrier) *fixture {
	t.Helper()

	store := mocks.NewStore()
	ids := mocks.NewSequenceIDGenerator("id")
	m := metrics.New(prometheus.NewRegistry())
	log := zerolog.Nop()

	return &fixture{
		store:    store,
		ids:      ids,
		metrics:  m,
		accounts: usecase.NewAccountUseCase(store, retrier, store.Accounts(), store.Outbox(), ids, m, log),
		transfer: usecase.NewTransferUseCase(store, retrier, store.Accounts(), store.Transactions(), store.Outbox(), ids, m, log),
		requests: usecase.NewPaymentRequestUseCase(store, retrier, store.Accounts(), store.Requests(), store.Outbox(), ids, m, log),
		wallet:   usecase.NewWalletUseCase(store, retrier, store.Accounts(), store.Wallet(), store.Outbox(), ids, m, log),
		reports: usecase.NewReportUseCase(store.Accounts(), store.Transactions(), m,
			usecase.WithClock(func() time.Time { return time.Date(2026, 3, 18, 14, 30, 0, 0, time.UTC) })),
		ledger: usecase.NewLedgerUseCase(store.Ledger()),
	}
}

func student(username string) domain.Identity {
	return domain.Identity{AccountID: "acc-" + username, Username: username, Role: domain.RoleStudent, Enabled: true}
}

func admin() domain.Identity {
	return domain.Identity{AccountID: "acc-root", Username: "root", Role: domain.RoleAdmin, Enabled: true}
}
