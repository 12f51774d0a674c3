package postgres_test

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuspay/wallet/internal/adapter/repository/postgres"
	"github.com/campuspay/wallet/internal/domain"
	pgInfra "github.com/campuspay/wallet/internal/infrastructure/postgres"
	"github.com/campuspay/wallet/internal/usecase"
)

type integrationEnv struct {
	pool     *pgxpool.Pool
	accounts *usecase.AccountUseCase
	transfer *usecase.TransferUseCase
	requests *usecase.PaymentRequestUseCase
	wallet   *usecase.WalletUseCase
	ledger   *usecase.LedgerUseCase
}

// newIntegrationEnv connects to TEST_DATABASE_URL and wipes every table.
func newIntegrationEnv(t *testing.T) *integrationEnv {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" || testing.Short() {
		t.Skip("TEST_DATABASE_URL not set")
	}

	require.NoError(t, pgInfra.RunMigrations(dbURL, zerolog.Nop()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgInfra.NewPool(ctx, dbURL, 20, 1)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `TRUNCATE outbox_events, wallet_transaction_history, payment_requests, transactions, accounts CASCADE`)
	require.NoError(t, err)

	txManager := postgres.NewTxManager(pool)
	retrier := postgres.NewRetrier(zerolog.Nop())
	accountRepo := postgres.NewAccountRepository(pool)
	outboxRepo := postgres.NewOutboxRepository(pool)
	idGen := postgres.NewULIDGenerator()
	log := zerolog.Nop()

	return &integrationEnv{
		pool:     pool,
		accounts: usecase.NewAccountUseCase(txManager, retrier, accountRepo, outboxRepo, idGen, nil, log),
		transfer: usecase.NewTransferUseCase(txManager, retrier, accountRepo, postgres.NewTransactionRepository(pool), outboxRepo, idGen, nil, log),
		requests: usecase.NewPaymentRequestUseCase(txManager, retrier, accountRepo, postgres.NewPaymentRequestRepository(pool), outboxRepo, idGen, nil, log),
		wallet:   usecase.NewWalletUseCase(txManager, retrier, accountRepo, postgres.NewWalletHistoryRepository(pool), outboxRepo, idGen, nil, log),
		ledger:   usecase.NewLedgerUseCase(postgres.NewLedgerRepository(pool)),
	}
}

func (e *integrationEnv) fund(t *testing.T, username string, role domain.Role, amount int64) {
	t.Helper()
	ctx := context.Background()
	root := domain.Identity{Username: "root", Role: domain.RoleAdmin, Enabled: true}

	_, err := e.accounts.CreateAccount(ctx, usecase.CreateAccountCommand{Actor: root, Username: username, Role: role})
	require.NoError(t, err)
	if amount > 0 {
		_, err = e.wallet.Adjust(ctx, usecase.AdjustWalletCommand{Actor: root, Username: username, Amount: amount})
		require.NoError(t, err)
	}
}

func (e *integrationEnv) balance(t *testing.T, username string) int64 {
	t.Helper()
	var balance int64
	require.NoError(t, e.pool.QueryRow(context.Background(), `SELECT balance FROM accounts WHERE username = $1`, username).Scan(&balance))
	return balance
}

func TestIntegrationTransferAndConsistency(t *testing.T) {
	env := newIntegrationEnv(t)
	ctx := context.Background()
	env.fund(t, "alice", domain.RoleStudent, 100)
	env.fund(t, "bob", domain.RoleVendor, 0)

	_, err := env.transfer.Transfer(ctx, usecase.TransferCommand{Sender: "alice", Receiver: "bob", Amount: 30})
	require.NoError(t, err)

	_, err = env.transfer.Transfer(ctx, usecase.TransferCommand{Sender: "alice", Receiver: "bob", Amount: 500})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	assert.Equal(t, int64(70), env.balance(t, "alice"))
	assert.Equal(t, int64(30), env.balance(t, "bob"))

	result, err := env.ledger.CheckConsistency(ctx, domain.Identity{Username: "root", Role: domain.RoleAdmin})
	require.NoError(t, err)
	assert.True(t, result.Consistent)
}

func TestIntegrationTransactionRowsAreImmutable(t *testing.T) {
	env := newIntegrationEnv(t)
	ctx := context.Background()
	env.fund(t, "alice", domain.RoleStudent, 100)
	env.fund(t, "bob", domain.RoleVendor, 0)

	record, err := env.transfer.Transfer(ctx, usecase.TransferCommand{Sender: "alice", Receiver: "bob", Amount: 30})
	require.NoError(t, err)

	_, err = env.pool.Exec(ctx, `UPDATE transactions SET amount = 1 WHERE id = $1`, record.ID)
	require.Error(t, err)

	_, err = env.pool.Exec(ctx, `UPDATE transactions SET sender_tags = '{lunch}' WHERE id = $1`, record.ID)
	require.NoError(t, err)
}

func TestIntegrationConcurrentAcceptsSettleOnce(t *testing.T) {
	env := newIntegrationEnv(t)
	ctx := context.Background()
	env.fund(t, "vendor", domain.RoleVendor, 0)
	env.fund(t, "alice", domain.RoleStudent, 1000)

	req, err := env.requests.Create(ctx, usecase.CreatePaymentRequestCommand{Requester: "vendor", Requestee: "alice", Amount: 40})
	require.NoError(t, err)

	const workers = 10
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
	)
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			_, err := env.requests.Respond(ctx, usecase.RespondPaymentRequestCommand{
				RequestID: req.ID,
				Actor:     "alice",
				Decision:  domain.DecisionAccept,
			})
			if err == nil {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int64(960), env.balance(t, "alice"))
	assert.Equal(t, int64(40), env.balance(t, "vendor"))
}

func TestIntegrationConcurrentTransfersNeverOverdraw(t *testing.T) {
	env := newIntegrationEnv(t)
	ctx := context.Background()
	env.fund(t, "alice", domain.RoleStudent, 100)
	env.fund(t, "bob", domain.RoleVendor, 0)

	const workers = 40
	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			_, _ = env.transfer.Transfer(ctx, usecase.TransferCommand{Sender: "alice", Receiver: "bob", Amount: 7})
		}()
	}
	wg.Wait()

	alice, bob := env.balance(t, "alice"), env.balance(t, "bob")
	assert.GreaterOrEqual(t, alice, int64(0))
	assert.Equal(t, int64(100), alice+bob)
	assert.Zero(t, bob%7)
}
