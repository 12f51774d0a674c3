package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/campuspay/wallet/internal/domain"
	"github.com/campuspay/wallet/internal/infrastructure/metrics"
)

// AdjustWalletCommand deposits (Amount > 0) or withdraws (Amount < 0).
type AdjustWalletCommand struct {
	Actor    domain.Identity
	Username string
	Amount   int64
}

// AdjustResult is the history row written and the balance after it.
type AdjustResult struct {
	Entry   *domain.WalletEntry
	Balance int64
}

// WalletHistoryInput selects a page of wallet history.
type WalletHistoryInput struct {
	Actor    domain.Identity
	Username string
	Limit    int
	Offset   int
}

// WalletUseCase handles wallet top-ups and withdrawals.
type WalletUseCase struct {
	txManager   TransactionManager
	retrier     Retrier
	accountRepo AccountRepository
	historyRepo WalletHistoryRepository
	outboxRepo  OutboxRepository
	idGen       IDGenerator
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

// NewWalletUseCase creates a new WalletUseCase.
func NewWalletUseCase(
	txManager TransactionManager,
	retrier Retrier,
	accountRepo AccountRepository,
	historyRepo WalletHistoryRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	metrics *metrics.Metrics,
	logger zerolog.Logger,
) *WalletUseCase {
	return &WalletUseCase{
		txManager:   txManager,
		retrier:     retrier,
		accountRepo: accountRepo,
		historyRepo: historyRepo,
		outboxRepo:  outboxRepo,
		idGen:       idGen,
		metrics:     metrics,
		logger:      logger,
	}
}

// Adjust applies a signed amount to the wallet and records it in history.
func (uc *WalletUseCase) Adjust(ctx context.Context, cmd AdjustWalletCommand) (*AdjustResult, error) {
	username := cmd.Username
	if username == "" {
		username = cmd.Actor.Username
	}

	result, err := uc.adjust(ctx, cmd.Actor, username, cmd.Amount)
	if err != nil {
		uc.metrics.ObserveError("adjust_wallet", err)
		return nil, err
	}

	uc.metrics.ObserveAdjustment(result.Entry.Type)
	uc.logger.Info().
		Str("username", username).
		Str("type", string(result.Entry.Type)).
		Int64("amount", result.Entry.Amount).
		Int64("balance", result.Balance).
		Msg("wallet adjusted")

	return result, nil
}

func (uc *WalletUseCase) adjust(ctx context.Context, actor domain.Identity, username string, amount int64) (*AdjustResult, error) {
	if err := domain.ValidateAdjustment(amount); err != nil {
		return nil, err
	}
	if !actor.CanActFor(username) {
		return nil, domain.ErrForbidden
	}

	var result *AdjustResult
	err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		accounts, err := lockAccounts(ctx, uc.accountRepo, tx, username)
		if err != nil {
			return err
		}
		account, ok := accounts[username]
		if !ok {
			return domain.ErrAccountNotFound
		}
		if account.Balance+amount < 0 {
			return domain.ErrInsufficientFunds
		}

		now := time.Now().UTC()
		balance, err := uc.accountRepo.AdjustBalance(ctx, tx, username, amount, now)
		if err != nil {
			return err
		}

		entry, err := domain.NewWalletEntry(uc.idGen.Generate(), account.ID, amount, now)
		if err != nil {
			return err
		}
		if err := uc.historyRepo.Create(ctx, tx, entry); err != nil {
			return err
		}

		eventType := domain.EventTypeWalletDeposited
		if entry.Type == domain.WalletWithdrawal {
			eventType = domain.EventTypeWalletWithdrawn
		}
		if err := uc.outboxRepo.Create(ctx, tx, newEvent(uc.idGen,
			domain.AggregateTypeWallet, entry.ID, eventType,
			map[string]any{
				"entry_id": entry.ID,
				"username": username,
				"type":     string(entry.Type),
				"amount":   entry.Amount,
				"balance":  balance,
				"notify":   username,
			}, now)); err != nil {
			return err
		}

		result = &AdjustResult{Entry: entry, Balance: balance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// History returns a page of the account's deposits and withdrawals, newest first.
func (uc *WalletUseCase) History(ctx context.Context, input WalletHistoryInput) ([]*domain.WalletEntry, error) {
	username := input.Username
	if username == "" {
		username = input.Actor.Username
	}
	if !input.Actor.CanActFor(username) {
		return nil, domain.ErrForbidden
	}

	account, err := uc.accountRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	limit, offset := normalizePage(input.Limit, input.Offset)
	return uc.historyRepo.ListByUser(ctx, account.ID, limit, offset)
}
