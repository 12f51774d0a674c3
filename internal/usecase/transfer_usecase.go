package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/campuspay/wallet/internal/domain"
	"github.com/campuspay/wallet/internal/infrastructure/metrics"
)

// TransferCommand moves Amount from Sender to Receiver.
type TransferCommand struct {
	Sender   string
	Receiver string
	Amount   int64
}

// UpdateTagsCommand replaces the actor's own tag list on a transaction.
type UpdateTagsCommand struct {
	Actor         domain.Identity
	TransactionID string
	Tags          []string
}

// ListTransactionsInput selects a page of an account's transaction log.
type ListTransactionsInput struct {
	Actor    domain.Identity
	Username string
	Limit    int
	Offset   int
}

// TransferUseCase executes direct payments and serves the transaction log.
type TransferUseCase struct {
	txManager       TransactionManager
	retrier         Retrier
	accountRepo     AccountRepository
	transactionRepo TransactionRepository
	outboxRepo      OutboxRepository
	idGen           IDGenerator
	metrics         *metrics.Metrics
	logger          zerolog.Logger
}

// NewTransferUseCase creates a new TransferUseCase.
func NewTransferUseCase(
	txManager TransactionManager,
	retrier Retrier,
	accountRepo AccountRepository,
	transactionRepo TransactionRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	metrics *metrics.Metrics,
	logger zerolog.Logger,
) *TransferUseCase {
	return &TransferUseCase{
		txManager:       txManager,
		retrier:         retrier,
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		outboxRepo:      outboxRepo,
		idGen:           idGen,
		metrics:         metrics,
		logger:          logger,
	}
}

// Transfer debits the sender, credits the receiver and appends one
// transaction row as a single unit.
func (uc *TransferUseCase) Transfer(ctx context.Context, cmd TransferCommand) (*domain.Transaction, error) {
	start := time.Now()

	record, err := uc.transfer(ctx, cmd)
	if err != nil {
		uc.metrics.ObserveError("transfer", err)
		return nil, err
	}

	uc.metrics.ObserveTransfer(record.Amount, time.Since(start))
	uc.logger.Info().
		Str("transaction_id", record.ID).
		Str("sender", record.SenderUsername).
		Str("receiver", record.ReceiverUsername).
		Int64("amount", record.Amount).
		Msg("transfer completed")

	return record, nil
}

func (uc *TransferUseCase) transfer(ctx context.Context, cmd TransferCommand) (*domain.Transaction, error) {
	if err := domain.ValidateAmount(cmd.Amount); err != nil {
		return nil, err
	}
	var record *domain.Transaction
	err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		accounts, err := lockAccounts(ctx, uc.accountRepo, tx, cmd.Sender, cmd.Receiver)
		if err != nil {
			return err
		}

		sender, ok := accounts[cmd.Sender]
		if !ok {
			return domain.ErrSenderNotFound
		}
		receiver, ok := accounts[cmd.Receiver]
		if !ok {
			return domain.ErrReceiverNotFound
		}
		if sender.Username == receiver.Username {
			return domain.ErrSameAccount
		}
		if !sender.Enabled {
			return domain.ErrAccountDisabled
		}
		if !receiver.Enabled {
			return domain.ErrReceiverDisabled
		}
		if err := sender.ValidateDebit(cmd.Amount); err != nil {
			return err
		}

		now := time.Now().UTC()
		if _, err := uc.accountRepo.AdjustBalance(ctx, tx, sender.Username, -cmd.Amount, now); err != nil {
			return err
		}
		if _, err := uc.accountRepo.AdjustBalance(ctx, tx, receiver.Username, cmd.Amount, now); err != nil {
			return err
		}

		record = &domain.Transaction{
			ID:               uc.idGen.Generate(),
			SenderUsername:   sender.Username,
			ReceiverUsername: receiver.Username,
			Amount:           cmd.Amount,
			Status:           true,
			SenderTags:       []string{},
			ReceiverTags:     []string{},
			CreatedAt:        now,
		}
		if err := uc.transactionRepo.Create(ctx, tx, record); err != nil {
			return err
		}

		return uc.outboxRepo.Create(ctx, tx, newEvent(uc.idGen,
			domain.AggregateTypeTransaction, record.ID, domain.EventTypeTransferCompleted,
			map[string]any{
				"transaction_id": record.ID,
				"sender":         record.SenderUsername,
				"receiver":       record.ReceiverUsername,
				"amount":         record.Amount,
				"notify":         record.ReceiverUsername,
			}, now))
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}

// GetTransaction returns a transaction visible to the actor.
func (uc *TransferUseCase) GetTransaction(ctx context.Context, actor domain.Identity, id string) (*domain.Transaction, error) {
	record, err := uc.transactionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !actor.IsAdmin() && !record.Involves(actor.Username) {
		return nil, domain.ErrNotTransactionParty
	}

	return record, nil
}

// ListTransactions returns a page of the account's transaction log, newest first.
func (uc *TransferUseCase) ListTransactions(ctx context.Context, input ListTransactionsInput) ([]*domain.Transaction, error) {
	username := input.Username
	if username == "" {
		username = input.Actor.Username
	}
	if !input.Actor.CanActFor(username) {
		return nil, domain.ErrForbidden
	}

	limit, offset := normalizePage(input.Limit, input.Offset)
	return uc.transactionRepo.ListByUsername(ctx, username, limit, offset)
}

// UpdateTags replaces the tag list that belongs to the actor's side of the
// transaction. The other party's tags are never touched.
func (uc *TransferUseCase) UpdateTags(ctx context.Context, cmd UpdateTagsCommand) (*domain.Transaction, error) {
	tags, err := domain.NormalizeTags(cmd.Tags)
	if err != nil {
		return nil, err
	}

	var record *domain.Transaction
	err = runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		found, err := uc.transactionRepo.GetByIDForUpdate(ctx, tx, cmd.TransactionID)
		if err != nil {
			return err
		}

		side, err := found.TagSideFor(cmd.Actor.Username)
		if err != nil {
			return err
		}

		if err := uc.transactionRepo.UpdateTags(ctx, tx, found.ID, side, tags); err != nil {
			return err
		}

		if side == domain.TagSideSender {
			found.SenderTags = tags
		} else {
			found.ReceiverTags = tags
		}
		record = found
		return nil
	})
	if err != nil {
		uc.metrics.ObserveError("update_tags", err)
		return nil, err
	}

	return record, nil
}
