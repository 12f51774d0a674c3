package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/campuspay/wallet/internal/domain"
	"github.com/campuspay/wallet/internal/infrastructure/metrics"
)

// CreateAccountCommand provisions a new wallet.
type CreateAccountCommand struct {
	Actor    domain.Identity
	Username string
	Email    string
	Role     domain.Role
}

// SetEnabledCommand enables or disables an account.
type SetEnabledCommand struct {
	Actor    domain.Identity
	Username string
	Enabled  bool
}

// AccountUseCase handles account provisioning and lookups.
type AccountUseCase struct {
	txManager   TransactionManager
	retrier     Retrier
	accountRepo AccountRepository
	outboxRepo  OutboxRepository
	idGen       IDGenerator
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(
	txManager TransactionManager,
	retrier Retrier,
	accountRepo AccountRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	metrics *metrics.Metrics,
	logger zerolog.Logger,
) *AccountUseCase {
	return &AccountUseCase{
		txManager:   txManager,
		retrier:     retrier,
		accountRepo: accountRepo,
		outboxRepo:  outboxRepo,
		idGen:       idGen,
		metrics:     metrics,
		logger:      logger,
	}
}

// CreateAccount provisions an account with a zero balance. Only admins may
// provision.
func (uc *AccountUseCase) CreateAccount(ctx context.Context, cmd CreateAccountCommand) (*domain.Account, error) {
	if !cmd.Actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	if err := domain.ValidateUsername(cmd.Username); err != nil {
		return nil, err
	}
	if !cmd.Role.Valid() {
		return nil, domain.ErrInvalidRole
	}

	now := time.Now().UTC()
	account := &domain.Account{
		ID:        uc.idGen.Generate(),
		Username:  cmd.Username,
		Email:     cmd.Email,
		Role:      cmd.Role,
		Balance:   0,
		Enabled:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		if err := uc.accountRepo.Create(ctx, tx, account); err != nil {
			return err
		}
		return uc.outboxRepo.Create(ctx, tx, newEvent(uc.idGen,
			domain.AggregateTypeAccount, account.ID, domain.EventTypeAccountCreated,
			map[string]any{
				"account_id": account.ID,
				"username":   account.Username,
				"role":       string(account.Role),
				"notify":     account.Username,
			}, now))
	})
	if err != nil {
		uc.metrics.ObserveError("create_account", err)
		return nil, err
	}

	uc.metrics.ObserveAccountCreated()
	uc.logger.Info().Str("account_id", account.ID).Str("username", account.Username).Msg("account created")

	return account, nil
}

// GetAccount returns the named account if the actor may see it.
func (uc *AccountUseCase) GetAccount(ctx context.Context, actor domain.Identity, username string) (*domain.Account, error) {
	if !actor.CanActFor(username) {
		return nil, domain.ErrForbidden
	}
	return uc.accountRepo.GetByUsername(ctx, username)
}

// GetBalance returns the current balance of the named account.
func (uc *AccountUseCase) GetBalance(ctx context.Context, actor domain.Identity, username string) (int64, error) {
	account, err := uc.GetAccount(ctx, actor, username)
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

// SetEnabled enables or disables an account. An account may disable itself;
// admins may change any account.
func (uc *AccountUseCase) SetEnabled(ctx context.Context, cmd SetEnabledCommand) (*domain.Account, error) {
	if !cmd.Actor.CanActFor(cmd.Username) {
		return nil, domain.ErrForbidden
	}

	err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		now := time.Now().UTC()
		if err := uc.accountRepo.SetEnabled(ctx, tx, cmd.Username, cmd.Enabled, now); err != nil {
			return err
		}
		return uc.outboxRepo.Create(ctx, tx, newEvent(uc.idGen,
			domain.AggregateTypeAccount, cmd.Username, domain.EventTypeAccountEnabledChanged,
			map[string]any{
				"username": cmd.Username,
				"enabled":  cmd.Enabled,
				"by":       cmd.Actor.Username,
				"notify":   cmd.Username,
			}, now))
	})
	if err != nil {
		uc.metrics.ObserveError("set_enabled", err)
		return nil, err
	}

	uc.logger.Info().Str("username", cmd.Username).Bool("enabled", cmd.Enabled).Msg("account status changed")

	return uc.accountRepo.GetByUsername(ctx, cmd.Username)
}
