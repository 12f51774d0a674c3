package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/campuspay/wallet/internal/domain"
	"github.com/campuspay/wallet/internal/infrastructure/metrics"
)

// CreatePaymentRequestCommand asks Requestee to pay Amount to Requester.
type CreatePaymentRequestCommand struct {
	Requester string
	Requestee string
	Amount    int64
}

// RespondPaymentRequestCommand is the requestee's accept or reject.
type RespondPaymentRequestCommand struct {
	RequestID string
	Actor     string
	Decision  domain.Decision
}

// CancelPaymentRequestCommand withdraws a pending request.
type CancelPaymentRequestCommand struct {
	RequestID string
	Actor     string
}

// ListPaymentRequestsInput selects payment requests involving the actor.
type ListPaymentRequestsInput struct {
	Actor     domain.Identity
	Direction domain.RequestDirection
	Status    domain.PaymentRequestStatus
	Limit     int
	Offset    int
}

// PaymentRequestUseCase runs the payment request lifecycle.
type PaymentRequestUseCase struct {
	txManager   TransactionManager
	retrier     Retrier
	accountRepo AccountRepository
	requestRepo PaymentRequestRepository
	outboxRepo  OutboxRepository
	idGen       IDGenerator
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

// NewPaymentRequestUseCase creates a new PaymentRequestUseCase.
func NewPaymentRequestUseCase(
	txManager TransactionManager,
	retrier Retrier,
	accountRepo AccountRepository,
	requestRepo PaymentRequestRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	metrics *metrics.Metrics,
	logger zerolog.Logger,
) *PaymentRequestUseCase {
	return &PaymentRequestUseCase{
		txManager:   txManager,
		retrier:     retrier,
		accountRepo: accountRepo,
		requestRepo: requestRepo,
		outboxRepo:  outboxRepo,
		idGen:       idGen,
		metrics:     metrics,
		logger:      logger,
	}
}

// Create opens a PENDING request. Nothing moves until the requestee accepts.
func (uc *PaymentRequestUseCase) Create(ctx context.Context, cmd CreatePaymentRequestCommand) (*domain.PaymentRequest, error) {
	req, err := uc.create(ctx, cmd)
	if err != nil {
		uc.metrics.ObserveError("create_request", err)
		return nil, err
	}

	uc.metrics.ObserveTransition(domain.PaymentRequestPending)
	uc.logger.Info().
		Str("request_id", req.ID).
		Str("requester", req.RequesterUsername).
		Str("requestee", req.RequesteeUsername).
		Int64("amount", req.Amount).
		Msg("payment request created")

	return req, nil
}

func (uc *PaymentRequestUseCase) create(ctx context.Context, cmd CreatePaymentRequestCommand) (*domain.PaymentRequest, error) {
	if err := domain.ValidateAmount(cmd.Amount); err != nil {
		return nil, err
	}
	if cmd.Requester == cmd.Requestee {
		return nil, domain.ErrSelfRequest
	}

	now := time.Now().UTC()
	req := &domain.PaymentRequest{
		ID:                uc.idGen.Generate(),
		RequesterUsername: cmd.Requester,
		RequesteeUsername: cmd.Requestee,
		Amount:            cmd.Amount,
		Status:            domain.PaymentRequestPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		accounts, err := lockAccounts(ctx, uc.accountRepo, tx, cmd.Requester, cmd.Requestee)
		if err != nil {
			return err
		}

		requester, ok := accounts[cmd.Requester]
		if !ok {
			return domain.ErrAccountNotFound
		}
		requestee, ok := accounts[cmd.Requestee]
		if !ok {
			return domain.ErrRequesteeNotFound
		}
		if !requester.Enabled {
			return domain.ErrAccountDisabled
		}
		if !requestee.Enabled {
			return domain.ErrRequesteeDisabled
		}

		if err := uc.requestRepo.Create(ctx, tx, req); err != nil {
			return err
		}
		return uc.outboxRepo.Create(ctx, tx, uc.event(req, domain.EventTypePaymentRequestCreated, req.RequesteeUsername, now))
	})
	if err != nil {
		return nil, err
	}

	return req, nil
}

// Respond applies the requestee's decision. Concurrent responses serialize
// on the request row lock and exactly one of them wins.
func (uc *PaymentRequestUseCase) Respond(ctx context.Context, cmd RespondPaymentRequestCommand) (*domain.PaymentRequest, error) {
	req, err := uc.respond(ctx, cmd)
	if err != nil {
		uc.metrics.ObserveError("respond_request", err)
		return nil, err
	}

	uc.metrics.ObserveTransition(req.Status)
	uc.logger.Info().
		Str("request_id", req.ID).
		Str("status", string(req.Status)).
		Msg("payment request resolved")

	return req, nil
}

func (uc *PaymentRequestUseCase) respond(ctx context.Context, cmd RespondPaymentRequestCommand) (*domain.PaymentRequest, error) {
	if !cmd.Decision.Valid() {
		return nil, domain.ErrInvalidDecision
	}

	var result *domain.PaymentRequest
	err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		req, err := uc.requestRepo.GetByIDForUpdate(ctx, tx, cmd.RequestID)
		if err != nil {
			return err
		}
		if cmd.Actor != req.RequesteeUsername {
			return domain.ErrNotRequestee
		}
		if err := req.EnsurePending(); err != nil {
			return err
		}

		now := time.Now().UTC()
		if cmd.Decision == domain.DecisionAccept {
			if err := uc.settle(ctx, tx, req, now); err != nil {
				return err
			}
			req.Status = domain.PaymentRequestCompleted
		} else {
			req.Status = domain.PaymentRequestRejected
		}

		if err := uc.requestRepo.UpdateStatus(ctx, tx, req.ID, req.Status, now); err != nil {
			return err
		}
		req.UpdatedAt = now

		eventType := domain.EventTypePaymentRequestRejected
		if req.Status == domain.PaymentRequestCompleted {
			eventType = domain.EventTypePaymentRequestAccepted
		}
		if err := uc.outboxRepo.Create(ctx, tx, uc.event(req, eventType, req.RequesterUsername, now)); err != nil {
			return err
		}

		result = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// settle moves the money for an accepted request. The payer's balance must
// be strictly greater than the amount; a failure leaves the request pending.
func (uc *PaymentRequestUseCase) settle(ctx context.Context, tx Transaction, req *domain.PaymentRequest, now time.Time) error {
	accounts, err := lockAccounts(ctx, uc.accountRepo, tx, req.RequesterUsername, req.RequesteeUsername)
	if err != nil {
		return err
	}

	payer, ok := accounts[req.RequesteeUsername]
	if !ok {
		return domain.ErrRequesteeNotFound
	}
	payee, ok := accounts[req.RequesterUsername]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if !payer.Enabled {
		return domain.ErrAccountDisabled
	}
	if !payee.Enabled {
		return domain.ErrReceiverDisabled
	}

	if !payer.CoversStrictly(req.Amount) {
		return domain.ErrInsufficientBalance
	}

	if _, err := uc.accountRepo.AdjustBalance(ctx, tx, payee.Username, req.Amount, now); err != nil {
		return err
	}
	if _, err := uc.accountRepo.AdjustBalance(ctx, tx, payer.Username, -req.Amount, now); err != nil {
		return err
	}

	return nil
}

// Cancel withdraws a pending request on behalf of its requester.
func (uc *PaymentRequestUseCase) Cancel(ctx context.Context, cmd CancelPaymentRequestCommand) (*domain.PaymentRequest, error) {
	var result *domain.PaymentRequest
	err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		req, err := uc.requestRepo.GetByIDForUpdate(ctx, tx, cmd.RequestID)
		if err != nil {
			return err
		}
		if cmd.Actor != req.RequesterUsername {
			return domain.ErrNotRequester
		}
		if err := req.EnsurePending(); err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := uc.requestRepo.UpdateStatus(ctx, tx, req.ID, domain.PaymentRequestCancelled, now); err != nil {
			return err
		}
		req.Status = domain.PaymentRequestCancelled
		req.UpdatedAt = now

		if err := uc.outboxRepo.Create(ctx, tx, uc.event(req, domain.EventTypePaymentRequestCancelled, req.RequesteeUsername, now)); err != nil {
			return err
		}

		result = req
		return nil
	})
	if err != nil {
		uc.metrics.ObserveError("cancel_request", err)
		return nil, err
	}

	uc.metrics.ObserveTransition(result.Status)
	uc.logger.Info().Str("request_id", result.ID).Msg("payment request cancelled")

	return result, nil
}

// Get returns a request visible to the actor.
func (uc *PaymentRequestUseCase) Get(ctx context.Context, actor domain.Identity, id string) (*domain.PaymentRequest, error) {
	req, err := uc.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !req.Visible(actor) {
		return nil, domain.ErrForbidden
	}
	return req, nil
}

// List returns requests involving the actor, newest first. Terminal requests
// stay listed indefinitely.
func (uc *PaymentRequestUseCase) List(ctx context.Context, input ListPaymentRequestsInput) ([]*domain.PaymentRequest, error) {
	direction := input.Direction
	switch direction {
	case "":
		direction = domain.DirectionAll
	case domain.DirectionIncoming, domain.DirectionOutgoing, domain.DirectionAll:
	default:
		return nil, domain.NewError(domain.KindBadRequest, "direction must be incoming, outgoing or all")
	}

	if input.Status != "" && !input.Status.Valid() {
		return nil, domain.NewError(domain.KindBadRequest, "unknown payment request status")
	}

	limit, offset := normalizePage(input.Limit, input.Offset)
	return uc.requestRepo.List(ctx, domain.PaymentRequestFilter{
		Username:  input.Actor.Username,
		Direction: direction,
		Status:    input.Status,
		Limit:     limit,
		Offset:    offset,
	})
}

func (uc *PaymentRequestUseCase) event(req *domain.PaymentRequest, eventType, notify string, at time.Time) *domain.OutboxEvent {
	return newEvent(uc.idGen, domain.AggregateTypePaymentRequest, req.ID, eventType, map[string]any{
		"request_id": req.ID,
		"requester":  req.RequesterUsername,
		"requestee":  req.RequesteeUsername,
		"amount":     req.Amount,
		"status":     string(req.Status),
		"notify":     notify,
	}, at)
}
