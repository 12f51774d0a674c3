package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"

	"github.com/campuspay/wallet/internal/domain"
	"github.com/campuspay/wallet/internal/infrastructure/metrics"
	"github.com/campuspay/wallet/internal/usecase"
)

// Dispatcher drains the outbox and hands each event to the configured sink.
// It never takes part in a ledger transaction: a slow or failing sink delays
// notifications, not payments.
type Dispatcher struct {
	outboxRepo  usecase.OutboxRepository
	publisher   usecase.EventPublisher
	pool        *ants.Pool
	logger      zerolog.Logger
	metrics     *metrics.Metrics
	batchSize   int
	maxAttempts int
	interval    time.Duration
	now         func() time.Time
}

// Config for Dispatcher.
type Config struct {
	OutboxRepo  usecase.OutboxRepository
	Publisher   usecase.EventPublisher
	Logger      zerolog.Logger
	Metrics     *metrics.Metrics
	BatchSize   int           // Number of events to fetch per batch
	Interval    time.Duration // Polling interval
	MaxAttempts int           // Deliveries tried before an event is abandoned
	Workers     int           // Concurrent deliveries
}

// NewDispatcher creates a Dispatcher with a bounded delivery pool.
func NewDispatcher(cfg Config) (*Dispatcher, error) {
	if cfg.OutboxRepo == nil || cfg.Publisher == nil {
		return nil, errors.New("notification: outbox repository and publisher are required")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}

	pool, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return nil, err
	}

	return &Dispatcher{
		outboxRepo:  cfg.OutboxRepo,
		publisher:   cfg.Publisher,
		pool:        pool,
		logger:      cfg.Logger.With().Str("component", "outbox_dispatcher").Logger(),
		metrics:     cfg.Metrics,
		batchSize:   cfg.BatchSize,
		maxAttempts: cfg.MaxAttempts,
		interval:    cfg.Interval,
		now:         time.Now,
	}, nil
}

// Start polls the outbox until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.logger.Info().
		Int("batch_size", d.batchSize).
		Int("workers", d.pool.Cap()).
		Dur("interval", d.interval).
		Msg("outbox dispatcher started")

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	if err := d.processEvents(ctx); err != nil {
		d.logger.Error().Err(err).Msg("error processing events on start")
	}

	for {
		select {
		case <-ctx.Done():
			d.logger.Info().Msg("outbox dispatcher shutting down")
			return ctx.Err()
		case <-ticker.C:
			if err := d.processEvents(ctx); err != nil {
				d.logger.Error().Err(err).Msg("error processing events")
			}
		}
	}
}

// Close waits for in-flight deliveries and releases the pool.
func (d *Dispatcher) Close(timeout time.Duration) error {
	return d.pool.ReleaseTimeout(timeout)
}

// processEvents delivers one batch and waits for every delivery in it, so a
// later batch never re-reads an event that is still being sent.
func (d *Dispatcher) processEvents(ctx context.Context) error {
	events, err := d.outboxRepo.GetUnpublished(ctx, d.batchSize)
	if err != nil {
		return err
	}

	if len(events) == 0 {
		return nil
	}

	d.logger.Debug().Int("count", len(events)).Msg("processing events")

	var wg sync.WaitGroup
	for _, event := range events {
		wg.Add(1)

		err := d.pool.Submit(func() {
			defer wg.Done()
			d.deliver(ctx, event)
		})
		if err != nil {
			wg.Done()
			d.logger.Error().Err(err).Str("event_id", event.ID).Msg("failed to schedule delivery")
		}
	}
	wg.Wait()

	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, event *domain.OutboxEvent) {
	log := d.logger.With().
		Str("event_id", event.ID).
		Str("event_type", event.EventType).
		Logger()

	if err := d.publisher.Publish(ctx, event); err != nil {
		d.recordFailure(ctx, log, event, err)
		return
	}

	if err := d.outboxRepo.MarkPublished(ctx, event.ID, d.now()); err != nil {
		log.Error().Err(err).Msg("failed to mark event as published")
		return
	}

	if d.metrics != nil {
		d.metrics.OutboxPublished.Inc()
	}
	log.Debug().Msg("event published")
}

func (d *Dispatcher) recordFailure(ctx context.Context, log zerolog.Logger, event *domain.OutboxEvent, cause error) {
	attempts, err := d.outboxRepo.IncrementAttempts(ctx, event.ID)
	if err != nil {
		log.Error().Err(err).AnErr("cause", cause).Msg("failed to record delivery attempt")
		return
	}

	if attempts < d.maxAttempts {
		if d.metrics != nil {
			d.metrics.OutboxRetries.Inc()
		}
		log.Warn().Err(cause).Int("attempts", attempts).Msg("delivery failed, will retry")
		return
	}

	if err := d.outboxRepo.MarkFailed(ctx, event.ID, d.now()); err != nil {
		log.Error().Err(err).Msg("failed to mark event as failed")
		return
	}

	if d.metrics != nil {
		d.metrics.OutboxFailed.Inc()
	}
	log.Error().Err(cause).Int("attempts", attempts).Msg("delivery abandoned")
}
