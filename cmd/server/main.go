package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	httpAdapter "github.com/campuspay/wallet/internal/adapter/http"
	"github.com/campuspay/wallet/internal/adapter/http/handler"
	"github.com/campuspay/wallet/internal/adapter/http/middleware"
	postgresRepo "github.com/campuspay/wallet/internal/adapter/repository/postgres"
	redisRepo "github.com/campuspay/wallet/internal/adapter/repository/redis"
	"github.com/campuspay/wallet/internal/infrastructure/auth"
	"github.com/campuspay/wallet/internal/infrastructure/config"
	"github.com/campuspay/wallet/internal/infrastructure/logger"
	"github.com/campuspay/wallet/internal/infrastructure/metrics"
	"github.com/campuspay/wallet/internal/infrastructure/notification"
	"github.com/campuspay/wallet/internal/infrastructure/postgres"
	"github.com/campuspay/wallet/internal/infrastructure/redis"
	"github.com/campuspay/wallet/internal/infrastructure/validation"
	"github.com/campuspay/wallet/internal/usecase"
)

const (
	limiterCleanupInterval = time.Minute
	limiterMaxIdle         = 10 * time.Minute
	outboxCleanupInterval  = time.Hour
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "wallet",
	})

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}

	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// Apply schema before opening the pool
	if err := postgres.RunMigrations(cfg.DatabaseURL, log); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	// Connect to PostgreSQL
	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, redis.ClientConfig{
		URL:         cfg.RedisURL,
		PoolSize:    cfg.RedisPoolSize,
		DialTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	reportLoc, err := cfg.ReportLocation()
	if err != nil {
		return fmt.Errorf("report timezone: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Initialize repositories
	txManager := postgresRepo.NewTxManager(pool)
	retrier := postgresRepo.NewRetrier(log)
	accountRepo := postgresRepo.NewAccountRepository(pool)
	transactionRepo := postgresRepo.NewTransactionRepository(pool)
	requestRepo := postgresRepo.NewPaymentRequestRepository(pool)
	historyRepo := postgresRepo.NewWalletHistoryRepository(pool)
	ledgerRepo := postgresRepo.NewLedgerRepository(pool)
	outboxRepo := postgresRepo.NewOutboxRepository(pool)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)
	reportCache := redisRepo.NewCache(redisClient)
	idGen := postgresRepo.NewULIDGenerator()

	// Initialize use cases
	accountUC := usecase.NewAccountUseCase(txManager, retrier, accountRepo, outboxRepo, idGen, m, log)
	transferUC := usecase.NewTransferUseCase(txManager, retrier, accountRepo, transactionRepo, outboxRepo, idGen, m, log)
	requestUC := usecase.NewPaymentRequestUseCase(txManager, retrier, accountRepo, requestRepo, outboxRepo, idGen, m, log)
	walletUC := usecase.NewWalletUseCase(txManager, retrier, accountRepo, historyRepo, outboxRepo, idGen, m, log)
	reportUC := usecase.NewReportUseCase(accountRepo, transactionRepo, m,
		usecase.WithLocation(reportLoc),
		usecase.WithCache(reportCache, cfg.ReportCacheTTL),
	)
	ledgerUC := usecase.NewLedgerUseCase(ledgerRepo)

	// Notification delivery
	publisher, closePublisher, err := newPublisher(cfg, accountRepo, log)
	if err != nil {
		return fmt.Errorf("notification sink: %w", err)
	}
	defer func() {
		if err := closePublisher(); err != nil {
			log.Warn().Err(err).Msg("failed to close notification sink")
		}
	}()

	dispatcher, err := notification.NewDispatcher(notification.Config{
		OutboxRepo:  outboxRepo,
		Publisher:   publisher,
		Logger:      log,
		Metrics:     m,
		BatchSize:   cfg.OutboxBatchSize,
		Interval:    cfg.OutboxInterval,
		MaxAttempts: cfg.OutboxMaxAttempts,
		Workers:     cfg.OutboxWorkers,
	})
	if err != nil {
		return fmt.Errorf("dispatcher: %w", err)
	}
	defer func() {
		if err := dispatcher.Close(cfg.HTTPShutdownTimeout); err != nil {
			log.Warn().Err(err).Msg("dispatcher workers did not stop in time")
		}
	}()

	go func() {
		if err := dispatcher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("dispatcher stopped")
		}
	}()
	go pruneOutbox(ctx, outboxRepo, cfg.OutboxRetention, log)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, m)
	go cleanupLimiters(ctx, rateLimiter)

	// Initialize handlers
	v := validation.New()
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AccountHandler:        handler.NewAccountHandler(accountUC, v),
		TransferHandler:       handler.NewTransferHandler(transferUC, v),
		PaymentRequestHandler: handler.NewPaymentRequestHandler(requestUC, v),
		WalletHandler:         handler.NewWalletHandler(walletUC, v),
		ReportHandler:         handler.NewReportHandler(reportUC),
		LedgerHandler:         handler.NewLedgerHandler(ledgerUC),
		HealthHandler:         handler.NewHealthHandler(pool, redis.NewChecker(redisClient)),
		TokenVerifier:    auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration),
		IdempotencyStore: idempotencyStore,
		IdempotencyTTL:   cfg.IdempotencyTTL,
		RateLimiter:      rateLimiter,
		Logger:           log,
		Metrics:          m,
		Gatherer:         registry,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Str("sink", cfg.NotifySink).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	return nil
}

// newPublisher builds the sink named by NOTIFY_SINK. The returned close
// function is always safe to call.
func newPublisher(cfg *config.Config, accounts notification.AccountLookup, log zerolog.Logger) (usecase.EventPublisher, func() error, error) {
	noop := func() error { return nil }

	switch cfg.NotifySink {
	case config.SinkLog, "":
		return notification.NewLogPublisher(log), noop, nil
	case config.SinkKafka:
		p, err := notification.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			return nil, noop, err
		}
		return p, p.Close, nil
	case config.SinkEmail:
		client := &http.Client{Timeout: 10 * time.Second}
		return notification.NewEmailPublisher(cfg.MailRelayURL, cfg.MailFrom, accounts, client, log), noop, nil
	default:
		return nil, noop, fmt.Errorf("%w: %q", config.ErrUnknownSink, cfg.NotifySink)
	}
}

func cleanupLimiters(ctx context.Context, rl *middleware.RateLimiter) {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.CleanupLimiters(limiterMaxIdle)
		}
	}
}

func pruneOutbox(ctx context.Context, outbox usecase.OutboxRepository, retention time.Duration, log zerolog.Logger) {
	if retention <= 0 {
		return
	}

	ticker := time.NewTicker(outboxCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := outbox.DeletePublished(ctx, time.Now().Add(-retention))
			if err != nil {
				log.Warn().Err(err).Msg("failed to prune outbox")
				continue
			}
			if deleted > 0 {
				log.Debug().Int64("deleted", deleted).Msg("pruned published outbox events")
			}
		}
	}
}
