package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/campuspay/wallet/internal/adapter/http/handler"
	"github.com/campuspay/wallet/internal/adapter/http/middleware"
	"github.com/campuspay/wallet/internal/domain"
	"github.com/campuspay/wallet/internal/infrastructure/metrics"
	"github.com/campuspay/wallet/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AccountHandler        *handler.AccountHandler
	TransferHandler       *handler.TransferHandler
	PaymentRequestHandler *handler.PaymentRequestHandler
	WalletHandler         *handler.WalletHandler
	ReportHandler         *handler.ReportHandler
	LedgerHandler         *handler.LedgerHandler
	HealthHandler         *handler.HealthHandler

	TokenVerifier    middleware.TokenVerifier
	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	RateLimiter      *middleware.RateLimiter

	Logger   zerolog.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery)
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	admin := middleware.RequireRole(domain.RoleAdmin)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(cfg.TokenVerifier))

		// Idempotency runs after auth so keys are scoped to the caller.
		if cfg.IdempotencyStore != nil {
			r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL).Wrap)
		}

		r.Route("/accounts", func(r chi.Router) {
			r.With(admin).Post("/", cfg.AccountHandler.Create)
			r.Get("/me", cfg.AccountHandler.Me)
			r.Get("/{username}", cfg.AccountHandler.Get)
			r.Get("/{username}/balance", cfg.AccountHandler.Balance)
			r.Patch("/{username}/enabled", cfg.AccountHandler.SetEnabled)
		})

		r.Post("/transfers", cfg.TransferHandler.Create)
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", cfg.TransferHandler.List)
			r.Get("/{id}", cfg.TransferHandler.Get)
			r.Patch("/{id}/tags", cfg.TransferHandler.UpdateTags)
		})

		r.Route("/payment-requests", func(r chi.Router) {
			r.Post("/", cfg.PaymentRequestHandler.Create)
			r.Get("/", cfg.PaymentRequestHandler.List)
			r.Get("/{id}", cfg.PaymentRequestHandler.Get)
			r.Post("/{id}/respond", cfg.PaymentRequestHandler.Respond)
			r.Post("/{id}/cancel", cfg.PaymentRequestHandler.Cancel)
		})

		r.Route("/wallet", func(r chi.Router) {
			r.With(admin).Post("/adjust", cfg.WalletHandler.Adjust)
			r.Get("/history", cfg.WalletHandler.History)
		})

		r.Get("/reports", cfg.ReportHandler.Generate)
		r.With(admin).Get("/ledger/consistency", cfg.LedgerHandler.CheckConsistency)
	})

	return r
}
