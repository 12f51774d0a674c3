package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/campuspay/wallet/internal/domain"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Ledger metrics
	TransfersCompleted        prometheus.Counter
	TransferAmount            prometheus.Histogram
	TransferDuration          prometheus.Histogram
	LedgerErrors              *prometheus.CounterVec
	PaymentRequestTransitions *prometheus.CounterVec
	WalletAdjustments         *prometheus.CounterVec
	AccountsCreated           prometheus.Counter

	// Reporting metrics
	ReportDuration prometheus.Histogram

	// Outbox metrics
	OutboxPublished prometheus.Counter
	OutboxFailed    prometheus.Counter
	OutboxRetries   prometheus.Counter

	// API metrics
	HTTPRequests  *prometheus.CounterVec
	HTTPDuration  *prometheus.HistogramVec
	HTTPInFlight  prometheus.Gauge
	RateLimitHits prometheus.Counter
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		TransfersCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "wallet_transfers_completed_total",
			Help: "Total number of direct transfers committed",
		}),
		TransferAmount: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "wallet_transfer_amount",
			Help:    "Transfer amounts in minor units",
			Buckets: []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 1000000},
		}),
		TransferDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "wallet_transfer_duration_seconds",
			Help:    "Duration of transfer operations",
			Buckets: prometheus.DefBuckets,
		}),
		LedgerErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_ledger_errors_total",
				Help: "Failed ledger operations by operation and error kind",
			},
			[]string{"operation", "kind"},
		),
		PaymentRequestTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_payment_request_transitions_total",
				Help: "Payment request transitions by resulting status",
			},
			[]string{"status"},
		),
		WalletAdjustments: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_adjustments_total",
				Help: "Wallet deposits and withdrawals",
			},
			[]string{"type"},
		),
		AccountsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "wallet_accounts_created_total",
			Help: "Total number of accounts provisioned",
		}),
		ReportDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "wallet_report_duration_seconds",
			Help:    "Duration of report generation",
			Buckets: prometheus.DefBuckets,
		}),
		OutboxPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "wallet_outbox_published_total",
			Help: "Outbox events delivered to the notification sink",
		}),
		OutboxFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "wallet_outbox_failed_total",
			Help: "Outbox events abandoned after exhausting delivery attempts",
		}),
		OutboxRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "wallet_outbox_retries_total",
			Help: "Failed outbox delivery attempts that will be retried",
		}),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wallet_http_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "wallet_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		}),
		RateLimitHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "wallet_rate_limit_hits_total",
			Help: "Requests rejected by the rate limiter",
		}),
	}
}

// The helpers below accept a nil receiver so that use cases can run without
// metrics in tests.

// ObserveTransfer records a committed transfer.
func (m *Metrics) ObserveTransfer(amount int64, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.TransfersCompleted.Inc()
	m.TransferAmount.Observe(float64(amount))
	m.TransferDuration.Observe(elapsed.Seconds())
}

// ObserveError records a failed ledger operation.
func (m *Metrics) ObserveError(operation string, err error) {
	if m == nil || err == nil {
		return
	}
	m.LedgerErrors.WithLabelValues(operation, domain.KindOf(err).String()).Inc()
}

// ObserveTransition records a payment request reaching status.
func (m *Metrics) ObserveTransition(status domain.PaymentRequestStatus) {
	if m == nil {
		return
	}
	m.PaymentRequestTransitions.WithLabelValues(string(status)).Inc()
}

// ObserveAdjustment records a wallet deposit or withdrawal.
func (m *Metrics) ObserveAdjustment(kind domain.WalletEntryType) {
	if m == nil {
		return
	}
	m.WalletAdjustments.WithLabelValues(string(kind)).Inc()
}

// ObserveAccountCreated records a provisioned account.
func (m *Metrics) ObserveAccountCreated() {
	if m == nil {
		return
	}
	m.AccountsCreated.Inc()
}

// ObserveReport records how long a report took to build.
func (m *Metrics) ObserveReport(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ReportDuration.Observe(elapsed.Seconds())
}
