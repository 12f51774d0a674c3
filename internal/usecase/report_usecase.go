package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/campuspay/wallet/internal/domain"
	"github.com/campuspay/wallet/internal/infrastructure/metrics"
)

// ReportQuery selects the account and range of a report. Preset wins over
// From/To when both are given.
type ReportQuery struct {
	Actor    domain.Identity
	Username string
	Preset   domain.ReportPreset
	From     *time.Time
	To       *time.Time
	Compare  bool
}

// ReportUseCase derives reports from the transaction log on demand.
type ReportUseCase struct {
	accountRepo     AccountRepository
	transactionRepo TransactionRepository
	location        *time.Location
	now             func() time.Time
	metrics         *metrics.Metrics
	cache           Cache
	cacheTTL        time.Duration
}

// ReportOption configures a ReportUseCase.
type ReportOption func(*ReportUseCase)

// WithClock overrides the clock used to resolve presets.
func WithClock(now func() time.Time) ReportOption {
	return func(uc *ReportUseCase) { uc.now = now }
}

// WithLocation sets the time zone used for bucket boundaries and presets.
func WithLocation(loc *time.Location) ReportOption {
	return func(uc *ReportUseCase) { uc.location = loc }
}

// WithCache caches reports over windows that have already closed. Such
// windows can never gain rows because the log only appends at the current
// time.
func WithCache(cache Cache, ttl time.Duration) ReportOption {
	return func(uc *ReportUseCase) {
		uc.cache = cache
		uc.cacheTTL = ttl
	}
}

// NewReportUseCase creates a new ReportUseCase.
func NewReportUseCase(accountRepo AccountRepository, transactionRepo TransactionRepository, metrics *metrics.Metrics, opts ...ReportOption) *ReportUseCase {
	uc := &ReportUseCase{
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		location:        time.UTC,
		now:             time.Now,
		metrics:         metrics,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Generate builds the report. It reads the log without a serializable
// transaction and never writes.
func (uc *ReportUseCase) Generate(ctx context.Context, q ReportQuery) (*domain.Report, error) {
	start := time.Now()

	username := q.Username
	if username == "" {
		username = q.Actor.Username
	}
	if !q.Actor.CanActFor(username) {
		return nil, domain.ErrForbidden
	}

	window, err := uc.window(q)
	if err != nil {
		return nil, err
	}

	if _, err := uc.accountRepo.GetByUsername(ctx, username); err != nil {
		return nil, err
	}

	key, cacheable := uc.cacheKey(username, window, q.Compare)
	if cacheable {
		if report, ok := uc.cached(ctx, key); ok {
			return report, nil
		}
	}

	scan := window
	if q.Compare {
		scan.From = window.Previous().From
	}

	txs, err := uc.transactionRepo.ListByUsernameBetween(ctx, username, scan.From, scan.To)
	if err != nil {
		return nil, err
	}

	report := domain.BuildReport(username, window, txs, uc.location)
	if q.Compare {
		report.Compare(domain.Summarize(username, window.Previous(), txs))
	}

	if cacheable {
		uc.store(ctx, key, report)
	}

	uc.metrics.ObserveReport(time.Since(start))
	return report, nil
}

func (uc *ReportUseCase) cacheKey(username string, w domain.ReportWindow, compare bool) (string, bool) {
	if uc.cache == nil || w.To.After(uc.now()) {
		return "", false
	}
	return fmt.Sprintf("report:%s:%d:%d:%t", username, w.From.UnixNano(), w.To.UnixNano(), compare), true
}

// Cache failures fall through to reading the log.
func (uc *ReportUseCase) cached(ctx context.Context, key string) (*domain.Report, bool) {
	raw, ok, err := uc.cache.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}

	var report domain.Report
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return nil, false
	}
	return &report, true
}

func (uc *ReportUseCase) store(ctx context.Context, key string, report *domain.Report) {
	raw, err := json.Marshal(report)
	if err != nil {
		return
	}
	_ = uc.cache.Set(ctx, key, string(raw), uc.cacheTTL)
}

func (uc *ReportUseCase) window(q ReportQuery) (domain.ReportWindow, error) {
	if q.Preset != "" {
		return domain.PresetWindow(q.Preset, uc.now(), uc.location)
	}
	if q.From == nil || q.To == nil {
		return domain.ReportWindow{}, domain.ErrInvalidReportRange
	}
	return domain.NewReportWindow(*q.From, *q.To)
}
