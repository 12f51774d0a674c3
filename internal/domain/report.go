package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// ReportPreset names a calendar-to-date reporting range.
type ReportPreset string

const (
	PresetHour  ReportPreset = "hour"
	PresetDay   ReportPreset = "day"
	PresetWeek  ReportPreset = "week"
	PresetMonth ReportPreset = "month"
	PresetYear  ReportPreset = "year"
)

const (
	day = 24 * time.Hour

	// MaxReportSpan bounds explicit from/to ranges.
	MaxReportSpan = 366 * day
)

// ReportWindow is the half-open interval [From, To).
type ReportWindow struct {
	From time.Time
	To   time.Time
}

// NewReportWindow validates explicit bounds.
func NewReportWindow(from, to time.Time) (ReportWindow, error) {
	if !from.Before(to) || to.Sub(from) > MaxReportSpan {
		return ReportWindow{}, ErrInvalidReportRange
	}
	return ReportWindow{From: from, To: to}, nil
}

// PresetWindow resolves a preset relative to now in loc.
func PresetWindow(preset ReportPreset, now time.Time, loc *time.Location) (ReportWindow, error) {
	now = now.In(loc)
	y, m, d := now.Date()

	var from time.Time
	switch preset {
	case PresetHour:
		from = now.Add(-time.Hour)
	case PresetDay:
		from = time.Date(y, m, d, 0, 0, 0, 0, loc)
	case PresetWeek:
		from = now.AddDate(0, 0, -7)
	case PresetMonth:
		from = time.Date(y, m, 1, 0, 0, 0, 0, loc)
	case PresetYear:
		from = time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
	default:
		return ReportWindow{}, ErrInvalidPreset
	}

	return ReportWindow{From: from, To: now}, nil
}

// Span returns the window length.
func (w ReportWindow) Span() time.Duration {
	return w.To.Sub(w.From)
}

// Previous returns the equal-length window that ends where w starts.
func (w ReportWindow) Previous() ReportWindow {
	return ReportWindow{From: w.From.Add(-w.Span()), To: w.From}
}

// Contains reports whether t falls inside the window.
func (w ReportWindow) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.To)
}

// Granularity is the bucket size and label style of a report series.
type Granularity string

const (
	GranularityMonth     Granularity = "month"
	GranularityDate      Granularity = "date"
	GranularityWeekday   Granularity = "weekday"
	GranularityTimeOfDay Granularity = "time"
)

// GranularityFor picks the bucket granularity for a span.
func GranularityFor(span time.Duration) Granularity {
	switch {
	case span >= 28*day:
		return GranularityMonth
	case span >= 6*day:
		return GranularityDate
	case span >= day:
		return GranularityWeekday
	default:
		return GranularityTimeOfDay
	}
}

// Bucket is one point of a report series.
type Bucket struct {
	Label       string
	Start       time.Time
	End         time.Time
	Income      int64
	Expenditure int64
	Count       int
}

// ReportSummary holds the totals for one window.
type ReportSummary struct {
	Window           ReportWindow
	Income           int64
	Expenditure      int64
	TransactionCount int
	UniqueVisitors   int
}

// Report is the aggregated view of one account's transactions.
type Report struct {
	Username    string
	Summary     ReportSummary
	Granularity Granularity
	Series      []Bucket
	Previous    *ReportSummary
	// IncomeChange is the percent change against Previous. Nil when there is
	// no comparison or the previous income was zero.
	IncomeChange *decimal.Decimal
}

// Summarize folds txs into totals for username within w.
func Summarize(username string, w ReportWindow, txs []*Transaction) ReportSummary {
	summary := ReportSummary{Window: w}
	visitors := make(map[string]struct{})

	for _, tx := range txs {
		if !counts(tx, username, w) {
			continue
		}
		if tx.ReceiverUsername == username {
			summary.Income += tx.Amount
		}
		if tx.SenderUsername == username {
			summary.Expenditure += tx.Amount
		}
		summary.TransactionCount++
		visitors[tx.Counterparty(username)] = struct{}{}
	}

	summary.UniqueVisitors = len(visitors)
	return summary
}

// BuildReport folds txs into a report for username over w. It depends only on
// its arguments.
func BuildReport(username string, w ReportWindow, txs []*Transaction, loc *time.Location) *Report {
	granularity := GranularityFor(w.Span())
	series := buckets(w, granularity, loc)

	for _, tx := range txs {
		if !counts(tx, username, w) {
			continue
		}

		i := sort.Search(len(series), func(i int) bool { return series[i].End.After(tx.CreatedAt) })
		if i == len(series) {
			continue
		}

		b := &series[i]
		if tx.ReceiverUsername == username {
			b.Income += tx.Amount
		}
		if tx.SenderUsername == username {
			b.Expenditure += tx.Amount
		}
		b.Count++
	}

	return &Report{
		Username:    username,
		Summary:     Summarize(username, w, txs),
		Granularity: granularity,
		Series:      series,
	}
}

// Compare attaches the previous window's summary and the income change.
func (r *Report) Compare(previous ReportSummary) {
	r.Previous = &previous
	r.IncomeChange = percentChange(r.Summary.Income, previous.Income)
}

func counts(tx *Transaction, username string, w ReportWindow) bool {
	return tx.Status && tx.Involves(username) && w.Contains(tx.CreatedAt)
}

func percentChange(current, previous int64) *decimal.Decimal {
	if previous == 0 {
		return nil
	}

	change := decimal.NewFromInt(current - previous).
		Div(decimal.NewFromInt(previous)).
		Mul(decimal.NewFromInt(100)).
		Round(2)

	return &change
}

func buckets(w ReportWindow, g Granularity, loc *time.Location) []Bucket {
	from := w.From.In(loc)
	to := w.To.In(loc)

	start := bucketStart(from, g, w.Span())
	var series []Bucket
	for start.Before(to) {
		end := nextBucket(start, g, w.Span())
		series = append(series, Bucket{Label: bucketLabel(start, g), Start: start, End: end})
		start = end
	}

	return series
}

func bucketStart(t time.Time, g Granularity, span time.Duration) time.Time {
	y, m, d := t.Date()
	loc := t.Location()

	switch g {
	case GranularityMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc)
	case GranularityDate, GranularityWeekday:
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	default:
		if span <= time.Hour {
			return time.Date(y, m, d, t.Hour(), t.Minute()-t.Minute()%5, 0, 0, loc)
		}
		return time.Date(y, m, d, t.Hour(), 0, 0, 0, loc)
	}
}

func nextBucket(t time.Time, g Granularity, span time.Duration) time.Time {
	switch g {
	case GranularityMonth:
		return t.AddDate(0, 1, 0)
	case GranularityDate, GranularityWeekday:
		return t.AddDate(0, 0, 1)
	default:
		if span <= time.Hour {
			return t.Add(5 * time.Minute)
		}
		return t.Add(time.Hour)
	}
}

func bucketLabel(t time.Time, g Granularity) string {
	switch g {
	case GranularityMonth:
		return t.Format("Jan 2006")
	case GranularityDate:
		return t.Format("Jan 02")
	case GranularityWeekday:
		return t.Format("Mon")
	default:
		return t.Format("15:04")
	}
}
