package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuspay/wallet/internal/domain"
	"github.com/campuspay/wallet/internal/usecase"
	"github.com/campuspay/wallet/internal/usecase/mocks"
)

func seedReportLog(f *fixture) {
	f.store.SeedAccount("alice", domain.RoleStudent, 0)
	f.store.SeedAccount("bob", domain.RoleVendor, 0)
	f.store.SeedAccount("carol", domain.RoleStudent, 0)

	rows := []struct {
		id, sender, receiver string
		amount               int64
		at                   string
	}{
		{"t1", "alice", "bob", 40, "2026-03-08T09:00:00Z"},
		{"t2", "alice", "bob", 30, "2026-03-12T10:00:00Z"},
		{"t3", "carol", "bob", 20, "2026-03-16T12:15:00Z"},
		{"t4", "bob", "alice", 10, "2026-03-17T18:45:00Z"},
		{"t5", "carol", "alice", 99, "2026-03-13T08:00:00Z"},
		{"t6", "alice", "bob", 500, "2026-02-01T08:00:00Z"},
	}
	for _, r := range rows {
		at, _ := time.Parse(time.RFC3339, r.at)
		f.store.SeedTransaction(&domain.Transaction{
			ID:               r.id,
			SenderUsername:   r.sender,
			ReceiverUsername: r.receiver,
			Amount:           r.amount,
			Status:           true,
			CreatedAt:        at,
		})
	}
}

func TestGenerateReport_WeekPreset(t *testing.T) {
	f := newFixture(t, nil)
	seedReportLog(f)

	report, err := f.reports.Generate(context.Background(), usecase.ReportQuery{
		Actor:  student("bob"),
		Preset: domain.PresetWeek,
	})
	require.NoError(t, err)

	assert.Equal(t, "bob", report.Username)
	assert.Equal(t, int64(50), report.Summary.Income)
	assert.Equal(t, int64(10), report.Summary.Expenditure)
	assert.Equal(t, 3, report.Summary.TransactionCount)
	assert.Equal(t, 2, report.Summary.UniqueVisitors)
	assert.Equal(t, domain.GranularityDate, report.Granularity)

	require.Len(t, report.Series, 8)
	assert.Equal(t, "Mar 11", report.Series[0].Label)
	assert.Equal(t, "Mar 18", report.Series[7].Label)
	assert.Equal(t, int64(30), report.Series[1].Income)
	assert.Equal(t, int64(10), report.Series[6].Expenditure)

	assert.Nil(t, report.Previous)
	assert.Nil(t, report.IncomeChange)
}

func TestGenerateReport_Compare(t *testing.T) {
	f := newFixture(t, nil)
	seedReportLog(f)

	report, err := f.reports.Generate(context.Background(), usecase.ReportQuery{
		Actor:   student("bob"),
		Preset:  domain.PresetWeek,
		Compare: true,
	})
	require.NoError(t, err)

	require.NotNil(t, report.Previous)
	assert.Equal(t, int64(40), report.Previous.Income)
	assert.Equal(t, 1, report.Previous.TransactionCount)
	require.NotNil(t, report.IncomeChange)
	assert.Equal(t, "25", report.IncomeChange.String())

	// The current window is unaffected by the wider scan.
	assert.Equal(t, int64(50), report.Summary.Income)
}

func TestGenerateReport_ExplicitRange(t *testing.T) {
	f := newFixture(t, nil)
	seedReportLog(f)

	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

	report, err := f.reports.Generate(context.Background(), usecase.ReportQuery{
		Actor:    admin(),
		Username: "bob",
		From:     &from,
		To:       &to,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.GranularityMonth, report.Granularity)
	require.Len(t, report.Series, 2)
	assert.Equal(t, int64(500), report.Series[0].Income)
	assert.Equal(t, int64(90), report.Series[1].Income)
}

func TestGenerateReport_IsRepeatable(t *testing.T) {
	f := newFixture(t, nil)
	seedReportLog(f)

	q := usecase.ReportQuery{Actor: student("alice"), Preset: domain.PresetMonth, Compare: true}
	first, err := f.reports.Generate(context.Background(), q)
	require.NoError(t, err)
	second, err := f.reports.Generate(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, f.store.TransactionLog(), 6)
}

func TestGenerateReport_Errors(t *testing.T) {
	f := newFixture(t, nil)
	seedReportLog(f)

	from := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	to := from.Add(-time.Hour)

	tests := []struct {
		name    string
		query   usecase.ReportQuery
		wantErr error
	}{
		{"other account", usecase.ReportQuery{Actor: student("carol"), Username: "bob", Preset: domain.PresetDay}, domain.ErrForbidden},
		{"unknown preset", usecase.ReportQuery{Actor: student("bob"), Preset: "decade"}, domain.ErrInvalidPreset},
		{"missing range", usecase.ReportQuery{Actor: student("bob")}, domain.ErrInvalidReportRange},
		{"inverted range", usecase.ReportQuery{Actor: student("bob"), From: &from, To: &to}, domain.ErrInvalidReportRange},
		{"unknown account", usecase.ReportQuery{Actor: admin(), Username: "ghost", Preset: domain.PresetDay}, domain.ErrAccountNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.reports.Generate(context.Background(), tt.query)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGenerateReport_CachesClosedWindows(t *testing.T) {
	f := newFixture(t, nil)
	seedReportLog(f)

	cache := mocks.NewMemoryCache()
	reports := usecase.NewReportUseCase(f.store.Accounts(), f.store.Transactions(), nil,
		usecase.WithClock(func() time.Time { return time.Date(2026, 3, 18, 14, 30, 0, 0, time.UTC) }),
		usecase.WithCache(cache, time.Minute))

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	q := usecase.ReportQuery{Actor: student("bob"), From: &from, To: &to}

	first, err := reports.Generate(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Sets)

	second, err := reports.Generate(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Hits)
	assert.Equal(t, first.Summary.Income, second.Summary.Income)
	assert.Len(t, second.Series, len(first.Series))
	assert.Equal(t, first.Series[11].Label, second.Series[11].Label)

	// Open windows are always read from the log.
	_, err = reports.Generate(context.Background(), usecase.ReportQuery{Actor: student("bob"), Preset: domain.PresetWeek})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Sets)
}
