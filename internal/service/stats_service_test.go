package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"dira-go/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStatsRepo struct {
	total    int64
	groups   map[string][]repository.GroupCount
	resolved []repository.ReportTimes
	activity []repository.ReportTimes
	since    time.Time
	err      error
}

func (f *fakeStatsRepo) Count(ctx context.Context) (int64, error) { return f.total, f.err }

func (f *fakeStatsRepo) CountBy(ctx context.Context, column string) ([]repository.GroupCount, error) {
	return f.groups[column], f.err
}

func (f *fakeStatsRepo) ResolutionTimes(ctx context.Context) ([]repository.ReportTimes, error) {
	return f.resolved, f.err
}

func (f *fakeStatsRepo) ActivitySince(ctx context.Context, since time.Time) ([]repository.ReportTimes, error) {
	f.since = since
	return f.activity, f.err
}

func timePtr(t time.Time) *time.Time { return &t }

func TestAnalyticsAggregates(t *testing.T) {
	day := func(m time.Month, d int) time.Time { return time.Date(2026, m, d, 9, 0, 0, 0, time.UTC) }
	repo := &fakeStatsRepo{
		total: 5,
		groups: map[string][]repository.GroupCount{
			"status":   {{Key: strPtr("routed"), Count: 3}, {Key: strPtr("resolved"), Count: 2}},
			"category": {{Key: strPtr("utility"), Count: 4}, {Key: nil, Count: 1}},
			"urgency":  {{Key: strPtr("high"), Count: 2}, {Key: strPtr(""), Count: 3}},
		},
		resolved: []repository.ReportTimes{
			{SubmittedAt: day(9, 1), ResolvedAt: timePtr(day(9, 3))},
			{SubmittedAt: day(9, 10), ResolvedAt: timePtr(day(9, 11))},
		},
		activity: []repository.ReportTimes{
			{SubmittedAt: day(8, 5)},
			{SubmittedAt: day(9, 1), ResolvedAt: timePtr(day(9, 3))},
			{SubmittedAt: day(9, 10), ResolvedAt: timePtr(day(10, 2))},
			{SubmittedAt: day(10, 12)},
			// Submitted before the window, resolved inside it.
			{SubmittedAt: day(7, 30), ResolvedAt: timePtr(day(8, 1))},
		},
	}
	svc := &statsService{repo: repo, now: func() time.Time { return day(10, 18) }}

	got, err := svc.Analytics(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, int64(5), got.TotalReports)
	assert.Equal(t, int64(2), got.ResolvedReports)
	assert.Equal(t, 1.5, got.AvgResolutionTime)
	assert.Equal(t, map[string]int64{"utility": 4, "unclassified": 1}, got.ReportsByCategory)
	assert.Equal(t, map[string]int64{"high": 2, "unassessed": 3}, got.ReportsByUrgency)
	assert.Equal(t, map[string]int64{"routed": 3, "resolved": 2}, got.ReportsByStatus)

	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), repo.since)
	assert.Equal(t, []MonthlyCount{
		{Month: "2026-08", Reports: 1, Resolved: 1},
		{Month: "2026-09", Reports: 2, Resolved: 1},
		{Month: "2026-10", Reports: 1, Resolved: 1},
	}, got.MonthlyTrend)
}

func TestAnalyticsEmpty(t *testing.T) {
	svc := &statsService{repo: &fakeStatsRepo{}, now: time.Now}
	got, err := svc.Analytics(context.Background(), 1)
	require.NoError(t, err)
	assert.Zero(t, got.TotalReports)
	assert.Zero(t, got.AvgResolutionTime)
	assert.NotNil(t, got.ReportsByCategory)
	require.Len(t, got.MonthlyTrend, 1)
	assert.Zero(t, got.MonthlyTrend[0].Reports)
}

func TestAnalyticsValidatesWindowAndPropagatesErrors(t *testing.T) {
	svc := NewStatsService(&fakeStatsRepo{})
	for _, months := range []int{0, -1, MaxTrendMonths + 1} {
		_, err := svc.Analytics(context.Background(), months)
		assert.ErrorIs(t, err, ErrInvalidInput, "months=%d", months)
	}

	boom := errors.New("db down")
	_, err := NewStatsService(&fakeStatsRepo{err: boom}).Analytics(context.Background(), 6)
	assert.ErrorIs(t, err, boom)
}
