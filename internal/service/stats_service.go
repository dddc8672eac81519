package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"dira-go/internal/model"
	"dira-go/internal/repository"
)

// Trend window bounds, in months.
const (
	DefaultTrendMonths = 6
	MaxTrendMonths     = 24
)

// Labels for reports that have not been classified or assessed yet.
const (
	unclassified = "unclassified"
	unassessed   = "unassessed"
)

// Analytics summarises the report backlog.
type Analytics struct {
	TotalReports    int64 `json:"totalReports"`
	ResolvedReports int64 `json:"resolvedReports"`
	// AvgResolutionTime is the mean time from submission to resolution in days, one decimal.
	AvgResolutionTime float64          `json:"avgResolutionTime"`
	ReportsByCategory map[string]int64 `json:"reportsByCategory"`
	ReportsByUrgency  map[string]int64 `json:"reportsByUrgency"`
	ReportsByStatus   map[string]int64 `json:"reportsByStatus"`
	MonthlyTrend      []MonthlyCount   `json:"monthlyTrend"`
}

// MonthlyCount is the number of reports submitted and resolved in one calendar month (UTC).
type MonthlyCount struct {
	Month    string `json:"month"`
	Reports  int64  `json:"reports"`
	Resolved int64  `json:"resolved"`
}

// StatsService computes dashboard analytics.
type StatsService interface {
	// Analytics returns the totals, breakdowns and a trend over the last months calendar months.
	Analytics(ctx context.Context, months int) (*Analytics, error)
}

type statsService struct {
	repo repository.ReportStatsRepository
	now  func() time.Time
}

// NewStatsService creates a StatsService.
func NewStatsService(repo repository.ReportStatsRepository) StatsService {
	return &statsService{repo: repo, now: time.Now}
}

func (s *statsService) Analytics(ctx context.Context, months int) (*Analytics, error) {
	if months < 1 || months > MaxTrendMonths {
		return nil, fmt.Errorf("%w: months must be between 1 and %d", ErrInvalidInput, MaxTrendMonths)
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count reports: %w", err)
	}
	out := &Analytics{TotalReports: total}

	if out.ReportsByStatus, err = s.countBy(ctx, "status", ""); err != nil {
		return nil, err
	}
	if out.ReportsByCategory, err = s.countBy(ctx, "category", unclassified); err != nil {
		return nil, err
	}
	if out.ReportsByUrgency, err = s.countBy(ctx, "urgency", unassessed); err != nil {
		return nil, err
	}
	out.ResolvedReports = out.ReportsByStatus[model.StatusResolved]

	resolved, err := s.repo.ResolutionTimes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load resolution times: %w", err)
	}
	out.AvgResolutionTime = averageDays(resolved)

	start := monthStart(s.now().UTC()).AddDate(0, -(months - 1), 0)
	activity, err := s.repo.ActivitySince(ctx, start)
	if err != nil {
		return nil, fmt.Errorf("load report activity: %w", err)
	}
	out.MonthlyTrend = monthlyTrend(activity, start, months)
	return out, nil
}

func (s *statsService) countBy(ctx context.Context, column, nullLabel string) (map[string]int64, error) {
	groups, err := s.repo.CountBy(ctx, column)
	if err != nil {
		return nil, fmt.Errorf("count reports by %s: %w", column, err)
	}
	counts := make(map[string]int64, len(groups))
	for _, g := range groups {
		key := nullLabel
		if g.Key != nil && *g.Key != "" {
			key = *g.Key
		}
		counts[key] += g.Count
	}
	return counts, nil
}

// averageDays ignores rows resolved before they were submitted.
func averageDays(rows []repository.ReportTimes) float64 {
	var sum time.Duration
	n := 0
	for _, r := range rows {
		if r.ResolvedAt == nil || r.ResolvedAt.Before(r.SubmittedAt) {
			continue
		}
		sum += r.ResolvedAt.Sub(r.SubmittedAt)
		n++
	}
	if n == 0 {
		return 0
	}
	days := sum.Hours() / 24 / float64(n)
	return math.Round(days*10) / 10
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// monthlyTrend buckets submissions and resolutions into months calendar months from start,
// oldest first, including months with no activity.
func monthlyTrend(rows []repository.ReportTimes, start time.Time, months int) []MonthlyCount {
	trend := make([]MonthlyCount, months)
	index := make(map[string]int, months)
	for i := range trend {
		label := start.AddDate(0, i, 0).Format("2006-01")
		trend[i].Month = label
		index[label] = i
	}
	for _, r := range rows {
		if i, ok := index[r.SubmittedAt.UTC().Format("2006-01")]; ok {
			trend[i].Reports++
		}
		if r.ResolvedAt == nil {
			continue
		}
		if i, ok := index[r.ResolvedAt.UTC().Format("2006-01")]; ok {
			trend[i].Resolved++
		}
	}
	return trend
}
