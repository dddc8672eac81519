package repository

import (
	"context"
	"fmt"
	"time"

	"dira-go/internal/model"

	"gorm.io/gorm"
)

// GroupCount is the number of reports sharing one value of a column. Key is nil for NULL.
type GroupCount struct {
	Key   *string
	Count int64
}

// ReportTimes holds the timestamps the resolution and trend metrics are computed from.
type ReportTimes struct {
	SubmittedAt time.Time
	ResolvedAt  *time.Time
}

// ReportStatsRepository answers the aggregate queries behind the analytics endpoint.
type ReportStatsRepository interface {
	Count(ctx context.Context) (int64, error)
	// CountBy groups reports by category, urgency or status.
	CountBy(ctx context.Context, column string) ([]GroupCount, error)
	// ResolutionTimes returns the timestamps of every report that has a resolution time.
	ResolutionTimes(ctx context.Context) ([]ReportTimes, error)
	// ActivitySince returns the timestamps of reports submitted or resolved at or after since.
	ActivitySince(ctx context.Context, since time.Time) ([]ReportTimes, error)
}

var groupableColumns = map[string]bool{"category": true, "urgency": true, "status": true}

type reportStatsRepository struct {
	db *gorm.DB
}

// NewReportStatsRepository creates a new ReportStatsRepository.
func NewReportStatsRepository(db *gorm.DB) ReportStatsRepository {
	return &reportStatsRepository{db: db}
}

func (r *reportStatsRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Report{}).Count(&n).Error
	return n, err
}

type groupRow struct {
	GroupKey *string
	Total    int64
}

func (r *reportStatsRepository) CountBy(ctx context.Context, column string) ([]GroupCount, error) {
	if !groupableColumns[column] {
		return nil, fmt.Errorf("cannot group reports by %q", column)
	}
	var rows []groupRow
	err := r.db.WithContext(ctx).Model(&model.Report{}).
		Select(column + " AS group_key, COUNT(*) AS total").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]GroupCount, len(rows))
	for i, row := range rows {
		out[i] = GroupCount{Key: row.GroupKey, Count: row.Total}
	}
	return out, nil
}

func (r *reportStatsRepository) ResolutionTimes(ctx context.Context) ([]ReportTimes, error) {
	var rows []ReportTimes
	err := r.db.WithContext(ctx).Model(&model.Report{}).
		Select("submitted_at, resolved_at").
		Where("resolved_at IS NOT NULL").
		Scan(&rows).Error
	return rows, err
}

func (r *reportStatsRepository) ActivitySince(ctx context.Context, since time.Time) ([]ReportTimes, error) {
	var rows []ReportTimes
	err := r.db.WithContext(ctx).Model(&model.Report{}).
		Select("submitted_at, resolved_at").
		Where("submitted_at >= ? OR resolved_at >= ?", since, since).
		Scan(&rows).Error
	return rows, err
}
