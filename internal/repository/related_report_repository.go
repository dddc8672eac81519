package repository

import (
	"context"
	"errors"
	"fmt"

	"dira-go/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RelatedReportRepository persists report-to-report edges.
type RelatedReportRepository interface {
	// Upsert inserts the edge or, when the ordered pair already exists, overwrites its score and type.
	// It returns the stored edge. ErrReportMissing is returned when either endpoint does not exist.
	Upsert(ctx context.Context, edge *model.RelatedReport) (*model.RelatedReport, error)
	ListByReport(ctx context.Context, reportID string) ([]model.RelatedReport, error)
	ListByType(ctx context.Context, reportID, relationshipType string, minScore float64) ([]model.RelatedReport, error)
}

type relatedReportRepository struct {
	db *gorm.DB
}

// NewRelatedReportRepository creates a new RelatedReportRepository.
func NewRelatedReportRepository(db *gorm.DB) RelatedReportRepository {
	return &relatedReportRepository{db: db}
}

func (r *relatedReportRepository) Upsert(ctx context.Context, edge *model.RelatedReport) (*model.RelatedReport, error) {
	var stored model.RelatedReport
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Report{}).
			Where("id IN ?", []string{edge.ReportID, edge.RelatedReportID}).
			Count(&count).Error; err != nil {
			return err
		}
		if count != 2 {
			return ErrReportMissing
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "report_id"}, {Name: "related_report_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"similarity_score", "relationship_type", "updated_at"}),
		}).Create(edge).Error; err != nil {
			return err
		}

		// On conflict the generated id was discarded, so read back the surviving row.
		return tx.Where("report_id = ? AND related_report_id = ?", edge.ReportID, edge.RelatedReportID).
			First(&stored).Error
	})
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return nil, ErrReportMissing
	}
	if err != nil {
		if errors.Is(err, ErrReportMissing) {
			return nil, err
		}
		return nil, fmt.Errorf("upsert related report: %w", err)
	}
	return &stored, nil
}

func (r *relatedReportRepository) ListByReport(ctx context.Context, reportID string) ([]model.RelatedReport, error) {
	var edges []model.RelatedReport
	err := r.db.WithContext(ctx).Where("report_id = ?", reportID).
		Order("similarity_score DESC").Order("related_report_id").Find(&edges).Error
	return edges, err
}

func (r *relatedReportRepository) ListByType(ctx context.Context, reportID, relationshipType string, minScore float64) ([]model.RelatedReport, error) {
	var edges []model.RelatedReport
	err := r.db.WithContext(ctx).
		Where("report_id = ? AND relationship_type = ? AND similarity_score >= ?", reportID, relationshipType, minScore).
		Order("similarity_score DESC").Order("related_report_id").Find(&edges).Error
	return edges, err
}
