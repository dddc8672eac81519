// Package repository defines the persistence interfaces and their gorm implementations.
package repository

import (
	"context"
	"errors"
	"time"

	"dira-go/internal/model"

	"gorm.io/gorm"
)

// ErrReportMissing is returned when an operation references a report id that does not exist.
var ErrReportMissing = errors.New("referenced report does not exist")

// ReportRepository defines the persistence operations for reports.
type ReportRepository interface {
	Create(ctx context.Context, report *model.Report) error
	FindByID(ctx context.Context, id string) (*model.Report, error)
	// FindByIDs returns the reports that exist; missing ids are skipped.
	FindByIDs(ctx context.Context, ids []string) ([]model.Report, error)
	List(ctx context.Context, limit, offset int) ([]model.Report, error)
	FindByStatus(ctx context.Context, status string, limit, offset int) ([]model.Report, error)
	FindByCategory(ctx context.Context, category string, limit, offset int) ([]model.Report, error)
	Update(ctx context.Context, id string, updates map[string]interface{}) error
	Delete(ctx context.Context, id string) error
	MarkEmbedded(ctx context.Context, id, embeddingModel string, at time.Time) error
	// ListAfter pages through all reports ordered by id, starting after afterID.
	ListAfter(ctx context.Context, afterID string, limit int) ([]model.Report, error)
}

type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository creates a new ReportRepository.
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report *model.Report) error {
	return r.db.WithContext(ctx).Create(report).Error
}

func (r *reportRepository) FindByID(ctx context.Context, id string) (*model.Report, error) {
	var report model.Report
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&report).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *reportRepository) FindByIDs(ctx context.Context, ids []string) ([]model.Report, error) {
	var reports []model.Report
	if len(ids) == 0 {
		return reports, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&reports).Error
	return reports, err
}

func (r *reportRepository) List(ctx context.Context, limit, offset int) ([]model.Report, error) {
	var reports []model.Report
	err := r.db.WithContext(ctx).Order("submitted_at DESC").Limit(limit).Offset(offset).Find(&reports).Error
	return reports, err
}

func (r *reportRepository) FindByStatus(ctx context.Context, status string, limit, offset int) ([]model.Report, error) {
	var reports []model.Report
	err := r.db.WithContext(ctx).Where("status = ?", status).
		Order("submitted_at DESC").Limit(limit).Offset(offset).Find(&reports).Error
	return reports, err
}

func (r *reportRepository) FindByCategory(ctx context.Context, category string, limit, offset int) ([]model.Report, error) {
	var reports []model.Report
	err := r.db.WithContext(ctx).Where("category = ?", category).
		Order("submitted_at DESC").Limit(limit).Offset(offset).Find(&reports).Error
	return reports, err
}

// Update applies column updates. It returns gorm.ErrRecordNotFound when the report does not exist.
func (r *reportRepository) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Report{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&model.Report{}).Where("id = ?", id).Updates(updates).Error
	})
}

// Delete removes the report; routes, related edges and pgvector rows go with it through FK cascades.
func (r *reportRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Report{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *reportRepository) MarkEmbedded(ctx context.Context, id, embeddingModel string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Report{}).Where("id = ?", id).
		Updates(map[string]interface{}{"embedding_model": embeddingModel, "embedded_at": at}).Error
}

func (r *reportRepository) ListAfter(ctx context.Context, afterID string, limit int) ([]model.Report, error) {
	var reports []model.Report
	err := r.db.WithContext(ctx).Where("id > ?", afterID).Order("id").Limit(limit).Find(&reports).Error
	return reports, err
}
