package repository

import (
	"context"

	"dira-go/internal/model"

	"gorm.io/gorm"
)

// ReporterRepository persists reporters.
type ReporterRepository interface {
	Create(ctx context.Context, reporter *model.Reporter) error
	FindByID(ctx context.Context, id string) (*model.Reporter, error)
	FindByEmail(ctx context.Context, email string) (*model.Reporter, error)
}

type reporterRepository struct {
	db *gorm.DB
}

// NewReporterRepository creates a new ReporterRepository.
func NewReporterRepository(db *gorm.DB) ReporterRepository {
	return &reporterRepository{db: db}
}

func (r *reporterRepository) Create(ctx context.Context, reporter *model.Reporter) error {
	return r.db.WithContext(ctx).Create(reporter).Error
}

func (r *reporterRepository) FindByID(ctx context.Context, id string) (*model.Reporter, error) {
	var reporter model.Reporter
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&reporter).Error; err != nil {
		return nil, err
	}
	return &reporter, nil
}

func (r *reporterRepository) FindByEmail(ctx context.Context, email string) (*model.Reporter, error) {
	var reporter model.Reporter
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&reporter).Error; err != nil {
		return nil, err
	}
	return &reporter, nil
}
