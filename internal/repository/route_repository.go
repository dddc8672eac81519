package repository

import (
	"context"

	"dira-go/internal/model"

	"gorm.io/gorm"
)

// RouteRepository persists report routes.
type RouteRepository interface {
	Create(ctx context.Context, route *model.ReportRoute) error
	// RouteReport stores all routes and marks the report routed in one transaction.
	RouteReport(ctx context.Context, reportID string, routes []model.ReportRoute) error
	ListByReport(ctx context.Context, reportID string) ([]model.ReportRoute, error)
	ListByOrganisation(ctx context.Context, organisationID string) ([]model.ReportRoute, error)
}

type routeRepository struct {
	db *gorm.DB
}

// NewRouteRepository creates a new RouteRepository.
func NewRouteRepository(db *gorm.DB) RouteRepository {
	return &routeRepository{db: db}
}

func (r *routeRepository) Create(ctx context.Context, route *model.ReportRoute) error {
	return r.db.WithContext(ctx).Create(route).Error
}

func (r *routeRepository) RouteReport(ctx context.Context, reportID string, routes []model.ReportRoute) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(routes) > 0 {
			if err := tx.Create(&routes).Error; err != nil {
				return err
			}
		}
		res := tx.Model(&model.Report{}).Where("id = ?", reportID).Update("status", model.StatusRouted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrReportMissing
		}
		return nil
	})
}

func (r *routeRepository) ListByReport(ctx context.Context, reportID string) ([]model.ReportRoute, error) {
	var routes []model.ReportRoute
	err := r.db.WithContext(ctx).Where("report_id = ?", reportID).Order("sent_at DESC").Find(&routes).Error
	return routes, err
}

func (r *routeRepository) ListByOrganisation(ctx context.Context, organisationID string) ([]model.ReportRoute, error) {
	var routes []model.ReportRoute
	err := r.db.WithContext(ctx).Where("organisation_id = ?", organisationID).Order("sent_at DESC").Find(&routes).Error
	return routes, err
}
