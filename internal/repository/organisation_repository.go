package repository

import (
	"context"

	"dira-go/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrganisationRepository persists the organisations reports are routed to.
type OrganisationRepository interface {
	FindAll(ctx context.Context) ([]model.Organisation, error)
	FindByTypes(ctx context.Context, types ...string) ([]model.Organisation, error)
	FindByID(ctx context.Context, id string) (*model.Organisation, error)
	// UpsertByName creates the organisation or refreshes its details when the name exists.
	UpsertByName(ctx context.Context, org *model.Organisation) error
}

type organisationRepository struct {
	db *gorm.DB
}

// NewOrganisationRepository creates a new OrganisationRepository.
func NewOrganisationRepository(db *gorm.DB) OrganisationRepository {
	return &organisationRepository{db: db}
}

func (r *organisationRepository) FindAll(ctx context.Context) ([]model.Organisation, error) {
	var orgs []model.Organisation
	err := r.db.WithContext(ctx).Order("name").Find(&orgs).Error
	return orgs, err
}

func (r *organisationRepository) FindByTypes(ctx context.Context, types ...string) ([]model.Organisation, error) {
	var orgs []model.Organisation
	err := r.db.WithContext(ctx).Where("type IN ?", types).Order("name").Find(&orgs).Error
	return orgs, err
}

func (r *organisationRepository) FindByID(ctx context.Context, id string) (*model.Organisation, error) {
	var org model.Organisation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&org).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *organisationRepository) UpsertByName(ctx context.Context, org *model.Organisation) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"type", "contact_email", "contact_api", "facilities"}),
	}).Create(org).Error
}
