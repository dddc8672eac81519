package service

import (
	"context"
	"fmt"
	"strings"

	"dira-go/internal/model"
	"dira-go/internal/repository"
	"dira-go/pkg/log"
)

// OrganisationService reads and seeds the organisations reports are routed to.
type OrganisationService interface {
	List(ctx context.Context) ([]model.Organisation, error)
	ListByType(ctx context.Context, orgType string) ([]model.Organisation, error)
	Get(ctx context.Context, id string) (*model.Organisation, error)
	// Seed upserts organisations by name and returns how many were written.
	Seed(ctx context.Context, orgs []model.Organisation) (int, error)
}

type organisationService struct {
	repo repository.OrganisationRepository
}

// NewOrganisationService creates an OrganisationService.
func NewOrganisationService(repo repository.OrganisationRepository) OrganisationService {
	return &organisationService{repo: repo}
}

func (s *organisationService) List(ctx context.Context) ([]model.Organisation, error) {
	return s.repo.FindAll(ctx)
}

func (s *organisationService) ListByType(ctx context.Context, orgType string) ([]model.Organisation, error) {
	return s.repo.FindByTypes(ctx, orgType)
}

func (s *organisationService) Get(ctx context.Context, id string) (*model.Organisation, error) {
	org, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "find organisation")
	}
	return org, nil
}

func (s *organisationService) Seed(ctx context.Context, orgs []model.Organisation) (int, error) {
	for i := range orgs {
		org := &orgs[i]
		if strings.TrimSpace(org.Name) == "" {
			return i, fmt.Errorf("%w: organisation %d has no name", ErrInvalidInput, i)
		}
		if org.Type != model.OrgTypeGovernment && org.Type != model.OrgTypeUtility {
			return i, fmt.Errorf("%w: organisation %q has unknown type %q", ErrInvalidInput, org.Name, org.Type)
		}
		if err := s.repo.UpsertByName(ctx, org); err != nil {
			return i, fmt.Errorf("seed organisation %q: %w", org.Name, err)
		}
		log.Infof("[OrganisationService] seeded organisation '%s' (%s)", org.Name, org.Type)
	}
	return len(orgs), nil
}
