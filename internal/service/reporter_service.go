package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"dira-go/internal/model"
	"dira-go/internal/repository"
)

// ReporterService manages the citizens who submit reports.
type ReporterService interface {
	Create(ctx context.Context, name *string, email string, anonymous bool) (*model.Reporter, error)
	Get(ctx context.Context, id string) (*model.Reporter, error)
	GetByEmail(ctx context.Context, email string) (*model.Reporter, error)
	// GetOrCreate returns the reporter with email, creating it on first use.
	GetOrCreate(ctx context.Context, name *string, email string, anonymous bool) (*model.Reporter, error)
}

type reporterService struct {
	repo repository.ReporterRepository
}

// NewReporterService creates a ReporterService.
func NewReporterService(repo repository.ReporterRepository) ReporterService {
	return &reporterService{repo: repo}
}

func normaliseEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("%w: invalid email %q", ErrInvalidInput, email)
	}
	return email, nil
}

func (s *reporterService) Create(ctx context.Context, name *string, email string, anonymous bool) (*model.Reporter, error) {
	email, err := normaliseEmail(email)
	if err != nil {
		return nil, err
	}
	reporter := &model.Reporter{Name: name, Email: email, IsAnonymous: anonymous}
	if err := s.repo.Create(ctx, reporter); err != nil {
		return nil, translate(err, "create reporter")
	}
	return reporter, nil
}

func (s *reporterService) Get(ctx context.Context, id string) (*model.Reporter, error) {
	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "find reporter")
	}
	return r, nil
}

func (s *reporterService) GetByEmail(ctx context.Context, email string) (*model.Reporter, error) {
	email, err := normaliseEmail(email)
	if err != nil {
		return nil, err
	}
	r, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, translate(err, "find reporter")
	}
	return r, nil
}

func (s *reporterService) GetOrCreate(ctx context.Context, name *string, email string, anonymous bool) (*model.Reporter, error) {
	r, err := s.GetByEmail(ctx, email)
	if err == nil {
		return r, nil
	}
	if !isNotFound(err) {
		return nil, err
	}
	r, err = s.Create(ctx, name, email, anonymous)
	if isConflict(err) {
		// Lost a race with a concurrent submission from the same address.
		return s.GetByEmail(ctx, email)
	}
	return r, err
}
