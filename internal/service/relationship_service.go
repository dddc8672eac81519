package service

import (
	"context"
	"fmt"
	"math"

	"dira-go/internal/model"
	"dira-go/internal/repository"
	"dira-go/pkg/log"
)

// RelationshipService records and lists duplicate/similar edges between reports.
type RelationshipService interface {
	// Link upserts the edge reportID -> relatedReportID and returns its id.
	// An empty relationshipType means duplicate.
	Link(ctx context.Context, reportID, relatedReportID string, score float64, relationshipType string) (string, error)
	ListRelated(ctx context.Context, reportID string) ([]model.RelatedReport, error)
	ListDuplicates(ctx context.Context, reportID string, threshold float64) ([]model.RelatedReport, error)
}

type relationshipService struct {
	relatedRepo repository.RelatedReportRepository
	reportRepo  repository.ReportRepository
}

// NewRelationshipService creates a RelationshipService.
func NewRelationshipService(relatedRepo repository.RelatedReportRepository, reportRepo repository.ReportRepository) RelationshipService {
	return &relationshipService{relatedRepo: relatedRepo, reportRepo: reportRepo}
}

func (s *relationshipService) Link(ctx context.Context, reportID, relatedReportID string, score float64, relationshipType string) (string, error) {
	if relationshipType == "" {
		relationshipType = model.RelationshipDuplicate
	}
	if !model.ValidRelationship(relationshipType) {
		return "", fmt.Errorf("%w: unknown type %q", ErrInvalidRelationship, relationshipType)
	}
	if reportID == "" || relatedReportID == "" {
		return "", fmt.Errorf("%w: report ids are required", ErrInvalidRelationship)
	}
	if reportID == relatedReportID {
		return "", fmt.Errorf("%w: a report cannot be related to itself", ErrInvalidRelationship)
	}
	if math.IsNaN(score) || score < 0 || score > 1 {
		return "", fmt.Errorf("%w: got %v", ErrInvalidScore, score)
	}

	edge, err := s.relatedRepo.Upsert(ctx, &model.RelatedReport{
		ReportID:         reportID,
		RelatedReportID:  relatedReportID,
		SimilarityScore:  score,
		RelationshipType: relationshipType,
	})
	if err != nil {
		return "", translate(err, "link reports")
	}
	log.Infow("[RelationshipService] reports linked",
		"report_id", reportID, "related_report_id", relatedReportID, "score", score, "type", relationshipType)
	return edge.ID, nil
}

func (s *relationshipService) ListRelated(ctx context.Context, reportID string) ([]model.RelatedReport, error) {
	if _, err := s.reportRepo.FindByID(ctx, reportID); err != nil {
		return nil, translate(err, "find report")
	}
	edges, err := s.relatedRepo.ListByReport(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("list related reports: %w", err)
	}
	return edges, nil
}

func (s *relationshipService) ListDuplicates(ctx context.Context, reportID string, threshold float64) ([]model.RelatedReport, error) {
	if err := validateThreshold(threshold); err != nil {
		return nil, err
	}
	if _, err := s.reportRepo.FindByID(ctx, reportID); err != nil {
		return nil, translate(err, "find report")
	}
	edges, err := s.relatedRepo.ListByType(ctx, reportID, model.RelationshipDuplicate, threshold)
	if err != nil {
		return nil, fmt.Errorf("list duplicate reports: %w", err)
	}
	return edges, nil
}
