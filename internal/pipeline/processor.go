// Package pipeline runs the analysis of a newly submitted report.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"dira-go/internal/config"
	"dira-go/internal/model"
	"dira-go/internal/service"
	"dira-go/pkg/feed"
	"dira-go/pkg/log"
	"dira-go/pkg/nlp"
	"dira-go/pkg/tasks"

	"golang.org/x/sync/errgroup"
)

// Analysis is what the pipeline learned about a report. It is stored as JSON on the report.
type Analysis struct {
	Classification service.ClassificationResult `json:"classification"`
	Urgency        string                       `json:"urgency"`
	Entities       nlp.Entities                 `json:"entities"`
	Duplicates     []model.ReportCandidate      `json:"duplicates"`
	DuplicateOf    string                       `json:"duplicateOf,omitempty"`
}

// Processor implements tasks.Processor for report analysis.
type Processor struct {
	reports       service.ReportService
	classifier    service.ClassificationService
	duplicates    service.DuplicateService
	relationships service.RelationshipService
	routing       service.RoutingService
	publisher     feed.Publisher
	cfg           config.DuplicateConfig
}

// NewProcessor creates a Processor.
func NewProcessor(
	reports service.ReportService,
	classifier service.ClassificationService,
	duplicates service.DuplicateService,
	relationships service.RelationshipService,
	routing service.RoutingService,
	publisher feed.Publisher,
	cfg config.DuplicateConfig,
) *Processor {
	if publisher == nil {
		publisher = feed.Nop{}
	}
	return &Processor{
		reports:       reports,
		classifier:    classifier,
		duplicates:    duplicates,
		relationships: relationships,
		routing:       routing,
		publisher:     publisher,
		cfg:           cfg,
	}
}

// Process classifies, embeds, deduplicates and routes one report.
// Embedding provider failures are logged and treated as "no duplicates" so the report is still routed.
func (p *Processor) Process(ctx context.Context, task tasks.ReportTask) error {
	report, err := p.reports.Get(ctx, task.ReportID)
	if errors.Is(err, service.ErrNotFound) {
		log.Warnf("[Pipeline] report %s no longer exists, skipping", task.ReportID)
		return nil
	}
	if err != nil {
		return err
	}
	if report.Status != model.StatusSubmitted {
		log.Infof("[Pipeline] report %s already %s, skipping", report.ID, report.Status)
		return nil
	}
	log.Infof("[Pipeline] analysing report %s", report.ID)

	text := model.CanonicalText(report.Title, report.Description)

	// Step 1: classification, urgency and entities are independent.
	var analysis Analysis
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := p.classifier.Classify(gctx, text)
		if err != nil {
			return fmt.Errorf("classify: %w", err)
		}
		analysis.Classification = c
		return nil
	})
	g.Go(func() error {
		analysis.Urgency = p.classifier.AssessUrgency(text)
		return nil
	})
	g.Go(func() error {
		analysis.Entities = p.classifier.ExtractEntities(gctx, text)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	log.Infow("[Pipeline] step 1 done", "report_id", report.ID,
		"category", analysis.Classification.Category, "source", analysis.Classification.Source, "urgency", analysis.Urgency)

	category := analysis.Classification.Category
	if _, err := p.reports.Update(ctx, report.ID, service.ReportUpdate{
		Category: &category,
		Urgency:  &analysis.Urgency,
	}); err != nil {
		return fmt.Errorf("save classification: %w", err)
	}

	// Step 2: embedding and duplicate search.
	candidates, err := p.findDuplicates(ctx, report)
	if err != nil {
		return err
	}
	analysis.Duplicates = candidates

	// Step 3: link every candidate; the strongest decides whether this is a duplicate.
	for _, c := range candidates {
		relType := model.RelationshipSimilar
		if c.SimilarityScore >= p.cfg.DuplicateThreshold {
			relType = model.RelationshipDuplicate
		}
		if _, err := p.relationships.Link(ctx, report.ID, c.ID, c.SimilarityScore, relType); err != nil {
			if errors.Is(err, service.ErrReferentialIntegrity) {
				log.Warnf("[Pipeline] candidate %s vanished before linking", c.ID)
				continue
			}
			return fmt.Errorf("link candidate %s: %w", c.ID, err)
		}
	}

	isDuplicate := len(candidates) > 0 && candidates[0].SimilarityScore >= p.cfg.DuplicateThreshold
	if isDuplicate {
		analysis.DuplicateOf = candidates[0].ID
	}
	if err := p.saveAnalysis(ctx, report.ID, analysis); err != nil {
		return err
	}

	if isDuplicate {
		status := model.StatusDuplicate
		if _, err := p.reports.Update(ctx, report.ID, service.ReportUpdate{Status: &status}); err != nil {
			return fmt.Errorf("mark duplicate: %w", err)
		}
		log.Infow("[Pipeline] report is a duplicate", "report_id", report.ID,
			"duplicate_of", candidates[0].ID, "score", candidates[0].SimilarityScore)
		p.publisher.Publish(feed.Event{
			Type:     feed.EventReportDuplicate,
			ReportID: report.ID,
			Data:     map[string]interface{}{"duplicateOf": candidates[0].ID, "similarityScore": candidates[0].SimilarityScore},
		})
		return nil
	}

	// Step 4: routing.
	if _, err := p.routing.Route(ctx, report.ID); err != nil {
		return fmt.Errorf("route report: %w", err)
	}
	return nil
}

func (p *Processor) findDuplicates(ctx context.Context, report *model.Report) ([]model.ReportCandidate, error) {
	if err := p.duplicates.StoreEmbedding(ctx, report.ID, ""); err != nil {
		if errors.Is(err, service.ErrProviderUnavailable) {
			log.Warnf("[Pipeline] embedding unavailable for report %s, skipping duplicate check: %v", report.ID, err)
			return nil, nil
		}
		return nil, fmt.Errorf("store embedding: %w", err)
	}

	candidates, err := p.duplicates.FindDuplicates(ctx, service.DuplicateQuery{
		Title:       report.Title,
		Description: report.Description,
		ExcludeID:   report.ID,
		Threshold:   p.cfg.Threshold,
		Limit:       p.cfg.Limit,
	})
	if errors.Is(err, service.ErrProviderUnavailable) {
		log.Warnf("[Pipeline] duplicate search unavailable for report %s: %v", report.ID, err)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find duplicates: %w", err)
	}
	return candidates, nil
}

func (p *Processor) saveAnalysis(ctx context.Context, reportID string, analysis Analysis) error {
	entities, err := json.Marshal(analysis.Entities)
	if err != nil {
		return err
	}
	full, err := json.Marshal(analysis)
	if err != nil {
		return err
	}
	return p.reports.SaveAnalysis(ctx, reportID, analysis.Classification.Confidence, entities, string(full))
}
