// Package service implements the report, duplicate detection and routing use cases.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"dira-go/internal/model"
	"dira-go/internal/repository"
	"dira-go/pkg/embedding"
	"dira-go/pkg/log"
	"dira-go/pkg/vectorstore"
)

// Defaults applied by callers that do not pass their own values.
const (
	DefaultDuplicateThreshold = 0.8
	DefaultLimit              = 10
)

// DuplicateQuery is the input to FindDuplicates.
type DuplicateQuery struct {
	Title       string
	Description string
	// ExcludeID removes a report from the candidates, typically the report being checked.
	ExcludeID string
	Threshold float64
	Limit     int
}

// DuplicateService embeds reports and ranks them by cosine similarity.
type DuplicateService interface {
	// FindDuplicates returns reports whose similarity to the canonical text is at least Threshold.
	FindDuplicates(ctx context.Context, q DuplicateQuery) ([]model.ReportCandidate, error)
	// SearchBySimilarity ranks reports against an existing embedding without a threshold.
	SearchBySimilarity(ctx context.Context, vector []float32, limit int, category string) ([]model.ReportCandidate, error)
	// SearchByText embeds text and ranks reports against it without a threshold.
	SearchByText(ctx context.Context, text string, limit int, category string) ([]model.ReportCandidate, error)
	// StoreEmbedding computes and stores the embedding for a report, overwriting any previous one.
	// An empty text embeds the report's own title and description.
	StoreEmbedding(ctx context.Context, reportID, text string) error
	// EmbedReports stores embeddings for a batch of reports with a single provider call.
	EmbedReports(ctx context.Context, reports []model.Report) (int, error)
	DeleteEmbedding(ctx context.Context, reportID string) error
	Embed(ctx context.Context, text string) ([]float32, error)
}

type duplicateService struct {
	embeddingClient embedding.Client
	store           vectorstore.Store
	reportRepo      repository.ReportRepository
	dimensions      int
}

// NewDuplicateService creates a DuplicateService.
func NewDuplicateService(embeddingClient embedding.Client, store vectorstore.Store, reportRepo repository.ReportRepository, dimensions int) DuplicateService {
	return &duplicateService{
		embeddingClient: embeddingClient,
		store:           store,
		reportRepo:      reportRepo,
		dimensions:      dimensions,
	}
}

// Embed returns the vector for text or an error wrapping ErrProviderUnavailable.
func (s *duplicateService) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, embeddingModel, err := s.embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if embeddingModel != s.embeddingClient.Model() {
		log.Warnf("[DuplicateService] query embedded by fallback model %s; scores against %s vectors are approximate",
			embeddingModel, s.embeddingClient.Model())
	}
	return vec, nil
}

// embed returns the vector and the model that produced it.
func (s *duplicateService) embed(ctx context.Context, text string) ([]float32, string, error) {
	vec, embeddingModel, err := embedding.EmbedWithModel(ctx, s.embeddingClient, text)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if err := s.checkDimensions(vec); err != nil {
		return nil, "", err
	}
	return vec, embeddingModel, nil
}

func (s *duplicateService) checkDimensions(vec []float32) error {
	if len(vec) != s.dimensions {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), s.dimensions)
	}
	return nil
}

func (s *duplicateService) FindDuplicates(ctx context.Context, q DuplicateQuery) ([]model.ReportCandidate, error) {
	if err := validateThreshold(q.Threshold); err != nil {
		return nil, err
	}
	if err := validateLimit(q.Limit); err != nil {
		return nil, err
	}

	vec, err := s.Embed(ctx, model.CanonicalText(q.Title, q.Description))
	if err != nil {
		return nil, err
	}

	threshold := q.Threshold
	candidates, err := s.rank(ctx, vec, vectorstore.Query{
		ExcludeID:     q.ExcludeID,
		MinSimilarity: &threshold,
		Limit:         q.Limit,
	})
	if err != nil {
		return nil, err
	}
	log.Infow("[DuplicateService] duplicate search finished",
		"exclude_id", q.ExcludeID, "threshold", q.Threshold, "candidates", len(candidates))
	return candidates, nil
}

func (s *duplicateService) SearchBySimilarity(ctx context.Context, vector []float32, limit int, category string) ([]model.ReportCandidate, error) {
	if err := validateLimit(limit); err != nil {
		return nil, err
	}
	if err := s.checkDimensions(vector); err != nil {
		return nil, err
	}
	return s.rank(ctx, vector, vectorstore.Query{Category: category, Limit: limit})
}

func (s *duplicateService) SearchByText(ctx context.Context, text string, limit int, category string) ([]model.ReportCandidate, error) {
	if err := validateLimit(limit); err != nil {
		return nil, err
	}
	vec, err := s.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return s.rank(ctx, vec, vectorstore.Query{Category: category, Limit: limit})
}

// rank queries the store, joins the matches with their reports and applies the final ordering.
// Matches whose report no longer exists are dropped. The store is asked for more than the limit
// and re-queried with a wider window until the cut-off is settled, so orphaned vectors and ties
// at the boundary never push a qualifying report out of the result.
func (s *duplicateService) rank(ctx context.Context, vec []float32, q vectorstore.Query) ([]model.ReportCandidate, error) {
	limit := q.Limit
	fetch := limit + rankOverfetch
	for {
		q.Limit = fetch
		matches, err := s.store.Nearest(ctx, vec, q)
		if err != nil {
			return nil, fmt.Errorf("vector query: %w", err)
		}
		candidates, err := s.join(ctx, matches, q)
		if err != nil {
			return nil, err
		}
		sortCandidates(candidates)

		exhausted := len(matches) < fetch
		done := settled(matches, candidates, limit)
		if exhausted || done || fetch >= rankMaxFetch {
			if !exhausted && !done {
				log.Warnf("[DuplicateService] ranking window capped at %d matches", fetch)
			}
			if len(candidates) > limit {
				candidates = candidates[:limit]
			}
			return candidates, nil
		}
		fetch = min(fetch*2, rankMaxFetch)
	}
}

const (
	rankOverfetch = 10
	rankMaxFetch  = 1000
)

// settled reports whether no unfetched match can still enter the first limit candidates:
// the weakest fetched match must rank strictly below the candidate at the cut-off.
func settled(matches []vectorstore.Match, candidates []model.ReportCandidate, limit int) bool {
	if len(candidates) < limit || len(matches) == 0 {
		return false
	}
	return clampSimilarity(matches[len(matches)-1].Similarity) < candidates[limit-1].SimilarityScore
}

func (s *duplicateService) join(ctx context.Context, matches []vectorstore.Match, q vectorstore.Query) ([]model.ReportCandidate, error) {
	if len(matches) == 0 {
		return []model.ReportCandidate{}, nil
	}
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ReportID)
	}
	reports, err := s.reportRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load candidate reports: %w", err)
	}
	byID := make(map[string]model.Report, len(reports))
	for _, r := range reports {
		byID[r.ID] = r
	}

	candidates := make([]model.ReportCandidate, 0, len(matches))
	for _, m := range matches {
		r, ok := byID[m.ReportID]
		if !ok || r.ID == q.ExcludeID {
			continue
		}
		if q.Category != "" && (r.Category == nil || *r.Category != q.Category) {
			continue
		}
		candidates = append(candidates, model.ReportCandidate{
			ID:              r.ID,
			Title:           r.Title,
			Description:     r.Description,
			Category:        r.Category,
			Status:          r.Status,
			SubmittedAt:     r.SubmittedAt,
			SimilarityScore: clampSimilarity(m.Similarity),
		})
	}
	return candidates, nil
}

func sortCandidates(candidates []model.ReportCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.SimilarityScore != b.SimilarityScore {
			return a.SimilarityScore > b.SimilarityScore
		}
		if !a.SubmittedAt.Equal(b.SubmittedAt) {
			return a.SubmittedAt.After(b.SubmittedAt)
		}
		return a.ID < b.ID
	})
}

func clampSimilarity(sim float64) float64 {
	if sim > 1 {
		return 1
	}
	return sim
}

func (s *duplicateService) StoreEmbedding(ctx context.Context, reportID, text string) error {
	report, err := s.reportRepo.FindByID(ctx, reportID)
	if err != nil {
		return translate(err, "find report")
	}
	if text == "" {
		text = model.CanonicalText(report.Title, report.Description)
	}

	vec, embeddingModel, err := s.embed(ctx, text)
	if err != nil {
		return err
	}
	return s.save(ctx, report, vec, embeddingModel)
}

// save stores the vector and records which model produced it, so vectors from a fallback
// provider can be found and re-embedded later.
func (s *duplicateService) save(ctx context.Context, report *model.Report, vec []float32, embeddingModel string) error {
	meta := vectorstore.Meta{SubmittedAt: report.SubmittedAt}
	if report.Category != nil {
		meta.Category = *report.Category
	}
	if err := s.store.Upsert(ctx, report.ID, vec, meta); err != nil {
		if errors.Is(err, vectorstore.ErrUnknownReport) {
			return fmt.Errorf("store embedding: %w", ErrNotFound)
		}
		return fmt.Errorf("store embedding: %w", err)
	}
	if err := s.reportRepo.MarkEmbedded(ctx, report.ID, embeddingModel, time.Now().UTC()); err != nil {
		return translate(err, "mark report embedded")
	}
	return nil
}

func (s *duplicateService) EmbedReports(ctx context.Context, reports []model.Report) (int, error) {
	if len(reports) == 0 {
		return 0, nil
	}
	texts := make([]string, len(reports))
	for i, r := range reports {
		texts[i] = model.CanonicalText(r.Title, r.Description)
	}
	vectors, embeddingModel, err := embedding.EmbedManyWithModel(ctx, s.embeddingClient, texts)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if len(vectors) != len(reports) {
		return 0, fmt.Errorf("%w: got %d vectors for %d reports", ErrProviderUnavailable, len(vectors), len(reports))
	}

	stored := 0
	for i := range reports {
		if err := s.checkDimensions(vectors[i]); err != nil {
			return stored, err
		}
		if err := s.save(ctx, &reports[i], vectors[i], embeddingModel); err != nil {
			return stored, err
		}
		stored++
	}
	return stored, nil
}

func (s *duplicateService) DeleteEmbedding(ctx context.Context, reportID string) error {
	return s.store.Delete(ctx, reportID)
}
