package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dira-go/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PGVectorStore keeps vectors in the report_embeddings table next to the reports it describes.
// Category and submission time are read from reports through a join, so Meta is not stored.
type PGVectorStore struct {
	db *gorm.DB
}

// NewPGVectorStore creates a Store on a postgres connection with the vector extension enabled.
func NewPGVectorStore(db *gorm.DB) *PGVectorStore {
	return &PGVectorStore{db: db}
}

// Upsert implements Store with a single INSERT ... ON CONFLICT (report_id) DO UPDATE.
func (s *PGVectorStore) Upsert(ctx context.Context, reportID string, vector []float32, _ Meta) error {
	row := model.ReportEmbedding{
		ReportID:  reportID,
		Embedding: pgvector.NewVector(vector),
		UpdatedAt: time.Now().UTC(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "report_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"embedding", "updated_at"}),
	}).Create(&row).Error
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return fmt.Errorf("%w: %s", ErrUnknownReport, reportID)
	}
	if err != nil {
		return fmt.Errorf("upsert embedding: %w", err)
	}
	return nil
}

type pgMatch struct {
	ReportID   string
	Similarity float64
}

// Nearest implements Store using the <=> cosine distance operator.
func (s *PGVectorStore) Nearest(ctx context.Context, vector []float32, q Query) ([]Match, error) {
	v := pgvector.NewVector(vector)

	tx := s.db.WithContext(ctx).
		Table("report_embeddings AS e").
		Select("e.report_id AS report_id, 1 - (e.embedding <=> ?) AS similarity", v).
		Joins("JOIN reports r ON r.id = e.report_id")
	if q.Category != "" {
		tx = tx.Where("r.category = ?", q.Category)
	}
	if q.ExcludeID != "" {
		tx = tx.Where("e.report_id <> ?", q.ExcludeID)
	}
	if q.MinSimilarity != nil {
		tx = tx.Where("1 - (e.embedding <=> ?) >= ?", v, *q.MinSimilarity)
	}
	tx = tx.Order(clause.OrderBy{Expression: clause.Expr{
		SQL:                "e.embedding <=> ?, r.submitted_at DESC, e.report_id",
		Vars:               []interface{}{v},
		WithoutParentheses: true,
	}})
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var rows []pgMatch
	if err := tx.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("nearest neighbour query: %w", err)
	}

	matches := make([]Match, len(rows))
	for i, r := range rows {
		matches[i] = Match{ReportID: r.ReportID, Similarity: r.Similarity}
	}
	return matches, nil
}

// Delete implements Store.
func (s *PGVectorStore) Delete(ctx context.Context, reportID string) error {
	if err := s.db.WithContext(ctx).Where("report_id = ?", reportID).Delete(&model.ReportEmbedding{}).Error; err != nil {
		return fmt.Errorf("delete embedding: %w", err)
	}
	return nil
}
