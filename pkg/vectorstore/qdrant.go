package vectorstore

import (
	"context"
	"fmt"
	"time"

	"dira-go/internal/config"
	"dira-go/pkg/log"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantStore keeps one point per report, keyed by the report UUID.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
}

// NewQdrantStore connects to Qdrant and ensures the collection exists with the given size.
func NewQdrantStore(ctx context.Context, cfg config.QdrantConfig, dims int) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	s := &QdrantStore{client: client, collection: cfg.Collection}
	if err := s.ensureCollection(ctx, dims); err != nil {
		_ = client.Close()
		return nil, err
	}
	return s, nil
}

func (s *QdrantStore) ensureCollection(ctx context.Context, dims int) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dims),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	for _, field := range []string{"report_id", "category"} {
		_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collection,
			FieldName:      field,
			FieldType:      qdrant.PtrOf(qdrant.FieldType_FieldTypeKeyword),
		})
		if err != nil {
			log.Warnf("[VectorStore] failed to create payload index for %s: %v", field, err)
		}
	}
	log.Infof("[VectorStore] qdrant collection '%s' created with %d dims", s.collection, dims)
	return nil
}

// Close releases the gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// Upsert implements Store.
func (s *QdrantStore) Upsert(ctx context.Context, reportID string, vector []float32, meta Meta) error {
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewIDUUID(reportID),
			Vectors: qdrant.NewVectors(vector...),
			Payload: map[string]*qdrant.Value{
				"report_id":    qdrant.NewValueString(reportID),
				"category":     qdrant.NewValueString(meta.Category),
				"submitted_at": qdrant.NewValueString(meta.SubmittedAt.UTC().Format(time.RFC3339Nano)),
			},
		}},
	})
	if err != nil {
		return fmt.Errorf("upsert failed: %w", err)
	}
	return nil
}

// Nearest implements Store. Qdrant returns the raw cosine similarity as the score.
func (s *QdrantStore) Nearest(ctx context.Context, vector []float32, q Query) ([]Match, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}

	filter := &qdrant.Filter{}
	if q.Category != "" {
		filter.Must = append(filter.Must, qdrant.NewMatchKeyword("category", q.Category))
	}
	if q.ExcludeID != "" {
		filter.MustNot = append(filter.MustNot, qdrant.NewMatchKeyword("report_id", q.ExcludeID))
	}

	req := &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		Filter:         filter,
	}
	if q.MinSimilarity != nil {
		threshold := float32(*q.MinSimilarity)
		req.ScoreThreshold = &threshold
	}

	points, err := s.client.Query(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	matches := make([]Match, 0, len(points))
	for _, point := range points {
		id := ""
		if v := point.Payload["report_id"]; v != nil {
			id = v.GetStringValue()
		}
		if id == "" {
			id = point.GetId().GetUuid()
		}
		sim := float64(point.Score)
		// float32 scores can land a hair under an inclusive threshold that the server accepted.
		if q.MinSimilarity != nil && sim < *q.MinSimilarity-1e-6 {
			continue
		}
		matches = append(matches, Match{ReportID: id, Similarity: sim})
	}
	sortMatches(matches)
	return matches, nil
}

// Delete implements Store.
func (s *QdrantStore) Delete(ctx context.Context, reportID string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{
					Ids: []*qdrant.PointId{qdrant.NewIDUUID(reportID)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	return nil
}
