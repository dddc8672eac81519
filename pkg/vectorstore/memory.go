package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"
)

type memoryEntry struct {
	vector []float64
	norm   float64
	meta   Meta
}

// MemoryStore is a brute-force in-process Store.
// It backs the "memory" backend and the package tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

// Upsert implements Store.
func (s *MemoryStore) Upsert(ctx context.Context, reportID string, vector []float32, meta Meta) error {
	v := toFloat64(vector)
	s.mu.Lock()
	s.entries[reportID] = memoryEntry{vector: v, norm: math.Sqrt(floats.Dot(v, v)), meta: meta}
	s.mu.Unlock()
	return nil
}

// Nearest implements Store. Ties on similarity are broken by newest submission first.
func (s *MemoryStore) Nearest(ctx context.Context, vector []float32, q Query) ([]Match, error) {
	query := toFloat64(vector)
	queryNorm := math.Sqrt(floats.Dot(query, query))

	type scored struct {
		Match
		meta Meta
	}

	s.mu.RLock()
	results := make([]scored, 0, len(s.entries))
	for id, e := range s.entries {
		if len(e.vector) != len(query) {
			continue
		}
		sim := cosineSimilarity(query, queryNorm, e.vector, e.norm)
		if !q.accepts(id, e.meta, sim) {
			continue
		}
		results = append(results, scored{Match: Match{ReportID: id, Similarity: sim}, meta: e.meta})
	}
	s.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		if !a.meta.SubmittedAt.Equal(b.meta.SubmittedAt) {
			return a.meta.SubmittedAt.After(b.meta.SubmittedAt)
		}
		return a.ReportID < b.ReportID
	})

	if q.Limit > 0 && len(results) > q.Limit {
		results = results[:q.Limit]
	}
	matches := make([]Match, len(results))
	for i, r := range results {
		matches[i] = r.Match
	}
	return matches, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, reportID string) error {
	s.mu.Lock()
	delete(s.entries, reportID)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored vectors.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// cosineSimilarity returns dot(a,b)/(|a||b|); a zero vector has similarity 0 with everything.
func cosineSimilarity(a []float64, normA float64, b []float64, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	return floats.Dot(a, b) / (normA * normB)
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
