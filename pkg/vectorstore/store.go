// Package vectorstore persists one embedding per report and answers cosine nearest-neighbour queries.
package vectorstore

import (
	"context"
	"errors"
	"sort"
	"time"
)

// ErrUnknownReport is returned by backends that can detect a vector written for a report that does not exist.
var ErrUnknownReport = errors.New("vectorstore: unknown report")

// Meta is the report metadata stored next to a vector for filtering.
type Meta struct {
	Category    string
	SubmittedAt time.Time
}

// Query narrows a nearest-neighbour search.
type Query struct {
	// Category, when set, restricts matches to reports with that category.
	Category string
	// ExcludeID, when set, is never returned.
	ExcludeID string
	// MinSimilarity, when set, is an inclusive lower bound on similarity.
	MinSimilarity *float64
	Limit         int
}

// Match is a stored report and its cosine similarity (1 - cosine distance) to the query vector.
type Match struct {
	ReportID   string
	Similarity float64
}

// Store is implemented by every vector backend.
type Store interface {
	// Upsert stores or overwrites the vector for reportID.
	Upsert(ctx context.Context, reportID string, vector []float32, meta Meta) error
	// Nearest returns matches ordered by descending similarity.
	Nearest(ctx context.Context, vector []float32, q Query) ([]Match, error)
	// Delete removes the vector for reportID. Missing vectors are not an error.
	Delete(ctx context.Context, reportID string) error
}

// MinSimilarity is a convenience for building Query.MinSimilarity.
func MinSimilarity(v float64) *float64 {
	return &v
}

// accepts applies the Query filters that do not need the vector.
func (q Query) accepts(reportID string, meta Meta, similarity float64) bool {
	if q.ExcludeID != "" && reportID == q.ExcludeID {
		return false
	}
	if q.Category != "" && meta.Category != q.Category {
		return false
	}
	if q.MinSimilarity != nil && similarity < *q.MinSimilarity {
		return false
	}
	return true
}

// sortMatches orders by similarity desc, ties by report id for stable output.
func sortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].ReportID < matches[j].ReportID
	})
}
