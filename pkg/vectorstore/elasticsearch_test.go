package vectorstore

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKnnQueryPassesThresholdToServer(t *testing.T) {
	body := knnQuery([]float32{1, 0}, Query{
		Category:      "utility",
		ExcludeID:     "self",
		MinSimilarity: MinSimilarity(0.8),
		Limit:         5,
	})

	raw, err := json.Marshal(body)
	require.NoError(t, err)
	var decoded struct {
		Knn struct {
			K             int     `json:"k"`
			NumCandidates int     `json:"num_candidates"`
			Similarity    float64 `json:"similarity"`
			Filter        struct {
				Bool struct {
					Filter  []map[string]map[string]string `json:"filter"`
					MustNot []map[string]map[string]string `json:"must_not"`
				} `json:"bool"`
			} `json:"filter"`
		} `json:"knn"`
		Size int `json:"size"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, 5, decoded.Knn.K)
	assert.Equal(t, 5, decoded.Size)
	assert.Equal(t, 100, decoded.Knn.NumCandidates)
	assert.InDelta(t, 0.8, decoded.Knn.Similarity, 1e-9)
	require.Len(t, decoded.Knn.Filter.Bool.Filter, 1)
	assert.Equal(t, "utility", decoded.Knn.Filter.Bool.Filter[0]["term"]["category"])
	require.Len(t, decoded.Knn.Filter.Bool.MustNot, 1)
	assert.Equal(t, "self", decoded.Knn.Filter.Bool.MustNot[0]["term"]["report_id"])
}

func TestKnnQueryWithoutThreshold(t *testing.T) {
	body := knnQuery([]float32{1, 0}, Query{Limit: 2000})
	knn := body["knn"].(map[string]interface{})
	_, hasSimilarity := knn["similarity"]
	assert.False(t, hasSimilarity)
	assert.Equal(t, 10000, knn["num_candidates"])

	raw, err := json.Marshal(body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"filter":[]`)
}

func TestSearchResponseConvertsScores(t *testing.T) {
	var resp esSearchResponse
	require.NoError(t, json.Unmarshal([]byte(`{"hits":{"hits":[
		{"_id":"b","_score":0.9,"_source":{"report_id":"b"}},
		{"_id":"a","_score":0.95,"_source":{}},
		{"_id":"c","_score":0.85,"_source":{"report_id":"c"}}
	]}}`), &resp))

	matches := resp.matches(Query{MinSimilarity: MinSimilarity(0.8)})
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].ReportID)
	assert.InDelta(t, 0.9, matches[0].Similarity, 1e-9)
	assert.Equal(t, "b", matches[1].ReportID)
	assert.InDelta(t, 0.8, matches[1].Similarity, 1e-9)
}
