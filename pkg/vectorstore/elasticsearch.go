package vectorstore

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"dira-go/internal/config"
	"dira-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ElasticsearchStore keeps one document per report in a dense_vector index with cosine similarity.
type ElasticsearchStore struct {
	client    *elasticsearch.Client
	indexName string
}

type esDocument struct {
	ReportID    string    `json:"report_id"`
	Category    string    `json:"category,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
	Vector      []float32 `json:"vector"`
}

// NewElasticsearchStore connects to Elasticsearch and creates the index when it is missing.
func NewElasticsearchStore(ctx context.Context, esCfg config.ElasticsearchConfig, dims int) (*ElasticsearchStore, error) {
	cfg := elasticsearch.Config{
		Addresses: strings.Split(esCfg.Addresses, ","),
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	s := &ElasticsearchStore{client: client, indexName: esCfg.IndexName}
	if err := s.createIndexIfNotExists(ctx, dims); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ElasticsearchStore) createIndexIfNotExists(ctx context.Context, dims int) error {
	res, err := s.client.Indices.Exists([]string{s.indexName}, s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s: %w", s.indexName, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		log.Infof("[VectorStore] index '%s' already exists", s.indexName)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("check index %s: unexpected status %d", s.indexName, res.StatusCode)
	}

	mapping := fmt.Sprintf(`{
		"mappings": {
			"properties": {
				"report_id": { "type": "keyword" },
				"category": { "type": "keyword" },
				"submitted_at": { "type": "date" },
				"vector": {
					"type": "dense_vector",
					"dims": %d,
					"index": true,
					"similarity": "cosine"
				}
			}
		}
	}`, dims)

	res, err = s.client.Indices.Create(
		s.indexName,
		s.client.Indices.Create.WithBody(strings.NewReader(mapping)),
		s.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", s.indexName, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("create index %s: %s", s.indexName, res.String())
	}
	log.Infof("[VectorStore] index '%s' created with %d dims", s.indexName, dims)
	return nil
}

// Upsert implements Store. Indexing by report id overwrites any previous document.
func (s *ElasticsearchStore) Upsert(ctx context.Context, reportID string, vector []float32, meta Meta) error {
	body, err := json.Marshal(esDocument{
		ReportID:    reportID,
		Category:    meta.Category,
		SubmittedAt: meta.SubmittedAt,
		Vector:      vector,
	})
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      s.indexName,
		DocumentID: reportID,
		Body:       bytes.NewReader(body),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("index vector: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("[VectorStore] index vector for report %s failed: %s", reportID, res.String())
		return errors.New("failed to index vector")
	}
	return nil
}

type esSearchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string  `json:"_id"`
			Score  float64 `json:"_score"`
			Source struct {
				ReportID string `json:"report_id"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// knnQuery builds the filtered knn search body. The knn similarity bound is expressed in raw cosine,
// so the server prunes below the threshold before taking the top k.
func knnQuery(vector []float32, q Query) map[string]interface{} {
	k := q.Limit
	if k <= 0 {
		k = 10
	}

	filter := []map[string]interface{}{}
	if q.Category != "" {
		filter = append(filter, map[string]interface{}{"term": map[string]interface{}{"category": q.Category}})
	}
	boolQuery := map[string]interface{}{"filter": filter}
	if q.ExcludeID != "" {
		boolQuery["must_not"] = []map[string]interface{}{
			{"term": map[string]interface{}{"report_id": q.ExcludeID}},
		}
	}

	knn := map[string]interface{}{
		"field":          "vector",
		"query_vector":   vector,
		"k":              k,
		"num_candidates": min(max(k*10, 100), 10000),
		"filter":         map[string]interface{}{"bool": boolQuery},
	}
	if q.MinSimilarity != nil {
		knn["similarity"] = *q.MinSimilarity
	}
	return map[string]interface{}{
		"knn":     knn,
		"size":    k,
		"_source": []string{"report_id"},
	}
}

// Nearest implements Store with a filtered knn query.
// Elasticsearch scores cosine as (1+cos)/2, so hits are converted back before filtering.
func (s *ElasticsearchStore) Nearest(ctx context.Context, vector []float32, q Query) ([]Match, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(knnQuery(vector, q)); err != nil {
		return nil, err
	}
	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.indexName),
		s.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("knn search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("knn search: %s", res.String())
	}

	var parsed esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode knn response: %w", err)
	}

	return parsed.matches(q), nil
}

// matches converts hits back to cosine similarity. Scores are float32 on the server, so a hit the
// server accepted may land a hair under the bound.
func (r esSearchResponse) matches(q Query) []Match {
	matches := make([]Match, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		id := hit.Source.ReportID
		if id == "" {
			id = hit.ID
		}
		sim := 2*hit.Score - 1
		if q.MinSimilarity != nil && sim < *q.MinSimilarity-1e-6 {
			continue
		}
		matches = append(matches, Match{ReportID: id, Similarity: sim})
	}
	sortMatches(matches)
	return matches
}

// Delete implements Store.
func (s *ElasticsearchStore) Delete(ctx context.Context, reportID string) error {
	req := esapi.DeleteRequest{Index: s.indexName, DocumentID: reportID, Refresh: "true"}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("delete vector: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete vector: %s", res.String())
	}
	return nil
}
