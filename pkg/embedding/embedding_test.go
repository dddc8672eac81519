package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"dira-go/internal/config"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompatibleClientCreateEmbedding(t *testing.T) {
	var got embeddingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[0.1,0.2,0.3]}]}`))
	}))
	defer srv.Close()

	c := NewCompatibleClient(config.ProviderConfig{BaseURL: srv.URL + "/v1/", APIKey: "secret", Model: "mini"}, 3, srv.Client())
	v, err := c.CreateEmbedding(context.Background(), "Pothole on Elm Street")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, v)
	assert.Equal(t, "mini", got.Model)
	assert.Equal(t, []string{"Pothole on Elm Street"}, got.Input)
	assert.Equal(t, 3, got.Dimensions)
}

func TestCompatibleClientOrdersByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[2]},{"index":0,"embedding":[1]}]}`))
	}))
	defer srv.Close()

	c := NewCompatibleClient(config.ProviderConfig{BaseURL: srv.URL}, 0, nil)
	v, err := c.CreateEmbeddings(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}, {2}}, v)
}

func TestCompatibleClientErrors(t *testing.T) {
	tests := []struct {
		name string
		code int
		body string
	}{
		{name: "non-200", code: http.StatusServiceUnavailable, body: `{}`},
		{name: "empty data", code: http.StatusOK, body: `{"data":[]}`},
		{name: "bad json", code: http.StatusOK, body: `{"data":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewCompatibleClient(config.ProviderConfig{BaseURL: srv.URL}, 0, nil)
			_, err := c.CreateEmbedding(context.Background(), "x")
			assert.Error(t, err)
		})
	}
}

type stubClient struct {
	model string
	vec   []float32
	err   error
	calls int
}

func (s *stubClient) Model() string { return s.model }

func (s *stubClient) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.vec, nil
}

func (s *stubClient) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.vec
	}
	return out, nil
}

func TestFallbackClient(t *testing.T) {
	ctx := context.Background()

	primary := &stubClient{model: "p", vec: []float32{1}}
	fallback := &stubClient{model: "f", vec: []float32{2}}
	c := NewFallbackClient(primary, fallback)
	v, err := c.CreateEmbedding(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, v)
	assert.Equal(t, 0, fallback.calls)
	assert.Equal(t, "p", c.Model())

	primary.err = errors.New("down")
	v, err = c.CreateEmbedding(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, []float32{2}, v)

	fallback.err = errors.New("also down")
	_, err = c.CreateEmbeddings(ctx, []string{"x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, fallback.err)
}

type memKV struct {
	mu   sync.Mutex
	data map[string]string
	ttl  time.Duration
}

func (m *memKV) Get(ctx context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memKV) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = string(value.([]byte))
	m.ttl = expiration
	return redis.NewStatusResult("OK", nil)
}

func TestCachedClientHitsRedisForRepeatedText(t *testing.T) {
	ctx := context.Background()
	next := &stubClient{model: "mini", vec: []float32{0.5, 0.25}}
	store := &memKV{data: map[string]string{}}
	c := NewCachedClient(next, store, time.Hour)

	v1, err := c.CreateEmbedding(ctx, "Broken streetlight")
	require.NoError(t, err)
	v2, err := c.CreateEmbedding(ctx, "Broken streetlight")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, time.Hour, store.ttl)
	assert.Len(t, store.data, 1)

	batch, err := c.CreateEmbeddings(ctx, []string{"Broken streetlight", "Water leak"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.5, 0.25}, {0.5, 0.25}}, batch)
	assert.Equal(t, 2, next.calls)
	assert.Len(t, store.data, 2)
}

func TestCachedClientDoesNotCacheErrors(t *testing.T) {
	next := &stubClient{model: "mini", err: errors.New("boom")}
	store := &memKV{data: map[string]string{}}
	c := NewCachedClient(next, store, time.Hour)

	_, err := c.CreateEmbedding(context.Background(), "x")
	require.Error(t, err)
	assert.Empty(t, store.data)
}

func TestFallbackReportsAnsweringModel(t *testing.T) {
	ctx := context.Background()
	primary := &stubClient{model: "p", vec: []float32{1}}
	fallback := &stubClient{model: "f", vec: []float32{2}}
	c := NewFallbackClient(primary, fallback)

	_, model, err := EmbedWithModel(ctx, c, "x")
	require.NoError(t, err)
	assert.Equal(t, "p", model)

	primary.err = errors.New("down")
	v, model, err := EmbedWithModel(ctx, c, "x")
	require.NoError(t, err)
	assert.Equal(t, []float32{2}, v)
	assert.Equal(t, "f", model)

	_, model, err = EmbedManyWithModel(ctx, c, []string{"x", "y"})
	require.NoError(t, err)
	assert.Equal(t, "f", model)

	_, model, err = EmbedWithModel(ctx, primary, "x")
	require.Error(t, err)
	assert.Equal(t, "p", model)
}

func TestFallbackVectorsAreCachedUnderTheirOwnModel(t *testing.T) {
	ctx := context.Background()
	store := &memKV{data: map[string]string{}}
	primary := &stubClient{model: "p", err: errors.New("down")}
	fallback := &stubClient{model: "f", vec: []float32{2}}
	c := NewFallbackClient(NewCachedClient(primary, store, time.Hour), NewCachedClient(fallback, store, time.Hour))

	_, model, err := EmbedWithModel(ctx, c, "Flooded road")
	require.NoError(t, err)
	assert.Equal(t, "f", model)
	require.Len(t, store.data, 1)
	for key := range store.data {
		assert.Contains(t, key, "embedding:f:")
	}

	// The primary recovers: its cache is empty, so the fallback vector is not served as a primary one.
	primary.err = nil
	primary.vec = []float32{1}
	v, model, err := EmbedWithModel(ctx, c, "Flooded road")
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, v)
	assert.Equal(t, "p", model)
}
