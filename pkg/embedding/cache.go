package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"dira-go/pkg/log"

	"github.com/go-redis/redis/v8"
)

// kv is the subset of the redis client used by the cache.
type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedClient memoises vectors in redis under model + sha256(text).
// Redis errors are logged and never fail an embedding call.
type CachedClient struct {
	next Client
	rdb  kv
	ttl  time.Duration
}

// NewCachedClient wraps next with a redis cache.
func NewCachedClient(next Client, rdb kv, ttl time.Duration) *CachedClient {
	return &CachedClient{next: next, rdb: rdb, ttl: ttl}
}

// Model implements Client.
func (c *CachedClient) Model() string {
	return c.next.Model()
}

func (c *CachedClient) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "embedding:" + c.next.Model() + ":" + hex.EncodeToString(sum[:])
}

func (c *CachedClient) lookup(ctx context.Context, text string) ([]float32, bool) {
	raw, err := c.rdb.Get(ctx, c.key(text)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warnf("[EmbeddingCache] redis get failed: %v", err)
		}
		return nil, false
	}
	var v []float32
	if err := json.Unmarshal(raw, &v); err != nil || len(v) == 0 {
		return nil, false
	}
	return v, true
}

func (c *CachedClient) store(ctx context.Context, text string, v []float32) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.key(text), raw, c.ttl).Err(); err != nil {
		log.Warnf("[EmbeddingCache] redis set failed: %v", err)
	}
}

// CreateEmbedding implements Client.
func (c *CachedClient) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.lookup(ctx, text); ok {
		return v, nil
	}
	v, err := c.next.CreateEmbedding(ctx, text)
	if err != nil {
		return nil, err
	}
	c.store(ctx, text, v)
	return v, nil
}

// CreateEmbeddings implements Client. Only cache misses are sent to the provider.
func (c *CachedClient) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int
	for i, text := range texts {
		if v, ok := c.lookup(ctx, text); ok {
			out[i] = v
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	fresh, err := c.next.CreateEmbeddings(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, v := range fresh {
		if j >= len(missIdx) {
			break
		}
		out[missIdx[j]] = v
		c.store(ctx, missTexts[j], v)
	}
	return out, nil
}
