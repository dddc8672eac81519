// Package embedding provides clients for embedding models.
package embedding

import (
	"context"
	"fmt"
	"net/http"

	"dira-go/internal/config"
	"dira-go/pkg/log"

	"github.com/go-redis/redis/v8"
)

// Client defines the interface for an embedding client.
type Client interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
	// Model names the model whose vectors this client returns.
	Model() string
}

// NewClient builds the configured provider chain: primary, optional fallback, each behind a
// redis cache when rdb is not nil.
func NewClient(cfg config.EmbeddingConfig, rdb *redis.Client) (Client, error) {
	primary, err := newProvider(cfg.Primary, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create primary provider: %w", err)
	}

	cache := func(c Client) Client {
		if rdb != nil && cfg.CacheTTL > 0 {
			return NewCachedClient(c, rdb, cfg.CacheTTL)
		}
		return c
	}

	// Each provider gets its own cache so a key always names the model that produced the vector.
	client := cache(primary)
	if cfg.Fallback.Provider != "" {
		fallback, err := newProvider(cfg.Fallback, cfg)
		if err != nil {
			log.Warnf("[EmbeddingClient] failed to create fallback provider: %v", err)
		} else {
			client = NewFallbackClient(client, cache(fallback))
		}
	}
	return client, nil
}

func newProvider(p config.ProviderConfig, cfg config.EmbeddingConfig) (Client, error) {
	switch p.Provider {
	case "compatible", "":
		return NewCompatibleClient(p, cfg.Dimensions, &http.Client{Timeout: cfg.Timeout}), nil
	case "openai":
		return NewOpenAIClient(p, cfg.Dimensions), nil
	case "gemini":
		return NewGeminiClient(context.Background(), p, cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown provider: %s", p.Provider)
	}
}

func firstEmbedding(embeddings [][]float32, err error) ([]float32, error) {
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, fmt.Errorf("received empty embedding from api")
	}
	return embeddings[0], nil
}

// modelEmbedder is implemented by clients whose answering model can change from call to call.
type modelEmbedder interface {
	embedWithModel(ctx context.Context, text string) ([]float32, string, error)
	embedManyWithModel(ctx context.Context, texts []string) ([][]float32, string, error)
}

// EmbedWithModel embeds text and names the model that produced the vector.
func EmbedWithModel(ctx context.Context, c Client, text string) ([]float32, string, error) {
	if m, ok := c.(modelEmbedder); ok {
		return m.embedWithModel(ctx, text)
	}
	v, err := c.CreateEmbedding(ctx, text)
	return v, c.Model(), err
}

// EmbedManyWithModel is the batch form of EmbedWithModel.
func EmbedManyWithModel(ctx context.Context, c Client, texts []string) ([][]float32, string, error) {
	if m, ok := c.(modelEmbedder); ok {
		return m.embedManyWithModel(ctx, texts)
	}
	v, err := c.CreateEmbeddings(ctx, texts)
	return v, c.Model(), err
}
