package embedding

import (
	"context"
	"fmt"

	"dira-go/pkg/log"
)

// FallbackClient tries primary first and fallback on any error.
// Both must produce vectors of the same dimensionality. Vectors from different models are not
// comparable, so callers that persist vectors record the answering model via EmbedWithModel.
type FallbackClient struct {
	primary  Client
	fallback Client
}

// NewFallbackClient wraps primary with fallback.
func NewFallbackClient(primary, fallback Client) *FallbackClient {
	return &FallbackClient{primary: primary, fallback: fallback}
}

// Model reports the primary model. EmbedWithModel names the model that actually answered.
func (c *FallbackClient) Model() string {
	return c.primary.Model()
}

// CreateEmbedding implements Client.
func (c *FallbackClient) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	v, _, err := c.embedWithModel(ctx, text)
	return v, err
}

// CreateEmbeddings implements Client.
func (c *FallbackClient) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	v, _, err := c.embedManyWithModel(ctx, texts)
	return v, err
}

func (c *FallbackClient) embedWithModel(ctx context.Context, text string) ([]float32, string, error) {
	embedding, model, err := EmbedWithModel(ctx, c.primary, text)
	if err == nil {
		return embedding, model, nil
	}
	log.Warnf("[EmbeddingClient] primary embedding failed, trying fallback: %v", err)
	embedding, model, fbErr := EmbedWithModel(ctx, c.fallback, text)
	if fbErr != nil {
		return nil, "", fmt.Errorf("primary: %v; fallback: %w", err, fbErr)
	}
	return embedding, model, nil
}

func (c *FallbackClient) embedManyWithModel(ctx context.Context, texts []string) ([][]float32, string, error) {
	embeddings, model, err := EmbedManyWithModel(ctx, c.primary, texts)
	if err == nil {
		return embeddings, model, nil
	}
	log.Warnf("[EmbeddingClient] primary batch embedding failed, trying fallback: %v", err)
	embeddings, model, fbErr := EmbedManyWithModel(ctx, c.fallback, texts)
	if fbErr != nil {
		return nil, "", fmt.Errorf("primary: %v; fallback: %w", err, fbErr)
	}
	return embeddings, model, nil
}
