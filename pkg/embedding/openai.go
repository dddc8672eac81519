package embedding

import (
	"context"
	"fmt"

	"dira-go/internal/config"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient implements Client using the OpenAI SDK.
type OpenAIClient struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
}

// NewOpenAIClient creates an OpenAI embedding client. BaseURL overrides the API host when set.
func NewOpenAIClient(cfg config.ProviderConfig, dimensions int) *OpenAIClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := openai.SmallEmbedding3
	if cfg.Model != "" {
		model = openai.EmbeddingModel(cfg.Model)
	}
	return &OpenAIClient{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      model,
		dimensions: dimensions,
	}
}

// Model implements Client.
func (c *OpenAIClient) Model() string {
	return string(c.model)
}

// CreateEmbedding generates an embedding for a single text.
func (c *OpenAIClient) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return firstEmbedding(c.CreateEmbeddings(ctx, []string{text}))
}

// CreateEmbeddings generates embeddings for multiple texts.
func (c *OpenAIClient) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      texts,
		Model:      c.model,
		Dimensions: c.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}

	embeddings := make([][]float32, len(texts))
	for i, data := range resp.Data {
		idx := data.Index
		if idx < 0 || idx >= len(embeddings) {
			idx = i
		}
		embeddings[idx] = data.Embedding
	}
	return embeddings, nil
}
