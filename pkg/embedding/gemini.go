package embedding

import (
	"context"
	"fmt"

	"dira-go/internal/config"

	"google.golang.org/genai"
)

// GeminiClient implements Client using Google's Gemini API.
type GeminiClient struct {
	client     *genai.Client
	model      string
	dimensions int
}

// NewGeminiClient creates a Gemini embedding client.
func NewGeminiClient(ctx context.Context, cfg config.ProviderConfig, dimensions int) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-embedding-001"
	}
	return &GeminiClient{client: client, model: model, dimensions: dimensions}, nil
}

// Model implements Client.
func (c *GeminiClient) Model() string {
	return c.model
}

// CreateEmbedding generates an embedding for a single text.
func (c *GeminiClient) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return firstEmbedding(c.CreateEmbeddings(ctx, []string{text}))
}

// CreateEmbeddings generates embeddings for multiple texts.
func (c *GeminiClient) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = &genai.Content{Parts: []*genai.Part{{Text: text}}}
	}

	dims := int32(c.dimensions)
	result, err := c.client.Models.EmbedContent(ctx, c.model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &dims,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}

	embeddings := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		embeddings[i] = emb.Values
	}
	return embeddings, nil
}
