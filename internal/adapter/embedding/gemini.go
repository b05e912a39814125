package embedding

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"tourrag/internal/domain"
)

const DefaultGeminiModel = "gemini-embedding-001"

// GeminiEmbedder embeds text with the Gemini embeddings API, truncated to the
// configured output dimensionality.
type GeminiEmbedder struct {
	client    *genai.Client
	model     string
	dimension int
}

func NewGeminiEmbedder(ctx context.Context, apiKey, model string, dimension int) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, &domain.ConfigurationError{Field: "embedding.api_key", Reason: "Gemini API key is required"}
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	return &GeminiEmbedder{client: client, model: model, dimension: dimension}, nil
}

func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	outputDim := int32(e.dimension)
	result, err := e.client.Models.EmbedContent(ctx, e.model,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		&genai.EmbedContentConfig{OutputDimensionality: &outputDim})
	if err != nil {
		return nil, &domain.EmbeddingError{Input: text, Err: err}
	}

	if result == nil || len(result.Embeddings) == 0 || result.Embeddings[0].Values == nil {
		return nil, &domain.EmbeddingError{Input: text, Err: fmt.Errorf("no embedding returned from API")}
	}

	return result.Embeddings[0].Values, nil
}

func (e *GeminiEmbedder) Dimension() int {
	return e.dimension
}

func (e *GeminiEmbedder) ModelName() string {
	return e.model
}
