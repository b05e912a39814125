package embedding

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"tourrag/internal/domain"
)

type OpenAIEmbedder struct {
	client    *openai.Client
	model     openai.EmbeddingModel
	dimension int
}

// NewOpenAIEmbedder creates an embedder for the OpenAI embeddings API. An empty
// baseURL uses the public endpoint; any OpenAI-compatible server works otherwise.
func NewOpenAIEmbedder(apiKey, model, baseURL string, dimension int) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, &domain.ConfigurationError{Field: "embedding.api_key", Reason: "OpenAI API key is required"}
	}
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAIEmbedder{
		client:    openai.NewClientWithConfig(cfg),
		model:     openai.EmbeddingModel(model),
		dimension: dimension,
	}, nil
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input:      []string{text},
		Model:      e.model,
		Dimensions: e.dimension,
	})
	if err != nil {
		return nil, &domain.EmbeddingError{Input: text, Err: err}
	}
	if len(resp.Data) == 0 {
		return nil, &domain.EmbeddingError{Input: text, Err: fmt.Errorf("no embeddings returned")}
	}

	return resp.Data[0].Embedding, nil
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

func (e *OpenAIEmbedder) ModelName() string {
	return string(e.model)
}
