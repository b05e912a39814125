package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"tourrag/internal/domain"
	"tourrag/internal/port"
)

const DefaultGeminiModel = "gemini-2.0-flash"

type GeminiGenerator struct {
	client *genai.Client
	model  string
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, &domain.ConfigurationError{Field: "generation.api_key", Reason: "Gemini API key is required"}
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

	return &GeminiGenerator{client: client, model: model}, nil
}

func (g *GeminiGenerator) Stream(ctx context.Context, req port.GenerateRequest, onChunk func(string) error) error {
	contents, systemText, err := toGeminiContents(req.Messages)
	if err != nil {
		return err
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	}
	if systemText != "" {
		config.SystemInstruction = genai.NewContentFromText(systemText, genai.RoleUser)
	}

	for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, contents, config) {
		if err != nil {
			return fmt.Errorf("chat generation failed: %w", err)
		}
		if resp == nil {
			continue
		}
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part.Text == "" {
					continue
				}
				if err := onChunk(part.Text); err != nil {
					return err
				}
			}
			break
		}
	}

	return nil
}

func (g *GeminiGenerator) ModelName() string {
	return g.model
}

// toGeminiContents splits out the first system message and maps the rest to
// Gemini roles.
func toGeminiContents(messages []domain.Message) ([]*genai.Content, string, error) {
	contents := make([]*genai.Content, 0, len(messages))
	var systemText string
	hasUser := false

	for _, msg := range messages {
		if msg.Role == domain.RoleSystem {
			if systemText == "" {
				systemText = msg.Content
			}
			continue
		}

		role := genai.RoleUser
		if msg.Role == domain.RoleAssistant {
			role = genai.RoleModel
		} else {
			hasUser = true
		}

		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(msg.Content)},
		})
	}

	if !hasUser {
		return nil, "", fmt.Errorf("at least one message must have role 'user'")
	}
	return contents, systemText, nil
}
