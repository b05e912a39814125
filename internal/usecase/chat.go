package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/ternarybob/arbor"

	"tourrag/internal/domain"
	"tourrag/internal/port"
)

const noContextNote = "No relevant attraction information was found for this question."

const lowConfidenceNote = "The sources below were matched by keyword only and may be loosely related."

type ChatRequest struct {
	Message string
	History []domain.Message
}

type ChatOptions struct {
	SystemPrompt string
	Temperature  float32
	TopK         int
}

// ChatUseCase answers a message with retrieved context and streams the
// generated reply.
type ChatUseCase struct {
	retrieve  *RetrieveUseCase
	generator port.Generator
	opts      ChatOptions
	logger    arbor.ILogger
}

func NewChatUseCase(retrieve *RetrieveUseCase, generator port.Generator, opts ChatOptions, logger arbor.ILogger) *ChatUseCase {
	return &ChatUseCase{
		retrieve:  retrieve,
		generator: generator,
		opts:      opts,
		logger:    logger,
	}
}

// Stream retrieves context for req.Message and calls onChunk with each piece
// of the reply. The retrieval result is returned even when generation fails
// part-way.
func (u *ChatUseCase) Stream(ctx context.Context, req ChatRequest, onChunk func(string) error) (*domain.RetrievalResult, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, errors.New("message is required")
	}

	result, err := u.retrieve.Retrieve(ctx, message, u.opts.TopK)
	if err != nil {
		return nil, err
	}

	u.logger.Info().
		Str("tier", result.Tier.String()).
		Int("hits", len(result.Hits)).
		Bool("low_confidence", result.LowConfidence).
		Msg("Context retrieved for chat")

	genReq := port.GenerateRequest{
		Messages:    u.buildMessages(message, req.History, result),
		Temperature: u.opts.Temperature,
	}
	if err := u.generator.Stream(ctx, genReq, onChunk); err != nil {
		return result, err
	}
	return result, nil
}

// buildMessages puts the formatted context in the system message, followed
// by the prior turns and the new user message.
func (u *ChatUseCase) buildMessages(message string, history []domain.Message, result *domain.RetrievalResult) []domain.Message {
	var system strings.Builder
	system.WriteString(u.opts.SystemPrompt)
	system.WriteString("\n\n")

	if result.Empty() {
		system.WriteString(noContextNote)
	} else {
		if result.LowConfidence {
			system.WriteString(lowConfidenceNote)
			system.WriteString("\n\n")
		}
		system.WriteString("Context:\n\n")
		system.WriteString(FormatContext(result.Hits))
	}

	messages := make([]domain.Message, 0, len(history)+2)
	messages = append(messages, domain.Message{Role: domain.RoleSystem, Content: strings.TrimSpace(system.String())})
	for _, m := range history {
		if m.Role != domain.RoleUser && m.Role != domain.RoleAssistant {
			continue
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		messages = append(messages, m)
	}
	messages = append(messages, domain.Message{Role: domain.RoleUser, Content: message})
	return messages
}
