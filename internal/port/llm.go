package port

import (
	"context"

	"tourrag/internal/domain"
)

type GenerateRequest struct {
	Messages    []domain.Message
	Temperature float32
}

// Generator streams a chat completion.
type Generator interface {
	// Stream calls onChunk for every piece of text as it arrives. Returning an
	// error from onChunk stops the stream and is returned from Stream.
	Stream(ctx context.Context, req GenerateRequest, onChunk func(chunk string) error) error

	// ModelName returns the name of the model.
	ModelName() string
}
