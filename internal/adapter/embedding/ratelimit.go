package embedding

import (
	"context"

	"golang.org/x/time/rate"

	"tourrag/internal/port"
)

// RateLimitedEmbedder spaces calls to an embedding API to stay under its
// request quota.
type RateLimitedEmbedder struct {
	embedder port.Embedder
	limiter  *rate.Limiter
}

var _ port.Embedder = (*RateLimitedEmbedder)(nil)

// NewRateLimitedEmbedder returns embedder unchanged when requestsPerSecond <= 0.
func NewRateLimitedEmbedder(embedder port.Embedder, requestsPerSecond float64) port.Embedder {
	if requestsPerSecond <= 0 {
		return embedder
	}
	burst := int(requestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedEmbedder{
		embedder: embedder,
		limiter:  rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

func (e *RateLimitedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return e.embedder.Embed(ctx, text)
}

func (e *RateLimitedEmbedder) Dimension() int {
	return e.embedder.Dimension()
}

func (e *RateLimitedEmbedder) ModelName() string {
	return e.embedder.ModelName()
}
