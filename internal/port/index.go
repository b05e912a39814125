package port

import (
	"context"

	"tourrag/internal/domain"
)

// DistanceCosine is the metric collections are created with.
const DistanceCosine = "Cosine"

type CollectionSpec struct {
	Dimension int
	Distance  string
}

type CollectionInfo struct {
	Name        string
	Status      string
	PointsCount int
	Dimension   int
}

type SearchRequest struct {
	Vector []float32
	Limit  int
}

type ScrollRequest struct {
	Field    string
	Keywords []string // matched with OR semantics against Field's text index
	Limit    int
}

// VectorIndex is the external vector index service bound to one collection.
type VectorIndex interface {
	CreateCollection(ctx context.Context, spec CollectionSpec) error
	DeleteCollection(ctx context.Context) error

	// GetCollection returns domain.ErrCollectionNotFound when the collection is absent.
	GetCollection(ctx context.Context) (*CollectionInfo, error)

	Upsert(ctx context.Context, records []domain.EmbeddingRecord) error
	Search(ctx context.Context, req SearchRequest) ([]domain.SearchHit, error)
	Count(ctx context.Context) (int, error)
	Name() string
}

// TextSearcher is implemented by indexes that support payload full-text filters.
type TextSearcher interface {
	EnsureTextIndex(ctx context.Context, field string) error
	Scroll(ctx context.Context, req ScrollRequest) ([]domain.SearchHit, error)
}
