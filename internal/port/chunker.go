package port

import "tourrag/internal/domain"

type Chunker interface {
	Chunk(parentID, text string) ([]domain.Chunk, error)
}
