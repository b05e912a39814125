package port

import (
	"context"

	"tourrag/internal/domain"
)

type FileWalker interface {
	Walk(root string) ([]FileInfo, error)
}

type FileInfo struct {
	Path    string
	ModTime int64
	Size    int64
}

// SourceLoader produces the documents of one ingestion run.
type SourceLoader interface {
	Load(ctx context.Context) ([]domain.SourceDocument, error)
}
