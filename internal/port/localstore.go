package port

import (
	"context"

	"tourrag/internal/domain"
)

// LocalStore persists embedding records on local disk for the offline fallback.
type LocalStore interface {
	// Load returns domain.ErrStoreNotFound when nothing has been saved yet.
	Load(ctx context.Context) ([]domain.LocalRecord, error)

	// Save replaces the stored records wholesale.
	Save(ctx context.Context, records []domain.LocalRecord) error

	Path() string
}
