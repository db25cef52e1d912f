package providers

import (
	"context"

	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/entities"
)

// SearchIndexProvider pushes search entries to an external full-text index
type SearchIndexProvider interface {
	// EnsureIndex creates the index when missing
	EnsureIndex(ctx context.Context) error

	// ResetIndex drops and recreates the index
	ResetIndex(ctx context.Context) error

	// Index upserts one entry
	Index(ctx context.Context, entry *entities.SearchEntry) error
}
