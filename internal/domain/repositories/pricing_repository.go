package repositories

import (
	"context"

	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/entities"
)

// CatalogRepository reads the reference hierarchy and current price records
type CatalogRepository interface {
	// LoadCatalog reads every pack, product and price record in one pass
	LoadCatalog(ctx context.Context) (*entities.Catalog, error)
}

// PriceRecordRepository persists price records
type PriceRecordRepository interface {
	// Insert creates a price record for a pack that has none
	Insert(ctx context.Context, record *entities.PriceRecord) error

	// Update overwrites the derived fields of an existing price record
	Update(ctx context.Context, record *entities.PriceRecord) error
}

// SearchEntryRepository maintains the denormalized search projection
type SearchEntryRepository interface {
	// InsertMissing creates entries for packs that have none and returns how many were added
	InsertMissing(ctx context.Context) (int64, error)

	// RefreshPrices re-derives price fields for every entry and returns the rows touched
	RefreshPrices(ctx context.Context) (int64, error)

	// List pages through entries ordered by pack id, starting after afterID
	List(ctx context.Context, afterID int64, limit int) ([]*entities.SearchEntry, error)
}

// AnalysisRepository computes store-wide pricing statistics
type AnalysisRepository interface {
	// Analyse summarises price coverage, reasons and methods
	Analyse(ctx context.Context) (*entities.PriceAnalysis, error)
}

// Tx exposes the repositories bound to one store transaction
type Tx interface {
	Catalog() CatalogRepository
	PriceRecords() PriceRecordRepository
	SearchEntries() SearchEntryRepository
}

// Store is the relational store the pricing engine runs against
type Store interface {
	// WithinTx runs fn in a single transaction, committing when fn returns nil
	// and rolling back otherwise
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// SearchEntries reads the projection outside a transaction
	SearchEntries() SearchEntryRepository

	// Analysis reads pricing statistics
	Analysis() AnalysisRepository

	// Migrate creates any missing tables and indexes
	Migrate(ctx context.Context) error

	// Close releases the underlying connection
	Close() error
}
