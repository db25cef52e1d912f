package search

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/entities"
	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/providers"
	"github.com/CiaranKeogh/Portfolio-Projects/internal/infrastructure/observability"
	apperrors "github.com/CiaranKeogh/Portfolio-Projects/pkg/errors"
	"github.com/sony/gobreaker"
)

// PackIndex is the slice of the Typesense client the adapter needs
type PackIndex interface {
	InitSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error
	UpsertPack(ctx context.Context, document map[string]interface{}) error
}

// BreakerConfig tunes the circuit breaker around the index
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultBreakerConfig trips after five consecutive failures and probes again after 30s
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// TypesenseAdapter implements SearchIndexProvider for the packs collection
type TypesenseAdapter struct {
	index PackIndex
	cb    *gobreaker.CircuitBreaker
}

// Ensure TypesenseAdapter implements SearchIndexProvider
var _ providers.SearchIndexProvider = (*TypesenseAdapter)(nil)

// NewTypesenseAdapter creates a new Typesense adapter
func NewTypesenseAdapter(index PackIndex, cfg BreakerConfig) *TypesenseAdapter {
	settings := gobreaker.Settings{
		Name:        "typesense-packs",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			observability.GetLogger().Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Search index circuit breaker changed state")
		},
	}
	return &TypesenseAdapter{
		index: index,
		cb:    gobreaker.NewCircuitBreaker(settings),
	}
}

// EnsureIndex creates the packs collection when missing
func (a *TypesenseAdapter) EnsureIndex(ctx context.Context) error {
	if err := a.index.InitSchema(ctx); err != nil {
		return apperrors.NewExternalError("failed to ensure search index", err)
	}
	return nil
}

// ResetIndex drops and recreates the packs collection
func (a *TypesenseAdapter) ResetIndex(ctx context.Context) error {
	if err := a.index.DropSchema(ctx); err != nil {
		return apperrors.NewExternalError("failed to drop search index", err)
	}
	return a.EnsureIndex(ctx)
}

// Index upserts one pack. Calls fail fast while the breaker is open.
func (a *TypesenseAdapter) Index(ctx context.Context, entry *entities.SearchEntry) error {
	_, err := a.cb.Execute(func() (interface{}, error) {
		return nil, a.index.UpsertPack(ctx, PackDocument(entry))
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return apperrors.NewExternalError("search index unavailable", err)
		}
		return apperrors.NewExternalError("failed to index pack "+strconv.FormatInt(entry.PackID, 10), err)
	}
	return nil
}

// State reports the breaker state
func (a *TypesenseAdapter) State() gobreaker.State {
	return a.cb.State()
}

// PackDocument maps an entry to its index document. Absent prices are omitted.
func PackDocument(entry *entities.SearchEntry) map[string]interface{} {
	doc := map[string]interface{}{
		"id":       strconv.FormatInt(entry.PackID, 10),
		"name":     entry.Name,
		"apid":     entry.ActualProductID,
		"vppid":    entry.VirtualPackID,
		"vpid":     entry.VirtualProductID,
		"is_brand": entry.IsBrand,
	}
	if entry.MoietyID != nil {
		doc["vtmid"] = *entry.MoietyID
	}
	if entry.Price != nil {
		doc["nhs_price"] = *entry.Price
	}
	if entry.DrugTariffPrice != nil {
		doc["dt_price"] = *entry.DrugTariffPrice
	}
	if entry.CalculationMethod != "" {
		doc["calculation_method"] = string(entry.CalculationMethod)
	}
	if entry.PriceStatus != "" {
		doc["price_status"] = string(entry.PriceStatus)
	}
	return doc
}
