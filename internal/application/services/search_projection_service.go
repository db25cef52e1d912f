package services

import (
	"context"

	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/providers"
	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/repositories"
	"github.com/CiaranKeogh/Portfolio-Projects/internal/infrastructure/observability"
	"go.opentelemetry.io/otel/attribute"
)

const defaultIndexPageSize = 500

// ProjectionResult counts what a projection pass touched
type ProjectionResult struct {
	Inserted      int64
	Updated       int64
	Indexed       int
	IndexFailures int
}

// SearchProjectionService rebuilds the search projection from the price
// records, then mirrors it into the search index when one is configured
type SearchProjectionService struct {
	index    providers.SearchIndexProvider
	pageSize int
}

// NewSearchProjectionService creates a new projection service. index may be nil.
func NewSearchProjectionService(index providers.SearchIndexProvider, pageSize int) *SearchProjectionService {
	if pageSize <= 0 {
		pageSize = defaultIndexPageSize
	}
	return &SearchProjectionService{
		index:    index,
		pageSize: pageSize,
	}
}

// Project inserts missing entries and re-derives every entry's price fields in
// one transaction. Index failures are counted, never returned.
func (s *SearchProjectionService) Project(ctx context.Context, store repositories.Store) (*ProjectionResult, error) {
	ctx, span := observability.StartSpan(ctx, "pricing.project")
	defer span.End()

	result := &ProjectionResult{}
	err := store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		var err error
		if result.Inserted, err = tx.SearchEntries().InsertMissing(ctx); err != nil {
			return err
		}
		result.Updated, err = tx.SearchEntries().RefreshPrices(ctx)
		return err
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	observability.LoggerFromContext(ctx).Info().
		Int64("inserted", result.Inserted).
		Int64("updated", result.Updated).
		Msg("Search projection refreshed")

	if err := s.push(ctx, store, result); err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	observability.SetSpanAttributes(span,
		attribute.Int64("search.inserted", result.Inserted),
		attribute.Int64("search.updated", result.Updated),
		attribute.Int("search.indexed", result.Indexed),
		attribute.Int("search.index_failures", result.IndexFailures),
	)
	return result, nil
}

// Reindex re-runs the projection, optionally recreating the index first
func (s *SearchProjectionService) Reindex(ctx context.Context, store repositories.Store, reset bool) (*ProjectionResult, error) {
	if reset && s.index != nil {
		if err := s.index.ResetIndex(ctx); err != nil {
			return nil, err
		}
	}
	return s.Project(ctx, store)
}

// push pages through the projection and upserts each entry. Only store errors
// are returned.
func (s *SearchProjectionService) push(ctx context.Context, store repositories.Store, result *ProjectionResult) error {
	if s.index == nil {
		return nil
	}

	logger := observability.LoggerFromContext(ctx)
	if err := s.index.EnsureIndex(ctx); err != nil {
		logger.Warn().Err(err).Msg("Search index unavailable, entries will be counted as failures")
	}

	var afterID int64
	for {
		entries, err := store.SearchEntries().List(ctx, afterID, s.pageSize)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if err := s.index.Index(ctx, entry); err != nil {
				result.IndexFailures++
				logger.Debug().Err(err).Int64("pack_id", entry.PackID).Msg("Failed to index pack")
				continue
			}
			result.Indexed++
		}
		if len(entries) < s.pageSize {
			break
		}
		afterID = entries[len(entries)-1].PackID
	}

	if result.IndexFailures > 0 {
		logger.Warn().Int("failures", result.IndexFailures).Int("indexed", result.Indexed).Msg("Some packs were not indexed")
	}
	return nil
}
