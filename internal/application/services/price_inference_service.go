package services

import (
	"context"
	"time"

	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/entities"
	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/repositories"
	"github.com/CiaranKeogh/Portfolio-Projects/internal/infrastructure/observability"
	"github.com/CiaranKeogh/Portfolio-Projects/internal/pricing"
	"go.opentelemetry.io/otel/attribute"
)

// InferenceResult is the outcome of one classify-estimate-write batch
type InferenceResult struct {
	Decisions []pricing.Decision
	Written   pricing.WriteSummary
}

// PriceInferenceService prices every unpriced pack of a store in one transaction
type PriceInferenceService struct {
	engine *pricing.Engine
	now    func() time.Time
}

// NewPriceInferenceService creates a new price inference service
func NewPriceInferenceService(engine *pricing.Engine) *PriceInferenceService {
	return &PriceInferenceService{
		engine: engine,
		now:    time.Now,
	}
}

// Infer loads the catalog, evaluates every unpriced pack against that
// snapshot and writes the results. Any store error rolls the batch back.
func (s *PriceInferenceService) Infer(ctx context.Context, store repositories.Store) (*InferenceResult, error) {
	ctx, span := observability.StartSpan(ctx, "pricing.infer")
	defer span.End()

	logger := observability.LoggerFromContext(ctx)
	runAt := s.now()
	result := &InferenceResult{}

	err := store.WithinTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		catalog, err := tx.Catalog().LoadCatalog(ctx)
		if err != nil {
			return err
		}
		snapshot := pricing.NewSnapshot(catalog)
		logger.Info().
			Int("packs", len(catalog.ActualPacks)).
			Int("unpriced", len(snapshot.UnpricedPacks())).
			Msg("Loaded catalog snapshot")

		decisions, err := s.engine.Evaluate(ctx, snapshot)
		if err != nil {
			return err
		}
		for _, d := range decisions {
			if d.Err != nil {
				logger.Error().Err(d.Err).Int64("pack_id", d.PackID).Msg("Pack could not be priced")
			}
		}

		written, err := pricing.NewWriter(tx.PriceRecords()).Apply(ctx, snapshot, decisions, runAt)
		if err != nil {
			return err
		}

		result.Decisions = decisions
		result.Written = written
		return nil
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	observability.SetSpanAttributes(span,
		attribute.Int("pricing.evaluated", len(result.Decisions)),
		attribute.Int("pricing.inserted", result.Written.Inserted),
		attribute.Int("pricing.updated", result.Written.Updated),
	)
	return result, nil
}

// Tally adds a batch's decisions to the report counts
func Tally(report *entities.RunReport, decisions []pricing.Decision) {
	for _, d := range decisions {
		report.Evaluated++
		switch d.State {
		case pricing.StateCalculated:
			report.CountsByMethod[d.Estimate.Method]++
		case pricing.StateIntentionallyMissing:
			report.CountsByReason[d.Reason]++
		case pricing.StateUnresolved:
			report.Unresolved++
			if d.Err != nil {
				report.FailedCount++
				report.FailedPacks = append(report.FailedPacks, d.PackID)
			}
		}
	}
}
