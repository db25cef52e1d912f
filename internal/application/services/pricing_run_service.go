package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/entities"
	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/providers"
	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/repositories"
	"github.com/CiaranKeogh/Portfolio-Projects/internal/infrastructure/observability"
	apperrors "github.com/CiaranKeogh/Portfolio-Projects/pkg/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// lastRunTTLSeconds keeps the cached report for a week
const lastRunTTLSeconds = 7 * 24 * 60 * 60

// StoreOpener connects to the store at a location
type StoreOpener func(ctx context.Context, location string) (repositories.Store, error)

// RunOptions wires the optional collaborators of a pricing run. Nil fields
// are skipped.
type RunOptions struct {
	Locker         providers.RunLocker
	Cache          providers.CacheProvider
	Events         providers.EventBus
	Metrics        *observability.Metrics
	Gauges         *observability.RunGauges
	LockTTL        time.Duration
	PushgatewayURL string
	PushJob        string
}

// PricingRunService runs inference and projection against a store and
// publishes the outcome
type PricingRunService struct {
	open       StoreOpener
	inference  *PriceInferenceService
	projection *SearchProjectionService
	opts       RunOptions
	now        func() time.Time
	newID      func() string
}

// NewPricingRunService creates a new pricing run service
func NewPricingRunService(
	open StoreOpener,
	inference *PriceInferenceService,
	projection *SearchProjectionService,
	opts RunOptions,
) *PricingRunService {
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Minute
	}
	return &PricingRunService{
		open:       open,
		inference:  inference,
		projection: projection,
		opts:       opts,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Run prices the store at location. The report is always returned; the error
// is non-nil only when the run failed as a whole (store failure or held lock).
// Per-pack failures are reported in the counts.
func (s *PricingRunService) Run(ctx context.Context, location string) (*entities.RunReport, error) {
	report := entities.NewRunReport(s.newID(), location, s.now().UTC())

	ctx, span := observability.StartSpan(ctx, "pricing.run")
	defer span.End()
	observability.SetSpanAttributes(span, attribute.String("pricing.run_id", report.RunID))

	runLogger := observability.GetLogger().With().Str("run_id", report.RunID).Logger()
	ctx = runLogger.WithContext(ctx)
	logger := observability.LoggerFromContext(ctx)
	logger.Info().Str("location", location).Msg("Starting pricing run")

	release, err := s.acquire(ctx, report.RunID)
	if err != nil {
		s.finish(ctx, report, err)
		return report, err
	}
	defer release()

	if err := s.execute(ctx, report, location); err != nil {
		observability.RecordError(span, err)
		s.finish(ctx, report, err)
		return report, err
	}

	s.finish(ctx, report, nil)
	if s.opts.Events != nil {
		if err := s.opts.Events.Publish(ctx, providers.EventChannelPricingRuns, entities.NewPriceRunEvent(report)); err != nil {
			logger.Warn().Err(err).Msg("Failed to publish run event")
		}
	}
	return report, nil
}

// Reindex rebuilds the search projection of the store at location without
// repricing. It holds the run lock so it never interleaves with a run.
func (s *PricingRunService) Reindex(ctx context.Context, location string, reset bool) (*ProjectionResult, error) {
	release, err := s.acquire(ctx, "reindex-"+s.newID())
	if err != nil {
		return nil, err
	}
	defer release()

	store, err := s.open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	return s.projection.Reindex(ctx, store, reset)
}

// Watch calls fn with each published run event until ctx is cancelled or the
// subscription closes. An error from fn ends the watch.
func (s *PricingRunService) Watch(ctx context.Context, fn func(*entities.PriceRunEvent) error) error {
	if s.opts.Events == nil {
		return apperrors.NewValidationError("no event bus configured for run events")
	}
	events, err := s.opts.Events.Subscribe(ctx, providers.EventChannelPricingRuns)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if err := fn(event); err != nil {
				return err
			}
		}
	}
}

// acquire takes the run lock for owner and returns its release. Without a
// locker, or when the locker cannot be reached, release is a no-op.
func (s *PricingRunService) acquire(ctx context.Context, owner string) (func(), error) {
	noop := func() {}
	if s.opts.Locker == nil {
		return noop, nil
	}

	logger := observability.LoggerFromContext(ctx)
	acquired, err := s.opts.Locker.AcquireLock(ctx, providers.CacheKeyRunLock, owner, s.opts.LockTTL)
	switch {
	case err != nil:
		logger.Warn().Err(err).Msg("Run lock unavailable, continuing without it")
		return noop, nil
	case !acquired:
		return nil, apperrors.NewConflictError("another pricing run holds the lock")
	}

	return func() {
		if err := s.opts.Locker.ReleaseLock(context.WithoutCancel(ctx), providers.CacheKeyRunLock, owner); err != nil {
			logger.Warn().Err(err).Msg("Failed to release run lock")
		}
	}, nil
}

func (s *PricingRunService) execute(ctx context.Context, report *entities.RunReport, location string) error {
	store, err := s.open(ctx, location)
	if err != nil {
		return err
	}
	defer store.Close()

	inferred, err := s.inference.Infer(ctx, store)
	if err != nil {
		return err
	}
	Tally(report, inferred.Decisions)

	projected, err := s.projection.Project(ctx, store)
	if err != nil {
		return err
	}
	report.SearchEntriesInserted = projected.Inserted
	report.SearchEntriesUpdated = projected.Updated
	report.IndexedEntries = projected.Indexed
	report.IndexFailures = projected.IndexFailures
	return nil
}

// finish stamps the report and hands it to metrics and the cache
func (s *PricingRunService) finish(ctx context.Context, report *entities.RunReport, runErr error) {
	report.FinishedAt = s.now().UTC()
	report.Success = runErr == nil
	if runErr != nil {
		report.Error = runErr.Error()
	}

	logger := observability.LoggerFromContext(ctx)
	event := logger.Info()
	if !report.Success {
		event = logger.Error().Err(runErr)
	}
	event.
		Bool("success", report.Success).
		Int("evaluated", report.Evaluated).
		Int("calculated", report.Calculated()).
		Int("unresolved", report.Unresolved).
		Int("failed", report.FailedCount).
		Dur("duration", report.Duration()).
		Msg("Pricing run finished")

	byMethod := make(map[string]int, len(report.CountsByMethod))
	for m, n := range report.CountsByMethod {
		byMethod[string(m)] = n
	}
	byReason := make(map[string]int, len(report.CountsByReason))
	for r, n := range report.CountsByReason {
		byReason[string(r)] = n
	}

	observability.RecordRunMetrics(ctx, s.opts.Metrics, byMethod, byReason, report.Unresolved, report.FailedCount, report.Duration())
	observability.RecordIndexFailures(ctx, s.opts.Metrics, report.IndexFailures)

	if s.opts.Gauges != nil {
		s.opts.Gauges.Set(byMethod, byReason, report.Unresolved, report.FailedCount, report.Duration(), report.Success, report.FinishedAt)
		if err := s.opts.Gauges.Push(s.opts.PushgatewayURL, s.opts.PushJob); err != nil {
			logger.Warn().Err(err).Msg("Failed to push run metrics")
		}
	}

	if s.opts.Cache != nil {
		data, err := json.Marshal(report)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to encode run report")
			return
		}
		if err := s.opts.Cache.Set(ctx, providers.CacheKeyLastRun, data, lastRunTTLSeconds); err != nil {
			logger.Warn().Err(err).Msg("Failed to cache run report")
		}
	}
}

// LastRun returns the most recently cached run report
func (s *PricingRunService) LastRun(ctx context.Context) (*entities.RunReport, error) {
	if s.opts.Cache == nil {
		return nil, apperrors.NewValidationError("no cache configured for run reports")
	}
	exists, err := s.opts.Cache.Exists(ctx, providers.CacheKeyLastRun)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.NewNotFoundError("no pricing run has been recorded")
	}
	data, err := s.opts.Cache.Get(ctx, providers.CacheKeyLastRun)
	if err != nil {
		return nil, err
	}
	report := &entities.RunReport{}
	if err := json.Unmarshal(data, report); err != nil {
		return nil, apperrors.NewInternalError("failed to decode cached run report", err)
	}
	return report, nil
}
