package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/CiaranKeogh/Portfolio-Projects/internal/adapters/database"
	"github.com/CiaranKeogh/Portfolio-Projects/internal/adapters/database/databasetest"
	"github.com/CiaranKeogh/Portfolio-Projects/internal/application/services"
	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/entities"
	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/providers"
	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/repositories"
	"github.com/CiaranKeogh/Portfolio-Projects/internal/pricing"
	"github.com/CiaranKeogh/Portfolio-Projects/pkg/config"
	apperrors "github.com/CiaranKeogh/Portfolio-Projects/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func openSQLite(ctx context.Context, location string) (repositories.Store, error) {
	store, err := database.Open(ctx, config.StoreConfig{Driver: config.DriverSQLite, Location: location})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// seedFormulary covers each pricing outcome:
//
//	1000, 1002 same product, other size
//	1005 other brands of the same virtual pack
//	1004 hospital only
//	2000 nothing to compare with
func seedFormulary(t *testing.T) *databasetest.DB {
	return databasetest.New(t).
		Product(1, "Paracetamol 500mg tablets", 11, "Paracetamol", 500).
		VirtualPack(10, 1, "Paracetamol 500mg tablets 32 tablet", 32).
		VirtualPack(11, 1, "Paracetamol 500mg tablets 100 tablet", 100).
		ActualProduct(100, 1, "Panadol 500mg tablets").
		ActualProduct(101, 1, "Paracetamol 500mg tablets").
		ActualProduct(102, 1, "Paracetamol 500mg tablets").
		ActualPack(1000, 100, 10, "Panadol 500mg tablets (GSK) 32 tablet").
		ActualPack(1001, 101, 10, "Paracetamol 500mg tablets (Accord) 32 tablet").
		ActualPack(1002, 101, 11, "Paracetamol 500mg tablets (Accord) 100 tablet").
		ActualPack(1003, 100, 11, "Panadol 500mg tablets (GSK) 100 tablet").
		ActualPack(1004, 100, 10, "Panadol 500mg tablets (GSK) 32 tablet hospital pack").
		ActualPack(1005, 102, 10, "Paracetamol 500mg tablets (Zentiva) 32 tablet").
		HospitalOnly(1004).
		Price(1001, 120).
		Price(1003, 250).
		Product(2, "Ibuprofen 200mg tablets", 21, "Ibuprofen", 200).
		VirtualPack(20, 2, "Ibuprofen 200mg tablets 24 tablet", 24).
		ActualProduct(200, 2, "Ibuprofen 200mg tablets").
		ActualPack(2000, 200, 20, "Ibuprofen 200mg tablets (Bristol) 24 tablet")
}

func newRunService(opts services.RunOptions, index providers.SearchIndexProvider) *services.PricingRunService {
	engine := pricing.NewEngine(pricing.Config{
		Workers:               4,
		ReimbursableCodes:     []int{1, 11},
		AvailableCode:         1,
		SimilarCandidateLimit: 5,
	})
	return services.NewPricingRunService(
		openSQLite,
		services.NewPriceInferenceService(engine),
		services.NewSearchProjectionService(index, 2),
		opts,
	)
}

func TestPricingRunService_Run(t *testing.T) {
	db := seedFormulary(t)

	report, err := newRunService(services.RunOptions{}, nil).Run(context.Background(), db.Path)
	require.NoError(t, err)

	assert.True(t, report.Success)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 5, report.Evaluated)
	assert.Equal(t, map[entities.CalculationMethod]int{
		entities.MethodSameProductDifferentSize: 2,
		entities.MethodSameVMPPDifferentBrand:   1,
		entities.MethodSimilarVMP:               0,
	}, report.CountsByMethod)
	assert.Equal(t, map[entities.MissingReason]int{entities.ReasonHospitalOnly: 1}, report.CountsByReason)
	assert.Equal(t, 1, report.Unresolved)
	assert.Zero(t, report.FailedCount)
	assert.Equal(t, int64(7), report.SearchEntriesInserted)
	assert.Equal(t, int64(7), report.SearchEntriesUpdated)

	smaller := db.Record(1000)
	assert.Equal(t, int64(80), *smaller.Price)
	assert.Equal(t, entities.PriceStatusCalculated, smaller.Status)
	assert.Equal(t, entities.MethodSameProductDifferentSize, smaller.Method)
	assert.InDelta(t, 0.288, *smaller.ConfidenceScore, 1e-9)
	assert.Equal(t, entities.PriceBasisCalculated, *smaller.PriceBasisCode)

	assert.Equal(t, int64(375), *db.Record(1002).Price)

	brand := db.Record(1005)
	assert.Equal(t, int64(120), *brand.Price)
	assert.InDelta(t, 0.14, *brand.ConfidenceScore, 1e-9)

	hospital := db.Record(1004)
	assert.Nil(t, hospital.Price)
	assert.Equal(t, entities.PriceStatusIntentionallyMissing, hospital.Status)
	assert.Equal(t, entities.ReasonHospitalOnly, hospital.MissingReason)
	assert.Equal(t, entities.PriceBasisMissing, *hospital.PriceBasisCode)

	lonely := db.Record(2000)
	assert.Nil(t, lonely.Price)
	assert.Equal(t, entities.PriceStatusUnknown, lonely.Status)
	assert.Equal(t, entities.MethodNone, lonely.Method)

	entry := db.SearchEntry(1000)
	assert.Equal(t, int64(80), *entry.Price)
	assert.Equal(t, entities.MethodSameProductDifferentSize, entry.CalculationMethod)
	assert.True(t, entry.IsBrand)
	assert.Nil(t, db.SearchEntry(2000).Price)
}

func TestPricingRunService_RunIsIdempotent(t *testing.T) {
	db := seedFormulary(t)
	service := newRunService(services.RunOptions{}, nil)

	_, err := service.Run(context.Background(), db.Path)
	require.NoError(t, err)
	first := map[int64]*entities.PriceRecord{}
	for _, id := range []int64{1000, 1002, 1004, 1005, 2000} {
		first[id] = db.Record(id)
	}

	report, err := service.Run(context.Background(), db.Path)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Evaluated, "only the packs still without a price are re-evaluated")
	assert.Zero(t, report.Calculated())
	assert.Zero(t, report.SearchEntriesInserted)
	for id, before := range first {
		assert.Equal(t, before, db.Record(id), "pack %d", id)
	}
}

func TestPricingRunService_HeldLockSkipsRun(t *testing.T) {
	opened := false
	locker := new(MockRunLocker)
	locker.On("AcquireLock", mock.Anything, providers.CacheKeyRunLock, mock.Anything, mock.Anything).Return(false, nil).Once()

	service := services.NewPricingRunService(
		func(ctx context.Context, location string) (repositories.Store, error) {
			opened = true
			return nil, errors.New("unreachable")
		},
		services.NewPriceInferenceService(pricing.NewEngine(pricing.Config{Workers: 1})),
		services.NewSearchProjectionService(nil, 0),
		services.RunOptions{Locker: locker},
	)

	report, err := service.Run(context.Background(), "dmd.db")

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
	assert.False(t, report.Success)
	assert.NotEmpty(t, report.Error)
	assert.False(t, opened)
	locker.AssertNotCalled(t, "ReleaseLock", mock.Anything, mock.Anything, mock.Anything)
}

func TestPricingRunService_StoreFailureReportsFailure(t *testing.T) {
	storeErr := apperrors.NewInternalError("failed to open store", errors.New("connection refused"))
	cache := new(MockCacheProvider)
	cache.On("Set", mock.Anything, providers.CacheKeyLastRun, mock.Anything, mock.Anything).Return(nil).Once()
	events := new(MockEventBus)

	service := services.NewPricingRunService(
		func(ctx context.Context, location string) (repositories.Store, error) {
			return nil, storeErr
		},
		services.NewPriceInferenceService(pricing.NewEngine(pricing.Config{Workers: 1})),
		services.NewSearchProjectionService(nil, 0),
		services.RunOptions{Cache: cache, Events: events},
	)

	report, err := service.Run(context.Background(), "postgres://pricing@localhost/dmd")

	assert.ErrorIs(t, err, storeErr)
	assert.False(t, report.Success)
	assert.False(t, report.FinishedAt.IsZero())
	cache.AssertExpectations(t)
	events.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestPricingRunService_PublishesAndCaches(t *testing.T) {
	db := seedFormulary(t)

	locker := new(MockRunLocker)
	locker.On("AcquireLock", mock.Anything, providers.CacheKeyRunLock, mock.Anything, mock.Anything).Return(true, nil).Once()
	locker.On("ReleaseLock", mock.Anything, providers.CacheKeyRunLock, mock.Anything).Return(nil).Once()

	var cached []byte
	cache := new(MockCacheProvider)
	cache.On("Set", mock.Anything, providers.CacheKeyLastRun, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { cached = args.Get(2).([]byte) }).
		Return(nil).Once()

	events := new(MockEventBus)
	events.On("Publish", mock.Anything, providers.EventChannelPricingRuns, mock.MatchedBy(func(e *entities.PriceRunEvent) bool {
		return e.CountsByMethod[entities.MethodSameProductDifferentSize] == 2 && e.Unresolved == 1
	})).Return(errors.New("redis: connection pool timeout")).Once()

	report, err := newRunService(services.RunOptions{Locker: locker, Cache: cache, Events: events}, nil).
		Run(context.Background(), db.Path)

	require.NoError(t, err, "publication failures never fail a run")
	assert.True(t, report.Success)
	locker.AssertExpectations(t)
	events.AssertExpectations(t)

	var decoded entities.RunReport
	require.NoError(t, json.Unmarshal(cached, &decoded))
	assert.Equal(t, report.RunID, decoded.RunID)
	assert.Equal(t, 1, decoded.Unresolved)
}

func TestPricingRunService_LastRun(t *testing.T) {
	data, err := json.Marshal(&entities.RunReport{RunID: "run-1", Success: true, Evaluated: 12})
	require.NoError(t, err)

	cache := new(MockCacheProvider)
	cache.On("Exists", mock.Anything, providers.CacheKeyLastRun).Return(true, nil).Once()
	cache.On("Get", mock.Anything, providers.CacheKeyLastRun).Return(data, nil).Once()

	service := services.NewPricingRunService(openSQLite, nil, nil, services.RunOptions{Cache: cache})
	report, err := service.LastRun(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, 12, report.Evaluated)
	cache.AssertExpectations(t)

	_, err = services.NewPricingRunService(openSQLite, nil, nil, services.RunOptions{}).LastRun(context.Background())
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestPricingRunService_LastRunBeforeAnyRun(t *testing.T) {
	cache := new(MockCacheProvider)
	cache.On("Exists", mock.Anything, providers.CacheKeyLastRun).Return(false, nil).Once()

	_, err := services.NewPricingRunService(openSQLite, nil, nil, services.RunOptions{Cache: cache}).
		LastRun(context.Background())

	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	cache.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestPricingRunService_ReindexHoldsRunLock(t *testing.T) {
	db := seedFormulary(t)

	var owner string
	locker := new(MockRunLocker)
	locker.On("AcquireLock", mock.Anything, providers.CacheKeyRunLock, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { owner = args.String(2) }).
		Return(true, nil).Once()
	locker.On("ReleaseLock", mock.Anything, providers.CacheKeyRunLock, mock.Anything).
		Run(func(args mock.Arguments) { assert.Equal(t, owner, args.String(2)) }).
		Return(nil).Once()

	result, err := newRunService(services.RunOptions{Locker: locker}, nil).Reindex(context.Background(), db.Path, false)

	require.NoError(t, err)
	assert.Equal(t, int64(7), result.Inserted)
	assert.Equal(t, 7, db.Count("unified_search"))
	locker.AssertExpectations(t)
}

func TestPricingRunService_ReindexSkippedWhileRunHoldsLock(t *testing.T) {
	db := seedFormulary(t)

	locker := new(MockRunLocker)
	locker.On("AcquireLock", mock.Anything, providers.CacheKeyRunLock, mock.Anything, mock.Anything).Return(false, nil).Once()

	_, err := newRunService(services.RunOptions{Locker: locker}, nil).Reindex(context.Background(), db.Path, true)

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
	assert.Zero(t, db.Count("unified_search"))
	locker.AssertNotCalled(t, "ReleaseLock", mock.Anything, mock.Anything, mock.Anything)
}

func TestPricingRunService_Watch(t *testing.T) {
	ch := make(chan *entities.PriceRunEvent, 2)
	ch <- &entities.PriceRunEvent{RunID: "run-1", Unresolved: 3}
	ch <- &entities.PriceRunEvent{RunID: "run-2"}
	close(ch)

	events := new(MockEventBus)
	events.On("Subscribe", mock.Anything, providers.EventChannelPricingRuns).
		Return((<-chan *entities.PriceRunEvent)(ch), nil).Once()

	var seen []string
	service := services.NewPricingRunService(openSQLite, nil, nil, services.RunOptions{Events: events})
	err := service.Watch(context.Background(), func(e *entities.PriceRunEvent) error {
		seen = append(seen, e.RunID)
		return nil
	})

	require.NoError(t, err, "a closed subscription ends the watch")
	assert.Equal(t, []string{"run-1", "run-2"}, seen)
	events.AssertExpectations(t)
}

func TestPricingRunService_WatchStops(t *testing.T) {
	ch := make(chan *entities.PriceRunEvent, 1)
	ch <- &entities.PriceRunEvent{RunID: "run-1"}

	events := new(MockEventBus)
	events.On("Subscribe", mock.Anything, providers.EventChannelPricingRuns).
		Return((<-chan *entities.PriceRunEvent)(ch), nil)
	service := services.NewPricingRunService(openSQLite, nil, nil, services.RunOptions{Events: events})

	writeErr := errors.New("broken pipe")
	err := service.Watch(context.Background(), func(*entities.PriceRunEvent) error { return writeErr })
	assert.ErrorIs(t, err, writeErr)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, service.Watch(ctx, func(*entities.PriceRunEvent) error {
		t.Fatal("no events after cancellation")
		return nil
	}))

	err = services.NewPricingRunService(openSQLite, nil, nil, services.RunOptions{}).
		Watch(context.Background(), func(*entities.PriceRunEvent) error { return nil })
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}
