package main

import (
	"context"
	"errors"

	"github.com/CiaranKeogh/Portfolio-Projects/internal/adapters/cache"
	"github.com/CiaranKeogh/Portfolio-Projects/internal/adapters/database"
	"github.com/CiaranKeogh/Portfolio-Projects/internal/adapters/events"
	"github.com/CiaranKeogh/Portfolio-Projects/internal/adapters/search"
	"github.com/CiaranKeogh/Portfolio-Projects/internal/application/services"
	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/providers"
	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/repositories"
	"github.com/CiaranKeogh/Portfolio-Projects/internal/infrastructure/clients/redis"
	"github.com/CiaranKeogh/Portfolio-Projects/internal/infrastructure/clients/typesense"
	"github.com/CiaranKeogh/Portfolio-Projects/internal/infrastructure/observability"
	"github.com/CiaranKeogh/Portfolio-Projects/internal/pricing"
	"github.com/CiaranKeogh/Portfolio-Projects/pkg/config"
)

// app holds the services a command runs with
type app struct {
	cfg      *config.Config
	runs     *services.PricingRunService
	analysis *services.PriceAnalysisService

	closers []func(context.Context) error
}

// newApp wires the services from cfg. Redis and Typesense are optional: when
// they are unreachable the app runs without them.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger := observability.LoggerFromContext(ctx)
	a := &app{cfg: cfg}

	opts := services.RunOptions{
		LockTTL:        cfg.Pricing.LockTTL,
		PushgatewayURL: cfg.Prometheus.PushgatewayURL,
		PushJob:        cfg.Prometheus.Job,
		Gauges:         observability.NewRunGauges(),
	}

	if cfg.OTEL.Enabled {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialise telemetry")
		} else {
			a.closers = append(a.closers, shutdown)
		}
	}
	metrics, err := observability.InitMetrics()
	if err != nil {
		return nil, err
	}
	opts.Metrics = metrics

	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable, running without run lock, cache and events")
		} else {
			adapter := cache.NewRedisAdapter(redisClient)
			opts.Locker = adapter
			opts.Cache = adapter
			opts.Events = events.NewRedisEventBus(redisClient)
			a.closers = append(a.closers,
				func(context.Context) error { return opts.Events.Close() },
				func(context.Context) error { return redisClient.Close() },
			)
		}
	}

	var index providers.SearchIndexProvider
	if cfg.Typesense.Enabled {
		tsClient, err := typesense.NewClient(ctx, &cfg.Typesense)
		if err != nil {
			logger.Warn().Err(err).Msg("Typesense unavailable, search entries will not be indexed")
		} else {
			index = search.NewTypesenseAdapter(tsClient, search.DefaultBreakerConfig())
		}
	}

	engine := pricing.NewEngine(pricing.Config{
		Workers:               cfg.Pricing.Workers,
		ReimbursableCodes:     cfg.Pricing.ReimbursableCodes,
		AvailableCode:         cfg.Pricing.AvailableCode,
		SimilarCandidateLimit: cfg.Pricing.SimilarCandidateLimit,
	})

	open := storeOpener(cfg.Store)
	a.runs = services.NewPricingRunService(open,
		services.NewPriceInferenceService(engine),
		services.NewSearchProjectionService(index, 0),
		opts,
	)
	a.analysis = services.NewPriceAnalysisService(open)
	return a, nil
}

// Close releases the app's connections in reverse order
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func storeOpener(storeCfg config.StoreConfig) services.StoreOpener {
	return func(ctx context.Context, location string) (repositories.Store, error) {
		store, err := database.Open(ctx, storeCfg.ResolveStore(location))
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}
