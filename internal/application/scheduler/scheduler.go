// Package scheduler repeats pricing runs at fixed times of day.
package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/entities"
	"github.com/CiaranKeogh/Portfolio-Projects/internal/infrastructure/observability"
	apperrors "github.com/CiaranKeogh/Portfolio-Projects/pkg/errors"
	"github.com/go-co-op/gocron"
)

// Runner performs a single pricing run
type Runner interface {
	Run(ctx context.Context, location string) (*entities.RunReport, error)
}

// Scheduler runs the pricer at the configured daily times, one run at a time
type Scheduler struct {
	runner   Runner
	location string
	times    string
	cron     *gocron.Scheduler
	running  atomic.Bool
}

// NewScheduler creates a scheduler for the store at location. times is a
// ";"-separated list of HH:MM values.
func NewScheduler(runner Runner, location, times string) *Scheduler {
	return &Scheduler{
		runner:   runner,
		location: location,
		times:    times,
		cron:     gocron.NewScheduler(time.Local),
	}
}

// Start performs an initial run and then schedules the daily runs
func (s *Scheduler) Start(ctx context.Context) error {
	logger := observability.LoggerFromContext(ctx)

	if _, err := s.RunOnce(ctx); err != nil {
		if !apperrors.IsType(err, apperrors.ErrorTypeConflict) {
			return fmt.Errorf("initial pricing run failed: %w", err)
		}
		logger.Warn().Err(err).Msg("Initial pricing run skipped")
	}

	_, err := s.cron.Every(1).Days().At(s.times).Do(func() {
		if _, err := s.RunOnce(ctx); err != nil {
			logger.Error().Err(err).Msg("Scheduled pricing run failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule pricing runs at %q: %w", s.times, err)
	}

	s.cron.StartAsync()
	logger.Info().Str("times", s.times).Msg("Pricing runs scheduled")
	return nil
}

// Stop stops the scheduler. A run in progress is not interrupted.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// NextRun returns the time of the next scheduled run
func (s *Scheduler) NextRun() time.Time {
	_, next := s.cron.NextRun()
	return next
}

// RunOnce runs the pricer unless a run is already in progress, in which case
// it reports false without running
func (s *Scheduler) RunOnce(ctx context.Context) (bool, error) {
	if !s.running.CompareAndSwap(false, true) {
		observability.LoggerFromContext(ctx).Info().Msg("Pricing run already in progress, skipping")
		return false, nil
	}
	defer s.running.Store(false)

	_, err := s.runner.Run(ctx, s.location)
	return true, err
}
