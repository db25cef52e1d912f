package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/CiaranKeogh/Portfolio-Projects/internal/application/scheduler"
	"github.com/CiaranKeogh/Portfolio-Projects/internal/infrastructure/observability"
	"github.com/spf13/cobra"
)

// runCmd prices the store once
var runCmd = &cobra.Command{
	Use:   "run [location]",
	Short: "Run price inference and search projection once",
	Long: `Classify every unpriced pack, estimate prices where a rule applies and
refresh the search entries. The run report is printed as JSON.

The command exits non-zero only when the run fails as a whole. Packs that
could not be evaluated are listed in the report.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPricing,
}

// scheduleCmd prices the store at fixed times every day
var scheduleCmd = &cobra.Command{
	Use:   "schedule [location]",
	Short: "Run immediately, then at the configured daily times",
	Long: `Perform a pricing run and then repeat it at SCHEDULE_TIMES (for example
"06:00;18:00"). A tick is skipped while a previous run is still in progress.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSchedule,
}

func runPricing(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	report, runErr := a.runs.Run(ctx, locationArg(args))

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return runErr
}

func runSchedule(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	s := scheduler.NewScheduler(a.runs, locationArg(args), cfg.Schedule.Times)
	if err := s.Start(ctx); err != nil {
		return err
	}
	defer s.Stop()

	logger := observability.LoggerFromContext(ctx)
	logger.Info().Time("next_run", s.NextRun()).Msg("Scheduler started")

	<-ctx.Done()
	logger.Info().Msg("Scheduler shutting down")
	return nil
}
