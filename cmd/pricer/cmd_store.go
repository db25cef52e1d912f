package main

import (
	"context"
	"fmt"

	"github.com/CiaranKeogh/Portfolio-Projects/internal/adapters/database"
	"github.com/CiaranKeogh/Portfolio-Projects/internal/infrastructure/observability"
	"github.com/spf13/cobra"
)

var reindexReset bool

// reindexCmd rebuilds the search entries and index without repricing
var reindexCmd = &cobra.Command{
	Use:   "reindex [location]",
	Short: "Refresh search entries and push them to the search index",
	Long: `Refresh the search entries from the stored prices and push them to the search
index. Takes the run lock, so it fails while a pricing run is in progress.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReindex,
}

// migrateCmd creates the store tables
var migrateCmd = &cobra.Command{
	Use:   "migrate [location]",
	Short: "Create any missing store tables and indexes",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runMigrate,
}

func runReindex(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	result, err := a.runs.Reindex(ctx, locationArg(args), reindexReset)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Inserted %d, updated %d, indexed %d search entries (%d index failures)\n",
		result.Inserted, result.Updated, result.Indexed, result.IndexFailures)
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	resolved := cfg.Store.ResolveStore(locationArg(args))
	store, err := database.Open(ctx, resolved)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return err
	}
	observability.LoggerFromContext(ctx).Info().Str("driver", resolved.Driver).Msg("Store schema is up to date")
	return nil
}
