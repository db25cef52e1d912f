package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/CiaranKeogh/Portfolio-Projects/internal/infrastructure/observability"
	"github.com/CiaranKeogh/Portfolio-Projects/pkg/config"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	logLevel string

	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "pricer",
	Short: "Infer NHS prices for dm+d packs",
	Long: `pricer fills in missing NHS list prices for dm+d actual medicinal product
packs. Packs that should not carry a price are classified with a reason; the
rest are estimated from related packs and scored with a confidence value.

The store location is a SQLite file path or a PostgreSQL URL/DSN. When it is
omitted STORE_LOCATION is used.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env)
		observability.SetLevel(logLevel)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	reportCmd.Flags().BoolVar(&reportLast, "last", false, "Show the cached report of the last run instead of analysing the store")
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "Print the report as JSON")
	reindexCmd.Flags().BoolVar(&reindexReset, "reset", false, "Drop the search collection before reindexing")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(reindexCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
}

// locationArg returns the optional positional store location
func locationArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
