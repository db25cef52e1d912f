package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/entities"
	"github.com/spf13/cobra"
)

// watchCmd follows run events published by other processes
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print a line for each finished pricing run",
	Long: `Subscribe to the run events published on Redis and print one line per
finished run until interrupted. Requires REDIS_ENABLED.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	out := cmd.OutOrStdout()
	return a.runs.Watch(ctx, func(event *entities.PriceRunEvent) error {
		return renderEvent(out, event)
	})
}

// renderEvent prints a run event on one line
func renderEvent(w io.Writer, event *entities.PriceRunEvent) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s run %s", event.FinishedAt.UTC().Format(time.RFC3339), event.RunID)
	for _, method := range entities.CalculationMethods {
		fmt.Fprintf(&sb, " %s=%d", method, event.CountsByMethod[method])
	}
	fmt.Fprintf(&sb, " unresolved=%d failed=%d\n", event.Unresolved, event.FailedCount)

	_, err := io.WriteString(w, sb.String())
	return err
}
