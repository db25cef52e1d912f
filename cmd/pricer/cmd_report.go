package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/entities"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	reportLast bool
	reportJSON bool
)

// reportCmd summarises the prices held in the store
var reportCmd = &cobra.Command{
	Use:   "report [location]",
	Short: "Show a pricing analysis of the store",
	Long: `Summarise the store's prices: packs with and without a price, the reasons
packs are intentionally unpriced, and confidence and price statistics for each
calculation method.

With --last the cached report of the most recent run is shown instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	out := cmd.OutOrStdout()

	if reportLast {
		report, err := a.runs.LastRun(ctx)
		if err != nil {
			return err
		}
		if reportJSON {
			return writeJSON(out, report)
		}
		return renderRunReport(out, report)
	}

	analysis, err := a.analysis.Analyse(ctx, locationArg(args))
	if err != nil {
		return err
	}
	if reportJSON {
		return writeJSON(out, analysis)
	}
	return renderAnalysis(out, analysis)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderAnalysis prints the analysis as tables
func renderAnalysis(w io.Writer, analysis *entities.PriceAnalysis) error {
	r := lipgloss.NewRenderer(w)

	packs := newTable("PACKS", "COUNT")
	packs.addRow("total", strconv.Itoa(analysis.TotalPacks))
	packs.addRow("priced", strconv.Itoa(analysis.PricedPacks))
	packs.addRow("missing price", strconv.Itoa(analysis.MissingPrice))
	packs.addRow("unresolved", strconv.Itoa(analysis.Unresolved))

	reasons := newTable("INTENTIONALLY MISSING", "COUNT")
	for _, reason := range sortedKeys(analysis.CountsByReason) {
		reasons.addRow(string(reason), strconv.Itoa(analysis.CountsByReason[reason]))
	}

	methods := newTable("METHOD", "PACKS", "AVG CONFIDENCE", "MIN CONFIDENCE", "MAX CONFIDENCE", "AVG PRICE", "MIN PRICE", "MAX PRICE")
	stats := make(map[entities.CalculationMethod]entities.MethodStats, len(analysis.MethodStats))
	for _, s := range analysis.MethodStats {
		stats[s.Method] = s
	}
	for _, method := range entities.CalculationMethods {
		count := strconv.Itoa(analysis.CountsByMethod[method])
		s, ok := stats[method]
		if !ok {
			methods.addRow(string(method), count, "-", "-", "-", "-", "-", "-")
			continue
		}
		methods.addRow(string(method), count,
			confidence(s.Confidence.Avg), confidence(s.Confidence.Min), confidence(s.Confidence.Max),
			pounds(s.Price.Avg), pounds(s.Price.Min), pounds(s.Price.Max))
	}

	_, err := io.WriteString(w, packs.view(r)+reasons.view(r)+methods.view(r))
	return err
}

// renderRunReport prints a run report as tables
func renderRunReport(w io.Writer, report *entities.RunReport) error {
	r := lipgloss.NewRenderer(w)

	status := "succeeded"
	if !report.Success {
		status = "failed: " + report.Error
	}
	run := newTable()
	run.addRow("run", report.RunID)
	run.addRow("store", report.StoreLocation)
	run.addRow("started", report.StartedAt.Format("2006-01-02 15:04:05 MST"))
	run.addRow("duration", report.Duration().String())
	run.addRow("status", status)

	outcomes := newTable("OUTCOME", "PACKS")
	outcomes.addRow("evaluated", strconv.Itoa(report.Evaluated))
	for _, method := range entities.CalculationMethods {
		outcomes.addRow(string(method), strconv.Itoa(report.CountsByMethod[method]))
	}
	for _, reason := range sortedKeys(report.CountsByReason) {
		outcomes.addRow(string(reason), strconv.Itoa(report.CountsByReason[reason]))
	}
	outcomes.addRow("unresolved", strconv.Itoa(report.Unresolved))
	outcomes.addRow("failed", strconv.Itoa(report.FailedCount))

	search := newTable("SEARCH", "ENTRIES")
	search.addRow("inserted", strconv.FormatInt(report.SearchEntriesInserted, 10))
	search.addRow("updated", strconv.FormatInt(report.SearchEntriesUpdated, 10))
	search.addRow("indexed", strconv.Itoa(report.IndexedEntries))
	search.addRow("index failures", strconv.Itoa(report.IndexFailures))

	_, err := io.WriteString(w, run.view(r)+outcomes.view(r)+search.view(r))
	return err
}

func confidence(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// pounds formats a price in pence
func pounds(pence float64) string {
	return fmt.Sprintf("£%.2f", pence/100)
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
