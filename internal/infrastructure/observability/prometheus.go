package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// RunGauges is the batch snapshot pushed to a Prometheus pushgateway after each run
type RunGauges struct {
	PacksByMethod   *prometheus.GaugeVec
	PacksByReason   *prometheus.GaugeVec
	Unresolved      prometheus.Gauge
	Failed          prometheus.Gauge
	DurationSeconds prometheus.Gauge
	LastSuccess     prometheus.Gauge

	registry *prometheus.Registry
}

// NewRunGauges creates the run gauges on a private registry, so pushes carry
// only this run's values
func NewRunGauges() *RunGauges {
	g := &RunGauges{
		PacksByMethod: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dmd_pricing_packs_calculated",
			Help: "Packs priced in the last run by calculation method",
		}, []string{"method"}),
		PacksByReason: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dmd_pricing_packs_intentionally_missing",
			Help: "Packs classified as intentionally unpriced in the last run by reason",
		}, []string{"reason"}),
		Unresolved: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dmd_pricing_packs_unresolved",
			Help: "Packs left without a price in the last run",
		}),
		Failed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dmd_pricing_packs_failed",
			Help: "Packs whose evaluation failed in the last run",
		}),
		DurationSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dmd_pricing_run_duration_seconds",
			Help: "Duration of the last pricing run",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dmd_pricing_last_success_timestamp_seconds",
			Help: "Unix time of the last successful pricing run",
		}),
		registry: prometheus.NewRegistry(),
	}

	g.registry.MustRegister(
		g.PacksByMethod,
		g.PacksByReason,
		g.Unresolved,
		g.Failed,
		g.DurationSeconds,
		g.LastSuccess,
	)
	return g
}

// Set loads the gauges from a run's counts
func (g *RunGauges) Set(byMethod, byReason map[string]int, unresolved, failed int, duration time.Duration, success bool, finishedAt time.Time) {
	for method, n := range byMethod {
		g.PacksByMethod.WithLabelValues(method).Set(float64(n))
	}
	for reason, n := range byReason {
		g.PacksByReason.WithLabelValues(reason).Set(float64(n))
	}
	g.Unresolved.Set(float64(unresolved))
	g.Failed.Set(float64(failed))
	g.DurationSeconds.Set(duration.Seconds())
	if success {
		g.LastSuccess.Set(float64(finishedAt.Unix()))
	}
}

// Gatherer exposes the private registry
func (g *RunGauges) Gatherer() prometheus.Gatherer {
	return g.registry
}

// Push sends the gauges to the pushgateway at url under job
func (g *RunGauges) Push(url, job string) error {
	if url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(g.registry).Push(); err != nil {
		return fmt.Errorf("failed to push run metrics: %w", err)
	}
	return nil
}
