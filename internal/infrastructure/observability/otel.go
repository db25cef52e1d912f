package observability

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/CiaranKeogh/Portfolio-Projects"

// Metrics holds the pricing run instruments
type Metrics struct {
	PacksCalculated metric.Int64Counter
	PacksMissing    metric.Int64Counter
	PacksUnresolved metric.Int64Counter
	PackFailures    metric.Int64Counter
	RunDuration     metric.Float64Histogram
	IndexFailures   metric.Int64Counter
}

// metricInterval is how often run metrics are exported
const metricInterval = 30 * time.Second

// Setup initializes OpenTelemetry tracing and metrics. The returned shutdown
// flushes both providers.
func Setup(ctx context.Context, serviceName, serviceVersion, endpoint string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		_ = tracerProvider.Shutdown(ctx)
		return nil, err
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(metricInterval))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(meterProvider)

	shutdown := func(ctx context.Context) error {
		return errors.Join(meterProvider.Shutdown(ctx), tracerProvider.Shutdown(ctx))
	}

	return shutdown, nil
}

// InitMetrics initializes the pricing metrics on the global meter provider.
// Call it after Setup so the instruments bind to the exporting provider.
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)

	calculated, err := meter.Int64Counter(
		"pricing.packs.calculated",
		metric.WithDescription("Packs priced by an estimation rule"),
	)
	if err != nil {
		return nil, err
	}

	missing, err := meter.Int64Counter(
		"pricing.packs.intentionally_missing",
		metric.WithDescription("Packs classified as intentionally unpriced"),
	)
	if err != nil {
		return nil, err
	}

	unresolved, err := meter.Int64Counter(
		"pricing.packs.unresolved",
		metric.WithDescription("Packs left without a price after the cascade"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter(
		"pricing.packs.failed",
		metric.WithDescription("Packs whose evaluation raised an error"),
	)
	if err != nil {
		return nil, err
	}

	runDuration, err := meter.Float64Histogram(
		"pricing.run.duration",
		metric.WithDescription("Pricing run duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	indexFailures, err := meter.Int64Counter(
		"search.index.failures",
		metric.WithDescription("Search documents that failed to index"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		PacksCalculated: calculated,
		PacksMissing:    missing,
		PacksUnresolved: unresolved,
		PackFailures:    failures,
		RunDuration:     runDuration,
		IndexFailures:   indexFailures,
	}, nil
}

// StartSpan starts a new trace span
func StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	tracer := otel.Tracer(instrumentationName)
	return tracer.Start(ctx, spanName)
}

// RecordError records an error in the current span
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
}

// SetSpanAttributes sets attributes on a span
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
}

// RecordRunMetrics records the outcome counts of a finished run. metrics may be nil.
func RecordRunMetrics(ctx context.Context, metrics *Metrics, byMethod map[string]int, byReason map[string]int, unresolved, failed int, duration time.Duration) {
	if metrics == nil {
		return
	}
	for method, n := range byMethod {
		metrics.PacksCalculated.Add(ctx, int64(n), metric.WithAttributes(attribute.String("pricing.method", method)))
	}
	for reason, n := range byReason {
		metrics.PacksMissing.Add(ctx, int64(n), metric.WithAttributes(attribute.String("pricing.reason", reason)))
	}
	metrics.PacksUnresolved.Add(ctx, int64(unresolved))
	metrics.PackFailures.Add(ctx, int64(failed))
	metrics.RunDuration.Record(ctx, float64(duration.Milliseconds()))
}

// RecordIndexFailures records search documents that could not be indexed
func RecordIndexFailures(ctx context.Context, metrics *Metrics, n int) {
	if metrics == nil || n == 0 {
		return
	}
	metrics.IndexFailures.Add(ctx, int64(n))
}
