package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"climatedash/internal/config"
	"climatedash/pkg/contracts"
)

// MeterName is the instrumentation scope of every meter and tracer
const MeterName = "climatedash"

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// InitializeOTel sets up the Prometheus-backed meter and, when enabled, stdout tracing.
// Disabled signals fall back to the global no-op providers.
func InitializeOTel(cfg config.TelemetryConfig, logger *slog.Logger) (*OTelProviders, error) {
	if logger == nil {
		logger = GetLogger()
	}
	ctx := context.Background()

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(contracts.Version),
		attribute.String("service.instance.id", generateInstanceID()),
	)

	providers := &OTelProviders{
		Logger: logger,
		Tracer: otel.Tracer(MeterName),
		Meter:  otel.Meter(MeterName),
	}

	if cfg.TracingEnabled {
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRate)),
		)
		providers.TracerProvider = tp
		providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(contracts.Version))
		otel.SetTracerProvider(tp)
	}

	if cfg.MetricsEnabled {
		registry := promclient.NewRegistry()
		exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		providers.MeterProvider = mp
		providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(contracts.Version))
		providers.PrometheusHTTP = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.InfoContext(ctx, "OpenTelemetry initialized",
		slog.String("service", cfg.ServiceName),
		slog.Bool("tracing_enabled", cfg.TracingEnabled),
		slog.Bool("metrics_enabled", cfg.MetricsEnabled))

	return providers, nil
}

// BusinessMetrics holds the instruments recorded by handlers and the pipeline
type BusinessMetrics struct {
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	PipelineRunsTotal    metric.Int64Counter
	PipelineRunDuration  metric.Float64Histogram
	PipelineStepsTotal   metric.Int64Counter
	PipelineStepDuration metric.Float64Histogram
	PipelineRowsWritten  metric.Int64Counter

	DatasetReloads  metric.Int64Counter
	FigureRenders   metric.Int64Counter
	FigureCacheHits metric.Int64Counter
}

// CreateBusinessMetrics registers every instrument on the meter
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	var (
		m   BusinessMetrics
		err error
	)

	counters := []struct {
		target *metric.Int64Counter
		name   string
		desc   string
		unit   string
	}{
		{&m.HTTPRequestsTotal, "http_requests_total", "Total number of HTTP requests", "{request}"},
		{&m.PipelineRunsTotal, "pipeline_runs_total", "Total number of pipeline runs", "{run}"},
		{&m.PipelineStepsTotal, "pipeline_steps_total", "Total number of pipeline steps executed", "{step}"},
		{&m.PipelineRowsWritten, "pipeline_rows_written_total", "Rows written to processed outputs", "{row}"},
		{&m.DatasetReloads, "dataset_reloads_total", "Times the processed dataset was (re)loaded", "{reload}"},
		{&m.FigureRenders, "figure_renders_total", "Figures rendered", "{figure}"},
		{&m.FigureCacheHits, "figure_cache_hits_total", "Figures served from cache", "{figure}"},
	}
	for _, c := range counters {
		*c.target, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", c.name, err)
		}
	}

	histograms := []struct {
		target *metric.Float64Histogram
		name   string
		desc   string
	}{
		{&m.HTTPRequestDuration, "http_request_duration_seconds", "HTTP request duration"},
		{&m.PipelineRunDuration, "pipeline_run_duration_seconds", "Pipeline run duration"},
		{&m.PipelineStepDuration, "pipeline_step_duration_seconds", "Pipeline step duration"},
	}
	for _, h := range histograms {
		*h.target, err = meter.Float64Histogram(h.name, metric.WithDescription(h.desc), metric.WithUnit("s"))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", h.name, err)
		}
	}

	m.HTTPActiveRequests, err = meter.Int64UpDownCounter("http_active_requests",
		metric.WithDescription("Number of active HTTP requests"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create http_active_requests: %w", err)
	}

	return &m, nil
}

// RecordPipelineRun records one finished pipeline run
func RecordPipelineRun(ctx context.Context, metrics *BusinessMetrics, runID string, duration time.Duration, err error) {
	if metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	attrs := metric.WithAttributes(attribute.String("status", status))
	metrics.PipelineRunsTotal.Add(ctx, 1, attrs)
	metrics.PipelineRunDuration.Record(ctx, duration.Seconds(), attrs)

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent("pipeline.run_recorded", trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("status", status),
			attribute.Float64("duration_seconds", duration.Seconds()),
		))
	}
}

// RecordPipelineStep records one executed pipeline step
func RecordPipelineStep(ctx context.Context, metrics *BusinessMetrics, stepID string, duration time.Duration, success bool) {
	if metrics == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	attrs := metric.WithAttributes(attribute.String("step.id", stepID), attribute.String("status", status))
	metrics.PipelineStepsTotal.Add(ctx, 1, attrs)
	metrics.PipelineStepDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordFigure records a figure served to the dashboard
func RecordFigure(ctx context.Context, metrics *BusinessMetrics, figure string, cached bool) {
	if metrics == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("figure", figure))
	if cached {
		metrics.FigureCacheHits.Add(ctx, 1, attrs)
		return
	}
	metrics.FigureRenders.Add(ctx, 1, attrs)
}

// RecordDatasetReload records a successful dataset load
func RecordDatasetReload(ctx context.Context, metrics *BusinessMetrics, source string) {
	if metrics == nil {
		return
	}
	metrics.DatasetReloads.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

// Shutdown flushes and stops the providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %v", errs)
	}

	p.Logger.InfoContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

// generateInstanceID generates a unique instance identifier
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// TraceIDFromContext extracts the span trace ID for logging correlation
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}
