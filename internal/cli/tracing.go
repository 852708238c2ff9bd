package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"expenseai/internal/config"
)

const serviceName = "expenseai"

// SetupTracing installs the global tracer provider for the configured exporter and returns
// its shutdown function, which flushes pending spans. With no exporter the global no-op
// provider stays in place.
func SetupTracing(ctx context.Context, cfg *config.Config, component string) (func(context.Context) error, error) {
	exporter, err := newTraceExporter(ctx, cfg.TraceExporter, os.Stderr)
	if err != nil {
		return nil, err
	}
	if exporter == nil {
		return func(context.Context) error { return nil }, nil
	}

	tp, err := newTracerProvider(exporter, component)
	if err != nil {
		return nil, err
	}
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return tp.Shutdown, nil
}

// InitTracing sets up tracing and returns a shutdown callback for GracefulShutdown.
// Exits the process on failure.
func InitTracing(logger *slog.Logger, cfg *config.Config, component string) func(context.Context) {
	shutdown, err := SetupTracing(context.Background(), cfg, component)
	if err != nil {
		logger.Error("Failed to initialize tracing", "error", err, "exporter", cfg.TraceExporter)
		os.Exit(1)
	}
	if cfg.TraceExporter != config.TraceExporterNone {
		logger.Info("Tracing enabled", "exporter", cfg.TraceExporter, "endpoint", cfg.OTLPEndpoint)
	}

	return func(ctx context.Context) {
		if err := shutdown(ctx); err != nil {
			logger.Error("Failed to flush traces", "error", err)
		}
	}
}

// newTraceExporter returns nil for the none exporter. The OTLP exporter reads its endpoint
// and headers from the OTEL_EXPORTER_OTLP_* environment.
func newTraceExporter(ctx context.Context, kind string, w io.Writer) (sdktrace.SpanExporter, error) {
	switch kind {
	case config.TraceExporterOTLP:
		exp, err := otlptracehttp.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("create otlp trace exporter: %w", err)
		}
		return exp, nil
	case config.TraceExporterStdout:
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("create stdout trace exporter: %w", err)
		}
		return exp, nil
	case config.TraceExporterNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown trace exporter %q", kind)
	}
}

func newTracerProvider(exporter sdktrace.SpanExporter, component string) (*sdktrace.TracerProvider, error) {
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("service.component", component),
	))
	if err != nil {
		return nil, fmt.Errorf("build trace resource: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	), nil
}
