// Package tracing wires an OpenTelemetry tracer provider around block
// validation, adapted from the teacher's observability/otel/init.go (which
// wires both traces and OTLP metrics); this project keeps Prometheus for
// metrics (observability/metrics) and uses OTEL for traces only, so Init
// only stands up the trace pipeline.
package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const tracerName = "dposcore/consensus"

// Config captures the knobs for the block-validation tracer provider.
type Config struct {
	ServiceName string
	Environment string
	Endpoint    string
	Insecure    bool
}

// Init configures the global OpenTelemetry trace provider and returns a
// shutdown function for the caller to invoke during teardown. A zero-value
// Config (Endpoint == "") disables export and installs a no-op provider so
// callers can unconditionally call Tracer() and StartBlockSpan().
func Init(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "dposd"
	}
	if cfg.Endpoint == "" {
		otel.SetTracerProvider(trace.NewNoopTracerProvider())
		return func(context.Context) error { return nil }, nil
	}

	attrs := []attribute.KeyValue{semconv.ServiceNameKey.String(cfg.ServiceName)}
	if cfg.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironmentKey.String(cfg.Environment))
	}
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(attrs...))
	if err != nil {
		return nil, fmt.Errorf("tracing: build resource: %w", err)
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("tracing: create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(2*time.Second),
			sdktrace.WithMaxExportBatchSize(512),
		),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown, nil
}

// Tracer returns the package-level tracer for consensus spans.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartBlockSpan starts a span around one ApplyBlock call, tagged with the
// block's height and producer so a trace backend can correlate validation
// latency with a specific delegate.
func StartBlockSpan(ctx context.Context, height, producerID uint64) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "core.Coordinator.ApplyBlock",
		trace.WithAttributes(
			attribute.Int64("dpos.block.height", int64(height)),
			attribute.Int64("dpos.block.producer_id", int64(producerID)),
		),
	)
}
