// Package tracing configures OpenTelemetry. Without an endpoint it installs
// nothing and the global no-op tracer stays in place.
package tracing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Name is the instrumentation scope used by every tracer in the process.
const Name = "github.com/jskherman/howis"

// Config configures trace export.
type Config struct {
	// Endpoint is the OTLP/HTTP collector host:port. Empty disables export.
	Endpoint string `yaml:"endpoint"`

	// Insecure sends over plain HTTP.
	Insecure bool `yaml:"insecure"`

	// SampleRatio is the fraction of traces kept. Defaults to 1.
	SampleRatio float64 `yaml:"sample_ratio"`
}

// Enabled reports whether an endpoint is configured.
func (c Config) Enabled() bool { return c.Endpoint != "" }

// Setup installs a global tracer provider exporting to cfg.Endpoint and
// returns its shutdown function. When disabled the shutdown is a no-op.
func Setup(ctx context.Context, cfg Config, serviceVersion, environment string) (func(context.Context) error, error) {
	if !cfg.Enabled() {
		return func(context.Context) error { return nil }, nil
	}
	if cfg.SampleRatio < 0 || cfg.SampleRatio > 1 {
		return nil, fmt.Errorf("tracing: sample_ratio must be within [0,1], got %v", cfg.SampleRatio)
	}
	ratio := cfg.SampleRatio
	if ratio == 0 {
		ratio = 1
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("tracing: create exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", "howis"),
		attribute.String("service.version", serviceVersion),
		attribute.String("deployment.environment", environment),
	))
	if err != nil {
		return nil, errors.Join(fmt.Errorf("tracing: build resource: %w", err), exporter.Shutdown(ctx))
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// Tracer returns the process tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(Name)
}
