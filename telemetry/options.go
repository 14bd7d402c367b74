package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/propagation"
	sdklogs "go.opentelemetry.io/otel/sdk/log"
	sdkmetrics "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option configures a Manager.
type Option func(ctx context.Context, m *manager)

// WithService tags every signal with the service identity.
func WithService(name, version, environment string) Option {
	return func(_ context.Context, m *manager) {
		m.name = name
		m.version = version
		m.environment = environment
	}
}

// WithDisabled turns Init into a no-op.
func WithDisabled() Option {
	return func(_ context.Context, m *manager) {
		m.disabled = true
	}
}

func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(_ context.Context, m *manager) {
		m.propagator = p
	}
}

func WithSampler(sampler sdktrace.Sampler) Option {
	return func(_ context.Context, m *manager) {
		m.sampler = sampler
	}
}

// WithSpanExporter replaces the exporter autoexport would pick.
func WithSpanExporter(exporter sdktrace.SpanExporter) Option {
	return func(_ context.Context, m *manager) {
		m.spanExporter = exporter
	}
}

// WithMetricsReader replaces the reader autoexport would pick.
func WithMetricsReader(reader sdkmetrics.Reader) Option {
	return func(_ context.Context, m *manager) {
		m.metricsReader = reader
	}
}

// WithLogExporter replaces the exporter autoexport would pick.
func WithLogExporter(exporter sdklogs.Exporter) Option {
	return func(_ context.Context, m *manager) {
		m.logExporter = exporter
	}
}
