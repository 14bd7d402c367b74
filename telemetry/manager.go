package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/exporters/autoexport"
	"go.opentelemetry.io/contrib/propagators/autoprop"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklogs "go.opentelemetry.io/otel/sdk/log"
	sdkmetrics "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"

	"github.com/pitabwire/localesync/config"
)

// Manager installs the global OpenTelemetry providers for the service.
type Manager interface {
	Init(ctx context.Context) error
	Disabled() bool
	LogHandler() slog.Handler
	Shutdown(ctx context.Context) error
}

type manager struct {
	name        string
	version     string
	environment string
	disabled    bool
	ratio       float64

	propagator    propagation.TextMapPropagator
	sampler       sdktrace.Sampler
	spanExporter  sdktrace.SpanExporter
	metricsReader sdkmetrics.Reader
	logExporter   sdklogs.Exporter

	logHandler slog.Handler
	shutdowns  []func(context.Context) error
}

// NewManager builds a Manager. Nothing is installed until Init.
func NewManager(ctx context.Context, cfg config.ConfigurationTelemetry, opts ...Option) Manager {
	m := &manager{ratio: 1}
	if cfg != nil {
		m.disabled = cfg.DisableOpenTelemetry()
		if cfg.SamplingRatio() > 0 {
			m.ratio = cfg.SamplingRatio()
		}
	}

	for _, opt := range opts {
		opt(ctx, m)
	}
	return m
}

func (m *manager) Disabled() bool {
	return m.disabled
}

// LogHandler is the slog bridge into the log provider, nil until Init ran.
func (m *manager) LogHandler() slog.Handler {
	return m.logHandler
}

func (m *manager) Init(ctx context.Context) error {
	if m.disabled {
		return nil
	}

	res, err := resource.Merge(resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL,
			semconv.ServiceName(m.name),
			semconv.ServiceVersion(m.version),
			semconv.DeploymentEnvironmentName(m.environment),
			semconv.ProcessPID(os.Getpid()),
			semconv.ProcessRuntimeVersion(runtime.Version())))
	if err != nil {
		return fmt.Errorf("telemetry resource: %w", err)
	}

	if m.propagator == nil {
		m.propagator = autoprop.NewTextMapPropagator()
	}
	otel.SetTextMapPropagator(m.propagator)

	if err = m.startTraces(ctx, res); err != nil {
		return fmt.Errorf("telemetry traces: %w", err)
	}
	if err = m.startMetrics(ctx, res); err != nil {
		return fmt.Errorf("telemetry metrics: %w", err)
	}
	if err = m.startLogs(ctx, res); err != nil {
		return fmt.Errorf("telemetry logs: %w", err)
	}
	return nil
}

// Shutdown flushes the providers in reverse start order.
func (m *manager) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(m.shutdowns) - 1; i >= 0; i-- {
		errs = append(errs, m.shutdowns[i](ctx))
	}
	m.shutdowns = nil
	return errors.Join(errs...)
}

// exportNothingByDefault keeps autoexport quiet unless the selector variable is set.
func exportNothingByDefault(selector string) {
	if os.Getenv(selector) == "" {
		_ = os.Setenv(selector, "none")
	}
}

func (m *manager) startTraces(ctx context.Context, res *resource.Resource) error {
	if m.spanExporter == nil {
		exportNothingByDefault("OTEL_TRACES_EXPORTER")
		exporter, err := autoexport.NewSpanExporter(ctx)
		if err != nil {
			return err
		}
		m.spanExporter = exporter
	}
	if m.sampler == nil {
		m.sampler = sdktrace.ParentBased(sdktrace.TraceIDRatioBased(m.ratio))
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(m.sampler),
		sdktrace.WithBatcher(m.spanExporter))
	otel.SetTracerProvider(tp)
	m.shutdowns = append(m.shutdowns, tp.Shutdown)
	return nil
}

func (m *manager) startMetrics(ctx context.Context, res *resource.Resource) error {
	if m.metricsReader == nil {
		exportNothingByDefault("OTEL_METRICS_EXPORTER")
		reader, err := autoexport.NewMetricReader(ctx)
		if err != nil {
			return err
		}
		m.metricsReader = reader
	}

	mp := sdkmetrics.NewMeterProvider(sdkmetrics.WithResource(res), sdkmetrics.WithReader(m.metricsReader))
	otel.SetMeterProvider(mp)
	m.shutdowns = append(m.shutdowns, mp.Shutdown)
	return nil
}

func (m *manager) startLogs(ctx context.Context, res *resource.Resource) error {
	if m.logExporter == nil {
		exportNothingByDefault("OTEL_LOGS_EXPORTER")
		exporter, err := autoexport.NewLogExporter(ctx)
		if err != nil {
			return err
		}
		m.logExporter = exporter
	}

	lp := sdklogs.NewLoggerProvider(
		sdklogs.WithResource(res),
		sdklogs.WithProcessor(sdklogs.NewBatchProcessor(m.logExporter)))
	global.SetLoggerProvider(lp)
	m.shutdowns = append(m.shutdowns, lp.Shutdown)

	m.logHandler = otelslog.NewHandler(m.name,
		otelslog.WithLoggerProvider(lp),
		otelslog.WithSource(true))
	return nil
}
