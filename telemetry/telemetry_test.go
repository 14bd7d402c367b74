package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/pitabwire/localesync/config"
	"github.com/pitabwire/localesync/telemetry"
)

type TelemetrySuite struct {
	suite.Suite
}

func TestTelemetrySuite(t *testing.T) {
	suite.Run(t, new(TelemetrySuite))
}

func (s *TelemetrySuite) TestDisabledFromConfig() {
	cfg := &config.ConfigurationDefault{OpenTelemetryDisable: true}
	m := telemetry.NewManager(s.T().Context(), cfg)
	s.True(m.Disabled())
	s.Require().NoError(m.Init(s.T().Context()))
	s.Nil(m.LogHandler())
	s.Require().NoError(m.Shutdown(s.T().Context()))
}

func (s *TelemetrySuite) TestDisabledOption() {
	m := telemetry.NewManager(s.T().Context(), &config.ConfigurationDefault{}, telemetry.WithDisabled())
	s.True(m.Disabled())
	s.Require().NoError(m.Init(s.T().Context()))
	s.Nil(m.LogHandler())
}

func (s *TelemetrySuite) TestInitWithInjectedExporters() {
	ctx := s.T().Context()
	reader := sdkmetric.NewManualReader()
	spans := tracetest.NewInMemoryExporter()

	m := telemetry.NewManager(ctx, &config.ConfigurationDefault{OpenTelemetryTraceRatio: 1},
		telemetry.WithService("localesync", "test", "ci"),
		telemetry.WithSpanExporter(spans),
		telemetry.WithSampler(sdktrace.AlwaysSample()),
		telemetry.WithMetricsReader(reader),
	)
	s.Require().NoError(m.Init(ctx))
	s.NotNil(m.LogHandler())
	defer func() { s.NoError(m.Shutdown(context.Background())) }()

	tracer := telemetry.NewTracer("syncer")
	sctx, span := tracer.Start(ctx, "Run")
	tracer.End(sctx, span, errors.New("boom"))

	metrics, err := telemetry.NewSyncMetrics()
	s.Require().NoError(err)
	metrics.RecordRun(ctx, telemetry.OutcomeSuccess, 12)
	metrics.RecordPublish(ctx, 2, 1)

	var rm metricdata.ResourceMetrics
	s.Require().NoError(reader.Collect(ctx, &rm))

	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, mm := range sm.Metrics {
			names[mm.Name] = true
		}
	}
	s.True(names["localesync.sync.runs"])
	s.True(names["localesync.publish.files"])
	s.True(names["localesync.sync.duration"])
	s.True(names["syncer/latency"])

	s.Require().NoError(otel.GetTracerProvider().(*sdktrace.TracerProvider).ForceFlush(ctx))
	ended := spans.GetSpans()
	s.Require().NotEmpty(ended)
	s.Equal("syncer/Run", ended[0].Name)
}

func (s *TelemetrySuite) TestNilSyncMetricsIsNoop() {
	var m *telemetry.SyncMetrics
	m.RecordRun(s.T().Context(), telemetry.OutcomeFailure, 1)
	m.RecordPublish(s.T().Context(), 1, 1)
}

func (s *TelemetrySuite) TestErrorCode() {
	s.Equal("ok", telemetry.ErrorCode(nil))
	s.Equal("canceled", telemetry.ErrorCode(context.Canceled))
	s.Equal("deadline exceeded", telemetry.ErrorCode(context.DeadlineExceeded))
	s.Equal("err", telemetry.ErrorCode(errors.New("x")))
}
