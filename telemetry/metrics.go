package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Units are encoded according to the case-sensitive abbreviations from the
// Unified Code for Units of Measure: http://unitsofmeasure.org/ucum.html.
const (
	unitDimensionless = "1"
	unitMilliseconds  = "ms"
)

const meterName = "github.com/pitabwire/localesync"

// Outcome attribute values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// LatencyMeasure returns the latency histogram for a package.
func LatencyMeasure(pkg string) metric.Float64Histogram {
	pkgMeter := otel.Meter(pkg, metric.WithInstrumentationAttributes(AttrPackageKey.String(pkg)))

	m, err := pkgMeter.Float64Histogram(
		pkg+"/latency",
		metric.WithDescription("Latency distribution of method calls"),
		metric.WithUnit(unitMilliseconds),
	)
	if err != nil {
		// only invalid instrument names fail here
		panic(fmt.Sprintf("fullName=%q: %v", pkg, err))
	}

	return m
}

// SyncMetrics holds the instruments recorded by a sync run.
type SyncMetrics struct {
	runs         metric.Int64Counter
	publishFiles metric.Int64Counter
	runDuration  metric.Float64Histogram
}

// NewSyncMetrics registers the sync instruments on the global meter provider.
func NewSyncMetrics() (*SyncMetrics, error) {
	meter := otel.Meter(meterName)

	runs, err := meter.Int64Counter("localesync.sync.runs",
		metric.WithDescription("Sync pipeline runs by outcome"),
		metric.WithUnit(unitDimensionless))
	if err != nil {
		return nil, err
	}

	files, err := meter.Int64Counter("localesync.publish.files",
		metric.WithDescription("Resource files published to storage by outcome"),
		metric.WithUnit(unitDimensionless))
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram("localesync.sync.duration",
		metric.WithDescription("Wall time of a sync pipeline run"),
		metric.WithUnit(unitMilliseconds))
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{runs: runs, publishFiles: files, runDuration: duration}, nil
}

// RecordRun counts one run and its duration.
func (m *SyncMetrics) RecordRun(ctx context.Context, outcome string, durationMS float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.runs.Add(ctx, 1, attrs)
	m.runDuration.Record(ctx, durationMS, attrs)
}

// RecordPublish counts published files split by outcome.
func (m *SyncMetrics) RecordPublish(ctx context.Context, succeeded, failed int) {
	if m == nil {
		return
	}
	if succeeded > 0 {
		m.publishFiles.Add(ctx, int64(succeeded), metric.WithAttributes(attribute.String("outcome", OutcomeSuccess)))
	}
	if failed > 0 {
		m.publishFiles.Add(ctx, int64(failed), metric.WithAttributes(attribute.String("outcome", OutcomeFailure)))
	}
}
