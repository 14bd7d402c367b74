package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

//nolint:gochecknoglobals // attribute keys
var (
	AttrOperationKey = attribute.Key("localesync.operation")
	AttrPackageKey   = attribute.Key("localesync.package")
	AttrStatusKey    = attribute.Key("localesync.status")
)

// Tracer opens spans named "<package>/<operation>" and records their latency.
type Tracer interface {
	Start(ctx context.Context, operation string, options ...trace.SpanStartOption) (context.Context, trace.Span)
	End(ctx context.Context, span trace.Span, err error, options ...trace.SpanEndOption)
}

type spanTimingKey struct{}

type spanTiming struct {
	name    string
	started time.Time
}

type tracer struct {
	pkg     string
	tracer  trace.Tracer
	latency metric.Float64Histogram
}

// NewTracer returns a Tracer for pkg backed by the global providers.
func NewTracer(pkg string, options ...trace.TracerOption) Tracer {
	return &tracer{
		pkg:     pkg,
		tracer:  otel.Tracer(pkg, options...),
		latency: LatencyMeasure(pkg),
	}
}

//nolint:spancheck // the caller ends the span through End
func (t *tracer) Start(ctx context.Context, operation string, options ...trace.SpanStartOption) (context.Context, trace.Span) {
	name := t.pkg + "/" + operation
	options = append(options, trace.WithAttributes(AttrOperationKey.String(operation)))

	ctx, span := t.tracer.Start(ctx, name, options...)
	return context.WithValue(ctx, spanTimingKey{}, spanTiming{name: name, started: time.Now()}), span
}

func (t *tracer) End(ctx context.Context, span trace.Span, err error, options ...trace.SpanEndOption) {
	if err != nil {
		span.RecordError(err, trace.WithStackTrace(true))
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(options...)

	timing, ok := ctx.Value(spanTimingKey{}).(spanTiming)
	if !ok {
		return
	}
	t.latency.Record(ctx, float64(time.Since(timing.started).Milliseconds()),
		metric.WithAttributes(AttrOperationKey.String(timing.name), AttrStatusKey.String(ErrorCode(err))))
}

// ErrorCode buckets err for the status attribute.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "deadline exceeded"
	default:
		return "err"
	}
}
