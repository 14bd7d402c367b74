package syncer

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/pitabwire/util"
	"github.com/rs/xid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pitabwire/localesync/telemetry"
)

// EventsReference is the publisher reference sync reports are sent to.
const EventsReference = "sync-events"

// ErrRunInProgress is returned when waiting for the run lock is abandoned.
var ErrRunInProgress = errors.New("another sync run is in progress")

// Task identifies the closed task a run is for.
type Task struct {
	ID          string `json:"id"`
	ProjectID   string `json:"project_id"`
	Title       string `json:"title,omitempty"`
	ProjectName string `json:"project_name,omitempty"`
}

// Report summarises one pipeline run.
type Report struct {
	RunID      string          `json:"run_id"`
	TaskID     string          `json:"task_id"`
	Languages  []string        `json:"languages"`
	Results    []PublishResult `json:"results"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// Succeeded counts the files that were published.
func (r Report) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Success() {
			n++
		}
	}
	return n
}

// Failed counts the files that could not be published.
func (r Report) Failed() int {
	return len(r.Results) - r.Succeeded()
}

// EventSink receives run reports.
type EventSink interface {
	Publish(ctx context.Context, reference string, payload any, headers ...map[string]string) error
}

// Pipeline runs resolve, download and publish for one task at a time.
type Pipeline struct {
	resolver   *Resolver
	downloader *Downloader
	publisher  *Publisher

	events  EventSink
	metrics *telemetry.SyncMetrics
	tracer  telemetry.Tracer
	timeout time.Duration
	now     func() time.Time

	// one-slot semaphore guarding the staging directory
	lock chan struct{}
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithEvents sends every report to sink.
func WithEvents(sink EventSink) PipelineOption {
	return func(p *Pipeline) {
		p.events = sink
	}
}

// WithMetrics records run outcomes on m.
func WithMetrics(m *telemetry.SyncMetrics) PipelineOption {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithRunTimeout bounds a whole run, lock wait excluded.
func WithRunTimeout(timeout time.Duration) PipelineOption {
	return func(p *Pipeline) {
		p.timeout = timeout
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		p.now = now
	}
}

func NewPipeline(resolver *Resolver, downloader *Downloader, publisher *Publisher, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		resolver:   resolver,
		downloader: downloader,
		publisher:  publisher,
		tracer:     telemetry.NewTracer("localesync/syncer"),
		now:        time.Now,
		lock:       make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) acquire(ctx context.Context) error {
	select {
	case p.lock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return errors.Join(ErrRunInProgress, ctx.Err())
	}
}

func (p *Pipeline) release() {
	<-p.lock
}

// Run syncs the target languages of task. Per-file publish failures do not fail the run.
func (p *Pipeline) Run(ctx context.Context, task Task) (report Report, err error) {
	if err = p.acquire(ctx); err != nil {
		return Report{}, err
	}
	defer p.release()

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	ctx, span := p.tracer.Start(ctx, "Run", trace.WithAttributes(attribute.String("task_id", task.ID)))
	defer func() { p.tracer.End(ctx, span, err) }()

	report = Report{RunID: xid.New().String(), TaskID: task.ID, StartedAt: p.now().UTC()}
	log := util.Log(ctx).WithField("run", report.RunID).WithField("task", task.ID)

	outcome := telemetry.OutcomeFailure
	defer func() {
		report.FinishedAt = p.now().UTC()
		p.metrics.RecordRun(ctx, outcome, float64(report.FinishedAt.Sub(report.StartedAt).Milliseconds()))
	}()

	report.Languages, err = p.resolver.ResolveTargetLanguages(ctx, task.ID)
	if err != nil {
		return report, err
	}
	if len(report.Languages) == 0 {
		outcome = telemetry.OutcomeSkipped
		log.Warn("task has no target languages, nothing to sync")
		return report, nil
	}
	log = log.WithField("languages", report.Languages)

	if err = p.downloader.Download(ctx, report.Languages); err != nil {
		return report, err
	}

	report.Results, err = p.publisher.Publish(ctx, p.downloader.Root())
	if err != nil {
		return report, err
	}

	outcome = telemetry.OutcomeSuccess
	p.metrics.RecordPublish(ctx, report.Succeeded(), report.Failed())
	report.FinishedAt = p.now().UTC()
	p.notify(ctx, report)

	log.WithField("succeeded", report.Succeeded()).WithField("failed", report.Failed()).Info("sync run complete")
	return report, nil
}

func (p *Pipeline) notify(ctx context.Context, report Report) {
	if p.events == nil {
		return
	}
	headers := map[string]string{
		"task_id": report.TaskID,
		"run_id":  report.RunID,
		"failed":  strconv.Itoa(report.Failed()),
	}
	if err := p.events.Publish(ctx, EventsReference, report, headers); err != nil {
		util.Log(ctx).WithError(err).WithField("run", report.RunID).Warn("sync report could not be published")
	}
}
