package workerpool

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/rs/xid"
)

const resultBuffer = 10

// ErrJobClosed is returned when writing to, or waiting on, a job that has finished.
var ErrJobClosed = errors.New("worker job is already closed")

// JobResult is one value or one failure produced by a job.
type JobResult[T any] interface {
	IsError() bool
	Error() error
	Item() T
}

type result[T any] struct {
	item T
	err  error
}

func (r result[T]) IsError() bool { return r.err != nil }
func (r result[T]) Error() error  { return r.err }
func (r result[T]) Item() T       { return r.item }

// JobResultPipe is the side of a job its function writes to.
type JobResultPipe[T any] interface {
	WriteResult(ctx context.Context, val T) error
	WriteError(ctx context.Context, err error) error
	ReadResult(ctx context.Context) (JobResult[T], bool)
	Close()
}

// Job is a unit of work run on the pool, retried up to Retries extra times.
type Job[T any] interface {
	JobResultPipe[T]
	ID() string
	Runs() int
	Retries() int
	run(ctx context.Context) error
	canRetry() bool
}

type job[T any] struct {
	id      string
	retries int
	runs    atomic.Int64
	closed  atomic.Bool
	results chan JobResult[T]
	process func(ctx context.Context, pipe JobResultPipe[T]) error
}

// NewJob wraps process as a job that runs once.
func NewJob[T any](process func(ctx context.Context, pipe JobResultPipe[T]) error) Job[T] {
	return NewJobWithRetry(process, 0)
}

// NewJobWithRetry wraps process as a job that may run retries+1 times.
func NewJobWithRetry[T any](process func(ctx context.Context, pipe JobResultPipe[T]) error, retries int) Job[T] {
	return &job[T]{
		id:      xid.New().String(),
		retries: max(retries, 0),
		results: make(chan JobResult[T], resultBuffer),
		process: process,
	}
}

func (j *job[T]) ID() string   { return j.id }
func (j *job[T]) Runs() int    { return int(j.runs.Load()) }
func (j *job[T]) Retries() int { return j.retries }

func (j *job[T]) canRetry() bool {
	return j.Runs() <= j.retries
}

func (j *job[T]) run(ctx context.Context) error {
	j.runs.Add(1)
	if j.process == nil {
		return errors.New("job has no function")
	}
	return j.process(ctx, j)
}

func (j *job[T]) write(ctx context.Context, r JobResult[T]) error {
	if j.closed.Load() {
		return ErrJobClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case j.results <- r:
		return nil
	}
}

func (j *job[T]) WriteResult(ctx context.Context, val T) error {
	return j.write(ctx, result[T]{item: val})
}

func (j *job[T]) WriteError(ctx context.Context, err error) error {
	return j.write(ctx, result[T]{err: err})
}

// ReadResult returns false once the job is closed and drained, or ctx ends.
func (j *job[T]) ReadResult(ctx context.Context) (JobResult[T], bool) {
	if ctx.Err() != nil {
		return nil, false
	}
	select {
	case <-ctx.Done():
		return nil, false
	case r, ok := <-j.results:
		return r, ok
	}
}

func (j *job[T]) Close() {
	if j.closed.CompareAndSwap(false, true) {
		close(j.results)
	}
}

// Await returns the first result of job.
func Await[T any](ctx context.Context, job Job[T]) (T, error) {
	var zero T
	r, ok := job.ReadResult(ctx)
	switch {
	case !ok && ctx.Err() != nil:
		return zero, ctx.Err()
	case !ok:
		return zero, ErrJobClosed
	case r.IsError():
		return zero, r.Error()
	default:
		return r.Item(), nil
	}
}

// ConsumeResultStream hands every result to consumer until the job closes or yields an error.
func ConsumeResultStream[T any](ctx context.Context, job JobResultPipe[T], consumer func(T)) error {
	for {
		r, ok := job.ReadResult(ctx)
		if !ok {
			return ctx.Err()
		}
		if r.IsError() {
			return r.Error()
		}
		consumer(r.Item())
	}
}
