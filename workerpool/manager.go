package workerpool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pitabwire/util"

	"github.com/pitabwire/localesync/config"
)

const (
	retryBaseDelay = 100 * time.Millisecond
	retryMaxDelay  = 30 * time.Second
)

var (
	ErrPoolNotConfigured = errors.New("worker pool is not configured")
	ErrNilManager        = errors.New("worker pool manager is nil")
)

// Manager owns the pool jobs are submitted to.
type Manager interface {
	GetPool() (WorkerPool, error)
	StopError(ctx context.Context, err error)
	Shutdown(ctx context.Context) error
}

type manager struct {
	pool    WorkerPool
	stopErr func(ctx context.Context, err error)
}

// NewManager builds a pool sized from cfg and then opts. stopOnErr receives fatal pool errors.
func NewManager(
	ctx context.Context,
	cfg config.ConfigurationWorkerPool,
	stopOnErr func(ctx context.Context, err error),
	opts ...Option,
) (Manager, error) {
	o := optionsFromConfig(cfg)
	for _, opt := range opts {
		opt(o)
	}

	pool, err := newAntsPool(util.Log(ctx), o)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	if stopOnErr == nil {
		stopOnErr = func(ctx context.Context, err error) {
			util.Log(ctx).WithError(err).Error("worker pool stopped on error")
		}
	}
	return &manager{pool: pool, stopErr: stopOnErr}, nil
}

func (m *manager) GetPool() (WorkerPool, error) {
	if m.pool == nil {
		return nil, ErrPoolNotConfigured
	}
	return m.pool, nil
}

func (m *manager) StopError(ctx context.Context, err error) {
	m.stopErr(ctx, err)
}

// Shutdown releases the workers; running jobs finish.
func (m *manager) Shutdown(_ context.Context) error {
	if m.pool != nil {
		m.pool.Shutdown()
	}
	return nil
}

// SubmitJob queues job on the pool. Results arrive on the job itself.
func SubmitJob[T any](ctx context.Context, m Manager, job Job[T]) error {
	if m == nil {
		return ErrNilManager
	}
	pool, err := m.GetPool()
	if err != nil {
		return err
	}
	return pool.Submit(ctx, func() { execute(ctx, m, job) })
}

// retryDelay doubles from retryBaseDelay per attempt, capped at retryMaxDelay.
func retryDelay(runs int) time.Duration {
	delay := retryBaseDelay
	for i := 1; i < runs && delay < retryMaxDelay; i++ {
		delay *= 2
	}
	return min(delay, retryMaxDelay)
}

func execute[T any](ctx context.Context, m Manager, job Job[T]) {
	err := job.run(ctx)
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrJobClosed) {
		job.Close()
		return
	}

	log := util.Log(ctx).WithField("job", job.ID()).WithField("run", job.Runs()).WithError(err)
	if !job.canRetry() {
		log.Error("job failed, retries exhausted")
		_ = job.WriteError(ctx, err)
		job.Close()
		return
	}

	log.Warn("job failed, scheduling retry")
	go func() {
		timer := time.NewTimer(retryDelay(job.Runs()))
		defer timer.Stop()

		select {
		case <-ctx.Done():
			job.Close()
			return
		case <-timer.C:
		}

		if resubmitErr := SubmitJob(ctx, m, job); resubmitErr != nil {
			log.WithError(resubmitErr).Error("job resubmission failed")
			_ = job.WriteError(ctx, fmt.Errorf("resubmit job: %w", err))
			job.Close()
		}
	}()
}
