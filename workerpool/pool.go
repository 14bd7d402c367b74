package workerpool

import (
	"context"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/pitabwire/util"

	"github.com/pitabwire/localesync/config"
)

const releaseTimeout = 10 * time.Second

// Options size the ants pool behind a Manager.
type Options struct {
	PoolCount          int
	SinglePoolCapacity int
	MaxBlockingTasks   int
	ExpiryDuration     time.Duration
	Nonblocking        bool
	PanicHandler       func(any)
}

type Option func(*Options)

// WithPoolCount splits the workers across n ants pools. One or less means a single pool.
func WithPoolCount(n int) Option {
	return func(o *Options) { o.PoolCount = n }
}

// WithSinglePoolCapacity bounds how many jobs run at once in each pool.
func WithSinglePoolCapacity(capacity int) Option {
	return func(o *Options) { o.SinglePoolCapacity = capacity }
}

// WithMaxBlockingTasks caps the submitters waiting for a worker. Zero is unbounded.
func WithMaxBlockingTasks(n int) Option {
	return func(o *Options) { o.MaxBlockingTasks = n }
}

func WithPoolExpiryDuration(d time.Duration) Option {
	return func(o *Options) { o.ExpiryDuration = d }
}

// WithPoolNonblocking makes submission fail instead of waiting when every worker is busy.
func WithPoolNonblocking(nonblocking bool) Option {
	return func(o *Options) { o.Nonblocking = nonblocking }
}

func WithPoolPanicHandler(handler func(any)) Option {
	return func(o *Options) { o.PanicHandler = handler }
}

// WorkerPool runs submitted tasks on a bounded set of goroutines.
type WorkerPool interface {
	Submit(ctx context.Context, task func()) error
	Running() int
	Shutdown()
}

type antsPool struct {
	submit  func(func()) error
	running func() int
	release func()
}

func (p *antsPool) Submit(ctx context.Context, task func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.submit(task)
}

func (p *antsPool) Running() int { return p.running() }
func (p *antsPool) Shutdown()    { p.release() }

func optionsFromConfig(cfg config.ConfigurationWorkerPool) *Options {
	return &Options{
		PoolCount:          cfg.GetCount(),
		SinglePoolCapacity: cfg.GetCapacity(),
		ExpiryDuration:     cfg.GetExpiryDuration(),
	}
}

func newAntsPool(log *util.LogEntry, o *Options) (WorkerPool, error) {
	antsOpts := []ants.Option{
		ants.WithNonblocking(o.Nonblocking),
		ants.WithLogger(log),
	}
	if o.ExpiryDuration > 0 {
		antsOpts = append(antsOpts, ants.WithExpiryDuration(o.ExpiryDuration))
	}
	if o.MaxBlockingTasks > 0 {
		antsOpts = append(antsOpts, ants.WithMaxBlockingTasks(o.MaxBlockingTasks))
	}
	if o.PanicHandler != nil {
		antsOpts = append(antsOpts, ants.WithPanicHandler(o.PanicHandler))
	}

	capacity := max(o.SinglePoolCapacity, 1)

	if o.PoolCount <= 1 {
		p, err := ants.NewPool(capacity, antsOpts...)
		if err != nil {
			return nil, err
		}
		return &antsPool{submit: p.Submit, running: p.Running, release: p.Release}, nil
	}

	mp, err := ants.NewMultiPool(o.PoolCount, capacity, ants.LeastTasks, antsOpts...)
	if err != nil {
		return nil, err
	}
	return &antsPool{
		submit:  mp.Submit,
		running: mp.Running,
		release: func() { _ = mp.ReleaseTimeout(releaseTimeout) },
	}, nil
}
