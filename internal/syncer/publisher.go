package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pitabwire/util"

	"github.com/pitabwire/localesync/storage"
	"github.com/pitabwire/localesync/workerpool"
)

const jsonContentType = "application/json"

// PublishResult is the outcome of uploading one staged file.
type PublishResult struct {
	Key  string
	Path string
	Err  error
}

// Success reports whether the upload went through.
func (r PublishResult) Success() bool {
	return r.Err == nil
}

func (r PublishResult) MarshalJSON() ([]byte, error) {
	out := struct {
		Key   string `json:"key"`
		Path  string `json:"path"`
		Error string `json:"error,omitempty"`
	}{Key: r.Key, Path: r.Path}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return json.Marshal(out)
}

// Publisher uploads a staged tree to a bucket.
type Publisher struct {
	bucket       storage.Bucket
	pool         workerpool.Manager
	subdir       string
	cacheControl string
	timeout      time.Duration
	retries      int
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithCacheControl sets the cache-control directive stored with every object.
func WithCacheControl(directive string) PublisherOption {
	return func(p *Publisher) {
		p.cacheControl = directive
	}
}

// WithUploadTimeout bounds each object upload.
func WithUploadTimeout(timeout time.Duration) PublisherOption {
	return func(p *Publisher) {
		p.timeout = timeout
	}
}

// WithRetries sets how many times a failed upload is tried again.
func WithRetries(retries int) PublisherOption {
	return func(p *Publisher) {
		p.retries = retries
	}
}

// WithSubdir sets the staged subtree holding locale files.
func WithSubdir(subdir string) PublisherOption {
	return func(p *Publisher) {
		p.subdir = subdir
	}
}

// NewPublisher uploads to bucket using the workers of pool.
func NewPublisher(bucket storage.Bucket, pool workerpool.Manager, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		bucket:       bucket,
		pool:         pool,
		subdir:       "locales",
		cacheControl: "max-age=3600",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish uploads every regular file below <stagingRoot>/<subdir>. Upload failures are
// recorded per file; the error is only set when the tree cannot be walked.
func (p *Publisher) Publish(ctx context.Context, stagingRoot string) ([]PublishResult, error) {
	files, err := p.collect(stagingRoot)
	if err != nil {
		return nil, err
	}

	jobs := make([]workerpool.Job[PublishResult], len(files))
	results := make([]PublishResult, len(files))

	for i, f := range files {
		results[i] = f

		job := workerpool.NewJobWithRetry(p.uploadFunc(f), p.retries)
		if submitErr := workerpool.SubmitJob(ctx, p.pool, job); submitErr != nil {
			results[i].Err = submitErr
			continue
		}
		jobs[i] = job
	}

	for i, job := range jobs {
		if job == nil {
			continue
		}
		if _, awaitErr := workerpool.Await(ctx, job); awaitErr != nil {
			results[i].Err = awaitErr
		}
	}

	log := util.Log(ctx)
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			log.WithError(r.Err).WithField("key", r.Key).Error("resource upload failed")
		}
	}
	log.WithField("uploaded", len(results)-failed).WithField("failed", failed).Info("staged resources published")

	return results, nil
}

func (p *Publisher) collect(stagingRoot string) ([]PublishResult, error) {
	base := filepath.Join(stagingRoot, filepath.FromSlash(p.subdir))

	var files []PublishResult
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(stagingRoot, path)
		if err != nil {
			return err
		}
		files = append(files, PublishResult{Key: filepath.ToSlash(rel), Path: path})
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return files, err
}

func (p *Publisher) uploadFunc(f PublishResult) func(context.Context, workerpool.JobResultPipe[PublishResult]) error {
	return func(ctx context.Context, pipe workerpool.JobResultPipe[PublishResult]) error {
		data, err := os.ReadFile(f.Path)
		if err != nil {
			return err
		}

		wctx := ctx
		if p.timeout > 0 {
			var cancel context.CancelFunc
			wctx, cancel = context.WithTimeout(ctx, p.timeout)
			defer cancel()
		}

		err = p.bucket.Write(wctx, f.Key, data, storage.WriteOptions{
			ContentType:  jsonContentType,
			CacheControl: p.cacheControl,
		})
		if err != nil {
			return err
		}
		return pipe.WriteResult(ctx, f)
	}
}
