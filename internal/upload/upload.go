// Package upload pushes source-language resource files to the translation platform.
package upload

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pitabwire/util"

	"github.com/pitabwire/localesync/internal/lokalise"
	"github.com/pitabwire/localesync/workerpool"
)

// Platform accepts file imports.
type Platform interface {
	UploadFile(ctx context.Context, params lokalise.UploadParams) (*lokalise.Process, error)
	WaitProcess(ctx context.Context, processID string) (*lokalise.Process, error)
}

// File is one resource selected for upload.
type File struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
	Language string `json:"language"`
}

// FileError reports a file that could not be uploaded.
type FileError struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// Result is returned to the caller of the upload endpoint.
type Result struct {
	Tag       string             `json:"tag"`
	Processes []lokalise.Process `json:"processes"`
	Errors    []FileError        `json:"errors"`
}

// Uploader collects and uploads resource files.
type Uploader struct {
	platform    Platform
	pool        workerpool.Manager
	sourceDir   string
	rootDir     string
	tag         string
	poll        bool
	pollTimeout time.Duration
	now         func() time.Time
}

// Option configures an Uploader.
type Option func(*Uploader)

// WithTag sets the base tag; the upload date is appended.
func WithTag(tag string) Option {
	return func(u *Uploader) {
		u.tag = tag
	}
}

// WithPolling waits up to timeout for every queued import to finish.
func WithPolling(enabled bool, timeout time.Duration) Option {
	return func(u *Uploader) {
		u.poll = enabled
		u.pollTimeout = timeout
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(u *Uploader) {
		u.now = now
	}
}

// New uploads the json files under sourceDir, naming them relative to rootDir.
func New(platform Platform, pool workerpool.Manager, sourceDir, rootDir string, opts ...Option) *Uploader {
	u := &Uploader{
		platform:  platform,
		pool:      pool,
		sourceDir: sourceDir,
		rootDir:   rootDir,
		tag:       "api",
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Tag is the tag attached to uploads made now.
func (u *Uploader) Tag() string {
	return u.tag + "-" + u.now().UTC().Format(time.DateOnly)
}

// Collect lists the json files to upload, sorted by filename.
func (u *Uploader) Collect() ([]File, error) {
	source, err := filepath.Abs(u.sourceDir)
	if err != nil {
		return nil, err
	}
	root, err := filepath.Abs(u.rootDir)
	if err != nil {
		return nil, err
	}

	var files []File
	err = filepath.WalkDir(source, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.Type().IsRegular() || !strings.EqualFold(filepath.Ext(path), ".json") {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || !filepath.IsLocal(rel) {
			rel, relErr = filepath.Rel(source, path)
			if relErr != nil {
				return relErr
			}
		}

		files = append(files, File{
			Path:     path,
			Filename: filepath.ToSlash(rel),
			Language: filepath.Base(filepath.Dir(path)),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collect %s: %w", u.sourceDir, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Filename < files[j].Filename })
	return files, nil
}

// Upload sends every collected file. Per-file failures end up in Result.Errors; the error is
// only set when the files cannot be collected.
func (u *Uploader) Upload(ctx context.Context) (Result, error) {
	result := Result{Tag: u.Tag(), Processes: []lokalise.Process{}, Errors: []FileError{}}
	log := util.Log(ctx).WithField("tag", result.Tag)

	files, err := u.Collect()
	if err != nil {
		return result, err
	}

	jobs := make([]workerpool.Job[*lokalise.Process], len(files))
	for i, f := range files {
		job := workerpool.NewJob(u.uploadFunc(f, result.Tag))
		if submitErr := workerpool.SubmitJob(ctx, u.pool, job); submitErr != nil {
			result.Errors = append(result.Errors, FileError{File: f.Filename, Error: submitErr.Error()})
			continue
		}
		jobs[i] = job
	}

	for i, job := range jobs {
		if job == nil {
			continue
		}
		process, awaitErr := workerpool.Await(ctx, job)
		if awaitErr != nil {
			log.WithError(awaitErr).WithField("file", files[i].Filename).Error("resource upload failed")
			result.Errors = append(result.Errors, FileError{File: files[i].Filename, Error: awaitErr.Error()})
			continue
		}
		result.Processes = append(result.Processes, *process)
	}

	log.WithField("files", len(files)).WithField("errors", len(result.Errors)).Info("resources uploaded")
	return result, nil
}

func (u *Uploader) uploadFunc(f File, tag string) func(context.Context, workerpool.JobResultPipe[*lokalise.Process]) error {
	return func(ctx context.Context, pipe workerpool.JobResultPipe[*lokalise.Process]) error {
		data, err := os.ReadFile(f.Path)
		if err != nil {
			return err
		}

		process, err := u.platform.UploadFile(ctx, lokalise.UploadParams{
			Data:            base64.StdEncoding.EncodeToString(data),
			Filename:        f.Filename,
			LangISO:         f.Language,
			ReplaceModified: true,
			Tags:            []string{tag},
		})
		if err != nil {
			return err
		}

		if u.poll && !process.Done() {
			process, err = u.wait(ctx, process)
			if err != nil {
				return err
			}
		}
		return pipe.WriteResult(ctx, process)
	}
}

func (u *Uploader) wait(ctx context.Context, queued *lokalise.Process) (*lokalise.Process, error) {
	wctx := ctx
	if u.pollTimeout > 0 {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(ctx, u.pollTimeout)
		defer cancel()
	}

	process, err := u.platform.WaitProcess(wctx, queued.ProcessID)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		// still running on the platform, report what we know
		if process == nil {
			process = queued
		}
		return process, nil
	}
	return process, err
}
