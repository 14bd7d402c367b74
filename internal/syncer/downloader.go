package syncer

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pitabwire/util"

	"github.com/pitabwire/localesync/internal/lokalise"
)

const maxEntrySize = 64 << 20

var (
	ErrUnsafeEntry   = errors.New("archive entry escapes the staging directory")
	ErrEntryTooLarge = errors.New("archive entry exceeds size limit")
)

// Exporter builds and serves export bundles.
type Exporter interface {
	DownloadFiles(ctx context.Context, params lokalise.DownloadParams) (string, error)
	DownloadBundle(ctx context.Context, bundleURL string, w io.Writer) (int64, error)
}

// Downloader stages the translated files of a set of languages under root.
type Downloader struct {
	exporter Exporter
	root     string
}

func NewDownloader(exporter Exporter, root string) *Downloader {
	return &Downloader{exporter: exporter, root: root}
}

// Root is the staging directory.
func (d *Downloader) Root() string {
	return d.root
}

// Clear removes everything under the staging directory and recreates it empty.
func (d *Downloader) Clear() error {
	if err := os.RemoveAll(d.root); err != nil {
		return &DownloadError{Stage: "clear staging", Err: err}
	}
	if err := os.MkdirAll(d.root, 0o755); err != nil {
		return &DownloadError{Stage: "create staging", Err: err}
	}
	return nil
}

// Download clears the staging directory, then fetches and unpacks the export for languages.
func (d *Downloader) Download(ctx context.Context, languages []string) error {
	if err := d.Clear(); err != nil {
		return err
	}

	bundleURL, err := d.exporter.DownloadFiles(ctx, lokalise.TranslatedJSON(languages))
	if err != nil {
		return &DownloadError{Stage: "request export", Err: err}
	}

	tmp, err := os.CreateTemp("", "localesync-bundle-*.zip")
	if err != nil {
		return &DownloadError{Stage: "create bundle file", Err: err}
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	size, err := d.exporter.DownloadBundle(ctx, bundleURL, tmp)
	if err != nil {
		return &DownloadError{Stage: "fetch bundle", Err: err}
	}

	files, err := extract(tmp, size, d.root)
	if err != nil {
		return &DownloadError{Stage: "extract bundle", Err: err}
	}

	util.Log(ctx).
		WithField("languages", languages).
		WithField("bytes", size).
		WithField("files", files).
		Info("export bundle staged")
	return nil
}

func extract(r io.ReaderAt, size int64, root string) (int, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return 0, err
	}

	files := 0
	for _, f := range zr.File {
		name := filepath.FromSlash(f.Name)
		if !filepath.IsLocal(name) {
			return files, fmt.Errorf("%w: %s", ErrUnsafeEntry, f.Name)
		}
		target := filepath.Join(root, name)

		if f.FileInfo().IsDir() {
			if err = os.MkdirAll(target, 0o755); err != nil {
				return files, err
			}
			continue
		}
		if !f.Mode().IsRegular() {
			continue
		}

		if err = extractFile(f, target); err != nil {
			return files, err
		}
		files++
	}
	return files, nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	n, copyErr := io.Copy(dst, io.LimitReader(src, maxEntrySize+1))
	closeErr := dst.Close()
	if copyErr != nil {
		return copyErr
	}
	if n > maxEntrySize {
		return fmt.Errorf("%w: %s", ErrEntryTooLarge, f.Name)
	}
	return closeErr
}
