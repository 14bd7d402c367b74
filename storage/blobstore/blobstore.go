// Package blobstore backs storage.Bucket with gocloud.dev/blob.
package blobstore

import (
	"context"
	"fmt"
	"net/url"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// buckets
	_ "gocloud.dev/blob/memblob"  // mem:// buckets
	"gocloud.dev/gcerrors"

	"github.com/pitabwire/localesync/storage"
)

func init() {
	for _, scheme := range []string{"mem", "file"} {
		storage.Register(scheme, open)
	}
}

// Bucket adapts a *blob.Bucket.
type Bucket struct {
	bucket *blob.Bucket
}

func open(ctx context.Context, u *url.URL, _ storage.OpenOptions) (storage.Bucket, error) {
	target := *u
	if target.Scheme == "file" {
		q := target.Query()
		if q.Get("create_dir") == "" {
			q.Set("create_dir", "true")
		}
		target.RawQuery = q.Encode()
	}

	b, err := blob.OpenBucket(ctx, target.String())
	if err != nil {
		return nil, fmt.Errorf("open bucket: %w", err)
	}

	return New(b), nil
}

// New wraps an already opened bucket.
func New(b *blob.Bucket) *Bucket {
	return &Bucket{bucket: b}
}

func (b *Bucket) Read(ctx context.Context, key string) ([]byte, error) {
	data, err := b.bucket.ReadAll(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, key)
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

func (b *Bucket) Write(ctx context.Context, key string, data []byte, opts storage.WriteOptions) error {
	err := b.bucket.WriteAll(ctx, key, data, &blob.WriterOptions{
		ContentType:  opts.ContentType,
		CacheControl: opts.CacheControl,
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Attributes exposes the stored metadata of key.
func (b *Bucket) Attributes(ctx context.Context, key string) (*blob.Attributes, error) {
	attrs, err := b.bucket.Attributes(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, key)
		}
		return nil, err
	}
	return attrs, nil
}

func (b *Bucket) Close() error {
	return b.bucket.Close()
}
