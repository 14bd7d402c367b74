// Package supabase backs storage.Bucket with the Supabase Storage REST API.
package supabase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pitabwire/util"

	"github.com/pitabwire/localesync/client"
	"github.com/pitabwire/localesync/storage"
)

func init() {
	for _, scheme := range []string{"http", "https"} {
		storage.Register(scheme, open)
	}
}

const objectPath = "/storage/v1/object/"

// ErrMissingBucket is returned when no bucket name is configured.
var ErrMissingBucket = errors.New("supabase bucket name is required")

// StatusError describes a non-success reply from the storage API.
type StatusError struct {
	Key        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("supabase storage %s: HTTP %d: %s", e.Key, e.StatusCode, e.Body)
}

// Bucket talks to one Supabase storage bucket.
type Bucket struct {
	baseURL string
	bucket  string
	key     string
	invoker client.Manager
}

func open(ctx context.Context, u *url.URL, opts storage.OpenOptions) (storage.Bucket, error) {
	invoker := opts.Invoker
	if invoker == nil {
		var httpOpts []client.HTTPOption
		if opts.Timeout > 0 {
			httpOpts = append(httpOpts, client.WithHTTPTimeout(opts.Timeout))
		}
		invoker = client.NewManager(ctx, httpOpts...)
	}
	return New(u.String(), opts.Bucket, opts.Key, invoker)
}

// New creates a bucket client for baseURL, e.g. https://<ref>.supabase.co.
func New(baseURL, bucket, apiKey string, invoker client.Manager) (*Bucket, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, ErrMissingBucket
	}
	return &Bucket{
		baseURL: strings.TrimRight(baseURL, "/"),
		bucket:  strings.Trim(bucket, "/"),
		key:     apiKey,
		invoker: invoker,
	}, nil
}

func (b *Bucket) objectURL(key string) string {
	segments := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return b.baseURL + objectPath + url.PathEscape(b.bucket) + "/" + strings.Join(segments, "/")
}

func (b *Bucket) headers() http.Header {
	h := http.Header{}
	if b.key != "" {
		h.Set("Authorization", "Bearer "+b.key)
		h.Set("Apikey", b.key)
	}
	return h
}

// isNotFound follows the storage API, which reports missing objects either as 404 or as a
// 400 whose JSON body carries "statusCode":"404" or a "not found" message.
func isNotFound(status int, body []byte) bool {
	if status == http.StatusNotFound {
		return true
	}
	lower := strings.ToLower(string(body))
	return strings.Contains(lower, "not found") || strings.Contains(lower, `"statuscode":"404"`)
}

func (b *Bucket) Read(ctx context.Context, key string) ([]byte, error) {
	resp, err := b.invoker.InvokeStream(ctx, http.MethodGet, b.objectURL(key), nil, b.headers())
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", key, err)
	}

	body, err := resp.ToContent(ctx)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", key, err)
	}

	if !resp.IsSuccess() {
		if isNotFound(resp.StatusCode, body) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, key)
		}
		return nil, &StatusError{Key: key, StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}

func (b *Bucket) Write(ctx context.Context, key string, data []byte, opts storage.WriteOptions) error {
	h := b.headers()
	h.Set("X-Upsert", "true")
	if opts.ContentType != "" {
		h.Set("Content-Type", opts.ContentType)
	}
	if opts.CacheControl != "" {
		h.Set("Cache-Control", opts.CacheControl)
	}

	resp, err := b.invoker.InvokeStream(ctx, http.MethodPost, b.objectURL(key), bytes.NewReader(data), h)
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}

	body, err := resp.ToContent(ctx)
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}

	if !resp.IsSuccess() {
		return &StatusError{Key: key, StatusCode: resp.StatusCode, Body: string(body)}
	}

	util.Log(ctx).WithField("key", key).WithField("bytes", len(data)).Debug("object uploaded")
	return nil
}

func (b *Bucket) Close() error {
	return nil
}
