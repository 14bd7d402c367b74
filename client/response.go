package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/pitabwire/util"
)

// ErrResponseTooLarge is returned with the truncated body by ToContent.
var ErrResponseTooLarge = errors.New("response body truncated, it exceeds configured limit")

// InvokeResponse is a response whose body the caller must consume or Close.
type InvokeResponse struct {
	StatusCode int
	Headers    http.Header
	Body       io.ReadCloser

	maxBodyLen int64
}

// IsSuccess reports a 2xx status.
func (r *InvokeResponse) IsSuccess() bool {
	return r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}

func (r *InvokeResponse) Close() error {
	if r.Body == nil {
		return nil
	}
	return r.Body.Close()
}

// ToFile streams the body into w and closes it.
func (r *InvokeResponse) ToFile(ctx context.Context, w io.Writer) (int64, error) {
	defer util.CloseAndLogOnError(ctx, r)
	return io.Copy(w, r.Body)
}

// ToContent reads the whole body, up to the invoker's size limit, and closes it.
func (r *InvokeResponse) ToContent(ctx context.Context) ([]byte, error) {
	defer util.CloseAndLogOnError(ctx, r)

	if r.maxBodyLen <= 0 {
		return io.ReadAll(r.Body)
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, r.maxBodyLen+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > r.maxBodyLen {
		return data[:r.maxBodyLen], ErrResponseTooLarge
	}
	return data, nil
}

// Decode reads a JSON body into v and closes it.
func (r *InvokeResponse) Decode(ctx context.Context, v any) error {
	defer util.CloseAndLogOnError(ctx, r)
	return json.NewDecoder(r.Body).Decode(v)
}

// bodyWithCancel releases a per-request timeout only once the body is closed.
type bodyWithCancel struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *bodyWithCancel) Close() error {
	defer b.cancel()
	return b.ReadCloser.Close()
}
