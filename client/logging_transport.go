package client

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pitabwire/util"
)

const (
	defaultMaxBodySize = 1024
	redacted           = "[redacted]"
)

//nolint:gochecknoglobals // lookup table
var sensitiveHeaders = map[string]bool{
	"Authorization": true,
	"Apikey":        true,
	"X-Api-Token":   true,
	"X-Secret":      true,
	"Cookie":        true,
	"Set-Cookie":    true,
}

func headerValue(name string, values []string) string {
	if sensitiveHeaders[http.CanonicalHeaderKey(name)] {
		return redacted
	}
	return strings.Join(values, ", ")
}

// peekBody returns up to limit leading bytes plus a body that still yields the whole stream.
func peekBody(body io.ReadCloser, limit int64) ([]byte, io.ReadCloser) {
	head, err := io.ReadAll(io.LimitReader(body, limit))
	if err != nil {
		return nil, body
	}
	return head, struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), body), body}
}

type LoggingTransportOption func(*loggingTransport)

// WithTransportLogHeaders adds headers to the log lines. Credential headers are redacted.
func WithTransportLogHeaders(enabled bool) LoggingTransportOption {
	return func(t *loggingTransport) { t.headers = enabled }
}

// WithTransportLogBody adds the first bytes of each body to the log lines.
func WithTransportLogBody(enabled bool) LoggingTransportOption {
	return func(t *loggingTransport) { t.body = enabled }
}

func WithTransportMaxBodySize(size int64) LoggingTransportOption {
	return func(t *loggingTransport) { t.maxBodySize = size }
}

type loggingTransport struct {
	next        http.RoundTripper
	headers     bool
	body        bool
	maxBodySize int64
}

// NewLoggingTransport logs every exchange that passes through next at debug level.
func NewLoggingTransport(next http.RoundTripper, opts ...LoggingTransportOption) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	t := &loggingTransport{next: next, maxBodySize: defaultMaxBodySize}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *loggingTransport) describe(log *util.LogEntry, header http.Header, body *io.ReadCloser) *util.LogEntry {
	if t.headers {
		fields := make(map[string]string, len(header))
		for name, values := range header {
			fields[name] = headerValue(name, values)
		}
		log = log.WithField("headers", fields)
	}
	if t.body && *body != nil && *body != http.NoBody {
		var head []byte
		head, *body = peekBody(*body, t.maxBodySize)
		if len(head) > 0 {
			log = log.WithField("body", string(head))
		}
	}
	return log
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	log := util.Log(req.Context()).
		WithField("method", req.Method).
		WithField("url", req.URL.Redacted())

	t.describe(log, req.Header, &req.Body).Debug("http request")

	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	log = log.WithField("duration", time.Since(start).String())
	if err != nil {
		log.WithError(err).Warn("http request failed")
		return resp, err
	}

	t.describe(log.WithField("status", resp.StatusCode), resp.Header, &resp.Body).Debug("http response")
	return resp, nil
}

// WrapClient returns a copy of client whose transport logs through NewLoggingTransport.
func WrapClient(client *http.Client, opts ...LoggingTransportOption) *http.Client {
	if client == nil {
		client = http.DefaultClient
	}
	wrapped := *client
	wrapped.Transport = NewLoggingTransport(client.Transport, opts...)
	return &wrapped
}
