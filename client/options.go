package client

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultHTTPTimeoutSeconds     = 30
	defaultHTTPIdleTimeoutSeconds = 90
	defaultRetryAttempts          = 3
	defaultRetryBaseBackoff       = 200 * time.Millisecond
)

// RetryPolicy controls how transient failures are retried.
// Backoff receives the attempt that just failed, starting at 1.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
}

// DefaultRetryPolicy retries three times with a linear backoff.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts: defaultRetryAttempts,
		Backoff: func(attempt int) time.Duration {
			return time.Duration(attempt) * defaultRetryBaseBackoff
		},
	}
}

// HTTPOption configures HTTP client behavior.
type HTTPOption func(*httpConfig)

// httpConfig holds HTTP client configuration.
type httpConfig struct {
	timeout       time.Duration
	transport     http.RoundTripper
	checkRedirect func(req *http.Request, via []*http.Request) error
	idleTimeout   time.Duration
	retryPolicy   *RetryPolicy

	traceRequests       bool
	traceRequestHeaders bool
}

func (c *httpConfig) process(opts ...HTTPOption) {
	for _, opt := range opts {
		opt(c)
	}
	if c.retryPolicy == nil || c.retryPolicy.MaxAttempts < 1 {
		c.retryPolicy = DefaultRetryPolicy()
	}
	if c.retryPolicy.Backoff == nil {
		c.retryPolicy.Backoff = DefaultRetryPolicy().Backoff
	}
}

// WithHTTPTimeout sets the request timeout.
func WithHTTPTimeout(timeout time.Duration) HTTPOption {
	return func(c *httpConfig) {
		c.timeout = timeout
	}
}

// WithHTTPTransport sets the HTTP transport.
func WithHTTPTransport(transport http.RoundTripper) HTTPOption {
	return func(c *httpConfig) {
		c.transport = transport
	}
}

// WithHTTPCheckRedirect sets the redirect policy.
func WithHTTPCheckRedirect(checkRedirect func(req *http.Request, via []*http.Request) error) HTTPOption {
	return func(c *httpConfig) {
		c.checkRedirect = checkRedirect
	}
}

// WithHTTPIdleTimeout sets the idle timeout.
func WithHTTPIdleTimeout(timeout time.Duration) HTTPOption {
	return func(c *httpConfig) {
		c.idleTimeout = timeout
	}
}

// WithHTTPRetryPolicy replaces the default retry policy.
func WithHTTPRetryPolicy(policy *RetryPolicy) HTTPOption {
	return func(c *httpConfig) {
		c.retryPolicy = policy
	}
}

// WithHTTPTraceRequests enables request logging.
func WithHTTPTraceRequests() HTTPOption {
	return func(c *httpConfig) {
		c.traceRequests = true
	}
}

// WithHTTPTraceRequestHeaders enables header logging. Credentials are redacted.
func WithHTTPTraceRequestHeaders() HTTPOption {
	return func(c *httpConfig) {
		c.traceRequestHeaders = true
	}
}

// NewHTTPClient creates a new HTTP client with the provided options.
// If no transport is specified, it defaults to otelhttp.NewTransport(http.DefaultTransport).
func NewHTTPClient(opts ...HTTPOption) *http.Client {
	cfg := &httpConfig{
		timeout:     time.Duration(defaultHTTPTimeoutSeconds) * time.Second,
		idleTimeout: time.Duration(defaultHTTPIdleTimeoutSeconds) * time.Second,
	}
	cfg.process(opts...)

	transport := cfg.transport
	if transport == nil {
		base := http.DefaultTransport.(*http.Transport).Clone()
		if cfg.idleTimeout > 0 {
			base.IdleConnTimeout = cfg.idleTimeout
		}
		transport = otelhttp.NewTransport(base)
	}

	if cfg.traceRequests {
		transport = NewLoggingTransport(transport,
			WithTransportLogHeaders(cfg.traceRequestHeaders),
			WithTransportLogBody(true))
	}

	return &http.Client{
		Transport:     transport,
		Timeout:       cfg.timeout,
		CheckRedirect: cfg.checkRedirect,
	}
}
