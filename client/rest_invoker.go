package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/pitabwire/util"
	"github.com/sony/gobreaker/v2"
)

const (
	defaultMaxResponseBodyLen = 100 << 20

	breakerHalfOpenRequests = 3
	breakerInterval         = 30 * time.Second
	breakerOpenTimeout      = 45 * time.Second
	breakerMinRequests      = 20
	breakerFailureRatio     = 0.5
)

// ErrCircuitOpen is returned without contacting a host whose breaker has tripped.
var ErrCircuitOpen = errors.New("circuit breaker open")

// Manager sends requests to the translation platform and storage APIs. Each
// method+host pair has its own circuit breaker, and transient failures are retried.
type Manager interface {
	Client(ctx context.Context) *http.Client

	Invoke(ctx context.Context, method string, endpointURL string, payload any,
		headers http.Header, opts ...HTTPOption) (*InvokeResponse, error)
	InvokeStream(ctx context.Context, method string, endpointURL string, body io.Reader,
		headers http.Header, opts ...HTTPOption) (*InvokeResponse, error)
}

// serverError marks a final 5xx so the breaker counts it while the caller still gets the body.
type serverError struct {
	statusCode int
}

func (e *serverError) Error() string {
	return fmt.Sprintf("server error: HTTP %d", e.statusCode)
}

type invoker struct {
	client      *http.Client
	maxBodyLen  int64
	retryPolicy *RetryPolicy
	breakers    sync.Map // breakerKey -> *gobreaker.CircuitBreaker[*http.Response]
}

// NewManager builds a Manager over NewHTTPClient(opts...).
func NewManager(ctx context.Context, opts ...HTTPOption) Manager {
	cfg := &httpConfig{}
	cfg.process(opts...)

	util.Log(ctx).WithField("max_attempts", cfg.retryPolicy.MaxAttempts).Debug("http invoker ready")

	return &invoker{
		client:      NewHTTPClient(opts...),
		maxBodyLen:  defaultMaxResponseBodyLen,
		retryPolicy: cfg.retryPolicy,
	}
}

func (s *invoker) Client(_ context.Context) *http.Client {
	return s.client
}

func breakerKey(req *http.Request) string {
	return req.Method + " " + req.URL.Host
}

func (s *invoker) breakerFor(key string) *gobreaker.CircuitBreaker[*http.Response] {
	if cb, ok := s.breakers.Load(key); ok {
		return cb.(*gobreaker.CircuitBreaker[*http.Response]) //nolint:errcheck // single stored type
	}

	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        key,
		MaxRequests: breakerHalfOpenRequests,
		Interval:    breakerInterval,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.Requests >= breakerMinRequests &&
				float64(c.TotalFailures)/float64(c.Requests) >= breakerFailureRatio
		},
	})

	actual, _ := s.breakers.LoadOrStore(key, cb)
	return actual.(*gobreaker.CircuitBreaker[*http.Response]) //nolint:errcheck // single stored type
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// replayBody resets req.Body for another attempt, reporting false when it cannot be replayed.
func replayBody(req *http.Request) bool {
	if req.GetBody == nil {
		return req.Body == nil || req.Body == http.NoBody
	}
	body, err := req.GetBody()
	if err != nil {
		return false
	}
	req.Body = body
	return true
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// attempts runs req up to policy.MaxAttempts times inside one breaker execution.
func (s *invoker) attempts(ctx context.Context, req *http.Request, policy *RetryPolicy) (*http.Response, error) {
	log := util.Log(ctx).WithField("method", req.Method).WithField("host", req.URL.Host)

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			if !replayBody(req) {
				return nil, lastErr
			}
			log.WithError(lastErr).WithField("attempt", attempt-1).Debug("retrying http request")
			if err := sleepCtx(ctx, policy.Backoff(attempt-1)); err != nil {
				return nil, err
			}
		}

		resp, err := s.client.Do(req)
		if err != nil {
			if resp != nil && resp.Body != nil {
				_ = resp.Body.Close()
			}
			lastErr = err
			continue
		}

		last := attempt == policy.MaxAttempts
		switch {
		case isRetryableStatus(resp.StatusCode) && !last:
			_ = resp.Body.Close()
			lastErr = &serverError{statusCode: resp.StatusCode}
		case resp.StatusCode >= http.StatusInternalServerError:
			return resp, &serverError{statusCode: resp.StatusCode}
		default:
			return resp, nil
		}
	}
	return nil, lastErr
}

func (s *invoker) execute(ctx context.Context, req *http.Request, policy *RetryPolicy) (*http.Response, error) {
	key := breakerKey(req)

	//nolint:bodyclose // the caller owns the body
	resp, err := s.breakerFor(key).Execute(func() (*http.Response, error) {
		return s.attempts(ctx, req, policy)
	})

	var sErr *serverError
	switch {
	case resp != nil && errors.As(err, &sErr):
		return resp, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, fmt.Errorf("%w: %s", ErrCircuitOpen, key)
	default:
		return resp, err
	}
}

// Invoke sends payload encoded as JSON. Accept and Content-Type default to JSON.
func (s *invoker) Invoke(ctx context.Context, method string, endpointURL string, payload any,
	headers http.Header, opts ...HTTPOption) (*InvokeResponse, error) {
	headers = headers.Clone()
	if headers == nil {
		headers = http.Header{}
	}
	for _, name := range []string{"Content-Type", "Accept"} {
		if headers.Get(name) == "" {
			headers.Set(name, "application/json")
		}
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	return s.InvokeStream(ctx, method, endpointURL, body, headers, opts...)
}

// InvokeStream sends body as is. Seekable bodies are replayed on retry.
func (s *invoker) InvokeStream(ctx context.Context, method string, endpointURL string, body io.Reader,
	headers http.Header, opts ...HTTPOption) (*InvokeResponse, error) {
	cfg := &httpConfig{retryPolicy: s.retryPolicy}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.retryPolicy == nil {
		cfg.retryPolicy = DefaultRetryPolicy()
	}

	cancel := context.CancelFunc(func() {})
	if cfg.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpointURL, body)
	if err != nil {
		cancel()
		return nil, err
	}
	if headers != nil {
		req.Header = headers
	}
	if seeker, ok := body.(io.ReadSeeker); ok && req.GetBody == nil {
		req.GetBody = func() (io.ReadCloser, error) {
			if _, sErr := seeker.Seek(0, io.SeekStart); sErr != nil {
				return nil, sErr
			}
			return io.NopCloser(seeker), nil
		}
	}

	resp, err := s.execute(ctx, req, cfg.retryPolicy)
	if err != nil {
		cancel()
		return nil, err
	}

	return &InvokeResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       &bodyWithCancel{ReadCloser: resp.Body, cancel: cancel},
		maxBodyLen: s.maxBodyLen,
	}, nil
}
