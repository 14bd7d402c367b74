package client //nolint:testpackage // tests read unexported httpConfig

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type OptionsSuite struct {
	suite.Suite
}

func TestOptionsSuite(t *testing.T) {
	suite.Run(t, new(OptionsSuite))
}

func (s *OptionsSuite) TestProcessAndOptionFunctions() {
	transport := &http.Transport{}
	policy := &RetryPolicy{MaxAttempts: 5, Backoff: func(int) time.Duration { return time.Second }}

	cfg := &httpConfig{}
	cfg.process(
		WithHTTPTimeout(3*time.Second),
		WithHTTPTransport(transport),
		WithHTTPIdleTimeout(time.Minute),
		WithHTTPRetryPolicy(policy),
		WithHTTPTraceRequests(),
		WithHTTPTraceRequestHeaders(),
		WithHTTPCheckRedirect(func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }),
	)

	s.Equal(3*time.Second, cfg.timeout)
	s.Same(transport, cfg.transport)
	s.Equal(time.Minute, cfg.idleTimeout)
	s.Same(policy, cfg.retryPolicy)
	s.True(cfg.traceRequests)
	s.True(cfg.traceRequestHeaders)
	s.NotNil(cfg.checkRedirect)
}

func (s *OptionsSuite) TestProcessSetsDefaultRetryPolicy() {
	cfg := &httpConfig{}
	cfg.process()
	s.Require().NotNil(cfg.retryPolicy)
	s.Equal(defaultRetryAttempts, cfg.retryPolicy.MaxAttempts)
	s.Equal(2*defaultRetryBaseBackoff, cfg.retryPolicy.Backoff(2))

	cfg = &httpConfig{}
	cfg.process(WithHTTPRetryPolicy(&RetryPolicy{MaxAttempts: 2}))
	s.Equal(2, cfg.retryPolicy.MaxAttempts)
	s.NotNil(cfg.retryPolicy.Backoff)
}

func (s *OptionsSuite) TestNewHTTPClient() {
	cl := NewHTTPClient(WithHTTPTimeout(2 * time.Second))
	s.Equal(2*time.Second, cl.Timeout)
	s.NotNil(cl.Transport)

	traced := NewHTTPClient(WithHTTPTraceRequests())
	_, isLogging := traced.Transport.(*loggingTransport)
	s.True(isLogging)
}
