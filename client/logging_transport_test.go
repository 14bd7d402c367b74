package client //nolint:testpackage // tests access unexported peekBody and headerValue

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

type loggingRoundTripFunc func(*http.Request) (*http.Response, error)

func (f loggingRoundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

type LoggingTransportSuite struct {
	suite.Suite
}

func TestLoggingTransportSuite(t *testing.T) {
	suite.Run(t, new(LoggingTransportSuite))
}

func (s *LoggingTransportSuite) TestPeekBodyKeepsFullStream() {
	head, body := peekBody(io.NopCloser(strings.NewReader("hello world")), 5)
	s.Equal("hello", string(head))

	rest, err := io.ReadAll(body)
	s.Require().NoError(err)
	s.Equal("hello world", string(rest))
	s.NoError(body.Close())
}

func (s *LoggingTransportSuite) TestHeaderRedaction() {
	s.Equal(redacted, headerValue("x-api-token", []string{"secret"}))
	s.Equal(redacted, headerValue("Authorization", []string{"Bearer abc"}))
	s.Equal(redacted, headerValue("apikey", []string{"abc"}))
	s.Equal("application/json", headerValue("Content-Type", []string{"application/json"}))
}

func (s *LoggingTransportSuite) TestRoundTripPreservesBodies() {
	var seenBody string
	base := loggingRoundTripFunc(func(r *http.Request) (*http.Response, error) {
		b, _ := io.ReadAll(r.Body)
		seenBody = string(b)
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Set-Cookie": {"a=b"}},
			Body:       io.NopCloser(strings.NewReader(strings.Repeat("x", 4096))),
		}, nil
	})

	rt := NewLoggingTransport(base,
		WithTransportLogHeaders(true),
		WithTransportLogBody(true),
		WithTransportMaxBodySize(16))

	req, err := http.NewRequestWithContext(s.T().Context(), http.MethodPost, "http://example.test/upload",
		strings.NewReader(`{"format":"json","original_filenames":true}`))
	s.Require().NoError(err)
	req.Header.Set("X-Api-Token", "secret")

	resp, err := rt.RoundTrip(req)
	s.Require().NoError(err)
	s.JSONEq(`{"format":"json","original_filenames":true}`, seenBody)

	body, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.Len(body, 4096)
	s.NoError(resp.Body.Close())
}

func (s *LoggingTransportSuite) TestRoundTripErrorAndWrapClient() {
	boom := errors.New("dial failed")
	client := WrapClient(&http.Client{Transport: loggingRoundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, boom
	})})

	req, err := http.NewRequestWithContext(s.T().Context(), http.MethodGet, "http://example.test", nil)
	s.Require().NoError(err)

	_, err = client.Do(req) //nolint:bodyclose // error path has no body
	s.Require().ErrorIs(err, boom)

	s.NotNil(WrapClient(nil))
}
