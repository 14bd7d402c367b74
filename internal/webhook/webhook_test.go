package webhook_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/pitabwire/localesync/internal/syncer"
	"github.com/pitabwire/localesync/internal/webhook"
)

type fakeRunner struct {
	calls  atomic.Int32
	last   syncer.Task
	report syncer.Report
	err    error
}

func (f *fakeRunner) Run(_ context.Context, task syncer.Task) (syncer.Report, error) {
	f.calls.Add(1)
	f.last = task
	return f.report, f.err
}

const taskClosedBody = `{"event":"project.task.closed","project":{"id":"p1.abc","name":"Website"},
	"task":{"id":1234,"title":"Spring campaign"}}`

type WebhookSuite struct {
	suite.Suite
	runner  *fakeRunner
	handler *webhook.Handler
}

func TestWebhookSuite(t *testing.T) {
	suite.Run(t, new(WebhookSuite))
}

func (s *WebhookSuite) SetupTest() {
	s.runner = &fakeRunner{}
	s.handler = webhook.NewHandler("s3cret", "p1.abc", s.runner)
}

func (s *WebhookSuite) do(secret, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/lokalise-webhooks", strings.NewReader(body))
	if secret != "" {
		req.Header.Set("x-secret", secret)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *WebhookSuite) TestPing() {
	rec := s.do("s3cret", `["ping", {"anything": true}, 3]`)
	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"status":"success"}`, rec.Body.String())
	s.Equal("application/json", rec.Header().Get("Content-Type"))
	s.Zero(s.runner.calls.Load())
}

func (s *WebhookSuite) TestWrongSecret() {
	for name, secret := range map[string]string{"wrong": "nope", "missing": "", "prefix": "s3cre"} {
		s.Run(name, func() {
			rec := s.do(secret, taskClosedBody)
			s.Equal(http.StatusForbidden, rec.Code)
			s.JSONEq(`{"error":"Forbidden"}`, rec.Body.String())
		})
	}
	s.Zero(s.runner.calls.Load())
}

func (s *WebhookSuite) TestSecretCheckedBeforeParsing() {
	rec := s.do("nope", `{not json`)
	s.Equal(http.StatusForbidden, rec.Code)
}

func (s *WebhookSuite) TestInvalidJSON() {
	rec := s.do("s3cret", `{not json`)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.JSONEq(`{"error":"Invalid JSON"}`, rec.Body.String())
}

func (s *WebhookSuite) TestTaskClosed() {
	rec := s.do("s3cret", taskClosedBody)
	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"status":"task processed"}`, rec.Body.String())
	s.Empty(rec.Header().Get(webhook.PublishFailedHeader))

	s.EqualValues(1, s.runner.calls.Load())
	s.Equal(syncer.Task{ID: "1234", ProjectID: "p1.abc", Title: "Spring campaign", ProjectName: "Website"}, s.runner.last)
}

func (s *WebhookSuite) TestPartialPublishFailureStillSucceeds() {
	s.runner.report = syncer.Report{Results: []syncer.PublishResult{
		{Key: "locales/fr/ui.json"},
		{Key: "locales/es/ui.json"},
		{Key: "locales/es/meta.json", Err: errors.New("storage unavailable")},
	}}

	rec := s.do("s3cret", taskClosedBody)
	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"status":"task processed"}`, rec.Body.String())
	s.Equal("1", rec.Header().Get(webhook.PublishFailedHeader))
}

func (s *WebhookSuite) TestPipelineFailure() {
	s.runner.err = &syncer.PlatformError{Op: "resolve languages", TaskID: "1234", Err: errors.New("api key revoked")}

	rec := s.do("s3cret", taskClosedBody)
	s.Equal(http.StatusInternalServerError, rec.Code)
	s.JSONEq(`{"error":"Processing failed"}`, rec.Body.String())
	s.NotContains(rec.Body.String(), "api key")
}

func (s *WebhookSuite) TestUnhandledPayloads() {
	bodies := map[string]string{
		"other project": `{"event":"project.task.closed","project":{"id":"p2"},"task":{"id":1}}`,
		"other event":   `{"event":"project.key.added","project":{"id":"p1.abc"}}`,
		"no task":       `{"event":"project.task.closed","project":{"id":"p1.abc"}}`,
		"bad ping":      `["pong"]`,
		"empty array":   `[]`,
		"scalar":        `"ping"`,
	}
	for name, body := range bodies {
		s.Run(name, func() {
			rec := s.do("s3cret", body)
			s.Equal(http.StatusBadRequest, rec.Code)
			s.JSONEq(`{"error":"Unhandled payload"}`, rec.Body.String())
		})
	}
	s.Zero(s.runner.calls.Load())
}

func (s *WebhookSuite) TestOversizedBody() {
	rec := s.do("s3cret", `["ping","`+strings.Repeat("x", 2<<20)+`"]`)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *WebhookSuite) TestClassify() {
	ev, err := webhook.Classify([]byte(`["ping"]`), "p1")
	s.Require().NoError(err)
	s.Equal(webhook.Ping{}, ev)

	ev, err = webhook.Classify([]byte(`{"event":"project.task.closed","project":{"id":42,"name":"N"},
		"task":{"id":"7","title":"T"}}`), " 42 ")
	s.Require().NoError(err)
	s.Equal(webhook.TaskClosed{TaskID: "7", ProjectID: "42", TaskTitle: "T", ProjectName: "N"}, ev)

	ev, err = webhook.Classify([]byte(`{"event":"project.task.closed","project":{"id":true}}`), "p1")
	s.Require().NoError(err)
	s.IsType(webhook.Unrecognized{}, ev)

	_, err = webhook.Classify([]byte(``), "p1")
	s.Require().ErrorIs(err, webhook.ErrInvalidJSON)
}
