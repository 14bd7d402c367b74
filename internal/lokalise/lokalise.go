// Package lokalise is a small client for the translation platform API.
package lokalise

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pitabwire/util"

	"github.com/pitabwire/localesync/client"
)

const (
	// DefaultBaseURL is the public API root.
	DefaultBaseURL = "https://api.lokalise.com/api2"

	tokenHeader         = "X-Api-Token"
	defaultPollInterval = time.Second
)

var (
	ErrMissingProject = errors.New("lokalise project id is required")
	ErrEmptyBundle    = errors.New("lokalise export returned no bundle url")
)

// APIError is a non-success reply from the platform.
type APIError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("lokalise %s: HTTP %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("lokalise %s: HTTP %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// NotFound reports whether the platform answered 404.
func (e *APIError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Client calls the API of one project.
type Client struct {
	baseURL      string
	projectID    string
	token        string
	invoker      client.Manager
	timeout      time.Duration
	pollInterval time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithTimeout bounds every API call.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithPollInterval sets how often WaitProcess checks the process state.
func WithPollInterval(interval time.Duration) Option {
	return func(c *Client) {
		if interval > 0 {
			c.pollInterval = interval
		}
	}
}

// New creates a client for projectID authenticated with token.
func New(projectID, token string, invoker client.Manager, opts ...Option) (*Client, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, ErrMissingProject
	}

	c := &Client{
		baseURL:      DefaultBaseURL,
		projectID:    strings.TrimSpace(projectID),
		token:        token,
		invoker:      invoker,
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ProjectID returns the project the client is scoped to.
func (c *Client) ProjectID() string {
	return c.projectID
}

func (c *Client) endpoint(parts ...string) string {
	escaped := make([]string, 0, len(parts)+2)
	escaped = append(escaped, "projects", url.PathEscape(c.projectID))
	for _, p := range parts {
		escaped = append(escaped, url.PathEscape(p))
	}
	return c.baseURL + "/" + strings.Join(escaped, "/")
}

func (c *Client) httpOptions() []client.HTTPOption {
	if c.timeout > 0 {
		return []client.HTTPOption{client.WithHTTPTimeout(c.timeout)}
	}
	return nil
}

func (c *Client) call(ctx context.Context, method, endpoint string, payload, out any) error {
	headers := http.Header{}
	headers.Set(tokenHeader, c.token)

	resp, err := c.invoker.Invoke(ctx, method, endpoint, payload, headers, c.httpOptions()...)
	if err != nil {
		return fmt.Errorf("lokalise %s %s: %w", method, endpoint, err)
	}

	if !resp.IsSuccess() {
		apiErr := &APIError{Endpoint: method + " " + endpoint, StatusCode: resp.StatusCode}
		body, _ := resp.ToContent(ctx)
		var reply errorResponse
		if decodeErr := json.Unmarshal(body, &reply); decodeErr == nil {
			apiErr.Message = reply.Error.Message
		}
		return apiErr
	}

	if err = resp.Decode(ctx, out); err != nil {
		return fmt.Errorf("lokalise %s %s: decode: %w", method, endpoint, err)
	}
	return nil
}

// Task fetches a task of the project.
func (c *Client) Task(ctx context.Context, taskID string) (*Task, error) {
	var reply taskResponse
	if err := c.call(ctx, http.MethodGet, c.endpoint("tasks", taskID), nil, &reply); err != nil {
		return nil, err
	}
	return &reply.Task, nil
}

// DownloadFiles asks the platform to build an export bundle and returns its url.
func (c *Client) DownloadFiles(ctx context.Context, params DownloadParams) (string, error) {
	var reply downloadResponse
	if err := c.call(ctx, http.MethodPost, c.endpoint("files", "download"), params, &reply); err != nil {
		return "", err
	}
	if reply.BundleURL == "" {
		return "", ErrEmptyBundle
	}

	util.Log(ctx).WithField("languages", params.FilterLangs).Debug("export bundle ready")
	return reply.BundleURL, nil
}

// DownloadBundle streams the bundle at bundleURL into w. The bundle url is pre-signed, so
// no credentials are sent.
func (c *Client) DownloadBundle(ctx context.Context, bundleURL string, w io.Writer) (int64, error) {
	resp, err := c.invoker.InvokeStream(ctx, http.MethodGet, bundleURL, nil, nil, c.httpOptions()...)
	if err != nil {
		return 0, fmt.Errorf("download bundle: %w", err)
	}

	if !resp.IsSuccess() {
		util.CloseAndLogOnError(ctx, resp)
		return 0, &APIError{Endpoint: "GET bundle", StatusCode: resp.StatusCode}
	}

	n, err := resp.ToFile(ctx, w)
	if err != nil {
		return n, fmt.Errorf("download bundle: %w", err)
	}
	return n, nil
}

// UploadFile queues a file import.
func (c *Client) UploadFile(ctx context.Context, params UploadParams) (*Process, error) {
	var reply processResponse
	if err := c.call(ctx, http.MethodPost, c.endpoint("files", "upload"), params, &reply); err != nil {
		return nil, err
	}
	return &reply.Process, nil
}

// Process fetches the current state of a queued process.
func (c *Client) Process(ctx context.Context, processID string) (*Process, error) {
	var reply processResponse
	if err := c.call(ctx, http.MethodGet, c.endpoint("processes", processID), nil, &reply); err != nil {
		return nil, err
	}
	return &reply.Process, nil
}

// WaitProcess polls until the process is done or ctx ends. On ctx expiry the last known state
// is returned together with the context error.
func (c *Client) WaitProcess(ctx context.Context, processID string) (*Process, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		p, err := c.Process(ctx, processID)
		if err != nil {
			return nil, err
		}
		if p.Done() {
			return p, nil
		}

		select {
		case <-ctx.Done():
			return p, ctx.Err()
		case <-ticker.C:
		}
	}
}
