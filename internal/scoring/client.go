// Package scoring is the HTTP client for the Scoring Service and the
// Adaptive Question Service. Every call is bounded by a request timeout,
// traced, and timed.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/abhisek/aptitude/internal/logger"
	"github.com/abhisek/aptitude/internal/metrics"
	"github.com/abhisek/aptitude/internal/tracing"
)

// ErrMalformed is returned when a response body cannot be used.
var ErrMalformed = errors.New("malformed response")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Endpoint string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Endpoint, e.Code)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Endpoint, e.Code, e.Body)
}

// Endpoint names used for spans, metrics and errors.
const (
	EndpointStart    = "session_start"
	EndpointEvent    = "event"
	EndpointResponse = "response"
	EndpointAnalyze  = "analyze"
	EndpointQuestion = "generate_question"
	EndpointHealth   = "health"
)

const maxErrorBody = 512

// Client talks to the scoring backend.
type Client struct {
	baseURL        string
	http           *http.Client
	timeout        time.Duration
	analyzeTimeout time.Duration
	log            logger.Logger
	metrics        *metrics.Manager
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithTimeout bounds every request except analyze.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithAnalyzeTimeout bounds the analyze request.
func WithAnalyzeTimeout(d time.Duration) Option {
	return func(c *Client) { c.analyzeTimeout = d }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMetrics sets the metrics manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}

// New creates a Client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &http.Client{},
		timeout:        5 * time.Second,
		analyzeTimeout: 15 * time.Second,
		log:            logger.Nop(),
		metrics:        metrics.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service root.
func (c *Client) BaseURL() string { return c.baseURL }

// StartSession asks the service for a new session id.
func (c *Client) StartSession(ctx context.Context) (string, error) {
	var out startResponse
	if err := c.do(ctx, EndpointStart, "", http.MethodPost, "/session/start", struct{}{}, &out, c.timeout); err != nil {
		return "", err
	}
	id := out.SessionID
	if id == "" {
		id = out.LegacySessionID
	}
	if id == "" {
		return "", fmt.Errorf("%s: %w: no session id", EndpointStart, ErrMalformed)
	}
	return id, nil
}

// SendEvent posts one telemetry event.
func (c *Client) SendEvent(ctx context.Context, sessionID string, e EventPayload) error {
	return c.do(ctx, EndpointEvent, sessionID, http.MethodPost, sessionPath(sessionID, "event"), e, nil, c.timeout)
}

// SendResponse posts one keyed response.
func (c *Client) SendResponse(ctx context.Context, sessionID, key string, value any) error {
	body := map[string]any{key: value}
	return c.do(ctx, EndpointResponse, sessionID, http.MethodPost, sessionPath(sessionID, "response"), body, nil, c.timeout)
}

// Health asks the service for its status.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	if err := c.do(ctx, EndpointHealth, "", http.MethodGet, "/health", nil, &out, c.timeout); err != nil {
		return nil, err
	}
	return &out, nil
}

func sessionPath(sessionID, action string) string {
	return "/session/" + url.PathEscape(sessionID) + "/" + action
}

// do sends in as JSON and decodes the reply into out when out is non-nil.
func (c *Client) do(ctx context.Context, endpoint, sessionID, method, path string, in, out any, timeout time.Duration) (err error) {
	start := time.Now()
	ctx, span := tracing.Start(ctx, endpoint, sessionID)
	defer func() {
		tracing.End(span, err)
		c.metrics.Request(endpoint, time.Since(start), err)
	}()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", endpoint, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", endpoint, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Endpoint: endpoint, Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("%s: read body: %w", endpoint, err)
		}
		*raw = data
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: %w: %v", endpoint, ErrMalformed, err)
	}
	return nil
}
