package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"cntExplorer/explorer/logging"
	"cntExplorer/explorer/metrics"
)

// Default configuration values.
const (
	DefaultTimeout   = 12 * time.Second
	DefaultRetries   = 2
	DefaultBackoff   = 500 * time.Millisecond
	DefaultUserAgent = "BOS-CNT-Explorer/1.0"

	maxBodyBytes = 8 << 20
)

// ErrInvalidJSON is returned when a 2xx body does not parse as JSON.
var ErrInvalidJSON = errors.New("invalid_json")

// StatusError is a non-2xx upstream answer.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream status %s", e.Status)
}

// Request describes one upstream call.
type Request struct {
	Method string
	URL    string
	Body   any // Marshaled as JSON when non-nil
	Header map[string]string
}

// Client performs JSON calls against a single URL with a per-attempt timeout
// and bounded retry on HTTP 429.
type Client struct {
	source    string
	client    *http.Client
	timeout   time.Duration
	retries   int
	backoff   time.Duration
	userAgent string
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// Option configures Client.
type Option func(*Client)

// WithTimeout sets the per-attempt deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetries sets how many times a 429 answer is retried.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithBackoff sets the fixed wait before a 429 retry.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) {
		c.backoff = d
	}
}

// WithUserAgent sets the user-agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a client labelled source in logs and metrics.
func NewClient(source string, opts ...Option) *Client {
	c := &Client{
		source:    source,
		client:    &http.Client{},
		timeout:   DefaultTimeout,
		retries:   DefaultRetries,
		backoff:   DefaultBackoff,
		userAgent: DefaultUserAgent,
		logger:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Source returns the label of the upstream this client talks to.
func (c *Client) Source() string {
	return c.source
}

// Do performs the call and returns the loosely-typed JSON payload. Numbers are
// kept as json.Number. On error the payload is nil.
func (c *Client) Do(ctx context.Context, req Request) (any, error) {
	var out any
	if err := c.DoInto(ctx, req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DoInto performs the call and decodes the payload into out. The content of
// out is unspecified when an error is returned.
func (c *Client) DoInto(ctx context.Context, req Request, out any) error {
	var payload []byte
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		payload = b
	}

	for budget := c.retries; ; budget-- {
		status, body, err := c.attempt(ctx, req, payload)
		if err != nil {
			return err
		}

		if status == http.StatusTooManyRequests && budget > 0 {
			c.logger.Warn("Upstream rate limited, retrying",
				"source", c.source, "url", req.URL, "retries_left", budget-1, "backoff", c.backoff)
			if err := sleep(ctx, c.backoff); err != nil {
				return err
			}
			continue
		}

		if status < 200 || status >= 300 {
			return &StatusError{StatusCode: status, Status: fmt.Sprintf("%d %s", status, http.StatusText(status))}
		}

		if err := decodeJSON(body, out); err != nil {
			c.metrics.ObserveUpstream(c.source, metrics.OutcomeInvalidJSON, 0)
			return err
		}
		return nil
	}
}

// attempt issues one HTTP request bound to the client timeout and reads the body.
func (c *Client) attempt(ctx context.Context, req Request, payload []byte) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, rd)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Header {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.metrics.ObserveUpstream(c.source, metrics.OutcomeTransport, time.Since(start))
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, nil, fmt.Errorf("%s request timed out after %s: %w", c.source, c.timeout, err)
		}
		return 0, nil, fmt.Errorf("%s request failed: %w", c.source, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.metrics.ObserveUpstream(c.source, metrics.OutcomeTransport, time.Since(start))
		return 0, nil, fmt.Errorf("read %s response: %w", c.source, err)
	}

	outcome := metrics.OutcomeOK
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		outcome = metrics.OutcomeRateLimited
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		outcome = metrics.OutcomeHTTPError
	}
	c.metrics.ObserveUpstream(c.source, outcome, time.Since(start))

	return resp.StatusCode, body, nil
}

// decodeJSON parses exactly one JSON value from body.
func decodeJSON(body []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("%w: trailing data", ErrInvalidJSON)
	}
	return nil
}

// Join appends path to base without doubling the slash.
func Join(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
