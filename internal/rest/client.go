package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/ridelink/service-navigation/internal/domain"
)

// DefaultRequestTimeout is the hard deadline for a request including all of
// its retries.
const DefaultRequestTimeout = 30 * time.Second

// RetryPolicy is the immutable backoff configuration for outbound requests.
// MaxRetries counts additional attempts after the first.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

// DefaultRetryPolicy returns the standard policy: 3 retries, 1s base delay
// doubling up to a 10s cap.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  1000 * time.Millisecond,
		MaxDelay:   10000 * time.Millisecond,
		Multiplier: 2,
	}
}

// NewBackOff builds the exponential backoff for this policy. Randomization is
// disabled so the delay sequence is exactly min(base·multiplier^n, cap).
func (p RetryPolicy) NewBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.Multiplier = p.Multiplier
	b.MaxInterval = p.MaxDelay
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// errorEnvelope is the error body shape the ride backend uses.
type errorEnvelope struct {
	Error string `json:"error"`
}

// Client wraps outbound calls to the ride/driver backend with failure
// classification, exponential backoff, and a hard deadline.
type Client struct {
	baseURL    string
	httpClient *http.Client
	policy     RetryPolicy
	timeout    time.Duration
	logger     *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout overrides the hard per-request deadline.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithHTTPClient overrides the underlying http.Client, used by tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a retry-capable client against the given base URL.
func NewClient(baseURL string, policy RetryPolicy, logger *zap.Logger, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		policy:     policy,
		timeout:    DefaultRequestTimeout,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do performs an HTTP request against the backend, retrying retryable
// failures per the policy. On success the response body is decoded into out
// when out is non-nil. Input validation failures return immediately without
// consuming a retry.
func (c *Client) Do(ctx context.Context, method, path string, body any, out any) error {
	if path == "" {
		return domain.NewValidationError("request path is required")
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return domain.NewValidationError(fmt.Sprintf("encode request body: %v", err))
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	attempts := 0
	operation := func() error {
		attempts++
		err := c.attempt(ctx, method, path, payload, out)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		c.logger.Warn("retryable request failure",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("attempt", attempts),
			zap.Error(err),
		)
		return err
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(c.policy.NewBackOff(), uint64(c.policy.MaxRetries)), ctx)
	return backoff.Retry(operation, bo)
}

func (c *Client) attempt(ctx context.Context, method, path string, payload []byte, out any) error {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return domain.NewValidationError(fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &NetworkError{Err: err}
	}

	// An explicit error field in the body is a terminal application-level
	// failure regardless of HTTP status.
	var envelope errorEnvelope
	if len(respBody) > 0 && json.Unmarshal(respBody, &envelope) == nil && envelope.Error != "" {
		return &APIError{Message: envelope.Error}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{Status: resp.StatusCode, Body: string(respBody)}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return &APIError{Message: fmt.Sprintf("decode response: %v", err)}
		}
	}
	return nil
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Err: err}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return &TimeoutError{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{Err: err}
	}
	return &NetworkError{Err: err}
}
