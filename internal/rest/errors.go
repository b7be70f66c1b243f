package rest

import (
	"errors"
	"fmt"
)

// retryableStatuses is the exact set of HTTP status codes worth retrying.
var retryableStatuses = map[int]bool{
	408: true,
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// NetworkError indicates the host was unreachable. Retryable.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("network error: %v", e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// TimeoutError indicates the request exceeded its deadline. Retryable.
type TimeoutError struct {
	Err error
}

func (e *TimeoutError) Error() string { return fmt.Sprintf("request timed out: %v", e.Err) }
func (e *TimeoutError) Unwrap() error { return e.Err }

// HTTPError indicates a non-2xx response. Retryable only for the fixed status
// set {408, 429, 500, 502, 503, 504}.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string { return fmt.Sprintf("http error: status %d", e.Status) }

// Retryable reports whether this status is in the retry set.
func (e *HTTPError) Retryable() bool { return retryableStatuses[e.Status] }

// APIError is an application-level error carried in the response body. Always
// terminal, regardless of HTTP status.
type APIError struct {
	Message string
}

func (e *APIError) Error() string { return fmt.Sprintf("api error: %s", e.Message) }

// IsRetryable reports whether the request that produced err is worth retrying.
func IsRetryable(err error) bool {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	var toErr *TimeoutError
	if errors.As(err, &toErr) {
		return true
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Retryable()
	}
	return false
}
