package twitter

import (
	"fmt"
	"net"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Validation errors, returned before any request is made.
var (
	ErrEmptyText   = errors.New("post text is empty")
	ErrTooLong     = errors.Newf("post exceeds %d characters", MaxLength)
	ErrEmptyThread = errors.New("thread must have at least one message")
)

// APIError is a failed call to the X API.
type APIError struct {
	Operation  string // e.g. "CreateTweet", "Me"
	StatusCode int
	Message    string
	Retryable  bool
	Cause      error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("x api %s failed (HTTP %d): %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("x api %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *APIError) Unwrap() error {
	return e.Cause
}

func newStatusError(operation string, statusCode int, message string, idempotent bool) *APIError {
	return &APIError{
		Operation:  operation,
		StatusCode: statusCode,
		Message:    message,
		Retryable:  isRetryableStatus(statusCode, idempotent),
	}
}

// newTransportError marks the failure retryable only when the request is
// idempotent or never reached the server.
func newTransportError(operation string, cause error, idempotent bool) *APIError {
	return &APIError{
		Operation: operation,
		Message:   cause.Error(),
		Retryable: idempotent || notSent(cause),
		Cause:     cause,
	}
}

// isRetryableStatus reports whether a response status may be retried. 429
// and 503 mean the request was refused before processing. 502 and 504 come
// from a proxy after the request may have been handled, so they are retried
// only for idempotent requests. 500 is never retried.
func isRetryableStatus(code int, idempotent bool) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return true
	case http.StatusBadGateway, http.StatusGatewayTimeout:
		return idempotent
	}
	return false
}

// notSent reports whether err happened before the request was written:
// name resolution or connection setup.
func notSent(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

// IsRetryable reports whether err is an APIError marked retryable.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable
	}
	return false
}

// IsUnauthorized reports whether the API rejected the credentials.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized
	}
	return false
}
