package genai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// APIError is a failed provider call. Retryable is decided once, when the
// provider error is wrapped, and drives Resilient's retry loop.
type APIError struct {
	Provider   Provider
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %v (status %d)", e.Provider, e.Err, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// WrapError tags err with the provider and HTTP status. A zero status falls
// back to inspecting the error itself.
func WrapError(err error, provider Provider, statusCode int) error {
	if err == nil {
		return nil
	}
	retry := retryableStatus(statusCode)
	if statusCode == 0 {
		retry = IsRetryable(err)
	}
	return &APIError{Provider: provider, StatusCode: statusCode, Retryable: retry, Err: err}
}

// transientHints mark provider messages that usually clear on retry.
var transientHints = []string{
	"rate limit", "too many requests", "resource_exhausted",
	"unavailable", "overloaded", "bad gateway", "gateway timeout",
	"connection reset", "connection refused", "timeout",
}

// IsRetryable reports whether another attempt at the same encode can succeed.
// Quota exhaustion, auth failures and malformed responses cannot.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "quota") || strings.Contains(msg, "billing") {
		return false
	}
	for _, hint := range transientHints {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}

// retryableStatus: 408, 409, 429 and every 5xx.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusConflict, http.StatusTooManyRequests:
		return true
	}
	return code >= 500 && code < 600
}
