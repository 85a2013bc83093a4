package openrouter

import (
	"fmt"
	"time"
)

// APIError is a non-2xx response from the gateway, carrying the provider's
// error envelope fields and the original HTTP status.
type APIError struct {
	Code    int    // numeric code from the error envelope
	Type    string // machine-readable type string, e.g. "model_not_available"
	Status  int    // original HTTP status
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("openrouter: %s (code=%d type=%s status=%d)", e.Message, e.Code, e.Type, e.Status)
}

// IsRateLimited reports whether the request was rejected with HTTP 429.
func (e *APIError) IsRateLimited() bool {
	return e.Status == 429 || e.Code == 429
}

// IsModelUnavailable reports whether the requested model is down (503) or the
// provider flagged it explicitly.
func (e *APIError) IsModelUnavailable() bool {
	return e.Status == 503 || e.Type == "model_not_available"
}

// IsAuthError reports whether credentials were rejected (401/403).
func (e *APIError) IsAuthError() bool {
	return e.Status == 401 || e.Status == 403
}

// IsRetryable is the policy signal fallback chains depend on: rate limits,
// unavailable models and any 5xx are worth trying on another model, auth
// failures never are.
func (e *APIError) IsRetryable() bool {
	if e.IsAuthError() {
		return false
	}
	return e.IsRateLimited() || e.IsModelUnavailable() || e.Status >= 500
}

// TimeoutError is an aborted in-flight call. Timeout is the configured budget
// that was exceeded, so callers can retry with a longer one.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("openrouter: request timed out after %s", e.Timeout)
}

// NetworkError is a transport-level failure (DNS, connection refused) before
// any HTTP status was received. Always retryable.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("openrouter: network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsAuthError reports whether err is an auth-classified gateway error.
// Fallback chains abort immediately on these: credentials are globally
// broken, so retrying other models wastes quota and cannot succeed.
func IsAuthError(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.IsAuthError()
}

// IsRetryable reports whether err is worth retrying on another model.
// Transport and timeout errors are always retryable.
func IsRetryable(err error) bool {
	switch e := err.(type) {
	case *APIError:
		return e.IsRetryable()
	case *TimeoutError, *NetworkError:
		return true
	}
	return false
}
