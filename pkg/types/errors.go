package types

import "fmt"

// CommunicationError wraps transport-level failures (timeouts, DNS, broken
// connections) so callers can distinguish them from server-side rejections.
type CommunicationError struct {
	Endpoint string
	Err      error
}

func (e *CommunicationError) Error() string {
	return fmt.Sprintf("communication error on %s: %v", e.Endpoint, e.Err)
}

func (e *CommunicationError) Unwrap() error { return e.Err }

// AuthorizationError signals bad credentials or a revoked token. Hosts should
// surface it for credential re-entry rather than retrying.
type AuthorizationError struct {
	Code    int
	Message string
}

func (e *AuthorizationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("authorization failed (code %d)", e.Code)
	}
	return fmt.Sprintf("authorization failed (code %d): %s", e.Code, e.Message)
}

// RetryBudgetError is returned when the server reports the login retry budget
// is exhausted. It must never be retried automatically; doing so extends the
// server-side lockout.
type RetryBudgetError struct {
	Code    int
	Message string
}

func (e *RetryBudgetError) Error() string {
	return fmt.Sprintf("login retry budget exceeded (code %d): %s", e.Code, e.Message)
}

// RateLimitError is returned on HTTP 429 or the equivalent application code.
// It carries the trailing-window request counts for diagnostics.
type RateLimitError struct {
	Code       int
	Message    string
	LastMinute int
	LastHour   int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited (code %d): %s (%d requests last minute, %d last hour)",
		e.Code, e.Message, e.LastMinute, e.LastHour)
}

// APIError is any other non-zero application status embedded in an HTTP 200
// response.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (code %d): %s", e.Code, e.Message)
}
