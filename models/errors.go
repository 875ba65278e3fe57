package models

import "fmt"

// Error codes for the Scan API client taxonomy.
const (
	ErrCodeRateLimited = "RATE_LIMIT"
	ErrCodeUnavailable = "UPSTREAM_UNAVAILABLE"
	ErrCodeRejected    = "UPSTREAM_REJECTED"
)

// APIError is the typed error surfaced by the Scan client. Status is the HTTP
// status when known (0 for network-level failures). RetryAfter is the 429
// retry hint in seconds, when the upstream provided one.
type APIError struct {
	Message    string `json:"message"`
	Status     int    `json:"status,omitempty"`
	Code       string `json:"code,omitempty"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
	}
	return e.Message
}

// IsRateLimited reports whether the error is a surfaced 429.
func (e *APIError) IsRateLimited() bool {
	return e.Code == ErrCodeRateLimited
}

// Retryable reports whether the request could have succeeded on another node.
// Client-shape rejections (4xx other than 429) are not retryable.
func (e *APIError) Retryable() bool {
	return e.Code != ErrCodeRejected
}
