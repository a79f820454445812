package clients

import (
	"errors"
	"fmt"
	"net/http"
)

// RateLimitError indicates an upstream API rate limit was exceeded
type RateLimitError struct {
	Service    string
	RetryAfter int // seconds to wait before retrying
	Cause      error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (retry after %ds): %v", e.Service, e.RetryAfter, e.Cause)
}

func (e *RateLimitError) Unwrap() error {
	return e.Cause
}

// NewRateLimitError creates a new rate limit error
func NewRateLimitError(service string, retryAfter int, cause error) *RateLimitError {
	return &RateLimitError{
		Service:    service,
		RetryAfter: retryAfter,
		Cause:      cause,
	}
}

// APIError represents an error from an external API call
type APIError struct {
	Service    string
	StatusCode int
	Message    string
	Cause      error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error for %s (status %d): %s", e.Service, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

// NewAPIError creates a new API error
func NewAPIError(service string, statusCode int, message string, cause error) *APIError {
	return &APIError{
		Service:    service,
		StatusCode: statusCode,
		Message:    message,
		Cause:      cause,
	}
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	var rateLimitErr *RateLimitError
	return errors.As(err, &rateLimitErr)
}

// IsRetryableError checks if an error indicates a retryable condition
func IsRetryableError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		// Retry on server errors and rate limits
		return apiErr.StatusCode >= 500 || apiErr.StatusCode == http.StatusTooManyRequests
	}

	return IsRateLimitError(err)
}
