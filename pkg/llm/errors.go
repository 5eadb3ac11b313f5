package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ProviderError is returned by provider adapters. Retryable marks transient
// failures (network blips, 429, 5xx) that are worth retrying against the
// same backend; auth and other 4xx failures are terminal.
type ProviderError struct {
	Provider   string
	Message    string
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Provider, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError wraps an underlying SDK error, deriving the retryable
// flag from the status code when one is known.
func NewProviderError(provider string, statusCode int, err error) *ProviderError {
	msg := "request failed"
	if err != nil {
		msg = err.Error()
	}
	return &ProviderError{
		Provider:   provider,
		Message:    msg,
		StatusCode: statusCode,
		Retryable:  retryableStatus(statusCode, err),
		Err:        err,
	}
}

func retryableStatus(statusCode int, err error) bool {
	switch {
	case statusCode == 429:
		return true
	case statusCode >= 500:
		return true
	case statusCode >= 400:
		return false
	}
	return IsRetryable(err)
}

// IsRetryable checks if an error should be retried. A *ProviderError carries
// an explicit flag; anything else falls back to substring classification.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}

	errMsg := strings.ToLower(err.Error())

	// Network errors
	if strings.Contains(errMsg, "econnreset") ||
		strings.Contains(errMsg, "etimedout") ||
		strings.Contains(errMsg, "timeout") ||
		strings.Contains(errMsg, "connection refused") {
		return true
	}

	// Rate limits
	if strings.Contains(errMsg, "429") || strings.Contains(errMsg, "rate limit") {
		return true
	}

	// Server errors
	if strings.Contains(errMsg, "500") || strings.Contains(errMsg, "502") ||
		strings.Contains(errMsg, "503") || strings.Contains(errMsg, "504") {
		return true
	}

	return false
}
