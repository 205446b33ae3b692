// Package llm provides model client abstractions for the agent.
package llm

import (
	"fmt"
	"time"
)

// ErrorKind categorizes provider failures for retry decisions.
type ErrorKind string

// Provider error kinds.
const (
	// KindRateLimited indicates the provider rejected the call due to rate limits.
	KindRateLimited ErrorKind = "rate_limited"
	// KindTransport indicates a network failure or timeout.
	KindTransport ErrorKind = "transport"
	// KindMalformed indicates the provider returned an unusable response.
	KindMalformed ErrorKind = "malformed"
	// KindAuth indicates an authentication or request construction failure.
	KindAuth ErrorKind = "auth"
)

// ProviderError represents a failure reported by (or on the way to) an LLM provider.
type ProviderError struct {
	Kind    ErrorKind
	Message string
	// RetryAfter is the provider-supplied wait before the next attempt, if any.
	RetryAfter time.Duration
	// Attempts is the number of attempts consumed when the error is terminal.
	Attempts int
	Cause    error
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider error (%s): %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("provider error (%s): %s", e.Kind, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether another attempt may succeed.
func (e *ProviderError) Retryable() bool {
	switch e.Kind {
	case KindRateLimited, KindTransport, KindMalformed:
		return true
	default:
		return false
	}
}
