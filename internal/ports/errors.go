package ports

import (
	"errors"
	"fmt"
	"time"
)

// Common infrastructure errors that can occur during external service
// interactions.
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrRateLimited indicates that the service has rate limited the request.
	ErrRateLimited = errors.New("rate limited")

	// ErrServiceUnavailable indicates that the external service is
	// unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrInvalidResponse indicates that the service returned a response
	// that could not be parsed.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrAuthenticationFailed indicates that authentication with the
	// service failed.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrDeclined is returned by a task executor that ran to completion
	// and found nothing worth submitting. The runner records it as a
	// declined abstention, not a failure.
	ErrDeclined = errors.New("executor declined to submit")
)

// ToolError represents a failure inside a task executor's dependency
// (LLM provider, data source, search tool). The engine recovers it as an
// abstention and never retries within a round; retrying is the executor's
// own discretion.
type ToolError struct {
	// Tool names the dependency that failed.
	Tool string

	// Operation is the name of the operation that failed.
	Operation string

	// Err is the underlying error.
	Err error

	// RetryAfter indicates how long the dependency asked callers to wait,
	// if it said.
	RetryAfter *time.Duration
}

// Error implements the error interface for ToolError.
func (e *ToolError) Error() string {
	msg := fmt.Sprintf("tool error: tool=%s, operation=%s, err=%v", e.Tool, e.Operation, e.Err)
	if e.RetryAfter != nil {
		msg += fmt.Sprintf(", retry_after=%v", *e.RetryAfter)
	}
	return msg
}

// Unwrap returns the underlying error, supporting errors.Is/As chains.
func (e *ToolError) Unwrap() error { return e.Err }

// IsRetryable reports whether the failure is temporary at the transport
// level. The round controller ignores this; it exists for executors that
// manage their own retries.
func (e *ToolError) IsRetryable() bool {
	return errors.Is(e.Err, ErrRateLimited) ||
		errors.Is(e.Err, ErrServiceUnavailable) ||
		errors.Is(e.Err, ErrTimeout)
}

// NewToolError creates a new ToolError with the given details.
func NewToolError(tool, operation string, err error) *ToolError {
	return &ToolError{Tool: tool, Operation: operation, Err: err}
}

// SinkError represents a failure delivering structured output to a
// presentation sink.
type SinkError struct {
	// Sink names the sink that failed.
	Sink string

	// Operation is the publish operation that failed.
	Operation string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for SinkError.
func (e *SinkError) Error() string {
	return fmt.Sprintf("sink error: sink=%s, operation=%s, err=%v", e.Sink, e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *SinkError) Unwrap() error { return e.Err }

// NewSinkError creates a new SinkError with the given details.
func NewSinkError(sink, operation string, err error) *SinkError {
	return &SinkError{Sink: sink, Operation: operation, Err: err}
}
