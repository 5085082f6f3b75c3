// Package provider defines the external identity-authority port.
//
// The authority is treated as an opaque, unreliable, latency-bearing
// dependency: callers must bound every Verify call with a timeout.
package provider

import (
	"context"
	"errors"
	"fmt"
)

// Result is the authority's verdict on one subject.
//
// A negative verdict (Valid=false) is still a successful verification
// process. Only an error return means the process itself broke.
type Result struct {
	Valid      bool
	Confidence float64
	Reason     string
	Method     string
}

// Provider is the universal interface all identity authorities implement.
type Provider interface {
	// Verify checks the raw subject identifier and name against the
	// authority. The raw identifier never leaves this call path.
	Verify(ctx context.Context, subjectID, name string) (*Result, error)

	// Health checks if the authority is reachable.
	Health(ctx context.Context) error
}

// ErrorCategory defines the normalized failure taxonomy
type ErrorCategory string

const (
	// ErrorTimeout indicates the authority took too long to respond
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorBadData indicates the authority returned invalid/malformed data
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorOutage indicates the authority is unavailable
	ErrorOutage ErrorCategory = "outage"

	// ErrorNotFound indicates the subject doesn't exist in the registry
	ErrorNotFound ErrorCategory = "not_found"

	// ErrorInternal indicates an unexpected internal error
	ErrorInternal ErrorCategory = "internal"
)

// Error wraps authority failures with normalized categorization.
type Error struct {
	Category   ErrorCategory
	Message    string
	Underlying error
	Retryable  bool // Whether a fresh resubmission is worth trying
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("provider [%s]: %s: %v", e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("provider [%s]: %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error { return e.Underlying }

// NewError creates a normalized provider error.
func NewError(category ErrorCategory, message string, underlying error) *Error {
	retryable := category == ErrorTimeout || category == ErrorOutage
	return &Error{
		Category:   category,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// IsRetryable checks if an error is worth retrying via resubmission.
func IsRetryable(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error.
func GetCategory(err error) ErrorCategory {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ErrorInternal
}
