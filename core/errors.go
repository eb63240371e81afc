package core

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for comparison using errors.Is()
// These are generic errors that can be wrapped with additional context
var (
	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrMissingConfiguration = errors.New("missing required configuration")

	// Identity errors
	ErrIDGeneration = errors.New("identifier generation failed")

	// Hook and response errors
	ErrHookClosed       = errors.New("hook closed")
	ErrResponseComplete = errors.New("response already complete")
	ErrStreamComplete   = errors.New("stream already complete")
	ErrInvalidEvent     = errors.New("invalid event")

	// HTTP/Network errors
	ErrConnectionFailed = errors.New("connection failed")
	ErrTimeout          = errors.New("operation timeout")
)

// FrameworkError provides structured error information with context
// It implements the error interface and supports error wrapping
type FrameworkError struct {
	Op      string // Operation that failed (e.g., "ResponseHandler.EmitJSON")
	Kind    string // Error kind (e.g., "identity", "hook", "config")
	ID      string // Optional ID of the entity involved
	Message string // Human-readable message
	Err     error  // Underlying error for wrapping
}

// Error returns the string representation of the error
func (e *FrameworkError) Error() string {
	if e.Op != "" && e.Err != nil {
		if e.ID != "" {
			return fmt.Sprintf("%s [%s]: %v", e.Op, e.ID, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s error", e.Kind)
}

// Unwrap returns the underlying error for use with errors.Is/As
func (e *FrameworkError) Unwrap() error {
	return e.Err
}

// NewFrameworkError creates a new FrameworkError
func NewFrameworkError(op, kind string, err error) *FrameworkError {
	return &FrameworkError{
		Op:   op,
		Kind: kind,
		Err:  err,
	}
}

// IsRetryable checks if an error is retryable
// Retryable errors are transient network issues talking to a hook backend
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConnectionFailed) ||
		errors.Is(err, ErrTimeout)
}

// IsConfigurationError checks if an error is configuration-related
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration) ||
		errors.Is(err, ErrMissingConfiguration)
}

// IsStateError checks if an error comes from using a collaborator after it finished
func IsStateError(err error) bool {
	return errors.Is(err, ErrHookClosed) ||
		errors.Is(err, ErrResponseComplete) ||
		errors.Is(err, ErrStreamComplete)
}
