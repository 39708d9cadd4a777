package speech

import (
	"errors"
	"fmt"
)

// Common speech errors
var (
	// ErrBusy is returned by Speak while another utterance is active.
	ErrBusy = errors.New("speech driver is busy")

	// ErrEngineNotAvailable indicates the selected engine binary is missing.
	ErrEngineNotAvailable = errors.New("speech engine is not available")

	// ErrInvalidEngine indicates an unknown engine was specified.
	ErrInvalidEngine = errors.New("invalid speech engine specified")

	// ErrEmptyText is returned when asked to synthesize nothing.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrClosed is returned by drivers and players after Close.
	ErrClosed = errors.New("closed")
)

// ErrorCode identifies specific error types.
type ErrorCode string

const (
	ErrorCodeEngineFailure     ErrorCode = "ENGINE_FAILURE"
	ErrorCodeEngineUnavailable ErrorCode = "ENGINE_UNAVAILABLE"
	ErrorCodeEngineTimeout     ErrorCode = "ENGINE_TIMEOUT"
	ErrorCodeAudioFailure      ErrorCode = "AUDIO_FAILURE"
	ErrorCodeAudioFormat       ErrorCode = "AUDIO_FORMAT"
	ErrorCodeTextTooLong       ErrorCode = "TEXT_TOO_LONG"
	ErrorCodeRateLimited       ErrorCode = "RATE_LIMITED"
)

// Error is a speech error with a code and optional context.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// NewError creates a new speech error.
func NewError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: make(map[string]any),
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *Error) WithContext(key string, value any) *Error {
	e.Context[key] = value
	return e
}

// IsRetryable returns true if the same request may succeed later.
func (e *Error) IsRetryable() bool {
	switch e.Code {
	case ErrorCodeEngineTimeout, ErrorCodeRateLimited:
		return true
	default:
		return false
	}
}

// IsRetryable reports whether err wraps a retryable speech error.
func IsRetryable(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.IsRetryable()
	}
	return false
}
