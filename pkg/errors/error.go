// Package errors provides error types for buildnotify
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// NotifyError represents a buildnotify error with structured information
type NotifyError struct {
	Code     ErrorCode              `json:"code"`
	Message  string                 `json:"message"`
	Platform string                 `json:"platform,omitempty"`
	Target   string                 `json:"target,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	Timestamp time.Time `json:"timestamp"`

	Cause error `json:"-"`
}

// Error implements the error interface
func (e *NotifyError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	switch {
	case e.Platform != "" && e.Target != "":
		msg = fmt.Sprintf("%s (platform: %s, target: %s)", msg, e.Platform, e.Target)
	case e.Platform != "":
		msg = fmt.Sprintf("%s (platform: %s)", msg, e.Platform)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause error
func (e *NotifyError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target error
func (e *NotifyError) Is(target error) bool {
	if targetErr, ok := target.(*NotifyError); ok {
		return e.Code == targetErr.Code
	}
	return false
}

// WithCause adds a cause error
func (e *NotifyError) WithCause(cause error) *NotifyError {
	e.Cause = cause
	return e
}

// WithMetadata adds metadata
func (e *NotifyError) WithMetadata(key string, value interface{}) *NotifyError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// WithPlatform sets the platform
func (e *NotifyError) WithPlatform(platform string) *NotifyError {
	e.Platform = platform
	return e
}

// WithTarget sets the target
func (e *NotifyError) WithTarget(target string) *NotifyError {
	e.Target = target
	return e
}

// MultiError represents multiple errors that occurred
type MultiError struct {
	Errors []error `json:"errors"`
}

// Error implements the error interface
func (e *MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("multiple errors occurred (%d errors): %v", len(e.Errors), e.Errors[0])
}

// Unwrap exposes the collected errors to errors.Is and errors.As
func (e *MultiError) Unwrap() []error {
	return e.Errors
}

// Add adds an error to the multi-error
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// ErrorOrNil returns the multi-error if it contains errors, otherwise nil
func (e *MultiError) ErrorOrNil() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// New creates a new NotifyError
func New(code ErrorCode, message string) *NotifyError {
	return &NotifyError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Newf creates a new NotifyError with formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *NotifyError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with a NotifyError
func Wrap(err error, code ErrorCode, message string) *NotifyError {
	return New(code, message).WithCause(err)
}

// Wrapf wraps an existing error with a NotifyError and formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *NotifyError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// NewConfigError creates a configuration error with a formatted message
func NewConfigError(format string, args ...interface{}) *NotifyError {
	return Newf(ErrInvalidConfig, format, args...)
}

// GetErrorCode extracts the error code from the first NotifyError in err's chain
func GetErrorCode(err error) ErrorCode {
	var notifyErr *NotifyError
	if stderrors.As(err, &notifyErr) {
		return notifyErr.Code
	}
	return ErrInternal
}

// IsConfigError checks if error is a configuration error
func IsConfigError(err error) bool {
	var notifyErr *NotifyError
	return stderrors.As(err, &notifyErr) && GetCategory(notifyErr.Code) == "configuration"
}

// IsDispatchError reports whether err is any failure of an outbound call:
// transport status, gateway rejection, undecodable response, or no response.
// Callers are not expected to distinguish between them.
func IsDispatchError(err error) bool {
	var notifyErr *NotifyError
	if !stderrors.As(err, &notifyErr) {
		return false
	}
	switch GetCategory(notifyErr.Code) {
	case "dispatch", "network":
		return true
	}
	return false
}
