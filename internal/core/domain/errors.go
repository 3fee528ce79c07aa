// Package domain defines the core domain models for shopmate.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured error code.
// Codes have the form SM-<AREA>-<NNNN>.
type DomainError struct {
	Code    string // Error code (e.g., "SM-SESS-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is matches another DomainError by code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	cp := *e
	cp.Details = details
	return &cp
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	cp := *e
	cp.Cause = cause
	return &cp
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if !errors.As(err, &de) {
		return false
	}
	return code == "" || de.Code == code
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Session errors.
var (
	// ErrSessionNotFound indicates the requested session was not found.
	ErrSessionNotFound = NewDomainError("SM-SESS-4040", "session not found")

	// ErrInvalidPayload indicates a producer sent a payload the store cannot hold.
	ErrInvalidPayload = NewDomainError("SM-SESS-4001", "invalid session payload")
)

// Persistence errors.
var (
	// ErrMalformedPayload indicates a stored shadow copy cannot be decoded.
	// Malformed shadows are discarded, never retried.
	ErrMalformedPayload = NewDomainError("SM-PERS-4220", "malformed session payload")

	// ErrSweepInProgress indicates an orphan sweep is already running.
	ErrSweepInProgress = NewDomainError("SM-PERS-4091", "sweep already in progress")

	// ErrWorkerRunning indicates Start was called on a running worker.
	ErrWorkerRunning = NewDomainError("SM-PERS-4092", "worker already running")
)

// System errors.
var (
	// ErrInternalServer indicates an internal server error.
	ErrInternalServer = NewDomainError("SM-SYS-5000", "internal server error")

	// ErrStorageError indicates a cache or durable store failure.
	ErrStorageError = NewDomainError("SM-SYS-5001", "storage error")

	// ErrServiceUnavailable indicates a dependency is unreachable.
	ErrServiceUnavailable = NewDomainError("SM-SYS-5030", "service unavailable")

	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = NewDomainError("SM-SYS-4000", "bad request")
)

// Argument errors.
var (
	// ErrMissingArgument indicates a required argument is missing.
	ErrMissingArgument = NewDomainError("SM-ARG-1002", "missing required argument")

	// ErrInvalidSessionID indicates a session ID that cannot name a session key.
	ErrInvalidSessionID = NewDomainError("SM-ARG-1001", "invalid session id")
)
