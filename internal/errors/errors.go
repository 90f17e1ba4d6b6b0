package errors

import (
	"errors"
	"fmt"

	"gaitspec/domain/core"
)

// AppError represents a structured application error surfaced across the
// engine boundary. Code is stable; Message carries the offending
// identifier and remediation hint.
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   appErr,
		}
	}
	return &AppError{
		Code:    CodeFor(err),
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// GetCode returns the error code if it's an AppError, otherwise maps the
// domain error taxonomy to a code
func GetCode(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return CodeFor(err)
}

// Predefined error codes, the stable taxonomy exposed to collaborators
const (
	CodeDataFormat         = "DATA_FORMAT"
	CodeInsufficientData   = "INSUFFICIENT_DATA"
	CodeInsufficientSample = "INSUFFICIENT_SAMPLE"
	CodeUnknownTask        = "UNKNOWN_TASK"
	CodeSpecIntegrity      = "SPEC_INTEGRITY"
	CodeStaleStaging       = "STALE_STAGING"
	CodeNotFound           = "NOT_FOUND"
	CodeConfigInvalid      = "CONFIG_INVALID"
	CodeDatabaseError      = "DATABASE_ERROR"
	CodeInternalError      = "INTERNAL_ERROR"
)

// CodeFor maps a domain error to its taxonomy code
func CodeFor(err error) string {
	switch {
	case errors.Is(err, core.ErrDataFormat):
		return CodeDataFormat
	case errors.Is(err, core.ErrInsufficientSample):
		return CodeInsufficientSample
	case errors.Is(err, core.ErrInsufficientData):
		return CodeInsufficientData
	case errors.Is(err, core.ErrUnknownTask):
		return CodeUnknownTask
	case errors.Is(err, core.ErrSpecIntegrity):
		return CodeSpecIntegrity
	case errors.Is(err, core.ErrStaleStaging):
		return CodeStaleStaging
	case errors.Is(err, core.ErrNotFound):
		return CodeNotFound
	default:
		return CodeInternalError
	}
}

// Common error constructors

func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func DatabaseError(message string, cause error) *AppError {
	return &AppError{
		Code:    CodeDatabaseError,
		Message: message,
		Cause:   cause,
	}
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}
