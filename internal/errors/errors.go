package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"birthprev/domain/core"
)

// AppError represents a structured application error
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
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   err,
		}
	}
	return &AppError{
		Code:    Classify(err),
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

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetCode returns the error code of the outermost AppError, or the code the
// domain error classifies to.
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return Classify(err)
}

// Predefined error codes
const (
	CodeConfigInvalid           = "CONFIG_INVALID"
	CodeMissingColumn           = "MISSING_COLUMN"
	CodeInvalidValue            = "INVALID_VALUE"
	CodeDegenerateVariance      = "DEGENERATE_VARIANCE"
	CodeDegenerateHeterogeneity = "DEGENERATE_HETEROGENEITY"
	CodeInvalidInput            = "INVALID_INPUT"
	CodeInternalError           = "INTERNAL_ERROR"
)

// Classify maps domain sentinel errors to error codes.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case stderrors.Is(err, core.ErrMissingColumn):
		return CodeMissingColumn
	case stderrors.Is(err, core.ErrInvalidValue):
		return CodeInvalidValue
	case stderrors.Is(err, core.ErrDegenerateVariance):
		return CodeDegenerateVariance
	case stderrors.Is(err, core.ErrDegenerateHeterogeneity):
		return CodeDegenerateHeterogeneity
	case stderrors.Is(err, core.ErrUnknownDistribution), stderrors.Is(err, core.ErrUnknownPolicy):
		return CodeInvalidInput
	}
	return CodeInternalError
}

// HTTPStatus returns the response status for an error's code.
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case CodeMissingColumn, CodeInvalidValue, CodeInvalidInput:
		return http.StatusBadRequest
	case CodeDegenerateVariance, CodeDegenerateHeterogeneity:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}
