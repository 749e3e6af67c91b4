package errors

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Common error types that can be used across the application
var (
	ErrNotFound           = newInternal(ErrCodeNotFound, "resource not found")
	ErrAlreadyExists      = newInternal(ErrCodeAlreadyExists, "resource already exists")
	ErrValidation         = newInternal(ErrCodeValidation, "validation error")
	ErrInvalidOperation   = newInternal(ErrCodeInvalidOperation, "invalid operation")
	ErrInvalidResetPeriod = newInternal(ErrCodeInvalidResetPeriod, "invalid reset period configuration")
	ErrDatabase           = newInternal(ErrCodeDatabase, "database error")
	ErrTimeout            = newInternal(ErrCodeTimeout, "collaborator lookup timed out")
	ErrSystem             = newInternal(ErrCodeSystemError, "system error")

	// maps errors to http status codes
	statusCodeMap = map[error]int{
		ErrNotFound:           http.StatusNotFound,
		ErrAlreadyExists:      http.StatusConflict,
		ErrValidation:         http.StatusBadRequest,
		ErrInvalidOperation:   http.StatusBadRequest,
		ErrInvalidResetPeriod: http.StatusBadRequest,
		ErrDatabase:           http.StatusInternalServerError,
		ErrTimeout:            http.StatusGatewayTimeout,
		ErrSystem:             http.StatusInternalServerError,
	}
)

const (
	ErrCodeNotFound           = "not_found"
	ErrCodeAlreadyExists      = "already_exists"
	ErrCodeValidation         = "validation_error"
	ErrCodeInvalidOperation   = "invalid_operation"
	ErrCodeInvalidResetPeriod = "invalid_reset_period"
	ErrCodeDatabase           = "database_error"
	ErrCodeTimeout            = "timeout"
	ErrCodeSystemError        = "system_error"
)

// InternalError represents a domain error
type InternalError struct {
	Code    string // Machine-readable error code
	Message string // Human-readable error message
	Err     error  // Underlying error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.DisplayError()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) DisplayError() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is implements error matching for wrapped errors
func (e *InternalError) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}

	return e.Code == t.Code
}

func newInternal(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInvalidOperation checks if an error is an invalid operation error
func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}

// IsInvalidResetPeriod checks if an error is a reset period configuration error
func IsInvalidResetPeriod(err error) bool {
	return errors.Is(err, ErrInvalidResetPeriod)
}

// IsDatabase checks if an error is a database error
func IsDatabase(err error) bool {
	return errors.Is(err, ErrDatabase)
}

// IsTimeout checks if an error is a collaborator timeout
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

func HTTPStatusFromErr(err error) int {
	for e, status := range statusCodeMap {
		if errors.Is(err, e) {
			return status
		}
	}
	return http.StatusInternalServerError
}
