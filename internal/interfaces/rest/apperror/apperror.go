// Package apperror defines the errors REST handlers return and how they map
// onto HTTP responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation  Code = "validation"
	CodeNotFound    Code = "not_found"
	CodeRateLimited Code = "rate_limited"
	CodeUnavailable Code = "unavailable"
	CodeInternal    Code = "internal"
)

var statusByCode = map[Code]int{
	CodeValidation:  http.StatusBadRequest,
	CodeNotFound:    http.StatusNotFound,
	CodeRateLimited: http.StatusTooManyRequests,
	CodeUnavailable: http.StatusServiceUnavailable,
	CodeInternal:    http.StatusInternalServerError,
}

// Error is safe to show to clients except for CodeInternal, whose message
// is hidden in production.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status is the HTTP status for the error's code.
func (e *Error) Status() int {
	if status, ok := statusByCode[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func Validation(message string) *Error {
	return &Error{Code: CodeValidation, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Code: CodeNotFound, Message: message}
}

func Unavailable(message string) *Error {
	return &Error{Code: CodeUnavailable, Message: message}
}

func Internal(message string, err error) *Error {
	return &Error{Code: CodeInternal, Message: message, Err: err}
}

// From returns err as an *Error, wrapping unknown errors as internal.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err.Error(), err)
}
