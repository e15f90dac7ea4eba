package api

import (
	"errors"
	"net/http"
)

// Error is an API failure as the client sees it. Cause is logged but never
// serialized.
type Error struct {
	Status  int
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Code + ": " + e.Cause.Error()
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

var (
	ErrNotFound = &Error{Status: http.StatusNotFound, Code: "not_found", Message: "resource not found"}

	ErrMethodNotAllowed = &Error{Status: http.StatusMethodNotAllowed, Code: "method_not_allowed", Message: "method not allowed"}

	ErrRateLimited = &Error{Status: http.StatusTooManyRequests, Code: "rate_limited", Message: "too many requests"}
)

// Internal wraps a failure the client cannot act on.
func Internal(err error) *Error {
	return &Error{
		Status:  http.StatusInternalServerError,
		Code:    "internal_error",
		Message: "internal server error",
		Cause:   err,
	}
}

// asError maps any error onto an *Error; unknown errors become Internal.
func asError(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return Internal(err)
}

// ErrorEnvelope is the body of every non-2xx response.
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
