package common

import (
	"errors"
	"net/http"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}

// NotFound builds a 404 error with a stable machine-readable code.
func NotFound(code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: http.StatusNotFound}
}

// BadRequest builds a 400 error with a stable machine-readable code.
func BadRequest(code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: http.StatusBadRequest}
}

// Conflict builds a 409 error for concurrent-write rejections.
func Conflict(code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: http.StatusConflict}
}

// ErrorCode extracts the machine-readable code from an error chain. Returns
// an empty string for non-domain failures.
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
