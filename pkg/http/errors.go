package http

import (
	"fmt"
	"net/http"
)

// AppError is an ops API failure with the HTTP status it maps to. The wrapped
// error is logged, never serialized.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func NewAppError(code, message string, status int) *AppError {
	return &AppError{Code: code, Message: message, Status: status}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Wrap attaches the underlying cause.
func (e *AppError) Wrap(err error) *AppError {
	e.Err = err
	return e
}

// Unavailable reports a dependency or state that is not ready yet.
func Unavailable(message string) *AppError {
	return NewAppError("ERR_UNAVAILABLE", message, http.StatusServiceUnavailable)
}
