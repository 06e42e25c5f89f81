package http

import (
	"fmt"
	"net/http"
)

// AppError is an application-level failure carried into the response
// envelope. Status is the envelope status, not the transport status.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error { return e.Err }

// BadGatewayError creates a 502 error for upstream failures.
func BadGatewayError(message string) *AppError {
	return &AppError{
		Code:    "ERR_BAD_GATEWAY",
		Message: message,
		Status:  http.StatusBadGateway,
	}
}

// BadGatewayErrorf creates a 502 error with formatting.
func BadGatewayErrorf(format string, a ...interface{}) *AppError {
	return BadGatewayError(fmt.Sprintf(format, a...))
}
