package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yanqian/meeting-summarizer/pkg/errors"
)

// HTTPError captures the metadata required to serialize an error response consistently.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes the underlying failure.
func (e *HTTPError) Unwrap() error {
	return e.Err
}

// NewHTTPError is a helper to build an HTTPError instance.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

// fromServiceError maps domain error codes to transport errors. message is
// what clients see for server-side failures.
func fromServiceError(err error, message string) *HTTPError {
	if apperrors.IsCode(err, "invalid_input") {
		return NewHTTPError(http.StatusBadRequest, "invalid_input", "Invalid request.", err)
	}
	return NewHTTPError(http.StatusInternalServerError, codeOf(err), message, err)
}

func codeOf(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Code != "" {
		return appErr.Code
	}
	return "internal_error"
}

func asHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return &HTTPError{
		Status:  http.StatusInternalServerError,
		Code:    "internal_error",
		Message: "Internal Server Error",
		Err:     err,
	}
}

func abortWithError(c *gin.Context, err *HTTPError) {
	_ = c.Error(err)
	c.Abort()
}
