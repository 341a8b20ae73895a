package errors

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// AppError encodes domain specific error details.
type AppError struct {
	Code    string
	Message string
	Err     error

	trace error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Stack renders the call stack captured when the error was wrapped.
func (e *AppError) Stack() string {
	if e.trace == nil {
		return ""
	}
	return fmt.Sprintf("%+v", e.trace)
}

// Wrap produces a new AppError instance.
func Wrap(code, message string, err error) error {
	return &AppError{Code: code, Message: message, Err: err, trace: pkgerrors.New(message)}
}

// IsCode helps handler differentiate failures.
func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// StackOf returns the stack trace attached to err, if any.
func StackOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Stack()
	}
	type stackTracer interface {
		StackTrace() pkgerrors.StackTrace
	}
	var traced stackTracer
	if errors.As(err, &traced) {
		return fmt.Sprintf("%+v", traced.StackTrace())
	}
	return ""
}
