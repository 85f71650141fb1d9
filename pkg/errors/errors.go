// Package errors defines the error taxonomy shared by the retrieval core and
// the HTTP service: sentinel errors for the failure classes the API exposes,
// plus an AppError wrapper carrying a human-readable message.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound covers missing files, directories, documents, and columns.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument covers bad enum values (tokenizer mode, sort order,
	// boolean operation, index format) and malformed inputs.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrPreconditionFailed is returned when an operation runs before the
	// state it requires is configured, e.g. searching with no index loaded.
	ErrPreconditionFailed = errors.New("precondition failed")
	// ErrInternal covers unexpected failures with no caller remedy.
	ErrInternal = errors.New("internal error")
)

type AppError struct {
	Err     error
	Message string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, message string) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: message,
	}
}

func Newf(sentinel error, format string, args ...any) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: fmt.Sprintf(format, args...),
	}
}

// HTTPStatusCode maps an error to the HTTP status the search service returns.
func HTTPStatusCode(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, ErrPreconditionFailed):
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}
