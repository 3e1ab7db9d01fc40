package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")

	// ErrSearchUnavailable means the embedding provider could not serve a
	// smart search. Lexical search is an independent failure domain and
	// must keep working when this is returned.
	ErrSearchUnavailable = errors.New("search unavailable")

	// ErrSearchFailed wraps datastore errors during a search sub-query.
	// The whole merged result is aborted; callers may retry.
	ErrSearchFailed = errors.New("search failed")
)

type AppError struct {
	Err     error  // sentinel category
	Message string // human-readable error message
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource string, id int64) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %d", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, name string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s already exists: %s", resource, name),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// SearchUnavailable reports that semantic search cannot run because the
// embedding provider is unavailable.
func SearchUnavailable(cause error) *AppError {
	return &AppError{
		Err:     ErrSearchUnavailable,
		Message: fmt.Sprintf("semantic search unavailable: %v", cause),
	}
}

// SearchFailed reports a datastore error during a search sub-query.
func SearchFailed(cause error) *AppError {
	return &AppError{
		Err:     ErrSearchFailed,
		Message: fmt.Sprintf("search query failed: %v", cause),
	}
}
