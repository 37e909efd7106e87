// Package apperrors defines the error taxonomy shared by the ingestion, query and
// persistence paths, and its mapping onto HTTP status codes.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidDocument         = errors.New("invalid document")
	ErrInvalidTag              = errors.New("invalid tag")
	ErrInvalidAlgorithmSpec    = errors.New("invalid algorithm spec")
	ErrInvalidRange            = errors.New("invalid range")
	ErrEmptyQuery              = errors.New("empty query")
	ErrTokenizationUnavailable = errors.New("tokenization unavailable")
	ErrEnrichmentUnavailable   = errors.New("enrichment unavailable")
	ErrPersistenceCorrupt      = errors.New("persistence corrupt")
)

// AppError carries a sentinel together with a message detailed enough for the
// caller to correct the request.
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

// IsValidation reports whether err was caused by bad caller input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidDocument) ||
		errors.Is(err, ErrInvalidTag) ||
		errors.Is(err, ErrInvalidAlgorithmSpec) ||
		errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrEmptyQuery)
}

func HTTPStatusCode(err error) int {
	switch {
	case IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, ErrTokenizationUnavailable), errors.Is(err, ErrEnrichmentUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
