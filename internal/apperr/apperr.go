// Package apperr holds the error kinds shared by every service. Callers wrap
// them with context and the HTTP layer maps them to status codes.
package apperr

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnauthorized = errors.New("unauthorized")
)

// Kind returns the sentinel err wraps, or nil for unclassified errors.
func Kind(err error) error {
	for _, kind := range []error{ErrInvalidInput, ErrNotFound, ErrConflict, ErrInvalidState, ErrUnauthorized} {
		if errors.Is(err, kind) {
			return kind
		}
	}

	return nil
}
