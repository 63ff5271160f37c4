// Package errs holds the error kinds shared by the inventory packages.
// Every domain error wraps exactly one of the kind sentinels so callers can
// branch with errors.Is without knowing which package produced it.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrValidation marks bad input shape or range. Never retried.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks a missing capacity record, hold or waitlist entry.
	ErrNotFound = errors.New("not found")

	// ErrCapacityExceeded means the request asks for more than the bookable seats.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrTransientConflict is returned once optimistic retries are exhausted.
	// Callers should try again; it does not mean sold out.
	ErrTransientConflict = errors.New("transient conflict")
)

// Validationf wraps ErrValidation with a formatted message.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// CapacityExceededf wraps ErrCapacityExceeded with a formatted message.
func CapacityExceededf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrCapacityExceeded, fmt.Sprintf(format, args...))
}

// TransientConflictf wraps ErrTransientConflict with a formatted message.
func TransientConflictf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrTransientConflict, fmt.Sprintf(format, args...))
}

// Kind returns the sentinel kind of err, or nil for unclassified errors.
func Kind(err error) error {
	for _, kind := range []error{ErrValidation, ErrNotFound, ErrCapacityExceeded, ErrTransientConflict} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// HTTPStatus maps an error to the status code the API responds with.
func HTTPStatus(err error) int {
	switch Kind(err) {
	case ErrValidation:
		return http.StatusBadRequest
	case ErrNotFound:
		return http.StatusNotFound
	case ErrCapacityExceeded:
		return http.StatusConflict
	case ErrTransientConflict:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Code returns a stable machine-readable code for API clients.
func Code(err error) string {
	switch Kind(err) {
	case ErrValidation:
		return "validation_error"
	case ErrNotFound:
		return "not_found"
	case ErrCapacityExceeded:
		return "sold_out"
	case ErrTransientConflict:
		return "try_again"
	default:
		return "internal_error"
	}
}
