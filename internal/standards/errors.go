package standards

import (
	"errors"
	"net/http"
)

// Domain errors for standards operations.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnknownKey     = errors.New("unknown standard key")
	ErrInvalidValue   = errors.New("invalid standard value")
	ErrInvalidBound   = errors.New("invalid bound")
	ErrBoundViolation = errors.New("calibration outside governing bound")
	ErrNotConfigured  = errors.New("standard not configured for scope")
	ErrForbidden      = errors.New("missing required capability")
	ErrConflict       = errors.New("standard version conflict")
)

// MapHTTPStatus maps standards domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotConfigured) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrBoundViolation) {
		return http.StatusUnprocessableEntity
	}
	if errors.Is(err, ErrForbidden) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrConflict) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrUnknownKey) || errors.Is(err, ErrInvalidValue) ||
		errors.Is(err, ErrInvalidBound) || errors.Is(err, ErrInvalidRequest) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
