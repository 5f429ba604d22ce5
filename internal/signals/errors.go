package signals

import (
	"errors"
	"net/http"

	"github.com/backofhouse/steward/internal/enforcement"
)

var (
	ErrNotFound       = errors.New("signal not found")
	ErrInvalidSignal  = errors.New("invalid signal")
	ErrInvalidRequest = errors.New("invalid request")
)

// MapHTTPStatus maps signal errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidSignal),
		errors.Is(err, ErrInvalidRequest),
		errors.Is(err, enforcement.ErrInvalidEvidence),
		errors.Is(err, enforcement.ErrInvalidVerification):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
