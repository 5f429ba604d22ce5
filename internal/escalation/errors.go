package escalation

import (
	"errors"
	"net/http"
)

var (
	ErrInvalidPolicy  = errors.New("invalid policy pack")
	ErrInvalidRequest = errors.New("invalid request")
)

// MapHTTPStatus maps escalation errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
