package ledger

import (
	"errors"
	"net/http"
)

// Domain errors for ledger operations.
var (
	ErrInvalidEvent = errors.New("invalid enforcement event")
	ErrNoHistory    = errors.New("no recorded events")
	ErrBrokenChain  = errors.New("event history chain is inconsistent")
)

// MapHTTPStatus maps ledger domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNoHistory) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrInvalidEvent) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
