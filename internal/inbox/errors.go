package inbox

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound        = errors.New("briefing not found")
	ErrAlreadyReviewed = errors.New("briefing already reviewed")
	ErrInvalidRequest  = errors.New("invalid inbox request")
)

// MapHTTPStatus translates inbox errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyReviewed):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
