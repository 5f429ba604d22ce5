package feedback

import (
	"errors"
	"net/http"

	"github.com/backofhouse/steward/internal/enforcement"
)

var (
	ErrNotFound             = errors.New("feedback object not found")
	ErrInvalidRequest       = errors.New("invalid feedback request")
	ErrConflict             = errors.New("feedback object changed concurrently")
	ErrActionNotExpected    = errors.New("feedback object does not expect an action")
	ErrNoContract           = errors.New("feedback object has no verification contract")
	ErrVerificationRequired = errors.New("resolution requires a passing verification")
	ErrWaiveForbidden       = errors.New("actor cannot waive feedback")
	ErrEscalationTarget     = errors.New("escalation target does not outrank current owner")
)

// MapHTTPStatus translates feedback errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrWaiveForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrConflict),
		errors.Is(err, ErrActionNotExpected),
		errors.Is(err, ErrNoContract),
		errors.Is(err, ErrVerificationRequired),
		errors.Is(err, enforcement.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrEscalationTarget),
		errors.Is(err, enforcement.ErrInvalidEvidence),
		errors.Is(err, enforcement.ErrInvalidVerification):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
