package enforcement

import "errors"

var (
	ErrInvalidDomain       = errors.New("invalid domain")
	ErrInvalidSeverity     = errors.New("invalid severity")
	ErrInvalidSource       = errors.New("invalid source")
	ErrInvalidResponseType = errors.New("invalid response type")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrInvalidOrigin       = errors.New("invalid origin")
	ErrInvalidRole         = errors.New("invalid role")
	ErrInvalidEventType    = errors.New("invalid event type")
	ErrInvalidAction       = errors.New("invalid action")
	ErrInvalidTransition   = errors.New("invalid transition")
	ErrInvalidEvidence     = errors.New("invalid evidence")
	ErrInvalidVerification = errors.New("invalid verification contract")
)
