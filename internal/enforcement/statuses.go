package enforcement

import (
	"encoding/json"
	"slices"
)

// Status is a feedback object's lifecycle state. The two overlapping
// lifecycles of older pipelines are unified into this single graph; the
// Origin tag records which pipeline created an object.
type Status string

// Valid lifecycle statuses.
const (
	StatusOpen            Status = "open"
	StatusAcknowledged    Status = "acknowledged"
	StatusActionSubmitted Status = "action_submitted"
	StatusVerified        Status = "verified"
	StatusResolved        Status = "resolved"
	StatusWaived          Status = "waived"
	StatusEscalated       Status = "escalated"
	StatusExpired         Status = "expired"
)

var statuses = []Status{
	StatusOpen,
	StatusAcknowledged,
	StatusActionSubmitted,
	StatusVerified,
	StatusResolved,
	StatusWaived,
	StatusEscalated,
	StatusExpired,
}

var terminalStatuses = []Status{
	StatusResolved,
	StatusWaived,
	StatusExpired,
}

// Statuses returns the list of valid lifecycle statuses.
func Statuses() []Status {
	return statuses
}

// NonTerminalStatuses returns the statuses an object can still move out of.
func NonTerminalStatuses() []Status {
	out := make([]Status, 0, len(statuses)-len(terminalStatuses))
	for _, s := range statuses {
		if !s.Terminal() {
			out = append(out, s)
		}
	}
	return out
}

// Terminal reports whether the status ends the lifecycle. Terminal objects
// are retained for audit and never transition again.
func (s Status) Terminal() bool {
	return slices.Contains(terminalStatuses, s)
}

// UnmarshalJSON validates that the decoded string is a known status.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v := Status(raw)
	if !slices.Contains(statuses, v) {
		return ErrInvalidStatus
	}
	*s = v
	return nil
}

// ParseStatus validates a string as a known lifecycle status.
func ParseStatus(s string) (Status, error) {
	v := Status(s)
	if !slices.Contains(statuses, v) {
		return "", ErrInvalidStatus
	}
	return v, nil
}

// Origin tags which pipeline created a feedback object: the signal intake
// pipeline or an import from a legacy alert source.
type Origin string

// Valid feedback origins.
const (
	OriginSignal   Origin = "signal"
	OriginImported Origin = "imported"
)

var origins = []Origin{
	OriginSignal,
	OriginImported,
}

// UnmarshalJSON validates that the decoded string is a known origin.
func (o *Origin) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v := Origin(raw)
	if !slices.Contains(origins, v) {
		return ErrInvalidOrigin
	}
	*o = v
	return nil
}

// ParseOrigin validates a string as a known feedback origin.
func ParseOrigin(s string) (Origin, error) {
	v := Origin(s)
	if !slices.Contains(origins, v) {
		return "", ErrInvalidOrigin
	}
	return v, nil
}
