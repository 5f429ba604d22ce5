package enforcement

import (
	"encoding/json"
	"slices"
)

// EventType classifies entries in the append-only enforcement ledger.
type EventType string

// Ledger event types.
const (
	EventTransition         EventType = "transition"
	EventEscalation         EventType = "escalation"
	EventVerificationFailed EventType = "verification_failed"
	EventBriefingReview     EventType = "briefing_review"
)

var eventTypes = []EventType{
	EventTransition,
	EventEscalation,
	EventVerificationFailed,
	EventBriefingReview,
}

// EventTypes returns the list of valid ledger event types.
func EventTypes() []EventType {
	return eventTypes
}

// UnmarshalJSON validates that the decoded string is a known event type.
func (e *EventType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v := EventType(raw)
	if !slices.Contains(eventTypes, v) {
		return ErrInvalidEventType
	}
	*e = v
	return nil
}

// ParseEventType validates a string as a known ledger event type.
func ParseEventType(s string) (EventType, error) {
	v := EventType(s)
	if !slices.Contains(eventTypes, v) {
		return "", ErrInvalidEventType
	}
	return v, nil
}
