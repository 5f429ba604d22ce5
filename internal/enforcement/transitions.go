package enforcement

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// Action is an operation that moves a feedback object through its
// lifecycle. Actions are validated against the current status before any
// state is written; an action applied from a status outside its allowed
// set is rejected with ErrInvalidTransition.
type Action string

// Lifecycle actions.
const (
	ActionAcknowledge Action = "acknowledge"
	ActionSubmit      Action = "submit_action"
	ActionVerify      Action = "verify"
	ActionResolve     Action = "resolve"
	ActionWaive       Action = "waive"
	ActionEscalate    Action = "escalate"
	ActionExpire      Action = "expire"
)

var actions = []Action{
	ActionAcknowledge,
	ActionSubmit,
	ActionVerify,
	ActionResolve,
	ActionWaive,
	ActionEscalate,
	ActionExpire,
}

// Actions returns the list of valid lifecycle actions.
func Actions() []Action {
	return actions
}

// UnmarshalJSON validates that the decoded string is a known action.
func (a *Action) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v := Action(raw)
	if !slices.Contains(actions, v) {
		return ErrInvalidAction
	}
	*a = v
	return nil
}

// ParseAction validates a string as a known lifecycle action.
func ParseAction(s string) (Action, error) {
	v := Action(s)
	if !slices.Contains(actions, v) {
		return "", ErrInvalidAction
	}
	return v, nil
}

// allowed maps each action to the statuses it may be applied from.
// Escalated objects remain actionable, so most actions accept
// StatusEscalated; re-escalation of an already escalated object is how
// the ladder promotes. Submission from action_submitted covers
// resubmission after a failed verification. Expiry applies only to
// objects that were never touched.
var allowed = map[Action][]Status{
	ActionAcknowledge: {StatusOpen, StatusEscalated},
	ActionSubmit:      {StatusAcknowledged, StatusActionSubmitted, StatusEscalated},
	ActionVerify:      {StatusActionSubmitted},
	ActionResolve:     {StatusOpen, StatusAcknowledged, StatusActionSubmitted, StatusVerified, StatusEscalated},
	ActionWaive:       {StatusOpen, StatusAcknowledged, StatusActionSubmitted, StatusVerified, StatusEscalated},
	ActionEscalate:    {StatusOpen, StatusAcknowledged, StatusActionSubmitted, StatusEscalated},
	ActionExpire:      {StatusOpen},
}

// targets maps each action to the status it produces.
var targets = map[Action]Status{
	ActionAcknowledge: StatusAcknowledged,
	ActionSubmit:      StatusActionSubmitted,
	ActionVerify:      StatusVerified,
	ActionResolve:     StatusResolved,
	ActionWaive:       StatusWaived,
	ActionEscalate:    StatusEscalated,
	ActionExpire:      StatusExpired,
}

// Transition is the result of applying an action: the status pair for the
// ledger entry plus any lifecycle timestamps the action stamped.
type Transition struct {
	From              Status     `json:"from"`
	To                Status     `json:"to"`
	AcknowledgedAt    *time.Time `json:"acknowledged_at,omitempty"`
	ActionSubmittedAt *time.Time `json:"action_submitted_at,omitempty"`
	ClosedAt          *time.Time `json:"closed_at,omitempty"`
}

// CanTransition reports whether the action may be applied from the
// current status.
func CanTransition(current Status, action Action) bool {
	return slices.Contains(allowed[action], current)
}

// Apply validates the action against the current status and returns the
// resulting transition. It mutates nothing; callers persist the result
// with a compare-and-set on the current status so concurrent writers
// cannot both win.
func Apply(current Status, action Action, now time.Time) (Transition, error) {
	from, ok := allowed[action]
	if !ok {
		return Transition{}, ErrInvalidAction
	}
	if !slices.Contains(from, current) {
		return Transition{}, fmt.Errorf("%w: cannot %s from %s", ErrInvalidTransition, action, current)
	}

	t := Transition{From: current, To: targets[action]}
	switch action {
	case ActionAcknowledge:
		t.AcknowledgedAt = &now
	case ActionSubmit:
		t.ActionSubmittedAt = &now
	case ActionResolve, ActionWaive, ActionExpire:
		t.ClosedAt = &now
	}
	return t, nil
}
