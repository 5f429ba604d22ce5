package ledger

import (
	"fmt"

	"github.com/backofhouse/steward/internal/enforcement"
)

// ReplayStatus folds a feedback object's ordered event history into the
// status it implies. Only transition and escalation events change status;
// the first event must be the creation entry (nil from_status) and every
// later status-changing event must chain from the status the fold has
// reached, otherwise the history was written incorrectly and
// ErrBrokenChain is returned. Callers compare the result against the
// stored row to audit the projection.
func ReplayStatus(events []Event) (enforcement.Status, error) {
	if len(events) == 0 {
		return "", ErrNoHistory
	}

	var current enforcement.Status
	for _, e := range events {
		switch e.EventType {
		case enforcement.EventTransition, enforcement.EventEscalation:
			if e.ToStatus == nil {
				return "", fmt.Errorf("%w: event %d has no to_status", ErrBrokenChain, e.ID)
			}

			if e.FromStatus == nil {
				if current != "" {
					return "", fmt.Errorf("%w: event %d restarts the lifecycle", ErrBrokenChain, e.ID)
				}
			} else if *e.FromStatus != current {
				return "", fmt.Errorf(
					"%w: event %d transitions from %s but history reached %s",
					ErrBrokenChain, e.ID, *e.FromStatus, current,
				)
			}

			current = *e.ToStatus
		case enforcement.EventVerificationFailed, enforcement.EventBriefingReview:
			// no status change
		}
	}

	if current == "" {
		return "", fmt.Errorf("%w: history contains no status-changing events", ErrBrokenChain)
	}

	return current, nil
}
