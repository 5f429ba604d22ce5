package escalation

import (
	"context"
)

// System defines the contract for the escalation engine.
type System interface {
	Handler() *Handler

	Sweep(ctx context.Context, opts SweepOptions) (*SweepResult, error)
	Policy() *Policy
}
