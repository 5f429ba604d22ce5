package standards

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/backofhouse/steward/internal/enforcement"
)

// System defines the public contract for standards store operations.
type System interface {
	Handler() *Handler

	SetGlobalBound(ctx context.Context, actor enforcement.Actor, cmd BoundCommand) (*Bound, error)
	ListBounds(ctx context.Context) ([]Bound, error)

	Calibrate(ctx context.Context, actor enforcement.Actor, cmd CalibrateCommand) (*Standard, error)

	Resolve(
		ctx context.Context,
		scope Scope,
		domain enforcement.Domain,
		key string,
		asOf time.Time,
	) (*Resolved, error)

	ResolveSet(
		ctx context.Context,
		scope Scope,
		domain enforcement.Domain,
		keys []string,
		asOf time.Time,
	) (*ResolvedSet, error)

	History(
		ctx context.Context,
		scope Scope,
		domain enforcement.Domain,
		key string,
	) ([]Standard, error)

	ListCurrent(ctx context.Context, tenantID uuid.UUID, venueID *uuid.UUID) ([]Resolved, error)
}
