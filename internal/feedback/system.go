package feedback

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/backofhouse/steward/internal/enforcement"
	"github.com/backofhouse/steward/internal/ledger"
	"github.com/backofhouse/steward/internal/standards"
	"github.com/backofhouse/steward/pkg/pagination"
)

// Scope identifies a sweep unit: one tenant's venue, or the tenant's
// venue-less objects when VenueID is nil.
type Scope struct {
	TenantID uuid.UUID  `json:"tenant_id"`
	VenueID  *uuid.UUID `json:"venue_id,omitempty"`
}

// System defines the feedback management contract.
type System interface {
	Handler() *Handler

	Intake(ctx context.Context, cmd IntakeCommand) (*IntakeResult, error)
	Import(ctx context.Context, actor enforcement.Actor, cmd ImportCommand) (*Feedback, error)

	Acknowledge(ctx context.Context, actor enforcement.Actor, id uuid.UUID) (*Feedback, error)
	SubmitAction(ctx context.Context, actor enforcement.Actor, id uuid.UUID, cmd SubmitActionCommand) (*Feedback, error)
	Verify(ctx context.Context, actor enforcement.Actor, id uuid.UUID, cmd VerifyCommand) (*Feedback, error)
	Resolve(ctx context.Context, actor enforcement.Actor, id uuid.UUID, cmd ResolveCommand) (*Feedback, error)
	Waive(ctx context.Context, actor enforcement.Actor, id uuid.UUID, cmd WaiveCommand) (*Feedback, error)
	Escalate(ctx context.Context, actor enforcement.Actor, id uuid.UUID, cmd EscalateCommand) (*Feedback, error)
	Expire(ctx context.Context, actor enforcement.Actor, id uuid.UUID) (*Feedback, error)

	Find(ctx context.Context, tenantID, id uuid.UUID) (*Feedback, error)
	List(ctx context.Context, tenantID uuid.UUID, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Feedback], error)
	Events(ctx context.Context, tenantID, id uuid.UUID) ([]ledger.Event, error)
	Signals(ctx context.Context, tenantID, id uuid.UUID) ([]SignalRef, error)
	Audit(ctx context.Context, tenantID, id uuid.UUID) (*AuditResult, error)

	Scopes(ctx context.Context) ([]Scope, error)
	Stalled(ctx context.Context, scope Scope, ackBefore time.Time) ([]Feedback, error)
	Overdue(ctx context.Context, scope Scope, asOf time.Time) ([]Feedback, error)
	OpenByType(ctx context.Context, scope Scope, signalType string) ([]Feedback, error)
}

// Runtime bundles the collaborating systems and rules the feedback
// manager requires beyond its own storage. It is constructed by
// higher-level composition code.
type Runtime struct {
	Standards standards.System
	Events    ledger.System
	Policy    Policy
	Timing    Timing
}
