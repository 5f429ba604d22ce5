// Package feedback implements the feedback object manager: creation from
// actionable signals, the operator-facing lifecycle transitions, and the
// drill-down reads. Every transition is validated against the pure state
// machine, persisted with a compare-and-set on the current status, and
// recorded in the enforcement ledger inside the same transaction.
package feedback

import (
	"time"

	"github.com/google/uuid"

	"github.com/backofhouse/steward/internal/enforcement"
	"github.com/backofhouse/steward/internal/standards"
)

// Feedback is an enforcement obligation raised against a venue's
// business day. Terminal rows are retained for audit and never deleted.
type Feedback struct {
	ID               uuid.UUID                 `json:"id"`
	TenantID         uuid.UUID                 `json:"tenant_id"`
	VenueID          *uuid.UUID                `json:"venue_id,omitempty"`
	BusinessDate     time.Time                 `json:"business_date"`
	Domain           enforcement.Domain        `json:"domain"`
	Origin           enforcement.Origin        `json:"origin"`
	SignalType       string                    `json:"signal_type"`
	Title            string                    `json:"title"`
	Message          string                    `json:"message"`
	ResponseRequired enforcement.ResponseType  `json:"response_required"`
	Severity         enforcement.Severity      `json:"severity"`
	OwnerRole        enforcement.Role          `json:"owner_role"`
	Assignee         *string                   `json:"assignee,omitempty"`
	DueAt            time.Time                 `json:"due_at"`
	Status           enforcement.Status        `json:"status"`
	AckAt            *time.Time                `json:"ack_at,omitempty"`
	ActionAt         *time.Time                `json:"action_at,omitempty"`
	ClosedAt         *time.Time                `json:"closed_at,omitempty"`
	ActionSummary    *string                   `json:"action_summary,omitempty"`
	WaiveReason      *string                   `json:"waive_reason,omitempty"`
	ResolveReason    *string                   `json:"resolve_reason,omitempty"`
	Evidence         *EvidenceSnapshot         `json:"evidence,omitempty"`
	Verification     *enforcement.Verification `json:"verification,omitempty"`
	CreatedAt        time.Time                 `json:"created_at"`
	UpdatedAt        time.Time                 `json:"updated_at"`
}

// Terminal reports whether the object's lifecycle has ended.
func (f *Feedback) Terminal() bool {
	return f.Status.Terminal()
}

// EvidenceSnapshot is the observed condition frozen onto the object at
// creation, enriched with the standard version and bound that were in
// force at detection time. Recalibrating a standard later never changes
// what an existing object claims.
type EvidenceSnapshot struct {
	enforcement.Evidence
	Standard *FrozenStandard `json:"standard,omitempty"`
}

// FrozenStandard records the provenance of the threshold a signal was
// judged against.
type FrozenStandard struct {
	StandardID uuid.UUID             `json:"standard_id"`
	Key        string                `json:"key"`
	Value      float64               `json:"value"`
	Layer      standards.Layer       `json:"layer"`
	Bound      *standards.BoundRange `json:"bound,omitempty"`
}

// SignalRef is a linked signal in the drill-down read.
type SignalRef struct {
	ID         uuid.UUID            `json:"id"`
	SignalType string               `json:"signal_type"`
	Source     enforcement.Source   `json:"source"`
	Severity   enforcement.Severity `json:"severity"`
	Confidence float64              `json:"confidence"`
	CreatedAt  time.Time            `json:"created_at"`
}

// AuditResult compares an object's stored status against the status its
// ledger history replays to. Problem describes the divergence or the
// replay failure when Consistent is false.
type AuditResult struct {
	FeedbackID     uuid.UUID          `json:"feedback_id"`
	StoredStatus   enforcement.Status `json:"stored_status"`
	ReplayedStatus enforcement.Status `json:"replayed_status,omitempty"`
	EventCount     int                `json:"event_count"`
	Consistent     bool               `json:"consistent"`
	Problem        *string            `json:"problem,omitempty"`
}

// IntakeCommand carries an actionable signal into feedback creation.
// Verification is the detector-supplied contract, if any; creation
// synthesizes one when a critical resolution obligation arrives without
// it.
type IntakeCommand struct {
	SignalID      uuid.UUID
	TenantID      uuid.UUID
	VenueID       *uuid.UUID
	BusinessDate  time.Time
	Domain        enforcement.Domain
	SignalType    string
	Source        enforcement.Source
	Severity      enforcement.Severity
	Confidence    float64
	EntityRef     *string
	ImpactAmount  *float64
	ImpactMinutes *int
	Evidence      *enforcement.Evidence
	Verification  *enforcement.Verification
}

// IntakeResult reports what intake did with an actionable signal: opened
// a new object or linked the signal to an existing non-terminal one.
type IntakeResult struct {
	Feedback *Feedback `json:"feedback"`
	Linked   bool      `json:"linked"`
}

// ImportCommand carries a feedback object from a legacy alert pipeline.
// A nil DueAt defaults from the severity's TTL; an omitted
// ResponseRequired derives from severity and evidence.
type ImportCommand struct {
	VenueID          *uuid.UUID                `json:"venue_id,omitempty"`
	BusinessDate     time.Time                 `json:"business_date"`
	Domain           enforcement.Domain        `json:"domain"`
	SignalType       string                    `json:"signal_type"`
	Title            string                    `json:"title"`
	Message          string                    `json:"message"`
	Severity         enforcement.Severity      `json:"severity"`
	ResponseRequired enforcement.ResponseType  `json:"response_required,omitempty"`
	DueAt            *time.Time                `json:"due_at,omitempty"`
	Evidence         *enforcement.Evidence     `json:"evidence,omitempty"`
	Verification     *enforcement.Verification `json:"verification,omitempty"`
}

// SubmitActionCommand describes the corrective action an operator took.
type SubmitActionCommand struct {
	Summary string `json:"summary"`
}

// VerifyCommand records a verification outcome against the object's
// contract. When Observed is supplied and the contract is a metric
// check, the outcome is computed from the contract rather than taken
// from Passed.
type VerifyCommand struct {
	Passed   bool     `json:"passed"`
	Observed *float64 `json:"observed,omitempty"`
	Note     string   `json:"note,omitempty"`
}

// WaiveCommand dismisses an obligation with a mandatory reason.
type WaiveCommand struct {
	Reason string `json:"reason"`
}

// ResolveCommand closes an obligation manually with a mandatory reason.
type ResolveCommand struct {
	Reason string `json:"reason"`
}

// EscalateCommand promotes an obligation up the ownership ladder. A nil
// To escalates along the policy route for the object's severity.
type EscalateCommand struct {
	Reason string            `json:"reason"`
	To     *enforcement.Role `json:"to,omitempty"`
}

// Timing holds the due-time TTLs applied at creation, keyed by severity.
type Timing struct {
	DueTTLCritical time.Duration
	DueTTLWarning  time.Duration
}

// DueAt computes an object's due time: close of the business day plus
// the severity's TTL.
func (t Timing) DueAt(businessDate time.Time, severity enforcement.Severity) time.Time {
	ttl := t.DueTTLWarning
	if severity == enforcement.SeverityCritical {
		ttl = t.DueTTLCritical
	}
	return businessDate.AddDate(0, 0, 1).Add(ttl)
}

// Policy supplies the escalation routing and waiver capability rules the
// manager consults during transitions.
type Policy interface {
	NextRole(severity enforcement.Severity, current enforcement.Role) (enforcement.Role, bool)
	CanWaive(roles []enforcement.Role) bool
}
