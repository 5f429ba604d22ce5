// Package escalation implements the policy-driven sweep that keeps
// feedback objects moving: stalled acknowledgements escalate up the
// ownership ladder, repeated critical signal clusters escalate their
// open objects, and silent objects past due expire. Routing, SLAs, and
// pattern windows come from a YAML policy pack with an embedded
// default.
package escalation

import (
	"time"

	"github.com/google/uuid"
)

// Escalation reasons recorded on ledger events and metrics.
const (
	ReasonStallPenalty         = "stall_penalty"
	ReasonStructuralEscalation = "structural_escalation"
)

// SweepOptions narrows and parameterizes a sweep. Zero values sweep
// every scope at the current time, committing every decision.
type SweepOptions struct {
	TenantID *uuid.UUID `json:"tenant_id,omitempty"`
	VenueID  *uuid.UUID `json:"venue_id,omitempty"`
	AsOf     time.Time  `json:"as_of,omitempty"`
	DryRun   bool       `json:"dry_run,omitempty"`
}

// SweepResult summarizes one escalation sweep.
type SweepResult struct {
	StartedAt   time.Time    `json:"started_at"`
	ElapsedMS   int64        `json:"elapsed_ms"`
	DryRun      bool         `json:"dry_run,omitempty"`
	Scopes      int          `json:"scopes"`
	Escalations int          `json:"escalations"`
	Expiries    int          `json:"expiries"`
	Errors      []ScopeError `json:"errors,omitempty"`
}

// ScopeError reports a venue scope whose evaluation failed. Scope
// failures never abort the sweep.
type ScopeError struct {
	TenantID uuid.UUID  `json:"tenant_id"`
	VenueID  *uuid.UUID `json:"venue_id,omitempty"`
	Error    string     `json:"error"`
}
