// Package standards implements the three-layer standards store: global
// bounds set by platform administrators, tenant calibrations, and venue
// calibrations. Values are versioned by closing the current row and
// inserting a new one, never by editing in place, so any historical
// business date can be resolved against the standard that was in force.
package standards

import (
	"time"

	"github.com/google/uuid"

	"github.com/backofhouse/steward/internal/enforcement"
)

// Bound is one version of a global guardrail for a standard key.
// Tenant and venue calibrations must fall inside [MinValue, MaxValue].
// EffectiveTo is nil for the current version.
type Bound struct {
	ID            uuid.UUID          `json:"id"`
	Domain        enforcement.Domain `json:"domain"`
	Key           string             `json:"key"`
	MinValue      float64            `json:"min_value"`
	MaxValue      float64            `json:"max_value"`
	EffectiveFrom time.Time          `json:"effective_from"`
	EffectiveTo   *time.Time         `json:"effective_to,omitempty"`
	CreatedBy     string             `json:"created_by"`
	CreatedAt     time.Time          `json:"created_at"`
}

// Standard is one version of a tenant- or venue-level calibration.
// VenueID is nil for tenant-wide values. EffectiveTo is nil for the
// current version.
type Standard struct {
	ID            uuid.UUID          `json:"id"`
	TenantID      uuid.UUID          `json:"tenant_id"`
	VenueID       *uuid.UUID         `json:"venue_id,omitempty"`
	Domain        enforcement.Domain `json:"domain"`
	Key           string             `json:"key"`
	Value         float64            `json:"value"`
	EffectiveFrom time.Time          `json:"effective_from"`
	EffectiveTo   *time.Time         `json:"effective_to,omitempty"`
	CreatedBy     string             `json:"created_by"`
	CreatedAt     time.Time          `json:"created_at"`
}

// Layer names which configuration layer a resolved value came from.
type Layer string

// Resolution layers.
const (
	LayerVenue  Layer = "venue"
	LayerTenant Layer = "tenant"
)

// BoundRange is the governing global bound attached to a resolved value.
type BoundRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Resolved is the effective value of one standard key for a scope at a
// point in time, with enough provenance to freeze into evidence: the
// standard version that supplied it, the layer it came from, and the
// bound in force. Bound is nil when no global bound governs the key.
type Resolved struct {
	Domain        enforcement.Domain `json:"domain"`
	Key           string             `json:"key"`
	Kind          ValueKind          `json:"kind"`
	Unit          string             `json:"unit"`
	Value         float64            `json:"value"`
	StandardID    uuid.UUID          `json:"standard_id"`
	Layer         Layer              `json:"layer"`
	EffectiveFrom time.Time          `json:"effective_from"`
	Bound         *BoundRange        `json:"bound,omitempty"`
}

// ResolvedSet is the result of resolving several keys in one pass.
// Missing lists keys that had no configured value for the scope.
type ResolvedSet struct {
	Values  map[string]Resolved `json:"values"`
	Missing []string            `json:"missing,omitempty"`
}

// Scope identifies whose standards to resolve. A nil VenueID resolves
// tenant-wide values only; otherwise the venue layer wins over the
// tenant layer.
type Scope struct {
	TenantID uuid.UUID  `json:"tenant_id"`
	VenueID  *uuid.UUID `json:"venue_id,omitempty"`
}

// BoundCommand carries the data for a new global bound version.
// A zero EffectiveFrom defaults to the current time.
type BoundCommand struct {
	Domain        enforcement.Domain `json:"domain"`
	Key           string             `json:"key"`
	MinValue      float64            `json:"min_value"`
	MaxValue      float64            `json:"max_value"`
	EffectiveFrom time.Time          `json:"effective_from"`
}

// CalibrateCommand carries the data for a new tenant or venue
// calibration version. A zero EffectiveFrom defaults to the current time.
type CalibrateCommand struct {
	VenueID       *uuid.UUID         `json:"venue_id,omitempty"`
	Domain        enforcement.Domain `json:"domain"`
	Key           string             `json:"key"`
	Value         float64            `json:"value"`
	EffectiveFrom time.Time          `json:"effective_from"`
}
