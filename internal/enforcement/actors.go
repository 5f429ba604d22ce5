package enforcement

import "github.com/google/uuid"

// SystemSubject is the actor recorded for engine-driven operations such
// as sweep escalations, expiries, and auto-resolution.
const SystemSubject = "steward"

// Actor identifies who is performing an enforcement operation: the
// authenticated subject, the tenant it acts within, and the roles it
// holds. Engine-driven operations use SystemActor and carry no roles.
type Actor struct {
	Subject  string    `json:"subject"`
	TenantID uuid.UUID `json:"tenant_id"`
	Roles    []Role    `json:"roles,omitempty"`
}

// SystemActor returns the engine's actor for a tenant scope.
func SystemActor(tenantID uuid.UUID) Actor {
	return Actor{Subject: SystemSubject, TenantID: tenantID}
}

// ActorFromPrincipal builds an Actor from raw principal claims. Role
// strings that do not name a known role are dropped rather than
// rejected, so tokens minted with extra application roles still work.
func ActorFromPrincipal(subject string, tenantID uuid.UUID, roles []string) Actor {
	a := Actor{Subject: subject, TenantID: tenantID}
	for _, raw := range roles {
		if role, err := ParseRole(raw); err == nil {
			a.Roles = append(a.Roles, role)
		}
	}
	return a
}

// Has reports whether the actor holds the given role.
func (a Actor) Has(role Role) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// ActingRole returns the actor's highest ladder role. The second return
// is false for actors holding no ladder role, including the system actor.
func (a Actor) ActingRole() (Role, bool) {
	best := -1
	var acting Role
	for _, r := range a.Roles {
		if rank := r.Rank(); rank > best {
			best = rank
			acting = r
		}
	}
	return acting, best >= 0
}

// System reports whether the actor is the engine itself.
func (a Actor) System() bool {
	return a.Subject == SystemSubject && len(a.Roles) == 0
}
