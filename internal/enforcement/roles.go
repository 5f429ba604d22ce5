package enforcement

import (
	"encoding/json"
	"slices"
)

// Role identifies a class of operator acting on feedback objects. The
// first four roles form the escalation ladder in ascending order of
// authority; StandardsAdmin sits outside the ladder and gates global
// bound management instead.
type Role string

// Operator roles.
const (
	RoleVenueManager     Role = "venue_manager"
	RoleGM               Role = "gm"
	RoleRegionalDirector Role = "regional_director"
	RoleOwner            Role = "owner"
	RoleStandardsAdmin   Role = "standards_admin"
)

var ladder = []Role{
	RoleVenueManager,
	RoleGM,
	RoleRegionalDirector,
	RoleOwner,
}

var roles = []Role{
	RoleVenueManager,
	RoleGM,
	RoleRegionalDirector,
	RoleOwner,
	RoleStandardsAdmin,
}

// Roles returns the list of valid operator roles.
func Roles() []Role {
	return roles
}

// Ladder returns the escalation ladder in ascending order of authority.
func Ladder() []Role {
	return ladder
}

// Rank returns the role's position on the escalation ladder, or -1 for
// roles outside it. Higher rank means more authority.
func (r Role) Rank() int {
	return slices.Index(ladder, r)
}

// Outranks reports whether r sits strictly above other on the ladder.
// Roles outside the ladder never outrank anything.
func (r Role) Outranks(other Role) bool {
	ri, oi := r.Rank(), other.Rank()
	return ri >= 0 && oi >= 0 && ri > oi
}

// UnmarshalJSON validates that the decoded string is a known role.
func (r *Role) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v := Role(raw)
	if !slices.Contains(roles, v) {
		return ErrInvalidRole
	}
	*r = v
	return nil
}

// ParseRole validates a string as a known operator role.
func ParseRole(s string) (Role, error) {
	v := Role(s)
	if !slices.Contains(roles, v) {
		return "", ErrInvalidRole
	}
	return v, nil
}
