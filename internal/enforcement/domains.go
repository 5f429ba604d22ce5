// Package enforcement defines the shared vocabulary of the enforcement
// pipeline: the operational domains, severities, lifecycle statuses, owning
// roles, and the pure state machine that governs feedback transitions.
// Domain packages build on these types; this package performs no I/O.
package enforcement

import (
	"encoding/json"
	"slices"
)

// Domain classifies which operational area a signal or feedback object
// belongs to.
type Domain string

// Valid operational domains.
const (
	DomainRevenue     Domain = "revenue"
	DomainLabor       Domain = "labor"
	DomainProcurement Domain = "procurement"
	DomainService     Domain = "service"
	DomainCompliance  Domain = "compliance"
)

var domains = []Domain{
	DomainRevenue,
	DomainLabor,
	DomainProcurement,
	DomainService,
	DomainCompliance,
}

// Domains returns the list of valid operational domains.
func Domains() []Domain {
	return domains
}

// UnmarshalJSON validates that the decoded string is a known domain.
func (d *Domain) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v := Domain(raw)
	if !slices.Contains(domains, v) {
		return ErrInvalidDomain
	}
	*d = v
	return nil
}

// ParseDomain validates a string as a known operational domain.
func ParseDomain(s string) (Domain, error) {
	v := Domain(s)
	if !slices.Contains(domains, v) {
		return "", ErrInvalidDomain
	}
	return v, nil
}
