package standards

import (
	"github.com/backofhouse/steward/pkg/query"
	"github.com/backofhouse/steward/pkg/repository"
)

var standardProjection = query.
	NewProjectionMap("public", "standards", "s").
	Project("id", "ID").
	Project("tenant_id", "TenantID").
	Project("venue_id", "VenueID").
	Project("domain", "Domain").
	Project("key", "Key").
	Project("value", "Value").
	Project("effective_from", "EffectiveFrom").
	Project("effective_to", "EffectiveTo").
	Project("created_by", "CreatedBy").
	Project("created_at", "CreatedAt")

var boundProjection = query.
	NewProjectionMap("public", "standard_bounds", "b").
	Project("id", "ID").
	Project("domain", "Domain").
	Project("key", "Key").
	Project("min_value", "MinValue").
	Project("max_value", "MaxValue").
	Project("effective_from", "EffectiveFrom").
	Project("effective_to", "EffectiveTo").
	Project("created_by", "CreatedBy").
	Project("created_at", "CreatedAt")

var historySort = []query.SortField{
	{Field: "EffectiveFrom", Descending: true},
}

var boundSort = []query.SortField{
	{Field: "Domain", Descending: false},
	{Field: "Key", Descending: false},
}

func scanStandard(s repository.Scanner) (Standard, error) {
	var st Standard
	err := s.Scan(
		&st.ID,
		&st.TenantID,
		&st.VenueID,
		&st.Domain,
		&st.Key,
		&st.Value,
		&st.EffectiveFrom,
		&st.EffectiveTo,
		&st.CreatedBy,
		&st.CreatedAt,
	)
	return st, err
}

func scanBound(s repository.Scanner) (Bound, error) {
	var b Bound
	err := s.Scan(
		&b.ID,
		&b.Domain,
		&b.Key,
		&b.MinValue,
		&b.MaxValue,
		&b.EffectiveFrom,
		&b.EffectiveTo,
		&b.CreatedBy,
		&b.CreatedAt,
	)
	return b, err
}
