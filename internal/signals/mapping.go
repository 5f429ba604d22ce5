package signals

import (
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/backofhouse/steward/internal/enforcement"
	"github.com/backofhouse/steward/pkg/formatting"
	"github.com/backofhouse/steward/pkg/query"
	"github.com/backofhouse/steward/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "signals", "s").
	Project("id", "ID").
	Project("tenant_id", "TenantID").
	Project("venue_id", "VenueID").
	Project("business_date", "BusinessDate").
	Project("domain", "Domain").
	Project("signal_type", "SignalType").
	Project("source", "Source").
	Project("severity", "Severity").
	Project("confidence", "Confidence").
	Project("impact_amount", "ImpactAmount").
	Project("impact_minutes", "ImpactMinutes").
	Project("entity_ref", "EntityRef").
	Project("dedupe_key", "DedupeKey").
	Project("payload", "Payload").
	Project("created_at", "CreatedAt")

var defaultSort = []query.SortField{
	{Field: "CreatedAt", Descending: true},
}

// Filters contains optional filtering criteria for signal queries.
// Nil fields are ignored. From is inclusive, To exclusive.
type Filters struct {
	VenueID    *uuid.UUID            `json:"venue_id,omitempty"`
	Date       *time.Time            `json:"business_date,omitempty"`
	From       *time.Time            `json:"from,omitempty"`
	To         *time.Time            `json:"to,omitempty"`
	Domain     *enforcement.Domain   `json:"domain,omitempty"`
	Severity   *enforcement.Severity `json:"severity,omitempty"`
	Source     *enforcement.Source   `json:"source,omitempty"`
	SignalType *string               `json:"signal_type,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("VenueID", f.VenueID).
		WhereEquals("BusinessDate", f.Date).
		WhereEquals("Domain", f.Domain).
		WhereEquals("Severity", f.Severity).
		WhereEquals("Source", f.Source).
		WhereEquals("SignalType", f.SignalType).
		WhereAtLeast("BusinessDate", f.From).
		WhereBefore("BusinessDate", f.To)
}

// FiltersFromQuery extracts filter values from URL query parameters.
// Invalid values are skipped rather than rejected.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if v := values.Get("venue_id"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			f.VenueID = &id
		}
	}

	if v := values.Get("business_date"); v != "" {
		if d, err := formatting.ParseBusinessDate(v); err == nil {
			f.Date = &d
		}
	}

	if v := values.Get("from"); v != "" {
		if d, err := formatting.ParseBusinessDate(v); err == nil {
			f.From = &d
		}
	}

	if v := values.Get("to"); v != "" {
		if d, err := formatting.ParseBusinessDate(v); err == nil {
			f.To = &d
		}
	}

	if v := values.Get("domain"); v != "" {
		if d, err := enforcement.ParseDomain(v); err == nil {
			f.Domain = &d
		}
	}

	if v := values.Get("severity"); v != "" {
		if s, err := enforcement.ParseSeverity(v); err == nil {
			f.Severity = &s
		}
	}

	if v := values.Get("source"); v != "" {
		if s, err := enforcement.ParseSource(v); err == nil {
			f.Source = &s
		}
	}

	if v := values.Get("signal_type"); v != "" {
		f.SignalType = &v
	}

	return f
}

func scanSignal(s repository.Scanner) (Signal, error) {
	var (
		sig     Signal
		payload []byte
	)

	err := s.Scan(
		&sig.ID,
		&sig.TenantID,
		&sig.VenueID,
		&sig.BusinessDate,
		&sig.Domain,
		&sig.SignalType,
		&sig.Source,
		&sig.Severity,
		&sig.Confidence,
		&sig.ImpactAmount,
		&sig.ImpactMinutes,
		&sig.EntityRef,
		&sig.DedupeKey,
		&payload,
		&sig.CreatedAt,
	)
	if err != nil {
		return sig, err
	}

	sig.Payload = payload
	return sig, nil
}
