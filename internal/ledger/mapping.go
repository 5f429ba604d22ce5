package ledger

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/backofhouse/steward/internal/enforcement"
	"github.com/backofhouse/steward/pkg/formatting"
	"github.com/backofhouse/steward/pkg/query"
	"github.com/backofhouse/steward/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "enforcement_events", "e").
	Project("id", "ID").
	Project("tenant_id", "TenantID").
	Project("venue_id", "VenueID").
	Project("feedback_id", "FeedbackID").
	Project("business_date", "BusinessDate").
	Project("event_type", "EventType").
	Project("actor", "Actor").
	Project("actor_role", "ActorRole").
	Project("from_status", "FromStatus").
	Project("to_status", "ToStatus").
	Project("reason", "Reason").
	Project("detail", "Detail").
	Project("recorded_at", "RecordedAt")

var defaultSort = []query.SortField{
	{Field: "RecordedAt", Descending: true},
	{Field: "ID", Descending: true},
}

var replaySort = []query.SortField{
	{Field: "ID", Descending: false},
}

// Filters contains optional filtering criteria for audit feed queries.
// Nil fields are ignored. From is inclusive, To exclusive.
type Filters struct {
	VenueID    *uuid.UUID              `json:"venue_id,omitempty"`
	FeedbackID *uuid.UUID              `json:"feedback_id,omitempty"`
	EventTypes []enforcement.EventType `json:"event_types,omitempty"`
	Actor      *string                 `json:"actor,omitempty"`
	From       *time.Time              `json:"from,omitempty"`
	To         *time.Time              `json:"to,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	b = b.
		WhereEquals("VenueID", f.VenueID).
		WhereEquals("FeedbackID", f.FeedbackID).
		WhereEquals("Actor", f.Actor).
		WhereAtLeast("RecordedAt", f.From).
		WhereBefore("RecordedAt", f.To)

	if len(f.EventTypes) > 0 {
		types := make([]any, len(f.EventTypes))
		for i, t := range f.EventTypes {
			types[i] = t
		}
		b = b.WhereIn("EventType", types)
	}

	return b
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

	if v := values.Get("feedback_id"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			f.FeedbackID = &id
		}
	}

	if v := values.Get("type"); v != "" {
		for _, part := range strings.Split(v, ",") {
			if t, err := enforcement.ParseEventType(strings.TrimSpace(part)); err == nil {
				f.EventTypes = append(f.EventTypes, t)
			}
		}
	}

	if v := values.Get("actor"); v != "" {
		f.Actor = &v
	}

	if v := values.Get("from"); v != "" {
		if t, ok := parseTime(v); ok {
			f.From = &t
		}
	}

	if v := values.Get("to"); v != "" {
		if t, ok := parseTime(v); ok {
			f.To = &t
		}
	}

	return f
}

func parseTime(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := formatting.ParseBusinessDate(s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func scanEvent(s repository.Scanner) (Event, error) {
	var e Event
	err := s.Scan(
		&e.ID,
		&e.TenantID,
		&e.VenueID,
		&e.FeedbackID,
		&e.BusinessDate,
		&e.EventType,
		&e.Actor,
		&e.ActorRole,
		&e.FromStatus,
		&e.ToStatus,
		&e.Reason,
		&e.Detail,
		&e.RecordedAt,
	)
	return e, err
}
