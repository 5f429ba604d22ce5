package feedback

import (
	"encoding/json"
	"fmt"
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
	NewProjectionMap("public", "feedback_objects", "f").
	Project("id", "ID").
	Project("tenant_id", "TenantID").
	Project("venue_id", "VenueID").
	Project("business_date", "BusinessDate").
	Project("domain", "Domain").
	Project("origin", "Origin").
	Project("signal_type", "SignalType").
	Project("title", "Title").
	Project("message", "Message").
	Project("response_required", "ResponseRequired").
	Project("severity", "Severity").
	Project("owner_role", "OwnerRole").
	Project("assignee", "Assignee").
	Project("due_at", "DueAt").
	Project("status", "Status").
	Project("ack_at", "AckAt").
	Project("action_at", "ActionAt").
	Project("closed_at", "ClosedAt").
	Project("action_summary", "ActionSummary").
	Project("waive_reason", "WaiveReason").
	Project("resolve_reason", "ResolveReason").
	Project("evidence", "Evidence").
	Project("verification", "Verification").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var signalProjection = query.
	NewProjectionMap("public", "feedback_signals", "fs").
	Project("feedback_id", "FeedbackID").
	Join("public", "signals", "sg", "INNER JOIN", "fs.signal_id = sg.id").
	Project("id", "ID").
	Project("signal_type", "SignalType").
	Project("source", "Source").
	Project("severity", "Severity").
	Project("confidence", "Confidence").
	Project("created_at", "CreatedAt")

var defaultSort = []query.SortField{
	{Field: "CreatedAt", Descending: true},
}

var signalSort = []query.SortField{
	{Field: "CreatedAt", Descending: false},
}

// Filters contains optional filtering criteria for feedback queries.
// Nil fields are ignored. From is inclusive, To exclusive.
type Filters struct {
	VenueID    *uuid.UUID                 `json:"venue_id,omitempty"`
	Date       *time.Time                 `json:"business_date,omitempty"`
	From       *time.Time                 `json:"from,omitempty"`
	To         *time.Time                 `json:"to,omitempty"`
	Domain     *enforcement.Domain        `json:"domain,omitempty"`
	Severity   *enforcement.Severity      `json:"severity,omitempty"`
	Origin     *enforcement.Origin        `json:"origin,omitempty"`
	SignalType *string                    `json:"signal_type,omitempty"`
	OwnerRole  *enforcement.Role          `json:"owner_role,omitempty"`
	Statuses   []enforcement.Status       `json:"statuses,omitempty"`
	Responses  []enforcement.ResponseType `json:"responses,omitempty"`
	DueBefore  *time.Time                 `json:"due_before,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	b = b.
		WhereEquals("VenueID", f.VenueID).
		WhereEquals("BusinessDate", f.Date).
		WhereEquals("Domain", f.Domain).
		WhereEquals("Severity", f.Severity).
		WhereEquals("Origin", f.Origin).
		WhereEquals("SignalType", f.SignalType).
		WhereEquals("OwnerRole", f.OwnerRole).
		WhereAtLeast("BusinessDate", f.From).
		WhereBefore("BusinessDate", f.To).
		WhereBefore("DueAt", f.DueBefore)

	if len(f.Statuses) > 0 {
		statuses := make([]any, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = s
		}
		b = b.WhereIn("Status", statuses)
	}

	if len(f.Responses) > 0 {
		responses := make([]any, len(f.Responses))
		for i, r := range f.Responses {
			responses[i] = r
		}
		b = b.WhereIn("ResponseRequired", responses)
	}

	return b
}

// FiltersFromQuery extracts filter values from URL query parameters.
// Invalid values are skipped rather than rejected. The open parameter
// expands to every non-terminal status.
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

	if v := values.Get("origin"); v != "" {
		if o, err := enforcement.ParseOrigin(v); err == nil {
			f.Origin = &o
		}
	}

	if v := values.Get("signal_type"); v != "" {
		f.SignalType = &v
	}

	if v := values.Get("owner_role"); v != "" {
		if role, err := enforcement.ParseRole(v); err == nil {
			f.OwnerRole = &role
		}
	}

	if v := values.Get("status"); v != "" {
		for _, part := range strings.Split(v, ",") {
			if s, err := enforcement.ParseStatus(strings.TrimSpace(part)); err == nil {
				f.Statuses = append(f.Statuses, s)
			}
		}
	}

	if v := values.Get("due_before"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.DueBefore = &t
		}
	}

	if values.Get("open") == "true" && len(f.Statuses) == 0 {
		f.Statuses = enforcement.NonTerminalStatuses()
	}

	return f
}

func scanFeedback(s repository.Scanner) (Feedback, error) {
	var (
		f            Feedback
		evidence     []byte
		verification []byte
	)

	err := s.Scan(
		&f.ID,
		&f.TenantID,
		&f.VenueID,
		&f.BusinessDate,
		&f.Domain,
		&f.Origin,
		&f.SignalType,
		&f.Title,
		&f.Message,
		&f.ResponseRequired,
		&f.Severity,
		&f.OwnerRole,
		&f.Assignee,
		&f.DueAt,
		&f.Status,
		&f.AckAt,
		&f.ActionAt,
		&f.ClosedAt,
		&f.ActionSummary,
		&f.WaiveReason,
		&f.ResolveReason,
		&evidence,
		&verification,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		return f, err
	}

	if len(evidence) > 0 {
		if err := json.Unmarshal(evidence, &f.Evidence); err != nil {
			return f, fmt.Errorf("decode evidence for %s: %w", f.ID, err)
		}
	}

	if len(verification) > 0 {
		if err := json.Unmarshal(verification, &f.Verification); err != nil {
			return f, fmt.Errorf("decode verification for %s: %w", f.ID, err)
		}
	}

	return f, nil
}

func scanSignalRef(s repository.Scanner) (SignalRef, error) {
	var ref SignalRef
	err := s.Scan(
		&ref.ID,
		&ref.SignalType,
		&ref.Source,
		&ref.Severity,
		&ref.Confidence,
		&ref.CreatedAt,
	)
	return ref, err
}
