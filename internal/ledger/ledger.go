// Package ledger implements the append-only enforcement event log. Every
// lifecycle transition, escalation, verification failure, and briefing
// review is recorded here; rows are never updated or deleted. The ledger
// is the authoritative history: a feedback object's current-state row is
// a projection that ReplayStatus can recompute and audit.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/backofhouse/steward/internal/enforcement"
	"github.com/backofhouse/steward/pkg/repository"
)

// Event is one recorded enforcement fact. FeedbackID is set for
// lifecycle events; briefing reviews carry venue and business date
// instead. FromStatus and ToStatus are set only on status-changing
// events.
type Event struct {
	ID           int64                 `json:"id"`
	TenantID     uuid.UUID             `json:"tenant_id"`
	VenueID      *uuid.UUID            `json:"venue_id,omitempty"`
	FeedbackID   *uuid.UUID            `json:"feedback_id,omitempty"`
	BusinessDate *time.Time            `json:"business_date,omitempty"`
	EventType    enforcement.EventType `json:"event_type"`
	Actor        string                `json:"actor"`
	ActorRole    *enforcement.Role     `json:"actor_role,omitempty"`
	FromStatus   *enforcement.Status   `json:"from_status,omitempty"`
	ToStatus     *enforcement.Status   `json:"to_status,omitempty"`
	Reason       *string               `json:"reason,omitempty"`
	Detail       json.RawMessage       `json:"detail,omitempty"`
	RecordedAt   time.Time             `json:"recorded_at"`
}

// AppendCommand carries the data for a new ledger entry. Detail is
// marshaled to JSON when non-nil.
type AppendCommand struct {
	TenantID     uuid.UUID
	VenueID      *uuid.UUID
	FeedbackID   *uuid.UUID
	BusinessDate *time.Time
	EventType    enforcement.EventType
	Actor        enforcement.Actor
	FromStatus   *enforcement.Status
	ToStatus     *enforcement.Status
	Reason       *string
	Detail       any
}

// Append writes one event inside the caller's transaction. Writers
// append in the same transaction as the state change they record, so the
// ledger and the projected row commit or roll back together.
func Append(ctx context.Context, q repository.Querier, cmd AppendCommand) (*Event, error) {
	if cmd.Actor.Subject == "" {
		return nil, fmt.Errorf("%w: actor subject required", ErrInvalidEvent)
	}

	var detail []byte
	if cmd.Detail != nil {
		var err error
		detail, err = json.Marshal(cmd.Detail)
		if err != nil {
			return nil, fmt.Errorf("marshal event detail: %w", err)
		}
	}

	var actorRole *enforcement.Role
	if role, ok := cmd.Actor.ActingRole(); ok {
		actorRole = &role
	}

	query := `
		INSERT INTO enforcement_events(tenant_id, venue_id, feedback_id, business_date, event_type, actor, actor_role, from_status, to_status, reason, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, tenant_id, venue_id, feedback_id, business_date, event_type, actor, actor_role, from_status, to_status, reason, detail, recorded_at`

	args := []any{
		cmd.TenantID,
		cmd.VenueID,
		cmd.FeedbackID,
		cmd.BusinessDate,
		cmd.EventType,
		cmd.Actor.Subject,
		actorRole,
		cmd.FromStatus,
		cmd.ToStatus,
		cmd.Reason,
		detail,
	}

	e, err := repository.QueryOne(ctx, q, query, args, scanEvent)
	if err != nil {
		return nil, fmt.Errorf("append enforcement event: %w", err)
	}

	return &e, nil
}
