package inbox

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/backofhouse/steward/internal/enforcement"
	"github.com/backofhouse/steward/internal/metrics"
	"github.com/backofhouse/steward/pkg/repository"
)

// Decision is the automation gate's answer for a venue and business
// date. CanProceed is false while any blocking item remains.
type Decision struct {
	CanProceed bool           `json:"can_proceed"`
	Blocking   []BlockingItem `json:"blocking"`
}

// BlockingItem identifies a feedback object holding the gate closed: a
// non-terminal critical that demands more than an acknowledgement. A
// nil venue means the item blocks every venue in the tenant.
type BlockingItem struct {
	ID         uuid.UUID          `json:"id"`
	VenueID    *uuid.UUID         `json:"venue_id,omitempty"`
	SignalType string             `json:"signal_type"`
	Title      string             `json:"title"`
	Status     enforcement.Status `json:"status"`
	DueAt      time.Time          `json:"due_at"`
}

const gateSQL = `
	SELECT id, venue_id, signal_type, title, status, due_at
	FROM feedback_objects
	WHERE tenant_id = $1
		AND (venue_id = $2 OR venue_id IS NULL)
		AND business_date <= $3
		AND status NOT IN ('resolved', 'waived', 'expired')
		AND severity = 'critical'
		AND response_required <> 'acknowledge'
	ORDER BY due_at`

// CanProceed answers whether automated ordering and scheduling may run
// for the venue on the given business date. Pure read; each check is
// counted but nothing changes state.
func (r *repo) CanProceed(ctx context.Context, tenantID, venueID uuid.UUID, date time.Time) (*Decision, error) {
	if tenantID == uuid.Nil || venueID == uuid.Nil {
		return nil, fmt.Errorf("%w: tenant and venue required", ErrInvalidRequest)
	}
	if date.IsZero() {
		return nil, fmt.Errorf("%w: business date required", ErrInvalidRequest)
	}

	blocking, err := repository.QueryMany(ctx, r.db, gateSQL, []any{tenantID, venueID, date}, scanBlocking)
	if err != nil {
		return nil, fmt.Errorf("query gate: %w", err)
	}

	decision := &Decision{
		CanProceed: len(blocking) == 0,
		Blocking:   blocking,
	}
	metrics.RecordGateCheck(!decision.CanProceed)
	return decision, nil
}

func scanBlocking(s repository.Scanner) (BlockingItem, error) {
	var item BlockingItem
	err := s.Scan(
		&item.ID,
		&item.VenueID,
		&item.SignalType,
		&item.Title,
		&item.Status,
		&item.DueAt,
	)
	return item, err
}
