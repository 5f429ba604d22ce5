package ledger

import (
	"context"

	"github.com/google/uuid"

	"github.com/backofhouse/steward/pkg/pagination"
)

// System defines the read contract for the enforcement ledger. Writes go
// through Append inside the writer's own transaction.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		tenantID uuid.UUID,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Event], error)

	ListByFeedback(ctx context.Context, tenantID, feedbackID uuid.UUID) ([]Event, error)
}
