package signals

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/backofhouse/steward/pkg/pagination"
)

// System defines the contract for signal intake and retrieval.
type System interface {
	Handler() *Handler

	Ingest(ctx context.Context, tenantID uuid.UUID, in SignalInput) (*IngestResult, error)
	IngestBatch(ctx context.Context, tenantID uuid.UUID, inputs []SignalInput) ([]BatchResult, error)

	Find(ctx context.Context, tenantID, id uuid.UUID) (*Signal, error)
	List(ctx context.Context, tenantID uuid.UUID, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Signal], error)
	CriticalClusters(ctx context.Context, tenantID uuid.UUID, venueID *uuid.UUID, since time.Time, minCount int) ([]Cluster, error)
}
