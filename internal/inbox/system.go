package inbox

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/backofhouse/steward/internal/enforcement"
)

// System defines inbox, briefing, and gate operations.
type System interface {
	Handler() *Handler

	Inbox(ctx context.Context, tenantID uuid.UUID, q Query) (*View, error)

	RecordReview(ctx context.Context, actor enforcement.Actor, cmd ReviewCommand) (*Briefing, error)
	FindBriefing(ctx context.Context, tenantID, venueID uuid.UUID, date time.Time) (*Briefing, error)

	// Archive streams the archived snapshot of a reviewed briefing. The
	// caller must close the reader.
	Archive(ctx context.Context, tenantID, venueID uuid.UUID, date time.Time) (io.ReadCloser, error)

	CanProceed(ctx context.Context, tenantID, venueID uuid.UUID, date time.Time) (*Decision, error)
}
