package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/backofhouse/steward/pkg/pagination"
	"github.com/backofhouse/steward/pkg/query"
	"github.com/backofhouse/steward/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a ledger repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "ledger"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	tenantID uuid.UUID,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Event], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort...).
		WhereEquals("TenantID", tenantID).
		WhereSearch(page.Search, "Actor", "Reason")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count enforcement events: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	events, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanEvent)
	if err != nil {
		return nil, fmt.Errorf("query enforcement events: %w", err)
	}

	result := pagination.NewPageResult(events, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) ListByFeedback(ctx context.Context, tenantID, feedbackID uuid.UUID) ([]Event, error) {
	qb := query.
		NewBuilder(projection).
		WhereEquals("TenantID", tenantID).
		WhereEquals("FeedbackID", feedbackID).
		OrderByFields(replaySort)

	listSQL, args := qb.Build()
	events, err := repository.QueryMany(ctx, r.db, listSQL, args, scanEvent)
	if err != nil {
		return nil, fmt.Errorf("query feedback events: %w", err)
	}

	return events, nil
}
