package signals

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/backofhouse/steward/internal/enforcement"
	"github.com/backofhouse/steward/internal/feedback"
	"github.com/backofhouse/steward/internal/metrics"
	"github.com/backofhouse/steward/pkg/pagination"
	"github.com/backofhouse/steward/pkg/query"
	"github.com/backofhouse/steward/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
	feedback   feedback.System
	floor      float64
}

// New creates a signals repository implementing the System interface.
// floor is the confidence threshold below which signals are stored but
// never open feedback.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config, fs feedback.System, floor float64) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "signals"),
		pagination: pagination,
		feedback:   fs,
		floor:      floor,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

const signalColumns = `id, tenant_id, venue_id, business_date, domain, signal_type, source,
		severity, confidence, impact_amount, impact_minutes, entity_ref, dedupe_key,
		payload, created_at`

const insertSQL = `
	INSERT INTO signals (
		id, tenant_id, venue_id, business_date, domain, signal_type, source,
		severity, confidence, impact_amount, impact_minutes, entity_ref,
		dedupe_key, payload
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	ON CONFLICT (tenant_id, venue_id, business_date, dedupe_key) DO NOTHING
	RETURNING ` + signalColumns

const duplicateSQL = `
	SELECT ` + signalColumns + `
	FROM signals
	WHERE tenant_id = $1
		AND venue_id IS NOT DISTINCT FROM $2
		AND business_date = $3
		AND dedupe_key = $4`

const linkedSQL = `
	SELECT feedback_id
	FROM feedback_signals
	WHERE signal_id = $1
	LIMIT 1`

const clustersSQL = `
	SELECT signal_type, COUNT(*)
	FROM signals
	WHERE tenant_id = $1
		AND venue_id IS NOT DISTINCT FROM $2
		AND severity = 'critical'
		AND business_date >= $3
	GROUP BY signal_type
	HAVING COUNT(*) >= $4
	ORDER BY COUNT(*) DESC, signal_type`

// Ingest stores one detector emission, deduplicating on the
// (tenant, venue, business date, dedupe key) identity. Actionable
// signals are handed to the feedback manager after storage; a failed
// handoff does not fail the ingest, since the stored signal lets a
// later duplicate repair the gap.
func (r *repo) Ingest(ctx context.Context, tenantID uuid.UUID, in SignalInput) (*IngestResult, error) {
	if tenantID == uuid.Nil {
		return nil, fmt.Errorf("%w: tenant is required", ErrInvalidRequest)
	}
	if err := in.Validate(); err != nil {
		metrics.RecordSignal(metrics.OutcomeRejected)
		return nil, err
	}

	stored, err := r.insert(ctx, tenantID, in)
	if err != nil {
		return nil, err
	}

	if stored == nil {
		return r.deduplicate(ctx, tenantID, in)
	}

	metrics.RecordSignal(metrics.OutcomeStored)
	result := &IngestResult{Signal: stored, Outcome: OutcomeStored}

	if r.actionable(in) {
		feedbackID, err := r.dispatch(ctx, stored, in)
		if err != nil {
			r.logger.Error("feedback intake failed",
				"signal", stored.ID,
				"signal_type", stored.SignalType,
				"error", err,
			)
		} else {
			result.FeedbackID = feedbackID
		}
	}

	r.logger.Info("signal stored",
		"signal", stored.ID,
		"signal_type", stored.SignalType,
		"severity", stored.Severity,
	)
	return result, nil
}

// IngestBatch ingests each input independently. One bad item never
// aborts its siblings; failures are reported in place.
func (r *repo) IngestBatch(ctx context.Context, tenantID uuid.UUID, inputs []SignalInput) ([]BatchResult, error) {
	results := make([]BatchResult, len(inputs))

	for i, in := range inputs {
		results[i] = BatchResult{Index: i}

		out, err := r.Ingest(ctx, tenantID, in)
		if err != nil {
			results[i].Error = err.Error()
			r.logger.Error("batch signal rejected",
				"index", i,
				"dedupe_key", in.DedupeKey,
				"error", err,
			)
			continue
		}

		results[i].Result = out
	}

	return results, nil
}

func (r *repo) Find(ctx context.Context, tenantID, id uuid.UUID) (*Signal, error) {
	findSQL, args := query.
		NewBuilder(projection).
		WhereEquals("TenantID", tenantID).
		WhereEquals("ID", id).
		BuildSingleOrNull()

	sig, err := repository.QueryOne(ctx, r.db, findSQL, args, scanSignal)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("find signal: %w", err)
	}

	return &sig, nil
}

func (r *repo) List(
	ctx context.Context,
	tenantID uuid.UUID,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Signal], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort...).
		WhereEquals("TenantID", tenantID).
		WhereSearch(page.Search, "SignalType", "DedupeKey", "EntityRef")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count signals: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanSignal)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

// CriticalClusters groups critical signals by type for one venue scope,
// counting occurrences on or after since. Only clusters reaching
// minCount are returned.
func (r *repo) CriticalClusters(ctx context.Context, tenantID uuid.UUID, venueID *uuid.UUID, since time.Time, minCount int) ([]Cluster, error) {
	return repository.QueryMany(ctx, r.db, clustersSQL,
		[]any{tenantID, venueID, since, minCount},
		func(s repository.Scanner) (Cluster, error) {
			var c Cluster
			return c, s.Scan(&c.SignalType, &c.Count)
		})
}

// insert attempts the dedupe-guarded insert. A nil signal with nil
// error means the key already existed.
func (r *repo) insert(ctx context.Context, tenantID uuid.UUID, in SignalInput) (*Signal, error) {
	var payload []byte
	if len(in.Payload) > 0 {
		payload = in.Payload
	}

	stored, err := repository.QueryOne(ctx, r.db, insertSQL, []any{
		uuid.New(),
		tenantID,
		in.VenueID,
		in.BusinessDate,
		in.Domain,
		in.SignalType,
		in.Source,
		in.Severity,
		in.Confidence,
		in.ImpactAmount,
		in.ImpactMinutes,
		in.EntityRef,
		in.DedupeKey,
		payload,
	}, scanSignal)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("insert signal: %w", err)
	}
	return &stored, nil
}

// deduplicate resolves a conflicting ingest against the stored row. If
// the signal should have opened feedback but none is linked, the
// earlier handoff failed and this duplicate repairs it.
func (r *repo) deduplicate(ctx context.Context, tenantID uuid.UUID, in SignalInput) (*IngestResult, error) {
	existing, err := repository.QueryOne(ctx, r.db, duplicateSQL,
		[]any{tenantID, in.VenueID, in.BusinessDate, in.DedupeKey}, scanSignal)
	if err != nil {
		return nil, fmt.Errorf("load duplicate signal: %w", err)
	}

	metrics.RecordSignal(metrics.OutcomeDeduplicated)

	feedbackID, err := r.linkedFeedback(ctx, existing.ID)
	if err != nil {
		return nil, err
	}

	if feedbackID == nil && r.actionable(in) {
		feedbackID, err = r.dispatch(ctx, &existing, in)
		if err != nil {
			r.logger.Error("feedback repair failed",
				"signal", existing.ID,
				"signal_type", existing.SignalType,
				"error", err,
			)
			feedbackID = nil
		}
	}

	r.logger.Info("signal deduplicated",
		"signal", existing.ID,
		"dedupe_key", in.DedupeKey,
	)
	return &IngestResult{
		Signal:     &existing,
		Outcome:    OutcomeDeduplicated,
		FeedbackID: feedbackID,
	}, nil
}

func (r *repo) linkedFeedback(ctx context.Context, signalID uuid.UUID) (*uuid.UUID, error) {
	id, err := repository.QueryOne(ctx, r.db, linkedSQL, []any{signalID},
		func(s repository.Scanner) (uuid.UUID, error) {
			var id uuid.UUID
			return id, s.Scan(&id)
		})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load signal link: %w", err)
	}
	return &id, nil
}

// actionable reports whether a signal warrants a feedback object:
// warning or worse, at or above the confidence floor.
func (r *repo) actionable(in SignalInput) bool {
	return in.Severity.Rank() >= enforcement.SeverityWarning.Rank() && in.Confidence >= r.floor
}

func (r *repo) dispatch(ctx context.Context, sig *Signal, in SignalInput) (*uuid.UUID, error) {
	out, err := r.feedback.Intake(ctx, feedback.IntakeCommand{
		SignalID:      sig.ID,
		TenantID:      sig.TenantID,
		VenueID:       sig.VenueID,
		BusinessDate:  sig.BusinessDate,
		Domain:        sig.Domain,
		SignalType:    sig.SignalType,
		Source:        sig.Source,
		Severity:      sig.Severity,
		Confidence:    sig.Confidence,
		EntityRef:     sig.EntityRef,
		ImpactAmount:  sig.ImpactAmount,
		ImpactMinutes: sig.ImpactMinutes,
		Evidence:      in.Evidence,
		Verification:  in.Verification,
	})
	if err != nil {
		return nil, err
	}
	return &out.Feedback.ID, nil
}
