package inbox

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/backofhouse/steward/internal/enforcement"
	"github.com/backofhouse/steward/internal/ledger"
	"github.com/backofhouse/steward/pkg/formatting"
	"github.com/backofhouse/steward/pkg/repository"
	"github.com/backofhouse/steward/pkg/storage"
)

type repo struct {
	db      *sql.DB
	logger  *slog.Logger
	storage storage.System
}

// New creates the inbox system backed by the feedback tables, the
// briefings table, and blob storage for snapshot archives.
func New(db *sql.DB, logger *slog.Logger, store storage.System) System {
	return &repo{
		db:      db,
		logger:  logger.With("system", "inbox"),
		storage: store,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger)
}

const itemColumns = `id, venue_id, business_date, domain, origin, signal_type, title, severity, owner_role, response_required, status, due_at, created_at`

// Tenant-wide items (null venue) appear in every venue's view. Ranked
// severity first so criticals surface regardless of age, oldest first
// within a rank so nothing hides at the bottom.
const inboxSQL = `
	SELECT ` + itemColumns + `
	FROM feedback_objects
	WHERE tenant_id = $1
		AND ($2::uuid IS NULL OR venue_id = $2 OR venue_id IS NULL)
		AND ($3::timestamptz IS NULL OR business_date >= $3)
		AND ($4::timestamptz IS NULL OR business_date < $4)
		AND status NOT IN ('resolved', 'waived', 'expired')
	ORDER BY
		CASE severity WHEN 'critical' THEN 2 WHEN 'warning' THEN 1 ELSE 0 END DESC,
		created_at`

func (r *repo) Inbox(ctx context.Context, tenantID uuid.UUID, q Query) (*View, error) {
	if tenantID == uuid.Nil {
		return nil, fmt.Errorf("%w: tenant required", ErrInvalidRequest)
	}

	items, err := repository.QueryMany(ctx, r.db, inboxSQL, []any{tenantID, q.VenueID, q.From, q.To}, scanItem)
	if err != nil {
		return nil, fmt.Errorf("query inbox: %w", err)
	}

	return &View{
		Items:  items,
		Counts: deriveCounts(items, time.Now().UTC()),
	}, nil
}

const briefingColumns = `id, tenant_id, venue_id, business_date, reviewed_by, reviewed_at, open_count, critical_count, escalated_count, snapshot, archive_key`

const tallySQL = `
	SELECT domain, severity, status, COUNT(*)
	FROM feedback_objects
	WHERE tenant_id = $1
		AND (venue_id = $2 OR venue_id IS NULL)
		AND status NOT IN ('resolved', 'waived', 'expired')
	GROUP BY domain, severity, status`

const insertBriefingSQL = `
	INSERT INTO briefings(id, tenant_id, venue_id, business_date, reviewed_by, reviewed_at, open_count, critical_count, escalated_count, snapshot)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	RETURNING ` + briefingColumns

const forceBriefingSQL = `
	INSERT INTO briefings(id, tenant_id, venue_id, business_date, reviewed_by, reviewed_at, open_count, critical_count, escalated_count, snapshot)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (venue_id, business_date) DO UPDATE SET
		reviewed_by = EXCLUDED.reviewed_by,
		reviewed_at = EXCLUDED.reviewed_at,
		open_count = EXCLUDED.open_count,
		critical_count = EXCLUDED.critical_count,
		escalated_count = EXCLUDED.escalated_count,
		snapshot = EXCLUDED.snapshot,
		archive_key = NULL
	RETURNING ` + briefingColumns

const setArchiveKeySQL = `UPDATE briefings SET archive_key = $2 WHERE id = $1`

type reviewTally struct {
	open      int
	critical  int
	escalated int
	byDomain  map[enforcement.Domain]int
}

type reviewDetail struct {
	Open      int  `json:"open"`
	Critical  int  `json:"critical"`
	Escalated int  `json:"escalated"`
	Forced    bool `json:"forced,omitempty"`
}

func (r *repo) RecordReview(ctx context.Context, actor enforcement.Actor, cmd ReviewCommand) (*Briefing, error) {
	if actor.TenantID == uuid.Nil {
		return nil, fmt.Errorf("%w: tenant required", ErrInvalidRequest)
	}
	if cmd.VenueID == uuid.Nil {
		return nil, fmt.Errorf("%w: venue required", ErrInvalidRequest)
	}
	if cmd.BusinessDate.IsZero() {
		return nil, fmt.Errorf("%w: business date required", ErrInvalidRequest)
	}

	briefing, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (*Briefing, error) {
		tally, err := r.tallyReview(ctx, tx, actor.TenantID, cmd.VenueID)
		if err != nil {
			return nil, err
		}

		snapshot, err := json.Marshal(tally.byDomain)
		if err != nil {
			return nil, fmt.Errorf("marshal briefing snapshot: %w", err)
		}

		insertSQL := insertBriefingSQL
		if cmd.Force {
			insertSQL = forceBriefingSQL
		}

		args := []any{
			uuid.New(),
			actor.TenantID,
			cmd.VenueID,
			cmd.BusinessDate,
			actor.Subject,
			time.Now().UTC(),
			tally.open,
			tally.critical,
			tally.escalated,
			snapshot,
		}

		b, err := repository.QueryOne(ctx, tx, insertSQL, args, scanBriefing)
		if err != nil {
			return nil, repository.MapError(err, ErrNotFound, ErrAlreadyReviewed)
		}

		date := cmd.BusinessDate
		_, err = ledger.Append(ctx, tx, ledger.AppendCommand{
			TenantID:     actor.TenantID,
			VenueID:      &cmd.VenueID,
			BusinessDate: &date,
			EventType:    enforcement.EventBriefingReview,
			Actor:        actor,
			Detail: reviewDetail{
				Open:      tally.open,
				Critical:  tally.critical,
				Escalated: tally.escalated,
				Forced:    cmd.Force,
			},
		})
		if err != nil {
			return nil, err
		}

		return &b, nil
	})
	if err != nil {
		return nil, err
	}

	r.archive(ctx, briefing)

	r.logger.Info("briefing reviewed",
		"venue", cmd.VenueID,
		"date", formatting.FormatBusinessDate(cmd.BusinessDate),
		"reviewer", actor.Subject,
		"forced", cmd.Force,
	)
	return briefing, nil
}

func (r *repo) tallyReview(ctx context.Context, q repository.Querier, tenantID, venueID uuid.UUID) (reviewTally, error) {
	tally := reviewTally{byDomain: make(map[enforcement.Domain]int)}

	type bucket struct {
		domain   enforcement.Domain
		severity enforcement.Severity
		status   enforcement.Status
		count    int
	}

	buckets, err := repository.QueryMany(ctx, q, tallySQL, []any{tenantID, venueID}, func(s repository.Scanner) (bucket, error) {
		var b bucket
		err := s.Scan(&b.domain, &b.severity, &b.status, &b.count)
		return b, err
	})
	if err != nil {
		return tally, fmt.Errorf("tally briefing counts: %w", err)
	}

	for _, b := range buckets {
		tally.open += b.count
		tally.byDomain[b.domain] += b.count
		if b.severity == enforcement.SeverityCritical {
			tally.critical += b.count
		}
		if b.status == enforcement.StatusEscalated {
			tally.escalated += b.count
		}
	}
	return tally, nil
}

// archiveKey is the blob location of a briefing's frozen snapshot.
func archiveKey(venueID uuid.UUID, date time.Time) string {
	return fmt.Sprintf("briefings/%s/%s.json", venueID, formatting.FormatBusinessDate(date))
}

// archive uploads the frozen briefing and records its key. The review
// already committed; a failed upload is logged and the key stays null.
func (r *repo) archive(ctx context.Context, b *Briefing) {
	key := archiveKey(b.VenueID, b.BusinessDate)

	payload, err := json.Marshal(b)
	if err != nil {
		r.logger.Error("briefing archive failed", "briefing", b.ID, "error", err)
		return
	}

	if err := r.storage.Upload(ctx, key, bytes.NewReader(payload), "application/json"); err != nil {
		r.logger.Error("briefing archive failed", "briefing", b.ID, "key", key, "error", err)
		return
	}

	if _, err := repository.ExecRows(ctx, r.db, setArchiveKeySQL, b.ID, key); err != nil {
		r.logger.Error("briefing archive key update failed", "briefing", b.ID, "error", err)
		return
	}

	b.ArchiveKey = &key
}

const findBriefingSQL = `
	SELECT ` + briefingColumns + `
	FROM briefings
	WHERE tenant_id = $1 AND venue_id = $2 AND business_date = $3`

func (r *repo) FindBriefing(ctx context.Context, tenantID, venueID uuid.UUID, date time.Time) (*Briefing, error) {
	b, err := repository.QueryOne(ctx, r.db, findBriefingSQL, []any{tenantID, venueID, date}, scanBriefing)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s on %s", ErrNotFound, venueID, formatting.FormatBusinessDate(date))
		}
		return nil, fmt.Errorf("find briefing: %w", err)
	}

	return &b, nil
}

// Archive resolves the briefing through the tenant-scoped lookup before
// touching storage, so callers can only reach their own snapshots.
func (r *repo) Archive(ctx context.Context, tenantID, venueID uuid.UUID, date time.Time) (io.ReadCloser, error) {
	b, err := r.FindBriefing(ctx, tenantID, venueID, date)
	if err != nil {
		return nil, err
	}
	if b.ArchiveKey == nil {
		return nil, fmt.Errorf("%w: no archive for %s on %s", ErrNotFound, venueID, formatting.FormatBusinessDate(date))
	}

	body, err := r.storage.Download(ctx, *b.ArchiveKey)
	if err != nil {
		return nil, fmt.Errorf("download archive %s: %w", *b.ArchiveKey, err)
	}
	return body, nil
}

func scanItem(s repository.Scanner) (Item, error) {
	var item Item
	err := s.Scan(
		&item.ID,
		&item.VenueID,
		&item.BusinessDate,
		&item.Domain,
		&item.Origin,
		&item.SignalType,
		&item.Title,
		&item.Severity,
		&item.OwnerRole,
		&item.ResponseRequired,
		&item.Status,
		&item.DueAt,
		&item.CreatedAt,
	)
	return item, err
}

func scanBriefing(s repository.Scanner) (Briefing, error) {
	var (
		b        Briefing
		snapshot []byte
	)

	err := s.Scan(
		&b.ID,
		&b.TenantID,
		&b.VenueID,
		&b.BusinessDate,
		&b.ReviewedBy,
		&b.ReviewedAt,
		&b.OpenCount,
		&b.CriticalCount,
		&b.EscalatedCount,
		&snapshot,
		&b.ArchiveKey,
	)
	if err != nil {
		return b, err
	}

	if len(snapshot) > 0 {
		if err := json.Unmarshal(snapshot, &b.Snapshot); err != nil {
			return b, fmt.Errorf("decode briefing snapshot for %s: %w", b.ID, err)
		}
	}

	return b, nil
}
