package feedback

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/backofhouse/steward/internal/enforcement"
	"github.com/backofhouse/steward/internal/ledger"
	"github.com/backofhouse/steward/internal/metrics"
	"github.com/backofhouse/steward/pkg/pagination"
	"github.com/backofhouse/steward/pkg/query"
	"github.com/backofhouse/steward/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
	runtime    Runtime
}

// New creates a feedback repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config, runtime Runtime) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "feedback"),
		pagination: pagination,
		runtime:    runtime,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

const feedbackColumns = `id, tenant_id, venue_id, business_date, domain, origin, signal_type,
		title, message, response_required, severity, owner_role, assignee, due_at,
		status, ack_at, action_at, closed_at, action_summary, waive_reason,
		resolve_reason, evidence, verification, created_at, updated_at`

const insertSQL = `
	INSERT INTO feedback_objects (
		id, tenant_id, venue_id, business_date, domain, origin, signal_type,
		title, message, response_required, severity, owner_role, due_at,
		status, evidence, verification
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	RETURNING ` + feedbackColumns

const groupSQL = `
	SELECT ` + feedbackColumns + `
	FROM feedback_objects
	WHERE tenant_id = $1
		AND venue_id IS NOT DISTINCT FROM $2
		AND business_date = $3
		AND domain = $4
		AND signal_type = $5
		AND status NOT IN ('resolved', 'waived', 'expired')
	ORDER BY created_at
	LIMIT 1`

const linkSQL = `
	INSERT INTO feedback_signals (feedback_id, signal_id)
	VALUES ($1, $2)
	ON CONFLICT DO NOTHING`

func (r *repo) Intake(ctx context.Context, cmd IntakeCommand) (*IntakeResult, error) {
	if cmd.SignalID == uuid.Nil || cmd.TenantID == uuid.Nil {
		return nil, fmt.Errorf("%w: signal and tenant are required", ErrInvalidRequest)
	}
	if cmd.SignalType == "" {
		return nil, fmt.Errorf("%w: signal type is required", ErrInvalidRequest)
	}

	now := time.Now().UTC()

	return repository.WithTx(ctx, r.db, func(tx *sql.Tx) (*IntakeResult, error) {
		existing, err := r.groupTarget(ctx, tx, cmd)
		if err != nil {
			return nil, err
		}

		if existing != nil {
			if _, err := repository.ExecRows(ctx, tx, linkSQL, existing.ID, cmd.SignalID); err != nil {
				return nil, fmt.Errorf("link signal: %w", err)
			}

			r.logger.Info("signal linked to open feedback",
				"feedback", existing.ID,
				"signal", cmd.SignalID,
			)
			return &IntakeResult{Feedback: existing, Linked: true}, nil
		}

		snapshot, resolved := r.freeze(ctx, cmd.TenantID, cmd.VenueID, cmd.Domain, cmd.Evidence, now)
		response := deriveResponse(cmd.Severity, cmd.Evidence)

		contract := cmd.Verification
		if contract != nil {
			if err := contract.Validate(); err != nil {
				return nil, err
			}
		} else if response == enforcement.ResponseResolve {
			contract = synthesizeVerification(snapshot)
		}

		created, err := r.insert(ctx, tx, insertRow{
			tenantID:     cmd.TenantID,
			venueID:      cmd.VenueID,
			businessDate: cmd.BusinessDate,
			domain:       cmd.Domain,
			origin:       enforcement.OriginSignal,
			signalType:   cmd.SignalType,
			title:        titleFor(cmd.SignalType),
			message:      messageFor(snapshot, resolved),
			response:     response,
			severity:     cmd.Severity,
			dueAt:        r.runtime.Timing.DueAt(cmd.BusinessDate, cmd.Severity),
			evidence:     snapshot,
			verification: contract,
		})
		if err != nil {
			return nil, err
		}

		if _, err := repository.ExecRows(ctx, tx, linkSQL, created.ID, cmd.SignalID); err != nil {
			return nil, fmt.Errorf("link signal: %w", err)
		}

		reason := "signal intake"
		if err := r.recordCreation(ctx, tx, created, enforcement.SystemActor(cmd.TenantID), &reason, map[string]any{
			"signal_id": cmd.SignalID,
		}); err != nil {
			return nil, err
		}

		r.logger.Info("feedback opened",
			"feedback", created.ID,
			"signal", cmd.SignalID,
			"severity", created.Severity,
			"response", created.ResponseRequired,
		)
		return &IntakeResult{Feedback: created, Linked: false}, nil
	})
}

func (r *repo) Import(ctx context.Context, actor enforcement.Actor, cmd ImportCommand) (*Feedback, error) {
	if cmd.SignalType == "" || cmd.Title == "" {
		return nil, fmt.Errorf("%w: signal type and title are required", ErrInvalidRequest)
	}
	if cmd.BusinessDate.IsZero() {
		return nil, fmt.Errorf("%w: business date is required", ErrInvalidRequest)
	}
	if cmd.Evidence != nil {
		if err := cmd.Evidence.Validate(); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	snapshot, _ := r.freeze(ctx, actor.TenantID, cmd.VenueID, cmd.Domain, cmd.Evidence, now)

	response := cmd.ResponseRequired
	if response == "" {
		response = deriveResponse(cmd.Severity, cmd.Evidence)
	}

	contract := cmd.Verification
	if contract != nil {
		if err := contract.Validate(); err != nil {
			return nil, err
		}
	} else if response == enforcement.ResponseResolve && cmd.Severity == enforcement.SeverityCritical {
		contract = synthesizeVerification(snapshot)
	}

	dueAt := r.runtime.Timing.DueAt(cmd.BusinessDate, cmd.Severity)
	if cmd.DueAt != nil {
		dueAt = *cmd.DueAt
	}

	return repository.WithTx(ctx, r.db, func(tx *sql.Tx) (*Feedback, error) {
		created, err := r.insert(ctx, tx, insertRow{
			tenantID:     actor.TenantID,
			venueID:      cmd.VenueID,
			businessDate: cmd.BusinessDate,
			domain:       cmd.Domain,
			origin:       enforcement.OriginImported,
			signalType:   cmd.SignalType,
			title:        cmd.Title,
			message:      cmd.Message,
			response:     response,
			severity:     cmd.Severity,
			dueAt:        dueAt,
			evidence:     snapshot,
			verification: contract,
		})
		if err != nil {
			return nil, err
		}

		reason := "imported"
		if err := r.recordCreation(ctx, tx, created, actor, &reason, nil); err != nil {
			return nil, err
		}

		r.logger.Info("feedback imported",
			"feedback", created.ID,
			"actor", actor.Subject,
			"severity", created.Severity,
		)
		return created, nil
	})
}

type insertRow struct {
	tenantID     uuid.UUID
	venueID      *uuid.UUID
	businessDate time.Time
	domain       enforcement.Domain
	origin       enforcement.Origin
	signalType   string
	title        string
	message      string
	response     enforcement.ResponseType
	severity     enforcement.Severity
	dueAt        time.Time
	evidence     *EvidenceSnapshot
	verification *enforcement.Verification
}

func (r *repo) insert(ctx context.Context, tx *sql.Tx, row insertRow) (*Feedback, error) {
	var evidence, verification []byte

	if row.evidence != nil {
		data, err := json.Marshal(row.evidence)
		if err != nil {
			return nil, fmt.Errorf("encode evidence: %w", err)
		}
		evidence = data
	}

	if row.verification != nil {
		data, err := json.Marshal(row.verification)
		if err != nil {
			return nil, fmt.Errorf("encode verification: %w", err)
		}
		verification = data
	}

	args := []any{
		uuid.New(),
		row.tenantID,
		row.venueID,
		row.businessDate,
		row.domain,
		row.origin,
		row.signalType,
		row.title,
		row.message,
		row.response,
		row.severity,
		enforcement.RoleVenueManager,
		row.dueAt,
		enforcement.StatusOpen,
		evidence,
		verification,
	}

	created, err := repository.QueryOne(ctx, tx, insertSQL, args, scanFeedback)
	if err != nil {
		return nil, fmt.Errorf("insert feedback: %w", err)
	}

	return &created, nil
}

// recordCreation writes the lifecycle's opening event: no prior status,
// landing on open.
func (r *repo) recordCreation(
	ctx context.Context,
	tx *sql.Tx,
	f *Feedback,
	actor enforcement.Actor,
	reason *string,
	detail any,
) error {
	businessDate := f.BusinessDate
	open := enforcement.StatusOpen

	_, err := ledger.Append(ctx, tx, ledger.AppendCommand{
		TenantID:     f.TenantID,
		VenueID:      f.VenueID,
		FeedbackID:   &f.ID,
		BusinessDate: &businessDate,
		EventType:    enforcement.EventTransition,
		Actor:        actor,
		ToStatus:     &open,
		Reason:       reason,
		Detail:       detail,
	})
	return err
}

func (r *repo) groupTarget(ctx context.Context, tx *sql.Tx, cmd IntakeCommand) (*Feedback, error) {
	args := []any{cmd.TenantID, cmd.VenueID, cmd.BusinessDate, cmd.Domain, cmd.SignalType}

	existing, err := repository.QueryOne(ctx, tx, groupSQL, args, scanFeedback)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find grouping target: %w", err)
	}

	return &existing, nil
}

const casUpdateSQL = `
	UPDATE feedback_objects
	SET status = $3,
		owner_role = COALESCE($4, owner_role),
		ack_at = COALESCE($5, ack_at),
		action_at = COALESCE($6, action_at),
		closed_at = COALESCE($7, closed_at),
		action_summary = COALESCE($8, action_summary),
		waive_reason = COALESCE($9, waive_reason),
		resolve_reason = COALESCE($10, resolve_reason),
		updated_at = now()
	WHERE id = $1 AND status = $2
	RETURNING ` + feedbackColumns

// patch carries the action-specific columns a transition writes
// alongside the status change.
type patch struct {
	ownerRole     *enforcement.Role
	actionSummary *string
	waiveReason   *string
	resolveReason *string
}

// applyTx validates one action against the state machine, performs a
// compare-and-set on the current status, and appends the matching
// ledger event. A zero-row update means the object moved concurrently.
func (r *repo) applyTx(
	ctx context.Context,
	tx *sql.Tx,
	actor enforcement.Actor,
	current *Feedback,
	action enforcement.Action,
	p patch,
	eventType enforcement.EventType,
	reason *string,
	detail any,
) (*Feedback, error) {
	tr, err := enforcement.Apply(current.Status, action, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	args := []any{
		current.ID,
		current.Status,
		tr.To,
		p.ownerRole,
		tr.AcknowledgedAt,
		tr.ActionSubmittedAt,
		tr.ClosedAt,
		p.actionSummary,
		p.waiveReason,
		p.resolveReason,
	}

	updated, err := repository.QueryOne(ctx, tx, casUpdateSQL, args, scanFeedback)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s no longer %s", ErrConflict, current.ID, current.Status)
		}
		return nil, fmt.Errorf("update feedback: %w", err)
	}

	from := current.Status
	businessDate := current.BusinessDate

	if _, err := ledger.Append(ctx, tx, ledger.AppendCommand{
		TenantID:     current.TenantID,
		VenueID:      current.VenueID,
		FeedbackID:   &current.ID,
		BusinessDate: &businessDate,
		EventType:    eventType,
		Actor:        actor,
		FromStatus:   &from,
		ToStatus:     &updated.Status,
		Reason:       reason,
		Detail:       detail,
	}); err != nil {
		return nil, err
	}

	metrics.RecordTransition(string(action))
	return &updated, nil
}

func (r *repo) findTx(ctx context.Context, tx *sql.Tx, tenantID, id uuid.UUID) (*Feedback, error) {
	findSQL, args := query.
		NewBuilder(projection).
		WhereEquals("TenantID", tenantID).
		WhereEquals("ID", id).
		BuildSingleOrNull()

	f, err := repository.QueryOne(ctx, tx, findSQL, args, scanFeedback)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("find feedback: %w", err)
	}

	return &f, nil
}

func (r *repo) Acknowledge(ctx context.Context, actor enforcement.Actor, id uuid.UUID) (*Feedback, error) {
	return repository.WithTx(ctx, r.db, func(tx *sql.Tx) (*Feedback, error) {
		f, err := r.findTx(ctx, tx, actor.TenantID, id)
		if err != nil {
			return nil, err
		}

		updated, err := r.applyTx(ctx, tx, actor, f, enforcement.ActionAcknowledge, patch{}, enforcement.EventTransition, nil, nil)
		if err != nil {
			return nil, err
		}

		r.logger.Info("feedback acknowledged", "feedback", id, "actor", actor.Subject)
		return updated, nil
	})
}

func (r *repo) SubmitAction(ctx context.Context, actor enforcement.Actor, id uuid.UUID, cmd SubmitActionCommand) (*Feedback, error) {
	summary := strings.TrimSpace(cmd.Summary)
	if summary == "" {
		return nil, fmt.Errorf("%w: action summary is required", ErrInvalidRequest)
	}

	return repository.WithTx(ctx, r.db, func(tx *sql.Tx) (*Feedback, error) {
		f, err := r.findTx(ctx, tx, actor.TenantID, id)
		if err != nil {
			return nil, err
		}

		if !f.ResponseRequired.ExpectsAction() {
			return nil, fmt.Errorf("%w: %s obligations close on acknowledgement", ErrActionNotExpected, f.ResponseRequired)
		}

		updated, err := r.applyTx(ctx, tx, actor, f, enforcement.ActionSubmit, patch{actionSummary: &summary}, enforcement.EventTransition, nil, map[string]any{
			"summary": summary,
		})
		if err != nil {
			return nil, err
		}

		// Without a verification contract there is nothing left to
		// check, so the submission closes the loop.
		if updated.Verification == nil {
			reason := "no verification contract"
			updated, err = r.applyTx(ctx, tx, enforcement.SystemActor(actor.TenantID), updated, enforcement.ActionResolve, patch{resolveReason: &reason}, enforcement.EventTransition, &reason, nil)
			if err != nil {
				return nil, err
			}
		}

		r.logger.Info("action submitted",
			"feedback", id,
			"actor", actor.Subject,
			"status", updated.Status,
		)
		return updated, nil
	})
}

func (r *repo) Verify(ctx context.Context, actor enforcement.Actor, id uuid.UUID, cmd VerifyCommand) (*Feedback, error) {
	return repository.WithTx(ctx, r.db, func(tx *sql.Tx) (*Feedback, error) {
		f, err := r.findTx(ctx, tx, actor.TenantID, id)
		if err != nil {
			return nil, err
		}

		if !enforcement.CanTransition(f.Status, enforcement.ActionVerify) {
			return nil, fmt.Errorf("%w: cannot verify from %s", enforcement.ErrInvalidTransition, f.Status)
		}

		if f.Verification == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoContract, id)
		}

		passed := cmd.Passed
		if cmd.Observed != nil && f.Verification.Kind == enforcement.VerifyMetricWithin {
			passed = f.Verification.Satisfied(*cmd.Observed)
		}

		note := strings.TrimSpace(cmd.Note)

		if !passed {
			var reason *string
			if note != "" {
				reason = &note
			}

			detail := map[string]any{}
			if cmd.Observed != nil {
				detail["observed"] = *cmd.Observed
			}

			if _, err := ledger.Append(ctx, tx, ledger.AppendCommand{
				TenantID:     f.TenantID,
				VenueID:      f.VenueID,
				FeedbackID:   &f.ID,
				BusinessDate: &f.BusinessDate,
				EventType:    enforcement.EventVerificationFailed,
				Actor:        actor,
				Reason:       reason,
				Detail:       detail,
			}); err != nil {
				return nil, err
			}

			r.logger.Info("verification failed", "feedback", id, "actor", actor.Subject)
			return f, nil
		}

		updated, err := r.applyTx(ctx, tx, actor, f, enforcement.ActionVerify, patch{}, enforcement.EventTransition, nil, nil)
		if err != nil {
			return nil, err
		}

		reason := "verification passed"
		if note != "" {
			reason = note
		}

		updated, err = r.applyTx(ctx, tx, actor, updated, enforcement.ActionResolve, patch{resolveReason: &reason}, enforcement.EventTransition, &reason, nil)
		if err != nil {
			return nil, err
		}

		r.logger.Info("verification passed", "feedback", id, "actor", actor.Subject)
		return updated, nil
	})
}

func (r *repo) Resolve(ctx context.Context, actor enforcement.Actor, id uuid.UUID, cmd ResolveCommand) (*Feedback, error) {
	reason := strings.TrimSpace(cmd.Reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: a resolution reason is required", ErrInvalidRequest)
	}

	return repository.WithTx(ctx, r.db, func(tx *sql.Tx) (*Feedback, error) {
		f, err := r.findTx(ctx, tx, actor.TenantID, id)
		if err != nil {
			return nil, err
		}

		if f.Severity == enforcement.SeverityCritical && f.ResponseRequired == enforcement.ResponseResolve {
			return nil, fmt.Errorf("%w: %s", ErrVerificationRequired, id)
		}

		updated, err := r.applyTx(ctx, tx, actor, f, enforcement.ActionResolve, patch{resolveReason: &reason}, enforcement.EventTransition, &reason, nil)
		if err != nil {
			return nil, err
		}

		r.logger.Info("feedback resolved", "feedback", id, "actor", actor.Subject)
		return updated, nil
	})
}

func (r *repo) Waive(ctx context.Context, actor enforcement.Actor, id uuid.UUID, cmd WaiveCommand) (*Feedback, error) {
	reason := strings.TrimSpace(cmd.Reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: a waiver reason is required", ErrInvalidRequest)
	}

	if !actor.System() && !r.runtime.Policy.CanWaive(actor.Roles) {
		return nil, fmt.Errorf("%w: %s", ErrWaiveForbidden, actor.Subject)
	}

	return repository.WithTx(ctx, r.db, func(tx *sql.Tx) (*Feedback, error) {
		f, err := r.findTx(ctx, tx, actor.TenantID, id)
		if err != nil {
			return nil, err
		}

		updated, err := r.applyTx(ctx, tx, actor, f, enforcement.ActionWaive, patch{waiveReason: &reason}, enforcement.EventTransition, &reason, nil)
		if err != nil {
			return nil, err
		}

		r.logger.Info("feedback waived", "feedback", id, "actor", actor.Subject, "reason", reason)
		return updated, nil
	})
}

func (r *repo) Escalate(ctx context.Context, actor enforcement.Actor, id uuid.UUID, cmd EscalateCommand) (*Feedback, error) {
	return repository.WithTx(ctx, r.db, func(tx *sql.Tx) (*Feedback, error) {
		f, err := r.findTx(ctx, tx, actor.TenantID, id)
		if err != nil {
			return nil, err
		}

		target := f.OwnerRole
		if cmd.To != nil {
			if !cmd.To.Outranks(f.OwnerRole) {
				return nil, fmt.Errorf("%w: %s does not outrank %s", ErrEscalationTarget, *cmd.To, f.OwnerRole)
			}
			target = *cmd.To
		} else if next, ok := r.runtime.Policy.NextRole(f.Severity, f.OwnerRole); ok {
			target = next
		}

		var p patch
		if target != f.OwnerRole {
			p.ownerRole = &target
		}

		var reason *string
		if trimmed := strings.TrimSpace(cmd.Reason); trimmed != "" {
			reason = &trimmed
		}

		updated, err := r.applyTx(ctx, tx, actor, f, enforcement.ActionEscalate, p, enforcement.EventEscalation, reason, map[string]any{
			"from_role": f.OwnerRole,
			"to_role":   target,
		})
		if err != nil {
			return nil, err
		}

		if !actor.System() {
			metrics.RecordEscalation("manual")
		}

		r.logger.Info("feedback escalated",
			"feedback", id,
			"actor", actor.Subject,
			"owner", updated.OwnerRole,
		)
		return updated, nil
	})
}

func (r *repo) Expire(ctx context.Context, actor enforcement.Actor, id uuid.UUID) (*Feedback, error) {
	return repository.WithTx(ctx, r.db, func(tx *sql.Tx) (*Feedback, error) {
		f, err := r.findTx(ctx, tx, actor.TenantID, id)
		if err != nil {
			return nil, err
		}

		reason := "no engagement before expiry"
		updated, err := r.applyTx(ctx, tx, actor, f, enforcement.ActionExpire, patch{}, enforcement.EventTransition, &reason, nil)
		if err != nil {
			return nil, err
		}

		r.logger.Info("feedback expired", "feedback", id)
		return updated, nil
	})
}

func (r *repo) Find(ctx context.Context, tenantID, id uuid.UUID) (*Feedback, error) {
	findSQL, args := query.
		NewBuilder(projection).
		WhereEquals("TenantID", tenantID).
		WhereEquals("ID", id).
		BuildSingleOrNull()

	f, err := repository.QueryOne(ctx, r.db, findSQL, args, scanFeedback)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("find feedback: %w", err)
	}

	return &f, nil
}

func (r *repo) List(
	ctx context.Context,
	tenantID uuid.UUID,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Feedback], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort...).
		WhereEquals("TenantID", tenantID).
		WhereSearch(page.Search, "Title", "Message", "SignalType")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count feedback: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanFeedback)
	if err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Events(ctx context.Context, tenantID, id uuid.UUID) ([]ledger.Event, error) {
	if _, err := r.Find(ctx, tenantID, id); err != nil {
		return nil, err
	}

	return r.runtime.Events.ListByFeedback(ctx, tenantID, id)
}

func (r *repo) Signals(ctx context.Context, tenantID, id uuid.UUID) ([]SignalRef, error) {
	if _, err := r.Find(ctx, tenantID, id); err != nil {
		return nil, err
	}

	listSQL, args := query.
		NewBuilder(signalProjection, signalSort...).
		WhereEquals("FeedbackID", id).
		Build()

	refs, err := repository.QueryMany(ctx, r.db, listSQL, args, scanSignalRef)
	if err != nil {
		return nil, fmt.Errorf("query linked signals: %w", err)
	}

	return refs, nil
}

func (r *repo) Audit(ctx context.Context, tenantID, id uuid.UUID) (*AuditResult, error) {
	f, err := r.Find(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	events, err := r.runtime.Events.ListByFeedback(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	result := &AuditResult{
		FeedbackID:   id,
		StoredStatus: f.Status,
		EventCount:   len(events),
	}

	replayed, err := ledger.ReplayStatus(events)
	if err != nil {
		problem := err.Error()
		result.Problem = &problem
		return result, nil
	}

	result.ReplayedStatus = replayed
	result.Consistent = replayed == f.Status

	if !result.Consistent {
		problem := fmt.Sprintf("stored status %s diverges from replayed %s", f.Status, replayed)
		result.Problem = &problem
		r.logger.Warn("feedback audit divergence", "feedback", id, "stored", f.Status, "replayed", replayed)
	}

	return result, nil
}

const scopesSQL = `
	SELECT DISTINCT tenant_id, venue_id
	FROM feedback_objects
	WHERE status NOT IN ('resolved', 'waived', 'expired')
	ORDER BY tenant_id, venue_id`

func (r *repo) Scopes(ctx context.Context) ([]Scope, error) {
	scopes, err := repository.QueryMany(ctx, r.db, scopesSQL, nil, func(s repository.Scanner) (Scope, error) {
		var scope Scope
		err := s.Scan(&scope.TenantID, &scope.VenueID)
		return scope, err
	})
	if err != nil {
		return nil, fmt.Errorf("query sweep scopes: %w", err)
	}

	return scopes, nil
}

func (r *repo) Stalled(ctx context.Context, scope Scope, ackBefore time.Time) ([]Feedback, error) {
	listSQL, args := query.
		NewBuilder(projection, defaultSort...).
		WhereEquals("TenantID", scope.TenantID).
		WhereNullable("VenueID", scope.VenueID).
		WhereEquals("Status", enforcement.StatusAcknowledged).
		WhereBefore("AckAt", ackBefore).
		Build()

	items, err := repository.QueryMany(ctx, r.db, listSQL, args, scanFeedback)
	if err != nil {
		return nil, fmt.Errorf("query stalled feedback: %w", err)
	}

	return items, nil
}

func (r *repo) Overdue(ctx context.Context, scope Scope, asOf time.Time) ([]Feedback, error) {
	listSQL, args := query.
		NewBuilder(projection, defaultSort...).
		WhereEquals("TenantID", scope.TenantID).
		WhereNullable("VenueID", scope.VenueID).
		WhereEquals("Status", enforcement.StatusOpen).
		WhereBefore("DueAt", asOf).
		Build()

	items, err := repository.QueryMany(ctx, r.db, listSQL, args, scanFeedback)
	if err != nil {
		return nil, fmt.Errorf("query overdue feedback: %w", err)
	}

	return items, nil
}

func (r *repo) OpenByType(ctx context.Context, scope Scope, signalType string) ([]Feedback, error) {
	listSQL, args := query.
		NewBuilder(projection, defaultSort...).
		WhereEquals("TenantID", scope.TenantID).
		WhereNullable("VenueID", scope.VenueID).
		WhereEquals("Status", enforcement.StatusOpen).
		WhereEquals("SignalType", signalType).
		Build()

	items, err := repository.QueryMany(ctx, r.db, listSQL, args, scanFeedback)
	if err != nil {
		return nil, fmt.Errorf("query open feedback by type: %w", err)
	}

	return items, nil
}
