package standards

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/backofhouse/steward/internal/enforcement"
	"github.com/backofhouse/steward/pkg/formatting"
	"github.com/backofhouse/steward/pkg/query"
	"github.com/backofhouse/steward/pkg/repository"
)

type repo struct {
	db       *sql.DB
	logger   *slog.Logger
	registry *Registry
}

// New creates a standards repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:       db,
		logger:   logger.With("system", "standards"),
		registry: DefaultRegistry(),
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger)
}

const closeBoundSQL = `
	UPDATE standard_bounds
	SET effective_to = $3
	WHERE domain = $1 AND key = $2 AND effective_to IS NULL AND effective_from <= $3`

const insertBoundSQL = `
	INSERT INTO standard_bounds(id, domain, key, min_value, max_value, effective_from, created_by)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id, domain, key, min_value, max_value, effective_from, effective_to, created_by, created_at`

func (r *repo) SetGlobalBound(ctx context.Context, actor enforcement.Actor, cmd BoundCommand) (*Bound, error) {
	if !actor.Has(enforcement.RoleStandardsAdmin) {
		return nil, fmt.Errorf("%w: managing global bounds requires %s", ErrForbidden, enforcement.RoleStandardsAdmin)
	}

	entry, err := r.registry.Lookup(cmd.Domain, cmd.Key)
	if err != nil {
		return nil, err
	}

	if cmd.MinValue > cmd.MaxValue {
		return nil, fmt.Errorf("%w: min %v exceeds max %v", ErrInvalidBound, cmd.MinValue, cmd.MaxValue)
	}

	if err := entry.ValidateValue(cmd.MinValue); err != nil {
		return nil, err
	}

	if err := entry.ValidateValue(cmd.MaxValue); err != nil {
		return nil, err
	}

	from := cmd.EffectiveFrom
	if from.IsZero() {
		from = time.Now().UTC()
	}

	b, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Bound, error) {
		if _, err := repository.ExecRows(ctx, tx, closeBoundSQL, cmd.Domain, cmd.Key, from); err != nil {
			return Bound{}, fmt.Errorf("close current bound: %w", err)
		}

		args := []any{uuid.New(), cmd.Domain, cmd.Key, cmd.MinValue, cmd.MaxValue, from, actor.Subject}
		return repository.QueryOne(ctx, tx, insertBoundSQL, args, scanBound)
	})

	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: a newer bound version governs %s/%s", ErrConflict, cmd.Domain, cmd.Key)
		}
		return nil, fmt.Errorf("set global bound: %w", err)
	}

	r.logger.Info("global bound set",
		"domain", cmd.Domain,
		"key", cmd.Key,
		"min", cmd.MinValue,
		"max", cmd.MaxValue,
		"actor", actor.Subject,
	)
	return &b, nil
}

func (r *repo) ListBounds(ctx context.Context) ([]Bound, error) {
	qb := query.
		NewBuilder(boundProjection, boundSort...).
		WhereNullable("EffectiveTo", nil)

	listSQL, args := qb.Build()
	bounds, err := repository.QueryMany(ctx, r.db, listSQL, args, scanBound)
	if err != nil {
		return nil, fmt.Errorf("query bounds: %w", err)
	}

	return bounds, nil
}

const closeStandardSQL = `
	UPDATE standards
	SET effective_to = $5
	WHERE tenant_id = $1 AND venue_id IS NOT DISTINCT FROM $2 AND domain = $3 AND key = $4
		AND effective_to IS NULL AND effective_from <= $5`

const insertStandardSQL = `
	INSERT INTO standards(id, tenant_id, venue_id, domain, key, value, effective_from, created_by)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING id, tenant_id, venue_id, domain, key, value, effective_from, effective_to, created_by, created_at`

func (r *repo) Calibrate(ctx context.Context, actor enforcement.Actor, cmd CalibrateCommand) (*Standard, error) {
	if _, ok := actor.ActingRole(); !ok {
		return nil, fmt.Errorf("%w: calibration requires an operator role", ErrForbidden)
	}

	entry, err := r.registry.Lookup(cmd.Domain, cmd.Key)
	if err != nil {
		return nil, err
	}

	if err := entry.ValidateValue(cmd.Value); err != nil {
		return nil, err
	}

	from := cmd.EffectiveFrom
	if from.IsZero() {
		from = time.Now().UTC()
	}

	bound, err := r.currentBound(ctx, cmd.Domain, cmd.Key, from)
	if err != nil {
		return nil, err
	}

	if bound != nil && (cmd.Value < bound.MinValue || cmd.Value > bound.MaxValue) {
		kind := string(entry.Kind)
		return nil, fmt.Errorf("%w: %s %s outside [%s, %s]",
			ErrBoundViolation,
			cmd.Key,
			formatting.FormatMetric(kind, cmd.Value),
			formatting.FormatMetric(kind, bound.MinValue),
			formatting.FormatMetric(kind, bound.MaxValue),
		)
	}

	s, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Standard, error) {
		closeArgs := []any{actor.TenantID, cmd.VenueID, cmd.Domain, cmd.Key, from}
		if _, err := repository.ExecRows(ctx, tx, closeStandardSQL, closeArgs...); err != nil {
			return Standard{}, fmt.Errorf("close current standard: %w", err)
		}

		args := []any{uuid.New(), actor.TenantID, cmd.VenueID, cmd.Domain, cmd.Key, cmd.Value, from, actor.Subject}
		return repository.QueryOne(ctx, tx, insertStandardSQL, args, scanStandard)
	})

	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: a newer calibration governs %s/%s", ErrConflict, cmd.Domain, cmd.Key)
		}
		return nil, fmt.Errorf("calibrate standard: %w", err)
	}

	r.logger.Info("standard calibrated",
		"tenant", actor.TenantID,
		"venue", cmd.VenueID,
		"domain", cmd.Domain,
		"key", cmd.Key,
		"value", cmd.Value,
		"actor", actor.Subject,
	)
	return &s, nil
}

const resolveSQL = `
	SELECT s.id, s.tenant_id, s.venue_id, s.domain, s.key, s.value, s.effective_from, s.effective_to, s.created_by, s.created_at
	FROM public.standards s
	WHERE s.tenant_id = $1
		AND (s.venue_id IS NULL OR s.venue_id = $2)
		AND s.domain = $3
		AND s.key = $4
		AND s.effective_from <= $5
		AND (s.effective_to IS NULL OR s.effective_to > $5)
	ORDER BY s.venue_id NULLS LAST, s.effective_from DESC
	LIMIT 1`

func (r *repo) Resolve(
	ctx context.Context,
	scope Scope,
	domain enforcement.Domain,
	key string,
	asOf time.Time,
) (*Resolved, error) {
	entry, err := r.registry.Lookup(domain, key)
	if err != nil {
		return nil, err
	}

	args := []any{scope.TenantID, scope.VenueID, domain, key, asOf}
	row, err := repository.QueryOne(ctx, r.db, resolveSQL, args, scanStandard)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotConfigured, domain, key)
		}
		return nil, fmt.Errorf("resolve standard: %w", err)
	}

	bound, err := r.currentBound(ctx, domain, key, asOf)
	if err != nil {
		return nil, err
	}

	resolved := resolvedFrom(row, entry, bound)
	return &resolved, nil
}

func (r *repo) ResolveSet(
	ctx context.Context,
	scope Scope,
	domain enforcement.Domain,
	keys []string,
	asOf time.Time,
) (*ResolvedSet, error) {
	set := &ResolvedSet{Values: make(map[string]Resolved, len(keys))}

	for _, key := range keys {
		resolved, err := r.Resolve(ctx, scope, domain, key, asOf)
		switch {
		case errors.Is(err, ErrNotConfigured) || errors.Is(err, ErrUnknownKey):
			set.Missing = append(set.Missing, key)
		case err != nil:
			return nil, err
		default:
			set.Values[key] = *resolved
		}
	}

	return set, nil
}

func (r *repo) History(
	ctx context.Context,
	scope Scope,
	domain enforcement.Domain,
	key string,
) ([]Standard, error) {
	qb := query.
		NewBuilder(standardProjection, historySort...).
		WhereEquals("TenantID", scope.TenantID).
		WhereNullable("VenueID", scope.VenueID).
		WhereEquals("Domain", domain).
		WhereEquals("Key", key)

	listSQL, args := qb.Build()
	versions, err := repository.QueryMany(ctx, r.db, listSQL, args, scanStandard)
	if err != nil {
		return nil, fmt.Errorf("query standard history: %w", err)
	}

	return versions, nil
}

const listCurrentSQL = `
	SELECT DISTINCT ON (s.domain, s.key) s.id, s.tenant_id, s.venue_id, s.domain, s.key, s.value, s.effective_from, s.effective_to, s.created_by, s.created_at
	FROM public.standards s
	WHERE s.tenant_id = $1
		AND (s.venue_id IS NULL OR s.venue_id = $2)
		AND s.effective_to IS NULL
	ORDER BY s.domain, s.key, s.venue_id NULLS LAST`

func (r *repo) ListCurrent(ctx context.Context, tenantID uuid.UUID, venueID *uuid.UUID) ([]Resolved, error) {
	rows, err := repository.QueryMany(ctx, r.db, listCurrentSQL, []any{tenantID, venueID}, scanStandard)
	if err != nil {
		return nil, fmt.Errorf("query current standards: %w", err)
	}

	bounds, err := r.ListBounds(ctx)
	if err != nil {
		return nil, err
	}

	ranges := make(map[registryKey]*Bound, len(bounds))
	for i := range bounds {
		b := bounds[i]
		ranges[registryKey{b.Domain, b.Key}] = &b
	}

	out := make([]Resolved, 0, len(rows))
	for _, row := range rows {
		entry, err := r.registry.Lookup(row.Domain, row.Key)
		if err != nil {
			r.logger.Warn("stored standard missing from registry", "domain", row.Domain, "key", row.Key)
			continue
		}
		out = append(out, resolvedFrom(row, entry, ranges[registryKey{row.Domain, row.Key}]))
	}

	return out, nil
}

const currentBoundSQL = `
	SELECT b.id, b.domain, b.key, b.min_value, b.max_value, b.effective_from, b.effective_to, b.created_by, b.created_at
	FROM public.standard_bounds b
	WHERE b.domain = $1
		AND b.key = $2
		AND b.effective_from <= $3
		AND (b.effective_to IS NULL OR b.effective_to > $3)
	ORDER BY b.effective_from DESC
	LIMIT 1`

func (r *repo) currentBound(ctx context.Context, domain enforcement.Domain, key string, asOf time.Time) (*Bound, error) {
	b, err := repository.QueryOne(ctx, r.db, currentBoundSQL, []any{domain, key, asOf}, scanBound)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve governing bound: %w", err)
	}
	return &b, nil
}

func resolvedFrom(row Standard, entry Entry, bound *Bound) Resolved {
	layer := LayerTenant
	if row.VenueID != nil {
		layer = LayerVenue
	}

	resolved := Resolved{
		Domain:        row.Domain,
		Key:           row.Key,
		Kind:          entry.Kind,
		Unit:          entry.Unit,
		Value:         row.Value,
		StandardID:    row.ID,
		Layer:         layer,
		EffectiveFrom: row.EffectiveFrom,
	}

	if bound != nil {
		resolved.Bound = &BoundRange{Min: bound.MinValue, Max: bound.MaxValue}
	}

	return resolved
}
