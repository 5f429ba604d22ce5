package escalation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/backofhouse/steward/internal/enforcement"
	"github.com/backofhouse/steward/internal/feedback"
	"github.com/backofhouse/steward/internal/metrics"
	"github.com/backofhouse/steward/internal/signals"
)

type engine struct {
	logger      *slog.Logger
	feedback    feedback.System
	signals     signals.System
	policy      *Policy
	concurrency int
}

// New creates the escalation engine. concurrency bounds the number of
// venue scopes evaluated in parallel during a sweep.
func New(logger *slog.Logger, fs feedback.System, ss signals.System, policy *Policy, concurrency int) System {
	if concurrency < 1 {
		concurrency = 1
	}
	return &engine{
		logger:      logger.With("system", "escalation"),
		feedback:    fs,
		signals:     ss,
		policy:      policy,
		concurrency: concurrency,
	}
}

func (e *engine) Handler() *Handler {
	return NewHandler(e, e.logger)
}

func (e *engine) Policy() *Policy {
	return e.policy
}

type scopeOutcome struct {
	escalations int
	expiries    int
	err         error
}

// Sweep evaluates every in-scope venue against the policy pack. Scopes
// are fanned out with bounded concurrency; one scope's failure is
// recorded and never aborts its siblings. Re-running a sweep is safe:
// every rule checks current state before acting and escalation CAS
// rejects items another actor moved first.
func (e *engine) Sweep(ctx context.Context, opts SweepOptions) (*SweepResult, error) {
	started := time.Now()

	now := opts.AsOf
	if now.IsZero() {
		now = started.UTC()
	}

	scopes, err := e.feedback.Scopes(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover scopes: %w", err)
	}
	scopes = filterScopes(scopes, opts)

	outcomes := make([]scopeOutcome, len(scopes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i, scope := range scopes {
		g.Go(func() error {
			if gctx.Err() != nil {
				outcomes[i] = scopeOutcome{err: gctx.Err()}
				return nil
			}
			outcomes[i] = e.sweepScope(gctx, scope, now, opts.DryRun)
			return nil
		})
	}
	g.Wait()

	result := &SweepResult{
		StartedAt: started.UTC(),
		DryRun:    opts.DryRun,
		Scopes:    len(scopes),
	}

	for i, out := range outcomes {
		result.Escalations += out.escalations
		result.Expiries += out.expiries

		if out.err != nil {
			e.logger.Error("scope sweep failed",
				"tenant", scopes[i].TenantID,
				"venue", scopes[i].VenueID,
				"error", out.err,
			)
			result.Errors = append(result.Errors, ScopeError{
				TenantID: scopes[i].TenantID,
				VenueID:  scopes[i].VenueID,
				Error:    out.err.Error(),
			})
		}
	}

	elapsed := time.Since(started)
	result.ElapsedMS = elapsed.Milliseconds()
	metrics.ObserveSweep(elapsed)

	e.logger.Info("sweep complete",
		"scopes", result.Scopes,
		"escalations", result.Escalations,
		"expiries", result.Expiries,
		"failed_scopes", len(result.Errors),
		"dry_run", opts.DryRun,
		"elapsed", elapsed,
	)
	return result, nil
}

func filterScopes(scopes []feedback.Scope, opts SweepOptions) []feedback.Scope {
	if opts.TenantID == nil && opts.VenueID == nil {
		return scopes
	}

	filtered := make([]feedback.Scope, 0, len(scopes))
	for _, scope := range scopes {
		if opts.TenantID != nil && scope.TenantID != *opts.TenantID {
			continue
		}
		if opts.VenueID != nil && (scope.VenueID == nil || *scope.VenueID != *opts.VenueID) {
			continue
		}
		filtered = append(filtered, scope)
	}
	return filtered
}

// sweepScope runs the three rules in order: stall, pattern, silence.
// touched tracks items already acted on this pass so the silence rule
// never expires something an escalation just intervened on.
func (e *engine) sweepScope(ctx context.Context, scope feedback.Scope, now time.Time, dryRun bool) scopeOutcome {
	var out scopeOutcome
	touched := make(map[uuid.UUID]bool)

	n, err := e.applyStallRule(ctx, scope, now, dryRun, touched)
	out.escalations += n
	if err != nil {
		out.err = err
		return out
	}

	n, err = e.applyPatternRule(ctx, scope, now, dryRun, touched)
	out.escalations += n
	if err != nil {
		out.err = err
		return out
	}

	n, err = e.applySilenceRule(ctx, scope, now, dryRun, touched)
	out.expiries += n
	if err != nil {
		out.err = err
	}
	return out
}

// applyStallRule escalates acknowledged items whose severity SLA ran
// out with no action submitted.
func (e *engine) applyStallRule(ctx context.Context, scope feedback.Scope, now time.Time, dryRun bool, touched map[uuid.UUID]bool) (int, error) {
	var shortest time.Duration
	for _, severity := range enforcement.Severities() {
		if sla, ok := e.policy.StallSLA(severity); ok && (shortest == 0 || sla < shortest) {
			shortest = sla
		}
	}
	if shortest == 0 {
		return 0, nil
	}

	items, err := e.feedback.Stalled(ctx, scope, now.Add(-shortest))
	if err != nil {
		return 0, fmt.Errorf("load stalled: %w", err)
	}

	count := 0
	for _, f := range items {
		sla, ok := e.policy.StallSLA(f.Severity)
		if !ok || f.AckAt == nil || now.Before(f.AckAt.Add(sla)) {
			continue
		}

		if dryRun {
			touched[f.ID] = true
			count++
			continue
		}

		_, err := e.feedback.Escalate(ctx, enforcement.SystemActor(scope.TenantID), f.ID, feedback.EscalateCommand{
			Reason: ReasonStallPenalty,
		})
		if err != nil {
			if raced(err) {
				continue
			}
			return count, fmt.Errorf("escalate %s: %w", f.ID, err)
		}

		metrics.RecordEscalation(ReasonStallPenalty)
		touched[f.ID] = true
		count++
	}
	return count, nil
}

// applyPatternRule escalates open items whose signal type clustered
// critically within a policy window.
func (e *engine) applyPatternRule(ctx context.Context, scope feedback.Scope, now time.Time, dryRun bool, touched map[uuid.UUID]bool) (int, error) {
	count := 0
	seen := make(map[string]bool)

	for _, w := range e.policy.Windows() {
		since := now.AddDate(0, 0, -w.Days)
		clusters, err := e.signals.CriticalClusters(ctx, scope.TenantID, scope.VenueID, since, w.MinCount)
		if err != nil {
			return count, fmt.Errorf("load clusters: %w", err)
		}

		for _, cluster := range clusters {
			if seen[cluster.SignalType] {
				continue
			}
			seen[cluster.SignalType] = true

			items, err := e.feedback.OpenByType(ctx, scope, cluster.SignalType)
			if err != nil {
				return count, fmt.Errorf("load open %s: %w", cluster.SignalType, err)
			}

			for _, f := range items {
				if touched[f.ID] {
					continue
				}

				if dryRun {
					touched[f.ID] = true
					count++
					continue
				}

				_, err := e.feedback.Escalate(ctx, enforcement.SystemActor(scope.TenantID), f.ID, feedback.EscalateCommand{
					Reason: ReasonStructuralEscalation,
				})
				if err != nil {
					if raced(err) {
						continue
					}
					return count, fmt.Errorf("escalate %s: %w", f.ID, err)
				}

				metrics.RecordEscalation(ReasonStructuralEscalation)
				touched[f.ID] = true
				count++
			}
		}
	}
	return count, nil
}

// applySilenceRule expires open items past due that drew no engagement
// and no intervention earlier in this pass.
func (e *engine) applySilenceRule(ctx context.Context, scope feedback.Scope, now time.Time, dryRun bool, touched map[uuid.UUID]bool) (int, error) {
	items, err := e.feedback.Overdue(ctx, scope, now)
	if err != nil {
		return 0, fmt.Errorf("load overdue: %w", err)
	}

	count := 0
	for _, f := range items {
		if touched[f.ID] {
			continue
		}

		if dryRun {
			count++
			continue
		}

		if _, err := e.feedback.Expire(ctx, enforcement.SystemActor(scope.TenantID), f.ID); err != nil {
			if raced(err) {
				continue
			}
			return count, fmt.Errorf("expire %s: %w", f.ID, err)
		}
		count++
	}
	return count, nil
}

// raced reports errors meaning another actor moved the item between
// the read and the write. The sweep skips those items; the next run
// sees their new state.
func raced(err error) bool {
	return errors.Is(err, feedback.ErrConflict) ||
		errors.Is(err, feedback.ErrNotFound) ||
		errors.Is(err, enforcement.ErrInvalidTransition)
}
