// Command sweep runs one escalation pass from the command line. Unlike
// the authenticated HTTP trigger, it can sweep every tenant at once,
// which is how the scheduled nightly job invokes it.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/backofhouse/steward/internal/config"
	"github.com/backofhouse/steward/internal/escalation"
	"github.com/backofhouse/steward/internal/feedback"
	"github.com/backofhouse/steward/internal/ledger"
	"github.com/backofhouse/steward/internal/signals"
	"github.com/backofhouse/steward/internal/standards"
	"github.com/backofhouse/steward/pkg/database"
	"github.com/backofhouse/steward/pkg/formatting"
)

func main() {
	var (
		tenant = flag.String("tenant", "", "Tenant id to sweep (default: all tenants)")
		venue  = flag.String("venue", "", "Venue id to sweep (requires -tenant)")
		asOf   = flag.String("as-of", "", "Evaluate stalls as of this date, YYYY-MM-DD (default: now)")
		dryRun = flag.Bool("dry-run", false, "Report decisions without committing them")
	)
	flag.Parse()

	opts := escalation.SweepOptions{DryRun: *dryRun}

	if *tenant != "" {
		id, err := uuid.Parse(*tenant)
		if err != nil {
			log.Fatalf("invalid tenant id: %v", err)
		}
		opts.TenantID = &id
	}

	if *venue != "" {
		if opts.TenantID == nil {
			log.Fatal("-venue requires -tenant")
		}
		id, err := uuid.Parse(*venue)
		if err != nil {
			log.Fatalf("invalid venue id: %v", err)
		}
		opts.VenueID = &id
	}

	if *asOf != "" {
		t, err := formatting.ParseBusinessDate(*asOf)
		if err != nil {
			log.Fatalf("invalid as-of date: %v", err)
		}
		opts.AsOf = t
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config load failed:", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctx := context.Background()

	engine, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("engine init failed: %v", err)
	}

	result, err := engine.Sweep(ctx, opts)
	if err != nil {
		log.Fatalf("sweep failed: %v", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("encode result: %v", err)
	}
	fmt.Println(string(out))

	if len(result.Errors) > 0 {
		os.Exit(1)
	}
}

// buildEngine wires the minimal dependency chain a sweep needs: the
// database, the policy pack, and the feedback and signal systems the
// engine drives. No storage or HTTP surface is constructed.
func buildEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger) (escalation.System, error) {
	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(ctx); err != nil {
		return nil, err
	}

	policy, err := escalation.LoadPolicy(cfg.Enforcement.PolicyPath)
	if err != nil {
		return nil, err
	}

	timing := policy.Timing()
	if d := cfg.Enforcement.DueTTLCriticalDuration(); d > 0 {
		timing.DueTTLCritical = d
	}
	if d := cfg.Enforcement.DueTTLWarningDuration(); d > 0 {
		timing.DueTTLWarning = d
	}

	conn := db.Connection()
	standardsSystem := standards.New(conn, logger)
	events := ledger.New(conn, logger, cfg.API.Pagination)

	feedbackSystem := feedback.New(conn, logger, cfg.API.Pagination, feedback.Runtime{
		Standards: standardsSystem,
		Events:    events,
		Policy:    policy,
		Timing:    timing,
	})

	signalsSystem := signals.New(conn, logger, cfg.API.Pagination, feedbackSystem, cfg.Enforcement.ConfidenceFloor)

	return escalation.New(logger, feedbackSystem, signalsSystem, policy, cfg.Enforcement.SweepConcurrency), nil
}
