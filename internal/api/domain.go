package api

import (
	"fmt"

	"github.com/backofhouse/steward/internal/config"
	"github.com/backofhouse/steward/internal/escalation"
	"github.com/backofhouse/steward/internal/feedback"
	"github.com/backofhouse/steward/internal/inbox"
	"github.com/backofhouse/steward/internal/ledger"
	"github.com/backofhouse/steward/internal/signals"
	"github.com/backofhouse/steward/internal/standards"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Standards   standards.System
	Events      ledger.System
	Feedback    feedback.System
	Signals     signals.System
	Escalations escalation.System
	Inbox       inbox.System
}

// NewDomain creates all domain systems from the API runtime. The policy
// pack is loaded once here and shared by the feedback state machine and
// the escalation engine.
func NewDomain(cfg *config.Config, runtime *Runtime) (*Domain, error) {
	policy, err := escalation.LoadPolicy(cfg.Enforcement.PolicyPath)
	if err != nil {
		return nil, fmt.Errorf("load policy pack: %w", err)
	}

	timing := policy.Timing()
	if d := cfg.Enforcement.DueTTLCriticalDuration(); d > 0 {
		timing.DueTTLCritical = d
	}
	if d := cfg.Enforcement.DueTTLWarningDuration(); d > 0 {
		timing.DueTTLWarning = d
	}

	db := runtime.Database.Connection()

	standardsSystem := standards.New(db, runtime.Logger)
	eventsSystem := ledger.New(db, runtime.Logger, runtime.Pagination)

	feedbackSystem := feedback.New(db, runtime.Logger, runtime.Pagination, feedback.Runtime{
		Standards: standardsSystem,
		Events:    eventsSystem,
		Policy:    policy,
		Timing:    timing,
	})

	signalsSystem := signals.New(
		db,
		runtime.Logger,
		runtime.Pagination,
		feedbackSystem,
		cfg.Enforcement.ConfidenceFloor,
	)

	escalationSystem := escalation.New(
		runtime.Logger,
		feedbackSystem,
		signalsSystem,
		policy,
		cfg.Enforcement.SweepConcurrency,
	)

	inboxSystem := inbox.New(db, runtime.Logger, runtime.Storage)

	return &Domain{
		Standards:   standardsSystem,
		Events:      eventsSystem,
		Feedback:    feedbackSystem,
		Signals:     signalsSystem,
		Escalations: escalationSystem,
		Inbox:       inboxSystem,
	}, nil
}
