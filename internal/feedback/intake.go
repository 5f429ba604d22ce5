package feedback

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/backofhouse/steward/internal/enforcement"
	"github.com/backofhouse/steward/internal/standards"
	"github.com/backofhouse/steward/pkg/formatting"
)

// defaultConsecutiveDays is how many clean days a synthesized metric
// contract demands before a critical deviation counts as corrected.
const defaultConsecutiveDays = 3

// deriveResponse maps severity and evidence shape to the obligation a
// new object carries. Critical conditions always demand a verified
// resolution; reconciliation gaps demand a correction; warnings demand
// an explanation.
func deriveResponse(severity enforcement.Severity, evidence *enforcement.Evidence) enforcement.ResponseType {
	switch {
	case severity == enforcement.SeverityCritical:
		return enforcement.ResponseResolve
	case evidence != nil && evidence.Kind == enforcement.EvidenceReconciliationGap:
		return enforcement.ResponseCorrect
	case severity == enforcement.SeverityWarning:
		return enforcement.ResponseExplain
	default:
		return enforcement.ResponseAcknowledge
	}
}

// freeze copies the detector's observation into a snapshot and stamps
// the standard version in force at detection time. Later recalibration
// never changes what an existing object claims it was judged against.
// An unconfigured metric leaves the snapshot without provenance.
func (r *repo) freeze(
	ctx context.Context,
	tenantID uuid.UUID,
	venueID *uuid.UUID,
	domain enforcement.Domain,
	evidence *enforcement.Evidence,
	asOf time.Time,
) (*EvidenceSnapshot, *standards.Resolved) {
	if evidence == nil {
		return nil, nil
	}

	snapshot := &EvidenceSnapshot{Evidence: *evidence}
	if evidence.MetricKey == "" {
		return snapshot, nil
	}

	scope := standards.Scope{TenantID: tenantID, VenueID: venueID}
	resolved, err := r.runtime.Standards.Resolve(ctx, scope, domain, evidence.MetricKey, asOf)
	if err != nil {
		r.logger.Warn("standard unavailable during intake",
			"domain", domain,
			"key", evidence.MetricKey,
			"error", err,
		)
		return snapshot, nil
	}

	snapshot.Standard = &FrozenStandard{
		StandardID: resolved.StandardID,
		Key:        resolved.Key,
		Value:      resolved.Value,
		Layer:      resolved.Layer,
		Bound:      resolved.Bound,
	}
	return snapshot, resolved
}

// synthesizeVerification builds a contract for a resolution obligation
// that arrived without one. Metric deviations with known provenance get
// a metric check back inside the standard; everything else falls back
// to a manual check.
func synthesizeVerification(snapshot *EvidenceSnapshot) *enforcement.Verification {
	if snapshot == nil || snapshot.Kind != enforcement.EvidenceMetricDeviation || snapshot.Standard == nil {
		return &enforcement.Verification{
			Kind:         enforcement.VerifyManualCheck,
			Instructions: "confirm the correction on site and record the outcome",
		}
	}

	comparator := enforcement.ComparatorLTE
	if snapshot.Observed != nil && *snapshot.Observed < snapshot.Standard.Value {
		comparator = enforcement.ComparatorGTE
	}

	target := snapshot.Standard.Value
	return &enforcement.Verification{
		Kind:            enforcement.VerifyMetricWithin,
		Metric:          snapshot.MetricKey,
		Comparator:      comparator,
		Target:          &target,
		ConsecutiveDays: defaultConsecutiveDays,
	}
}

// titleFor renders a signal type as a short human title.
func titleFor(signalType string) string {
	title := strings.ReplaceAll(signalType, "_", " ")
	if title == "" {
		return "Signal"
	}
	return strings.ToUpper(title[:1]) + title[1:]
}

// messageFor renders the evidence as operator-facing prose, formatting
// values with the resolved standard's unit when provenance is known.
func messageFor(snapshot *EvidenceSnapshot, resolved *standards.Resolved) string {
	if snapshot == nil {
		return ""
	}

	switch snapshot.Kind {
	case enforcement.EvidenceMetricDeviation:
		if snapshot.Observed == nil {
			return snapshot.MetricKey + " deviated from its standard"
		}
		if resolved != nil {
			kind := string(resolved.Kind)
			msg := fmt.Sprintf("%s observed at %s against a standard of %s",
				snapshot.MetricKey,
				formatting.FormatMetric(kind, *snapshot.Observed),
				formatting.FormatMetric(kind, resolved.Value),
			)
			if snapshot.Deviation != nil {
				msg += fmt.Sprintf(" (deviation %s)", formatting.FormatMetric(kind, *snapshot.Deviation))
			}
			return msg
		}
		if snapshot.Expected != nil {
			return fmt.Sprintf("%s observed at %.2f against an expected %.2f",
				snapshot.MetricKey, *snapshot.Observed, *snapshot.Expected)
		}
		return fmt.Sprintf("%s observed at %.2f", snapshot.MetricKey, *snapshot.Observed)

	case enforcement.EvidenceReconciliationGap:
		msg := fmt.Sprintf("%s reconciliation gap", snapshot.Item)
		if snapshot.Observed != nil && snapshot.Expected != nil {
			msg += fmt.Sprintf(": counted %.2f against an expected %.2f", *snapshot.Observed, *snapshot.Expected)
			if gap := snapshot.Gap(); gap != 0 && snapshot.Unit != "" {
				msg += fmt.Sprintf(" (short %.2f %s)", gap, snapshot.Unit)
			}
		}
		return msg

	case enforcement.EvidenceOccurrence:
		if snapshot.Count != nil && *snapshot.Count > 1 {
			return fmt.Sprintf("%s (%d occurrences)", snapshot.Description, *snapshot.Count)
		}
		return snapshot.Description

	default:
		return ""
	}
}
