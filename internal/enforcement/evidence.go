package enforcement

import (
	"encoding/json"
	"fmt"
	"slices"
)

// EvidenceKind discriminates the shape of a signal's evidence payload.
type EvidenceKind string

// Evidence kinds.
const (
	EvidenceMetricDeviation   EvidenceKind = "metric_deviation"
	EvidenceReconciliationGap EvidenceKind = "reconciliation_gap"
	EvidenceOccurrence        EvidenceKind = "occurrence"
)

var evidenceKinds = []EvidenceKind{
	EvidenceMetricDeviation,
	EvidenceReconciliationGap,
	EvidenceOccurrence,
}

// UnmarshalJSON validates that the decoded string is a known evidence kind.
func (k *EvidenceKind) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v := EvidenceKind(raw)
	if !slices.Contains(evidenceKinds, v) {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEvidence, raw)
	}
	*k = v
	return nil
}

// Evidence is the observed-condition payload attached to a signal and
// frozen onto the feedback object it opens. Which fields are required
// depends on Kind:
//
//   - metric_deviation: MetricKey, Observed, Expected, Deviation
//   - reconciliation_gap: Item, Expected, Observed
//   - occurrence: Description
//
// Unit names the display format of the numeric fields and Count carries
// an occurrence tally; both are optional.
type Evidence struct {
	Kind        EvidenceKind `json:"kind"`
	MetricKey   string       `json:"metric_key,omitempty"`
	Item        string       `json:"item,omitempty"`
	Description string       `json:"description,omitempty"`
	Observed    *float64     `json:"observed,omitempty"`
	Expected    *float64     `json:"expected,omitempty"`
	Deviation   *float64     `json:"deviation,omitempty"`
	Count       *int         `json:"count,omitempty"`
	Unit        string       `json:"unit,omitempty"`
}

// Validate checks that the payload carries the fields its kind requires.
func (e Evidence) Validate() error {
	switch e.Kind {
	case EvidenceMetricDeviation:
		if e.MetricKey == "" {
			return fmt.Errorf("%w: metric_deviation requires metric_key", ErrInvalidEvidence)
		}
		if e.Observed == nil || e.Expected == nil || e.Deviation == nil {
			return fmt.Errorf("%w: metric_deviation requires observed, expected, and deviation", ErrInvalidEvidence)
		}
	case EvidenceReconciliationGap:
		if e.Item == "" {
			return fmt.Errorf("%w: reconciliation_gap requires item", ErrInvalidEvidence)
		}
		if e.Observed == nil || e.Expected == nil {
			return fmt.Errorf("%w: reconciliation_gap requires observed and expected", ErrInvalidEvidence)
		}
	case EvidenceOccurrence:
		if e.Description == "" {
			return fmt.Errorf("%w: occurrence requires description", ErrInvalidEvidence)
		}
		if e.Count != nil && *e.Count < 1 {
			return fmt.Errorf("%w: occurrence count must be positive", ErrInvalidEvidence)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEvidence, e.Kind)
	}
	return nil
}

// Gap returns the reconciliation shortfall (expected minus observed) for
// reconciliation_gap evidence, and zero for other kinds.
func (e Evidence) Gap() float64 {
	if e.Kind != EvidenceReconciliationGap || e.Expected == nil || e.Observed == nil {
		return 0
	}
	return *e.Expected - *e.Observed
}
