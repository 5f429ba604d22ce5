package enforcement

import (
	"encoding/json"
	"fmt"
	"slices"
)

// VerificationKind discriminates how a corrective action is verified.
type VerificationKind string

// Verification kinds.
const (
	VerifyMetricWithin VerificationKind = "metric_within"
	VerifyManualCheck  VerificationKind = "manual_check"
)

var verificationKinds = []VerificationKind{
	VerifyMetricWithin,
	VerifyManualCheck,
}

// UnmarshalJSON validates that the decoded string is a known
// verification kind.
func (k *VerificationKind) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v := VerificationKind(raw)
	if !slices.Contains(verificationKinds, v) {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidVerification, raw)
	}
	*k = v
	return nil
}

// Comparator is the direction of a metric_within verification check.
type Comparator string

// Comparators.
const (
	ComparatorLTE Comparator = "lte"
	ComparatorGTE Comparator = "gte"
)

var comparators = []Comparator{ComparatorLTE, ComparatorGTE}

// UnmarshalJSON validates that the decoded string is a known comparator.
func (c *Comparator) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v := Comparator(raw)
	if !slices.Contains(comparators, v) {
		return fmt.Errorf("%w: unknown comparator %q", ErrInvalidVerification, raw)
	}
	*c = v
	return nil
}

// Verification is the contract a feedback object must satisfy before a
// pass can be recorded. A metric_within contract names the metric that
// must come back inside its bound and for how many consecutive business
// days; a manual_check contract carries operator instructions and is
// judged by a human. Objects with no contract auto-resolve on action
// submission.
type Verification struct {
	Kind            VerificationKind `json:"kind"`
	Metric          string           `json:"metric,omitempty"`
	Comparator      Comparator       `json:"comparator,omitempty"`
	Target          *float64         `json:"target,omitempty"`
	ConsecutiveDays int              `json:"consecutive_days,omitempty"`
	Instructions    string           `json:"instructions,omitempty"`
}

// Validate checks that the contract carries the fields its kind requires.
func (v Verification) Validate() error {
	switch v.Kind {
	case VerifyMetricWithin:
		if v.Metric == "" {
			return fmt.Errorf("%w: metric_within requires metric", ErrInvalidVerification)
		}
		if !slices.Contains(comparators, v.Comparator) {
			return fmt.Errorf("%w: metric_within requires comparator lte or gte", ErrInvalidVerification)
		}
		if v.Target == nil {
			return fmt.Errorf("%w: metric_within requires target", ErrInvalidVerification)
		}
		if v.ConsecutiveDays < 1 {
			return fmt.Errorf("%w: metric_within requires at least one consecutive day", ErrInvalidVerification)
		}
	case VerifyManualCheck:
		if v.Instructions == "" {
			return fmt.Errorf("%w: manual_check requires instructions", ErrInvalidVerification)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidVerification, v.Kind)
	}
	return nil
}

// Satisfied reports whether an observed metric value meets a
// metric_within contract's target. Manual contracts always return false;
// a human records those outcomes.
func (v Verification) Satisfied(observed float64) bool {
	if v.Kind != VerifyMetricWithin || v.Target == nil {
		return false
	}
	switch v.Comparator {
	case ComparatorLTE:
		return observed <= *v.Target
	case ComparatorGTE:
		return observed >= *v.Target
	}
	return false
}
