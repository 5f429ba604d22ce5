// Package signals implements the intake surface for detector emissions.
// Signals are immutable observations; ingest deduplicates them per
// (tenant, venue, business date, dedupe key) and hands actionable ones
// to the feedback manager. Detectors stay outside this system and only
// speak SignalInput.
package signals

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/backofhouse/steward/internal/enforcement"
)

// Signal is a stored detector emission. Rows are never updated or
// deleted.
type Signal struct {
	ID            uuid.UUID            `json:"id"`
	TenantID      uuid.UUID            `json:"tenant_id"`
	VenueID       *uuid.UUID           `json:"venue_id,omitempty"`
	BusinessDate  time.Time            `json:"business_date"`
	Domain        enforcement.Domain   `json:"domain"`
	SignalType    string               `json:"signal_type"`
	Source        enforcement.Source   `json:"source"`
	Severity      enforcement.Severity `json:"severity"`
	Confidence    float64              `json:"confidence"`
	ImpactAmount  *float64             `json:"impact_amount,omitempty"`
	ImpactMinutes *int                 `json:"impact_minutes,omitempty"`
	EntityRef     *string              `json:"entity_ref,omitempty"`
	DedupeKey     string               `json:"dedupe_key"`
	Payload       json.RawMessage      `json:"payload,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}

// SignalInput is one detector emission. Evidence and Verification ride
// along for feedback creation; they are frozen onto the feedback
// object, not stored on the signal row.
type SignalInput struct {
	VenueID       *uuid.UUID                `json:"venue_id,omitempty"`
	BusinessDate  time.Time                 `json:"business_date"`
	Domain        enforcement.Domain        `json:"domain"`
	SignalType    string                    `json:"signal_type"`
	Source        enforcement.Source        `json:"source"`
	Severity      enforcement.Severity      `json:"severity"`
	Confidence    float64                   `json:"confidence"`
	ImpactAmount  *float64                  `json:"impact_amount,omitempty"`
	ImpactMinutes *int                      `json:"impact_minutes,omitempty"`
	EntityRef     *string                   `json:"entity_ref,omitempty"`
	DedupeKey     string                    `json:"dedupe_key"`
	Payload       json.RawMessage           `json:"payload,omitempty"`
	Evidence      *enforcement.Evidence     `json:"evidence,omitempty"`
	Verification  *enforcement.Verification `json:"verification,omitempty"`
}

// Validate checks the input before storage.
func (in SignalInput) Validate() error {
	if in.SignalType == "" {
		return fmt.Errorf("%w: signal_type is required", ErrInvalidSignal)
	}
	if in.DedupeKey == "" {
		return fmt.Errorf("%w: dedupe_key is required", ErrInvalidSignal)
	}
	if in.BusinessDate.IsZero() {
		return fmt.Errorf("%w: business_date is required", ErrInvalidSignal)
	}
	if in.Confidence < 0 || in.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v outside [0, 1]", ErrInvalidSignal, in.Confidence)
	}
	if _, err := enforcement.ParseDomain(string(in.Domain)); err != nil {
		return fmt.Errorf("%w: domain %q", ErrInvalidSignal, in.Domain)
	}
	if _, err := enforcement.ParseSource(string(in.Source)); err != nil {
		return fmt.Errorf("%w: source %q", ErrInvalidSignal, in.Source)
	}
	if _, err := enforcement.ParseSeverity(string(in.Severity)); err != nil {
		return fmt.Errorf("%w: severity %q", ErrInvalidSignal, in.Severity)
	}
	if in.Evidence != nil {
		if err := in.Evidence.Validate(); err != nil {
			return err
		}
	}
	if in.Verification != nil {
		if err := in.Verification.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Outcome reports what ingest did with a signal.
type Outcome string

const (
	OutcomeStored       Outcome = "stored"
	OutcomeDeduplicated Outcome = "deduplicated"
)

// IngestResult is the outcome of ingesting one signal. FeedbackID is
// set when the signal fed a feedback object, whether it opened one or
// folded into an existing one.
type IngestResult struct {
	Signal     *Signal    `json:"signal"`
	Outcome    Outcome    `json:"outcome"`
	FeedbackID *uuid.UUID `json:"feedback_id,omitempty"`
}

// BatchResult reports the outcome of a single item within a batch
// ingest. Index is the item's position in the submitted batch.
type BatchResult struct {
	Index  int           `json:"index"`
	Result *IngestResult `json:"result,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// Cluster counts same-type critical signals observed for one venue
// scope within a lookback window.
type Cluster struct {
	SignalType string `json:"signal_type"`
	Count      int    `json:"count"`
}
