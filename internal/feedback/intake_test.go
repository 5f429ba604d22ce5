package feedback

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/backofhouse/steward/internal/enforcement"
	"github.com/backofhouse/steward/internal/standards"
)

func floatPtr(v float64) *float64 { return &v }

func metricSnapshot(observed, standard float64) *EvidenceSnapshot {
	expected := standard
	deviation := observed - standard
	return &EvidenceSnapshot{
		Evidence: enforcement.Evidence{
			Kind:      enforcement.EvidenceMetricDeviation,
			MetricKey: "pour_cost_pct",
			Observed:  floatPtr(observed),
			Expected:  &expected,
			Deviation: &deviation,
		},
		Standard: &FrozenStandard{
			StandardID: uuid.New(),
			Key:        "pour_cost_pct",
			Value:      standard,
			Layer:      standards.LayerTenant,
		},
	}
}

func TestDeriveResponse(t *testing.T) {
	reconciliation := &enforcement.Evidence{
		Kind:     enforcement.EvidenceReconciliationGap,
		Item:     "well vodka",
		Observed: floatPtr(8),
		Expected: floatPtr(11),
	}
	metric := &enforcement.Evidence{
		Kind:      enforcement.EvidenceMetricDeviation,
		MetricKey: "labor_pct",
		Observed:  floatPtr(38),
		Expected:  floatPtr(32),
		Deviation: floatPtr(6),
	}

	tests := []struct {
		name     string
		severity enforcement.Severity
		evidence *enforcement.Evidence
		want     enforcement.ResponseType
	}{
		{"critical demands resolution", enforcement.SeverityCritical, metric, enforcement.ResponseResolve},
		{"critical reconciliation still demands resolution", enforcement.SeverityCritical, reconciliation, enforcement.ResponseResolve},
		{"warning reconciliation demands correction", enforcement.SeverityWarning, reconciliation, enforcement.ResponseCorrect},
		{"warning metric demands explanation", enforcement.SeverityWarning, metric, enforcement.ResponseExplain},
		{"warning without evidence demands explanation", enforcement.SeverityWarning, nil, enforcement.ResponseExplain},
		{"info only needs acknowledgement", enforcement.SeverityInfo, metric, enforcement.ResponseAcknowledge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := deriveResponse(tt.severity, tt.evidence); got != tt.want {
				t.Errorf("deriveResponse = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSynthesizeVerification(t *testing.T) {
	t.Run("metric above standard checks back under it", func(t *testing.T) {
		contract := synthesizeVerification(metricSnapshot(27.4, 22))

		if contract.Kind != enforcement.VerifyMetricWithin {
			t.Fatalf("kind = %s, want %s", contract.Kind, enforcement.VerifyMetricWithin)
		}
		if contract.Metric != "pour_cost_pct" {
			t.Errorf("metric = %q, want pour_cost_pct", contract.Metric)
		}
		if contract.Comparator != enforcement.ComparatorLTE {
			t.Errorf("comparator = %s, want %s", contract.Comparator, enforcement.ComparatorLTE)
		}
		if contract.Target == nil || *contract.Target != 22 {
			t.Errorf("target = %v, want 22", contract.Target)
		}
		if contract.ConsecutiveDays != defaultConsecutiveDays {
			t.Errorf("consecutive_days = %d, want %d", contract.ConsecutiveDays, defaultConsecutiveDays)
		}
		if err := contract.Validate(); err != nil {
			t.Errorf("synthesized contract invalid: %v", err)
		}
	})

	t.Run("metric below standard checks back above it", func(t *testing.T) {
		contract := synthesizeVerification(metricSnapshot(2.1, 4.2))

		if contract.Comparator != enforcement.ComparatorGTE {
			t.Errorf("comparator = %s, want %s", contract.Comparator, enforcement.ComparatorGTE)
		}
	})

	t.Run("occurrence evidence falls back to manual check", func(t *testing.T) {
		count := 3
		snapshot := &EvidenceSnapshot{
			Evidence: enforcement.Evidence{
				Kind:        enforcement.EvidenceOccurrence,
				Description: "walk-in cooler temp log missed",
				Count:       &count,
			},
		}

		contract := synthesizeVerification(snapshot)
		if contract.Kind != enforcement.VerifyManualCheck {
			t.Fatalf("kind = %s, want %s", contract.Kind, enforcement.VerifyManualCheck)
		}
		if contract.Instructions == "" {
			t.Error("manual contract missing instructions")
		}
		if err := contract.Validate(); err != nil {
			t.Errorf("synthesized contract invalid: %v", err)
		}
	})

	t.Run("no evidence falls back to manual check", func(t *testing.T) {
		contract := synthesizeVerification(nil)
		if contract.Kind != enforcement.VerifyManualCheck {
			t.Fatalf("kind = %s, want %s", contract.Kind, enforcement.VerifyManualCheck)
		}
	})

	t.Run("metric without provenance falls back to manual check", func(t *testing.T) {
		snapshot := metricSnapshot(27.4, 22)
		snapshot.Standard = nil

		contract := synthesizeVerification(snapshot)
		if contract.Kind != enforcement.VerifyManualCheck {
			t.Fatalf("kind = %s, want %s", contract.Kind, enforcement.VerifyManualCheck)
		}
	})
}

func TestTitleFor(t *testing.T) {
	if got := titleFor("pour_cost_deviation"); got != "Pour cost deviation" {
		t.Errorf("title = %q, want %q", got, "Pour cost deviation")
	}
	if got := titleFor(""); got != "Signal" {
		t.Errorf("title = %q, want Signal", got)
	}
}

func TestMessageFor(t *testing.T) {
	t.Run("metric deviation with provenance", func(t *testing.T) {
		resolved := &standards.Resolved{
			Domain: enforcement.DomainRevenue,
			Key:    "pour_cost_pct",
			Kind:   standards.KindPercent,
			Value:  22,
		}

		msg := messageFor(metricSnapshot(27.4, 22), resolved)
		if !strings.Contains(msg, "27.4%") || !strings.Contains(msg, "22.0%") {
			t.Errorf("message %q missing formatted values", msg)
		}
		if !strings.Contains(msg, "pour_cost_pct") {
			t.Errorf("message %q missing metric key", msg)
		}
	})

	t.Run("reconciliation gap", func(t *testing.T) {
		snapshot := &EvidenceSnapshot{
			Evidence: enforcement.Evidence{
				Kind:     enforcement.EvidenceReconciliationGap,
				Item:     "well vodka",
				Observed: floatPtr(8),
				Expected: floatPtr(11),
				Unit:     "bottles",
			},
		}

		msg := messageFor(snapshot, nil)
		if !strings.Contains(msg, "well vodka") || !strings.Contains(msg, "short 3.00 bottles") {
			t.Errorf("message %q missing gap detail", msg)
		}
	})

	t.Run("occurrence with count", func(t *testing.T) {
		count := 4
		snapshot := &EvidenceSnapshot{
			Evidence: enforcement.Evidence{
				Kind:        enforcement.EvidenceOccurrence,
				Description: "temp log missed",
				Count:       &count,
			},
		}

		msg := messageFor(snapshot, nil)
		if !strings.Contains(msg, "4 occurrences") {
			t.Errorf("message %q missing occurrence count", msg)
		}
	})

	t.Run("nil snapshot", func(t *testing.T) {
		if msg := messageFor(nil, nil); msg != "" {
			t.Errorf("message = %q, want empty", msg)
		}
	})
}

func TestTimingDueAt(t *testing.T) {
	timing := Timing{
		DueTTLCritical: 24 * time.Hour,
		DueTTLWarning:  72 * time.Hour,
	}
	businessDate := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	critical := timing.DueAt(businessDate, enforcement.SeverityCritical)
	if want := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC); !critical.Equal(want) {
		t.Errorf("critical due = %v, want %v", critical, want)
	}

	warning := timing.DueAt(businessDate, enforcement.SeverityWarning)
	if want := time.Date(2026, 8, 5, 0, 0, 0, 0, time.UTC); !warning.Equal(want) {
		t.Errorf("warning due = %v, want %v", warning, want)
	}
}

func TestEvidenceSnapshotJSON(t *testing.T) {
	snapshot := metricSnapshot(27.4, 22)

	data, err := json.Marshal(snapshot)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	// Observation fields stay flat; provenance nests under standard.
	if _, ok := raw["kind"]; !ok {
		t.Error("kind not at top level")
	}
	if _, ok := raw["metric_key"]; !ok {
		t.Error("metric_key not at top level")
	}
	if _, ok := raw["standard"]; !ok {
		t.Error("standard provenance missing")
	}

	var decoded EvidenceSnapshot
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if decoded.MetricKey != "pour_cost_pct" || decoded.Standard == nil {
		t.Errorf("roundtrip lost fields: %+v", decoded)
	}
}
