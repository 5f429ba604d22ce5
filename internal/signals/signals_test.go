package signals

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/backofhouse/steward/internal/enforcement"
)

func validInput() SignalInput {
	return SignalInput{
		BusinessDate: time.Date(2026, 8, 13, 0, 0, 0, 0, time.UTC),
		Domain:       enforcement.DomainRevenue,
		SignalType:   "pour_cost_deviation",
		Source:       enforcement.SourceRule,
		Severity:     enforcement.SeverityCritical,
		Confidence:   0.92,
		DedupeKey:    "pour_cost_deviation:2026-08-13",
	}
}

func TestSignalInputValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SignalInput)
		wantErr error
	}{
		{"valid", func(*SignalInput) {}, nil},
		{"missing signal type", func(in *SignalInput) { in.SignalType = "" }, ErrInvalidSignal},
		{"missing dedupe key", func(in *SignalInput) { in.DedupeKey = "" }, ErrInvalidSignal},
		{"missing business date", func(in *SignalInput) { in.BusinessDate = time.Time{} }, ErrInvalidSignal},
		{"confidence above one", func(in *SignalInput) { in.Confidence = 1.2 }, ErrInvalidSignal},
		{"negative confidence", func(in *SignalInput) { in.Confidence = -0.1 }, ErrInvalidSignal},
		{"unknown domain", func(in *SignalInput) { in.Domain = "marketing" }, ErrInvalidSignal},
		{"unknown source", func(in *SignalInput) { in.Source = "psychic" }, ErrInvalidSignal},
		{"unknown severity", func(in *SignalInput) { in.Severity = "catastrophic" }, ErrInvalidSignal},
		{
			"invalid evidence",
			func(in *SignalInput) {
				in.Evidence = &enforcement.Evidence{Kind: enforcement.EvidenceMetricDeviation}
			},
			enforcement.ErrInvalidEvidence,
		},
		{
			"invalid verification",
			func(in *SignalInput) {
				in.Verification = &enforcement.Verification{Kind: enforcement.VerifyManualCheck}
			},
			enforcement.ErrInvalidVerification,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)

			err := in.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestActionable(t *testing.T) {
	r := &repo{floor: 0.6}

	tests := []struct {
		name       string
		severity   enforcement.Severity
		confidence float64
		want       bool
	}{
		{"critical above floor", enforcement.SeverityCritical, 0.92, true},
		{"warning at floor", enforcement.SeverityWarning, 0.6, true},
		{"warning below floor", enforcement.SeverityWarning, 0.59, false},
		{"info never actionable", enforcement.SeverityInfo, 0.99, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := SignalInput{Severity: tt.severity, Confidence: tt.confidence}
			if got := r.actionable(in); got != tt.want {
				t.Errorf("actionable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFiltersFromQuery(t *testing.T) {
	t.Run("extracts known parameters", func(t *testing.T) {
		values := url.Values{}
		values.Set("venue_id", "22222222-2222-2222-2222-222222222222")
		values.Set("domain", "revenue")
		values.Set("severity", "critical")
		values.Set("source", "rule")
		values.Set("signal_type", "pour_cost_deviation")
		values.Set("from", "2026-08-01")
		values.Set("to", "2026-08-15")

		f := FiltersFromQuery(values)

		if f.VenueID == nil || f.VenueID.String() != "22222222-2222-2222-2222-222222222222" {
			t.Errorf("VenueID = %v, want set", f.VenueID)
		}
		if f.Domain == nil || *f.Domain != enforcement.DomainRevenue {
			t.Errorf("Domain = %v, want revenue", f.Domain)
		}
		if f.Severity == nil || *f.Severity != enforcement.SeverityCritical {
			t.Errorf("Severity = %v, want critical", f.Severity)
		}
		if f.Source == nil || *f.Source != enforcement.SourceRule {
			t.Errorf("Source = %v, want rule", f.Source)
		}
		if f.SignalType == nil || *f.SignalType != "pour_cost_deviation" {
			t.Errorf("SignalType = %v, want pour_cost_deviation", f.SignalType)
		}
		if f.From == nil || !f.From.Equal(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("From = %v, want 2026-08-01", f.From)
		}
		if f.To == nil || !f.To.Equal(time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("To = %v, want 2026-08-15", f.To)
		}
	})

	t.Run("skips invalid values", func(t *testing.T) {
		values := url.Values{}
		values.Set("venue_id", "not-a-uuid")
		values.Set("severity", "catastrophic")
		values.Set("from", "08/01/2026")

		f := FiltersFromQuery(values)

		if f.VenueID != nil {
			t.Errorf("VenueID = %v, want nil", f.VenueID)
		}
		if f.Severity != nil {
			t.Errorf("Severity = %v, want nil", f.Severity)
		}
		if f.From != nil {
			t.Errorf("From = %v, want nil", f.From)
		}
	})
}
