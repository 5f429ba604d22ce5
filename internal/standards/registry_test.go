package standards

import (
	"errors"
	"testing"

	"github.com/backofhouse/steward/internal/enforcement"
)

func TestRegistryLookup(t *testing.T) {
	reg := DefaultRegistry()

	entry, err := reg.Lookup(enforcement.DomainRevenue, "pour_cost_pct")
	if err != nil {
		t.Fatalf("expected pour_cost_pct to be registered: %v", err)
	}

	if entry.Kind != KindPercent {
		t.Errorf("expected percent kind, got %s", entry.Kind)
	}

	if _, err := reg.Lookup(enforcement.DomainRevenue, "ghost_metric"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("expected ErrUnknownKey, got %v", err)
	}

	if _, err := reg.Lookup(enforcement.DomainLabor, "pour_cost_pct"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("keys are scoped to their domain; expected ErrUnknownKey, got %v", err)
	}
}

func TestEntryValidateValue(t *testing.T) {
	tests := []struct {
		name  string
		kind  ValueKind
		value float64
		valid bool
	}{
		{"percent in range", KindPercent, 22.5, true},
		{"percent at boundary", KindPercent, 100, true},
		{"percent above range", KindPercent, 100.5, false},
		{"percent negative", KindPercent, -1, false},
		{"currency positive", KindCurrency, 125.40, true},
		{"currency negative", KindCurrency, -5, false},
		{"count whole", KindCount, 3, true},
		{"count fractional", KindCount, 2.5, false},
		{"count negative", KindCount, -1, false},
		{"duration positive", KindDurationMinutes, 90, true},
		{"duration negative", KindDurationMinutes, -15, false},
		{"ratio positive", KindRatio, 4.2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := Entry{Domain: enforcement.DomainRevenue, Key: "test_key", Kind: tt.kind}

			err := entry.ValidateValue(tt.value)
			if tt.valid && err != nil {
				t.Errorf("expected valid value, got %v", err)
			}

			if !tt.valid && !errors.Is(err, ErrInvalidValue) {
				t.Errorf("expected ErrInvalidValue, got %v", err)
			}
		})
	}
}

func TestDefaultRegistryCoversAllDomains(t *testing.T) {
	reg := DefaultRegistry()

	seen := make(map[enforcement.Domain]bool)
	for _, entry := range reg.Entries() {
		seen[entry.Domain] = true
	}

	for _, domain := range enforcement.Domains() {
		if !seen[domain] {
			t.Errorf("registry has no keys for domain %s", domain)
		}
	}
}
