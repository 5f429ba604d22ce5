package standards

import (
	"fmt"
	"math"

	"github.com/backofhouse/steward/internal/enforcement"
	"github.com/backofhouse/steward/pkg/formatting"
)

// ValueKind classifies what a standard's numeric value measures, which
// determines validation ranges and display formatting. The string values
// match the formatting package's metric kinds.
type ValueKind string

// Standard value kinds.
const (
	KindPercent         ValueKind = formatting.KindPercent
	KindCurrency        ValueKind = formatting.KindCurrency
	KindCount           ValueKind = formatting.KindCount
	KindDurationMinutes ValueKind = formatting.KindDurationMinutes
	KindRatio           ValueKind = formatting.KindRatio
)

// Entry describes one known standard key: the domain it belongs to, its
// value kind, a display unit, and what it governs.
type Entry struct {
	Domain      enforcement.Domain `json:"domain"`
	Key         string             `json:"key"`
	Kind        ValueKind          `json:"kind"`
	Unit        string             `json:"unit"`
	Description string             `json:"description"`
}

// ValidateValue checks a value against the entry's kind range: percents
// sit in [0, 100], counts are non-negative integers, everything else is
// non-negative.
func (e Entry) ValidateValue(v float64) error {
	switch e.Kind {
	case KindPercent:
		if v < 0 || v > 100 {
			return fmt.Errorf("%w: %s requires a percent in [0, 100], got %s",
				ErrInvalidValue, e.Key, formatting.FormatMetric(string(e.Kind), v))
		}
	case KindCount:
		if v < 0 || v != math.Trunc(v) {
			return fmt.Errorf("%w: %s requires a non-negative whole count, got %v",
				ErrInvalidValue, e.Key, v)
		}
	default:
		if v < 0 {
			return fmt.Errorf("%w: %s requires a non-negative value, got %s",
				ErrInvalidValue, e.Key, formatting.FormatMetric(string(e.Kind), v))
		}
	}
	return nil
}

// Registry is the typed catalog of known standard keys. Bound and
// calibration writes reject keys outside the registry, so a typo cannot
// create an orphaned standard that no detector reads.
type Registry struct {
	entries map[registryKey]Entry
}

type registryKey struct {
	domain enforcement.Domain
	key    string
}

// NewRegistry builds a registry from the given entries.
func NewRegistry(entries []Entry) *Registry {
	r := &Registry{entries: make(map[registryKey]Entry, len(entries))}
	for _, e := range entries {
		r.entries[registryKey{e.Domain, e.Key}] = e
	}
	return r
}

// Lookup returns the entry for a (domain, key) pair or ErrUnknownKey.
func (r *Registry) Lookup(domain enforcement.Domain, key string) (Entry, error) {
	e, ok := r.entries[registryKey{domain, key}]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s/%s", ErrUnknownKey, domain, key)
	}
	return e, nil
}

// Entries returns all registered entries.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	return out
}

// DefaultRegistry returns the platform's standard key catalog.
func DefaultRegistry() *Registry {
	return NewRegistry([]Entry{
		{enforcement.DomainRevenue, "pour_cost_pct", KindPercent, "%", "Beverage pour cost as a share of beverage revenue."},
		{enforcement.DomainRevenue, "food_cost_pct", KindPercent, "%", "Food cost as a share of food revenue."},
		{enforcement.DomainRevenue, "comp_pct", KindPercent, "%", "Comped sales as a share of gross revenue."},
		{enforcement.DomainRevenue, "void_amount_daily", KindCurrency, "$", "Voided sales per business day."},
		{enforcement.DomainRevenue, "avg_check", KindCurrency, "$", "Average check for the business day."},
		{enforcement.DomainLabor, "labor_pct", KindPercent, "%", "Labor cost as a share of revenue."},
		{enforcement.DomainLabor, "overtime_minutes_weekly", KindDurationMinutes, "min", "Overtime minutes per rolling week."},
		{enforcement.DomainLabor, "sales_per_labor_hour", KindCurrency, "$", "Revenue per scheduled labor hour."},
		{enforcement.DomainProcurement, "waste_pct", KindPercent, "%", "Recorded waste as a share of purchases."},
		{enforcement.DomainProcurement, "invoice_variance_pct", KindPercent, "%", "Invoice price variance against contracted prices."},
		{enforcement.DomainProcurement, "vendor_price_drift_pct", KindPercent, "%", "Vendor price drift across a rolling month."},
		{enforcement.DomainService, "avg_ticket_minutes", KindDurationMinutes, "min", "Average kitchen ticket time."},
		{enforcement.DomainService, "comp_per_cover", KindCurrency, "$", "Comp value per served cover."},
		{enforcement.DomainService, "review_score_floor", KindRatio, "", "Minimum acceptable rolling review score."},
		{enforcement.DomainCompliance, "temp_log_misses_weekly", KindCount, "", "Missed temperature log entries per week."},
		{enforcement.DomainCompliance, "checklist_miss_count", KindCount, "", "Missed checklist items per business day."},
	})
}
