package escalation

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/backofhouse/steward/internal/enforcement"
)

func TestParsePolicyDefaultPack(t *testing.T) {
	p, err := ParsePolicy(defaultPack)
	if err != nil {
		t.Fatalf("ParsePolicy() error: %v", err)
	}

	t.Run("routes climb the ladder", func(t *testing.T) {
		tests := []struct {
			severity enforcement.Severity
			from     enforcement.Role
			want     enforcement.Role
			ok       bool
		}{
			{enforcement.SeverityCritical, enforcement.RoleVenueManager, enforcement.RoleGM, true},
			{enforcement.SeverityCritical, enforcement.RoleGM, enforcement.RoleRegionalDirector, true},
			{enforcement.SeverityCritical, enforcement.RoleRegionalDirector, enforcement.RoleOwner, true},
			{enforcement.SeverityCritical, enforcement.RoleOwner, "", false},
			{enforcement.SeverityWarning, enforcement.RoleVenueManager, enforcement.RoleGM, true},
			{enforcement.SeverityWarning, enforcement.RoleRegionalDirector, "", false},
			{enforcement.SeverityInfo, enforcement.RoleVenueManager, enforcement.RoleGM, true},
			{enforcement.SeverityInfo, enforcement.RoleGM, "", false},
		}

		for _, tt := range tests {
			got, ok := p.NextRole(tt.severity, tt.from)
			if ok != tt.ok || got != tt.want {
				t.Errorf("NextRole(%s, %s) = %q, %v, want %q, %v", tt.severity, tt.from, got, ok, tt.want, tt.ok)
			}
		}
	})

	t.Run("waiver roles", func(t *testing.T) {
		tests := []struct {
			name  string
			roles []enforcement.Role
			want  bool
		}{
			{"gm", []enforcement.Role{enforcement.RoleGM}, true},
			{"owner among others", []enforcement.Role{enforcement.RoleVenueManager, enforcement.RoleOwner}, true},
			{"venue manager alone", []enforcement.Role{enforcement.RoleVenueManager}, false},
			{"standards admin", []enforcement.Role{enforcement.RoleStandardsAdmin}, false},
			{"no roles", nil, false},
		}

		for _, tt := range tests {
			if got := p.CanWaive(tt.roles); got != tt.want {
				t.Errorf("CanWaive(%s) = %v, want %v", tt.name, got, tt.want)
			}
		}
	})

	t.Run("stall slas", func(t *testing.T) {
		tests := []struct {
			severity enforcement.Severity
			want     time.Duration
		}{
			{enforcement.SeverityCritical, 4 * time.Hour},
			{enforcement.SeverityWarning, 24 * time.Hour},
			{enforcement.SeverityInfo, 72 * time.Hour},
		}

		for _, tt := range tests {
			got, ok := p.StallSLA(tt.severity)
			if !ok || got != tt.want {
				t.Errorf("StallSLA(%s) = %v, %v, want %v", tt.severity, got, ok, tt.want)
			}
		}
	})

	t.Run("pattern windows", func(t *testing.T) {
		windows := p.Windows()
		if len(windows) != 2 {
			t.Fatalf("windows = %d, want 2", len(windows))
		}
		if windows[0].Days != 7 || windows[0].MinCount != 3 {
			t.Errorf("first window = %+v, want 7 days / 3 signals", windows[0])
		}
		if windows[1].Days != 14 || windows[1].MinCount != 5 {
			t.Errorf("second window = %+v, want 14 days / 5 signals", windows[1])
		}
	})

	t.Run("due ttls", func(t *testing.T) {
		timing := p.Timing()
		if timing.DueTTLCritical != 24*time.Hour {
			t.Errorf("critical ttl = %v, want 24h", timing.DueTTLCritical)
		}
		if timing.DueTTLWarning != 72*time.Hour {
			t.Errorf("warning ttl = %v, want 72h", timing.DueTTLWarning)
		}
	})

	t.Run("source exposes the pack", func(t *testing.T) {
		pack := p.Source()
		if _, ok := pack.Routes["critical"]; !ok {
			t.Error("source pack missing critical routes")
		}
		if len(pack.WaiverRoles) == 0 {
			t.Error("source pack missing waiver roles")
		}
	})
}

func TestParsePolicyRejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"malformed yaml", "routes: ["},
		{"unknown severity", "routes:\n  catastrophic:\n    venue_manager: gm"},
		{"unknown from role", "routes:\n  critical:\n    shift_lead: gm"},
		{"unknown to role", "routes:\n  critical:\n    venue_manager: ceo"},
		{"route that demotes", "routes:\n  critical:\n    gm: venue_manager"},
		{"route to itself", "routes:\n  critical:\n    gm: gm"},
		{"route off the ladder", "routes:\n  critical:\n    venue_manager: standards_admin"},
		{"unknown waiver role", "waiver_roles: [janitor]"},
		{"unknown stall severity", "stall_slas:\n  catastrophic: 4h"},
		{"unparseable stall sla", "stall_slas:\n  critical: 4 hours"},
		{"zero stall sla", "stall_slas:\n  critical: 0s"},
		{"zero-day window", "pattern_windows:\n  - days: 0\n    min_count: 3"},
		{"zero-count window", "pattern_windows:\n  - days: 7\n    min_count: 0"},
		{"missing due ttls", "routes:\n  critical:\n    venue_manager: gm"},
		{"missing warning ttl", "due_ttls:\n  critical: 24h"},
		{"unparseable due ttl", "due_ttls:\n  critical: soon\n  warning: 48h"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParsePolicy([]byte(tt.raw)); !errors.Is(err, ErrInvalidPolicy) {
				t.Errorf("ParsePolicy() error = %v, want ErrInvalidPolicy", err)
			}
		})
	}
}

func TestLoadPolicy(t *testing.T) {
	t.Run("empty path loads the embedded pack", func(t *testing.T) {
		p, err := LoadPolicy("")
		if err != nil {
			t.Fatalf("LoadPolicy() error: %v", err)
		}
		if next, ok := p.NextRole(enforcement.SeverityCritical, enforcement.RoleVenueManager); !ok || next != enforcement.RoleGM {
			t.Errorf("NextRole = %q, %v, want gm from the default pack", next, ok)
		}
	})

	t.Run("path overrides the embedded pack", func(t *testing.T) {
		pack := `routes:
  critical:
    venue_manager: owner
waiver_roles: [owner]
stall_slas:
  critical: 2h
pattern_windows:
  - days: 3
    min_count: 2
due_ttls:
  critical: 12h
  warning: 48h
`
		path := filepath.Join(t.TempDir(), "policy.yaml")
		if err := os.WriteFile(path, []byte(pack), 0o600); err != nil {
			t.Fatalf("write pack: %v", err)
		}

		p, err := LoadPolicy(path)
		if err != nil {
			t.Fatalf("LoadPolicy() error: %v", err)
		}

		if next, ok := p.NextRole(enforcement.SeverityCritical, enforcement.RoleVenueManager); !ok || next != enforcement.RoleOwner {
			t.Errorf("NextRole = %q, %v, want owner from the override", next, ok)
		}
		if sla, ok := p.StallSLA(enforcement.SeverityWarning); ok {
			t.Errorf("warning sla = %v, want disabled", sla)
		}
		if ttl := p.Timing().DueTTLCritical; ttl != 12*time.Hour {
			t.Errorf("critical ttl = %v, want 12h", ttl)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadPolicy(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
			t.Error("LoadPolicy() should fail for a missing file")
		}
	})
}
