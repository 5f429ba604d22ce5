package escalation

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/backofhouse/steward/internal/enforcement"
	"github.com/backofhouse/steward/internal/feedback"
)

//go:embed policy.yaml
var defaultPack []byte

// Window is one pattern-rule lookback: MinCount critical signals of the
// same type within Days escalate the type's open objects.
type Window struct {
	Days     int `yaml:"days" json:"days"`
	MinCount int `yaml:"min_count" json:"min_count"`
}

// Pack is the policy pack wire format. Severities and roles are plain
// strings here; ParsePolicy validates them against the closed
// vocabulary.
type Pack struct {
	Routes      map[string]map[string]string `yaml:"routes" json:"routes"`
	WaiverRoles []string                     `yaml:"waiver_roles" json:"waiver_roles"`
	StallSLAs   map[string]string            `yaml:"stall_slas" json:"stall_slas"`
	Windows     []Window                     `yaml:"pattern_windows" json:"pattern_windows"`
	DueTTLs     map[string]string            `yaml:"due_ttls" json:"due_ttls"`
}

// Policy is a validated policy pack compiled for routing decisions. It
// implements feedback.Policy.
type Policy struct {
	pack      Pack
	routes    map[enforcement.Severity]map[enforcement.Role]enforcement.Role
	waivers   map[enforcement.Role]bool
	stallSLAs map[enforcement.Severity]time.Duration
	timing    feedback.Timing
}

// LoadPolicy reads and compiles a policy pack from path. An empty path
// loads the embedded default pack.
func LoadPolicy(path string) (*Policy, error) {
	raw := defaultPack
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read policy pack: %w", err)
		}
		raw = b
	}
	return ParsePolicy(raw)
}

// ParsePolicy compiles and validates a policy pack. Unknown severities
// or roles, non-positive durations, and routes that do not climb the
// ownership ladder are all rejected.
func ParsePolicy(raw []byte) (*Policy, error) {
	var pack Pack
	if err := yaml.Unmarshal(raw, &pack); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}

	p := &Policy{
		pack:      pack,
		routes:    make(map[enforcement.Severity]map[enforcement.Role]enforcement.Role, len(pack.Routes)),
		waivers:   make(map[enforcement.Role]bool, len(pack.WaiverRoles)),
		stallSLAs: make(map[enforcement.Severity]time.Duration, len(pack.StallSLAs)),
	}

	for sev, hops := range pack.Routes {
		severity, err := enforcement.ParseSeverity(sev)
		if err != nil {
			return nil, fmt.Errorf("%w: route severity %q", ErrInvalidPolicy, sev)
		}

		compiled := make(map[enforcement.Role]enforcement.Role, len(hops))
		for from, to := range hops {
			fromRole, err := enforcement.ParseRole(from)
			if err != nil {
				return nil, fmt.Errorf("%w: route role %q", ErrInvalidPolicy, from)
			}
			toRole, err := enforcement.ParseRole(to)
			if err != nil {
				return nil, fmt.Errorf("%w: route role %q", ErrInvalidPolicy, to)
			}
			if !toRole.Outranks(fromRole) {
				return nil, fmt.Errorf("%w: %s route: %s does not outrank %s", ErrInvalidPolicy, sev, to, from)
			}
			compiled[fromRole] = toRole
		}
		p.routes[severity] = compiled
	}

	for _, raw := range pack.WaiverRoles {
		role, err := enforcement.ParseRole(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: waiver role %q", ErrInvalidPolicy, raw)
		}
		p.waivers[role] = true
	}

	for sev, value := range pack.StallSLAs {
		severity, err := enforcement.ParseSeverity(sev)
		if err != nil {
			return nil, fmt.Errorf("%w: stall severity %q", ErrInvalidPolicy, sev)
		}
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("%w: stall sla %q for %s", ErrInvalidPolicy, value, sev)
		}
		p.stallSLAs[severity] = d
	}

	for i, w := range pack.Windows {
		if w.Days <= 0 || w.MinCount <= 0 {
			return nil, fmt.Errorf("%w: pattern window %d requires positive days and min_count", ErrInvalidPolicy, i)
		}
	}

	timing, err := packTiming(pack.DueTTLs)
	if err != nil {
		return nil, err
	}
	p.timing = timing

	return p, nil
}

func packTiming(ttls map[string]string) (feedback.Timing, error) {
	var t feedback.Timing

	for sev, value := range ttls {
		severity, err := enforcement.ParseSeverity(sev)
		if err != nil {
			return t, fmt.Errorf("%w: due ttl severity %q", ErrInvalidPolicy, sev)
		}
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return t, fmt.Errorf("%w: due ttl %q for %s", ErrInvalidPolicy, value, sev)
		}

		switch severity {
		case enforcement.SeverityCritical:
			t.DueTTLCritical = d
		case enforcement.SeverityWarning:
			t.DueTTLWarning = d
		}
	}

	if t.DueTTLCritical == 0 || t.DueTTLWarning == 0 {
		return t, fmt.Errorf("%w: due ttls for critical and warning are required", ErrInvalidPolicy)
	}
	return t, nil
}

// NextRole returns the next owner on the escalation ladder for the
// severity, or false when the current owner has no further route.
func (p *Policy) NextRole(severity enforcement.Severity, current enforcement.Role) (enforcement.Role, bool) {
	next, ok := p.routes[severity][current]
	return next, ok
}

// CanWaive reports whether any of the roles carries waiver capability.
func (p *Policy) CanWaive(roles []enforcement.Role) bool {
	for _, role := range roles {
		if p.waivers[role] {
			return true
		}
	}
	return false
}

// StallSLA returns the acknowledged-without-action SLA for a severity.
// A missing SLA disables the stall rule for that severity.
func (p *Policy) StallSLA(severity enforcement.Severity) (time.Duration, bool) {
	d, ok := p.stallSLAs[severity]
	return d, ok
}

// Windows returns the pattern-rule lookback windows.
func (p *Policy) Windows() []Window {
	return p.pack.Windows
}

// Timing returns the due-time TTLs the pack carries.
func (p *Policy) Timing() feedback.Timing {
	return p.timing
}

// Source returns the pack as loaded, for inspection surfaces.
func (p *Policy) Source() Pack {
	return p.pack
}
