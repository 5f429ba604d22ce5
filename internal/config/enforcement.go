package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvEnforcementConfidenceFloor  = "STEWARD_ENFORCEMENT_CONFIDENCE_FLOOR"
	EnvEnforcementDueTTLCritical   = "STEWARD_ENFORCEMENT_DUE_TTL_CRITICAL"
	EnvEnforcementDueTTLWarning    = "STEWARD_ENFORCEMENT_DUE_TTL_WARNING"
	EnvEnforcementPolicyPath       = "STEWARD_ENFORCEMENT_POLICY_PATH"
	EnvEnforcementSweepConcurrency = "STEWARD_ENFORCEMENT_SWEEP_CONCURRENCY"
)

// EnforcementConfig holds the engine knobs: the actionability threshold,
// optional due-TTL overrides, the policy pack location, and sweep
// parallelism. Due TTLs default to the policy pack's values; setting
// them here overrides the pack.
type EnforcementConfig struct {
	ConfidenceFloor  float64 `toml:"confidence_floor"`
	DueTTLCritical   string  `toml:"due_ttl_critical"`
	DueTTLWarning    string  `toml:"due_ttl_warning"`
	PolicyPath       string  `toml:"policy_path"`
	SweepConcurrency int     `toml:"sweep_concurrency"`
}

// DueTTLCriticalDuration returns the critical due-TTL override, or zero
// when the policy pack's value should stand.
func (c *EnforcementConfig) DueTTLCriticalDuration() time.Duration {
	d, _ := time.ParseDuration(c.DueTTLCritical)
	return d
}

// DueTTLWarningDuration returns the warning due-TTL override, or zero
// when the policy pack's value should stand.
func (c *EnforcementConfig) DueTTLWarningDuration() time.Duration {
	d, _ := time.ParseDuration(c.DueTTLWarning)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *EnforcementConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *EnforcementConfig) Merge(overlay *EnforcementConfig) {
	if overlay.ConfidenceFloor != 0 {
		c.ConfidenceFloor = overlay.ConfidenceFloor
	}
	if overlay.DueTTLCritical != "" {
		c.DueTTLCritical = overlay.DueTTLCritical
	}
	if overlay.DueTTLWarning != "" {
		c.DueTTLWarning = overlay.DueTTLWarning
	}
	if overlay.PolicyPath != "" {
		c.PolicyPath = overlay.PolicyPath
	}
	if overlay.SweepConcurrency != 0 {
		c.SweepConcurrency = overlay.SweepConcurrency
	}
}

func (c *EnforcementConfig) loadDefaults() {
	if c.ConfidenceFloor == 0 {
		c.ConfidenceFloor = 0.60
	}
	if c.SweepConcurrency == 0 {
		c.SweepConcurrency = 4
	}
}

func (c *EnforcementConfig) loadEnv() {
	if v := os.Getenv(EnvEnforcementConfidenceFloor); v != "" {
		if floor, err := strconv.ParseFloat(v, 64); err == nil {
			c.ConfidenceFloor = floor
		}
	}
	if v := os.Getenv(EnvEnforcementDueTTLCritical); v != "" {
		c.DueTTLCritical = v
	}
	if v := os.Getenv(EnvEnforcementDueTTLWarning); v != "" {
		c.DueTTLWarning = v
	}
	if v := os.Getenv(EnvEnforcementPolicyPath); v != "" {
		c.PolicyPath = v
	}
	if v := os.Getenv(EnvEnforcementSweepConcurrency); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.SweepConcurrency = n
		}
	}
}

func (c *EnforcementConfig) validate() error {
	if c.ConfidenceFloor < 0 || c.ConfidenceFloor > 1 {
		return fmt.Errorf("invalid confidence_floor: %v", c.ConfidenceFloor)
	}
	if c.DueTTLCritical != "" {
		if d, err := time.ParseDuration(c.DueTTLCritical); err != nil || d <= 0 {
			return fmt.Errorf("invalid due_ttl_critical: %s", c.DueTTLCritical)
		}
	}
	if c.DueTTLWarning != "" {
		if d, err := time.ParseDuration(c.DueTTLWarning); err != nil || d <= 0 {
			return fmt.Errorf("invalid due_ttl_warning: %s", c.DueTTLWarning)
		}
	}
	if c.SweepConcurrency < 1 {
		return fmt.Errorf("invalid sweep_concurrency: %d", c.SweepConcurrency)
	}
	return nil
}
