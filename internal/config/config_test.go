package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()

	base := `
version = "1.2.3"

[server]
port = 9000

[database]
name = "steward"
user = "steward"

[storage]
container_name = "steward-archive"
connection_string = "UseDevelopmentStorage=true"

[enforcement]
confidence_floor = 0.5
sweep_concurrency = 2
`
	overlay := `
[server]
port = 9100

[enforcement]
confidence_floor = 0.7
`

	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(base), 0o600); err != nil {
		t.Fatalf("write base: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.test.toml"), []byte(overlay), 0o600); err != nil {
		t.Fatalf("write overlay: %v", err)
	}

	t.Chdir(dir)
	t.Setenv(EnvStewardEnv, "test")
	t.Setenv(EnvEnforcementConfidenceFloor, "0.9")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Version != "1.2.3" {
		t.Errorf("version = %q, want the base value", cfg.Version)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("port = %d, want the overlay value 9100", cfg.Server.Port)
	}
	if cfg.Enforcement.ConfidenceFloor != 0.9 {
		t.Errorf("confidence floor = %v, want the env value 0.9", cfg.Enforcement.ConfidenceFloor)
	}
	if cfg.Enforcement.SweepConcurrency != 2 {
		t.Errorf("sweep concurrency = %d, want the base value 2", cfg.Enforcement.SweepConcurrency)
	}
}

func TestLoadFromEnvironmentOnly(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STEWARD_DB_NAME", "steward")
	t.Setenv("STEWARD_DB_USER", "steward")
	t.Setenv("STEWARD_STORAGE_CONTAINER_NAME", "steward-archive")
	t.Setenv("STEWARD_STORAGE_CONNECTION_STRING", "UseDevelopmentStorage=true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Name != "steward" {
		t.Errorf("database name = %q, want the env value", cfg.Database.Name)
	}
	if cfg.Enforcement.ConfidenceFloor != 0.60 {
		t.Errorf("confidence floor = %v, want 0.60", cfg.Enforcement.ConfidenceFloor)
	}
	if cfg.Enforcement.SweepConcurrency != 4 {
		t.Errorf("sweep concurrency = %d, want 4", cfg.Enforcement.SweepConcurrency)
	}
	if cfg.Enforcement.DueTTLCritical != "" || cfg.Enforcement.DueTTLWarning != "" {
		t.Error("due ttls should stay unset so the policy pack's values stand")
	}
	if cfg.Auth.Mode != "header" {
		t.Errorf("auth mode = %q, want header", cfg.Auth.Mode)
	}
	if cfg.ShutdownTimeoutDuration() != 30*time.Second {
		t.Errorf("shutdown timeout = %v, want 30s", cfg.ShutdownTimeoutDuration())
	}
}

func TestLoadMissingRequiredFields(t *testing.T) {
	t.Chdir(t.TempDir())

	if _, err := Load(); err == nil {
		t.Fatal("Load() should fail without a database name or user")
	}
}

func TestConfigMerge(t *testing.T) {
	cfg := &Config{
		Version:         "0.1.0",
		ShutdownTimeout: "30s",
	}
	cfg.Server.Port = 8080
	cfg.Enforcement.ConfidenceFloor = 0.5
	cfg.Enforcement.PolicyPath = "policies/base.yaml"

	overlay := &Config{Version: "0.2.0"}
	overlay.Server.Port = 9090
	overlay.Enforcement.ConfidenceFloor = 0.8

	cfg.Merge(overlay)

	if cfg.Version != "0.2.0" {
		t.Errorf("version = %q, want 0.2.0", cfg.Version)
	}
	if cfg.ShutdownTimeout != "30s" {
		t.Errorf("shutdown timeout = %q, zero overlay fields must not overwrite", cfg.ShutdownTimeout)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Enforcement.ConfidenceFloor != 0.8 {
		t.Errorf("confidence floor = %v, want 0.8", cfg.Enforcement.ConfidenceFloor)
	}
	if cfg.Enforcement.PolicyPath != "policies/base.yaml" {
		t.Errorf("policy path = %q, zero overlay fields must not overwrite", cfg.Enforcement.PolicyPath)
	}
}

func TestEnforcementConfigFinalize(t *testing.T) {
	t.Run("applies env overrides", func(t *testing.T) {
		t.Setenv(EnvEnforcementDueTTLCritical, "12h")
		t.Setenv(EnvEnforcementDueTTLWarning, "36h")
		t.Setenv(EnvEnforcementPolicyPath, "/etc/steward/policy.yaml")
		t.Setenv(EnvEnforcementSweepConcurrency, "8")

		var cfg EnforcementConfig
		if err := cfg.Finalize(); err != nil {
			t.Fatalf("Finalize() error: %v", err)
		}

		if cfg.DueTTLCriticalDuration() != 12*time.Hour {
			t.Errorf("critical ttl = %v, want 12h", cfg.DueTTLCriticalDuration())
		}
		if cfg.DueTTLWarningDuration() != 36*time.Hour {
			t.Errorf("warning ttl = %v, want 36h", cfg.DueTTLWarningDuration())
		}
		if cfg.PolicyPath != "/etc/steward/policy.yaml" {
			t.Errorf("policy path = %q", cfg.PolicyPath)
		}
		if cfg.SweepConcurrency != 8 {
			t.Errorf("sweep concurrency = %d, want 8", cfg.SweepConcurrency)
		}
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		tests := []struct {
			name string
			cfg  EnforcementConfig
		}{
			{"floor above one", EnforcementConfig{ConfidenceFloor: 1.5}},
			{"negative floor", EnforcementConfig{ConfidenceFloor: -0.1}},
			{"unparseable ttl", EnforcementConfig{DueTTLCritical: "2 days"}},
			{"negative ttl", EnforcementConfig{DueTTLWarning: "-1h"}},
			{"negative concurrency", EnforcementConfig{SweepConcurrency: -1}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if err := tt.cfg.Finalize(); err == nil {
					t.Error("Finalize() should reject the value")
				}
			})
		}
	})
}
