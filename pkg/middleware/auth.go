package middleware

import (
	"fmt"
	"os"
)

// Authentication modes supported by the principal middleware.
const (
	AuthModeHeader = "header"
	AuthModeOIDC   = "oidc"
)

// AuthConfig holds principal resolution settings. In header mode the
// listed trusted headers carry the caller identity; in oidc mode bearer
// tokens are verified against the configured issuer.
type AuthConfig struct {
	Mode          string `toml:"mode"`
	Issuer        string `toml:"issuer"`
	Audience      string `toml:"audience"`
	TenantClaim   string `toml:"tenant_claim"`
	RolesClaim    string `toml:"roles_claim"`
	TenantHeader  string `toml:"tenant_header"`
	SubjectHeader string `toml:"subject_header"`
	RolesHeader   string `toml:"roles_header"`
}

// AuthEnv maps auth config fields to environment variable names for
// override injection.
type AuthEnv struct {
	Mode     string
	Issuer   string
	Audience string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *AuthConfig) Finalize(env *AuthEnv) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *AuthConfig) Merge(overlay *AuthConfig) {
	if overlay.Mode != "" {
		c.Mode = overlay.Mode
	}
	if overlay.Issuer != "" {
		c.Issuer = overlay.Issuer
	}
	if overlay.Audience != "" {
		c.Audience = overlay.Audience
	}
	if overlay.TenantClaim != "" {
		c.TenantClaim = overlay.TenantClaim
	}
	if overlay.RolesClaim != "" {
		c.RolesClaim = overlay.RolesClaim
	}
	if overlay.TenantHeader != "" {
		c.TenantHeader = overlay.TenantHeader
	}
	if overlay.SubjectHeader != "" {
		c.SubjectHeader = overlay.SubjectHeader
	}
	if overlay.RolesHeader != "" {
		c.RolesHeader = overlay.RolesHeader
	}
}

func (c *AuthConfig) loadDefaults() {
	if c.Mode == "" {
		c.Mode = AuthModeHeader
	}
	if c.TenantClaim == "" {
		c.TenantClaim = "tenant_id"
	}
	if c.RolesClaim == "" {
		c.RolesClaim = "roles"
	}
	if c.TenantHeader == "" {
		c.TenantHeader = "X-Steward-Tenant"
	}
	if c.SubjectHeader == "" {
		c.SubjectHeader = "X-Steward-Subject"
	}
	if c.RolesHeader == "" {
		c.RolesHeader = "X-Steward-Roles"
	}
}

func (c *AuthConfig) loadEnv(env *AuthEnv) {
	if env.Mode != "" {
		if v := os.Getenv(env.Mode); v != "" {
			c.Mode = v
		}
	}
	if env.Issuer != "" {
		if v := os.Getenv(env.Issuer); v != "" {
			c.Issuer = v
		}
	}
	if env.Audience != "" {
		if v := os.Getenv(env.Audience); v != "" {
			c.Audience = v
		}
	}
}

func (c *AuthConfig) validate() error {
	switch c.Mode {
	case AuthModeHeader:
		return nil
	case AuthModeOIDC:
		if c.Issuer == "" {
			return fmt.Errorf("issuer required in oidc mode")
		}
		if c.Audience == "" {
			return fmt.Errorf("audience required in oidc mode")
		}
		return nil
	default:
		return fmt.Errorf("invalid auth mode: %s", c.Mode)
	}
}
