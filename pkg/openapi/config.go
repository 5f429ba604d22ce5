package openapi

import "os"

// Config carries the document metadata surfaced in the info object.
type Config struct {
	Title       string `toml:"title"`
	Description string `toml:"description"`
}

// ConfigEnv names the environment variable overriding each Config field.
type ConfigEnv struct {
	Title       string
	Description string
}

// Finalize applies defaults, then environment overrides.
func (c *Config) Finalize(env *ConfigEnv) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Title != "" {
		c.Title = overlay.Title
	}
	if overlay.Description != "" {
		c.Description = overlay.Description
	}
}

func (c *Config) loadDefaults() {
	if c.Title == "" {
		c.Title = "Steward API"
	}
	if c.Description == "" {
		c.Description = "Closed-loop operational enforcement for multi-tenant restaurant platforms."
	}
}

func (c *Config) loadEnv(env *ConfigEnv) {
	if v := os.Getenv(env.Title); v != "" {
		c.Title = v
	}
	if v := os.Getenv(env.Description); v != "" {
		c.Description = v
	}
}
