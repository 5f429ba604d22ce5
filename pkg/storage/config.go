package storage

import (
	"fmt"
	"os"
)

// Config holds the blob storage connection parameters.
type Config struct {
	ContainerName    string `toml:"container_name"`
	ConnectionString string `toml:"connection_string"`
}

// ConfigEnv names the environment variable overriding each Config field.
type ConfigEnv struct {
	ContainerName    string
	ConnectionString string
}

// Finalize applies defaults, then environment overrides, then validates.
func (c *Config) Finalize(env *ConfigEnv) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.ContainerName != "" {
		c.ContainerName = overlay.ContainerName
	}
	if overlay.ConnectionString != "" {
		c.ConnectionString = overlay.ConnectionString
	}
}

func (c *Config) loadDefaults() {
	if c.ContainerName == "" {
		c.ContainerName = "briefings"
	}
}

func (c *Config) loadEnv(env *ConfigEnv) {
	if v := os.Getenv(env.ContainerName); v != "" {
		c.ContainerName = v
	}
	if v := os.Getenv(env.ConnectionString); v != "" {
		c.ConnectionString = v
	}
}

func (c *Config) validate() error {
	if c.ContainerName == "" {
		return fmt.Errorf("container_name required")
	}
	if c.ConnectionString == "" {
		return fmt.Errorf("connection_string required")
	}
	return nil
}
