// Package config loads the demo CLI's on-disk configuration, the same
// way cmd/warren's "apply" command loads a resource file: read the
// whole thing, then gopkg.in/yaml.v3.Unmarshal it into a typed struct.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk shape of jpdictsync's config file.
type Config struct {
	BaseURL  string      `yaml:"baseURL"`
	DataDir  string      `yaml:"dataDir"`
	Language string      `yaml:"language"`
	LogLevel string      `yaml:"logLevel"`
	LogJSON  bool        `yaml:"logJSON"`
	Retry    RetryConfig `yaml:"retry"`
}

// RetryConfig configures the update-with-retry controller.
type RetryConfig struct {
	// ConstraintViolationRetryDelay overrides the fixed idle-timer delay
	// between storage constraint-violation retries. Zero uses the
	// controller's built-in default.
	ConstraintViolationRetryDelay time.Duration `yaml:"constraintViolationRetryDelay"`
}

const (
	DefaultBaseURL  = "https://data.10ten.life/jpdict/"
	DefaultDataDir  = "./data"
	DefaultLanguage = "en"
	DefaultLogLevel = "info"
)

// Load reads and parses the YAML config file at path. A missing
// baseURL, dataDir, language or logLevel is filled with its default
// rather than rejected, matching the permissive style of the teacher's
// resource loader.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.Language == "" {
		c.Language = DefaultLanguage
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}
