// ABOUTME: Configuration loading and parsing for fedicache
// ABOUTME: Supports YAML files with environment variable expansion

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete fedicache configuration
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Network  NetworkConfig  `yaml:"network"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig holds database location configuration
type DatabaseConfig struct {
	// IdentityPath is the identity database file path
	IdentityPath string `yaml:"identity_path"`
	// ContentDir is the directory holding per-identity content databases
	ContentDir string `yaml:"content_dir"`
}

// NetworkConfig holds upstream request configuration, consumed by
// api.NewHTTPTransport when building a client's HTTP stack
type NetworkConfig struct {
	RequestTimeout time.Duration `yaml:"-"`
	UserAgent      string        `yaml:"user_agent"`

	// Raw string value for YAML unmarshaling
	RequestTimeoutRaw string `yaml:"request_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Database.IdentityPath == "" {
		return fmt.Errorf("database.identity_path is required")
	}
	if c.Database.ContentDir == "" {
		return fmt.Errorf("database.content_dir is required")
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Network.RequestTimeoutRaw != "" {
		cfg.Network.RequestTimeout, err = time.ParseDuration(cfg.Network.RequestTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing request_timeout %q: %w", cfg.Network.RequestTimeoutRaw, err)
		}
	}
	if cfg.Network.RequestTimeout == 0 {
		cfg.Network.RequestTimeout = 30 * time.Second
	}

	return nil
}
