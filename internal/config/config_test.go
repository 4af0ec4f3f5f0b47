// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, and duration parsing

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
database:
  identity_path: "./identity.db"
  content_dir: "./content"

network:
  request_timeout: "45s"
  user_agent: "fedicache/1.0"

logging:
  level: "debug"
  format: "json"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Verify database config
	if cfg.Database.IdentityPath != "./identity.db" {
		t.Errorf("Database.IdentityPath = %q, want %q", cfg.Database.IdentityPath, "./identity.db")
	}
	if cfg.Database.ContentDir != "./content" {
		t.Errorf("Database.ContentDir = %q, want %q", cfg.Database.ContentDir, "./content")
	}

	// Verify network config with duration parsing
	if cfg.Network.RequestTimeout != 45*time.Second {
		t.Errorf("Network.RequestTimeout = %v, want %v", cfg.Network.RequestTimeout, 45*time.Second)
	}
	if cfg.Network.UserAgent != "fedicache/1.0" {
		t.Errorf("Network.UserAgent = %q, want %q", cfg.Network.UserAgent, "fedicache/1.0")
	}

	// Verify logging config
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "json")
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_CONTENT_DIR", "/var/lib/fedicache")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
database:
  identity_path: "./identity.db"
  content_dir: "${TEST_CONTENT_DIR}"

logging:
  level: "info"
  format: "text"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.ContentDir != "/var/lib/fedicache" {
		t.Errorf("Database.ContentDir = %q, want %q", cfg.Database.ContentDir, "/var/lib/fedicache")
	}
}

func TestLoad_DefaultRequestTimeout(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
database:
  identity_path: "./identity.db"
  content_dir: "./content"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Network.RequestTimeout != 30*time.Second {
		t.Errorf("Network.RequestTimeout = %v, want default %v", cfg.Network.RequestTimeout, 30*time.Second)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	// Invalid YAML content
	configContent := `
database:
  identity_path: "./identity.db"
  content_dir "missing colon"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err = Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
database:
  identity_path: "./identity.db"
  content_dir: "./content"

network:
  request_timeout: "invalid-duration"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err = Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid duration, got nil")
	}
}

func TestLoad_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name          string
		configContent string
		wantErrSubstr string
	}{
		{
			name: "missing identity_path",
			configContent: `
database:
  identity_path: ""
  content_dir: "./content"
`,
			wantErrSubstr: "database.identity_path is required",
		},
		{
			name: "missing content_dir",
			configContent: `
database:
  identity_path: "./identity.db"
  content_dir: ""
`,
			wantErrSubstr: "database.content_dir is required",
		},
		{
			name: "bad logging format",
			configContent: `
database:
  identity_path: "./identity.db"
  content_dir: "./content"
logging:
  format: "xml"
`,
			wantErrSubstr: "logging.format must be text or json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			configPath := filepath.Join(tmpDir, "config.yaml")

			err := os.WriteFile(configPath, []byte(tt.configContent), 0644)
			if err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}

			_, err = Load(configPath)
			if err == nil {
				t.Errorf("Load() expected error containing %q, got nil", tt.wantErrSubstr)
				return
			}

			if !strings.Contains(err.Error(), tt.wantErrSubstr) {
				t.Errorf("Load() error = %q, want error containing %q", err.Error(), tt.wantErrSubstr)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("FOO", "bar")
	t.Setenv("BAZ", "qux")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "single env var",
			input:    "${FOO}",
			expected: "bar",
		},
		{
			name:     "env var with surrounding text",
			input:    "prefix-${FOO}-suffix",
			expected: "prefix-bar-suffix",
		},
		{
			name:     "multiple env vars",
			input:    "${FOO}/${BAZ}",
			expected: "bar/qux",
		},
		{
			name:     "no env vars",
			input:    "no-vars-here",
			expected: "no-vars-here",
		},
		{
			name:     "unset env var",
			input:    "${UNSET_VAR}",
			expected: "",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := expandEnvVars(tt.input)
			if result != tt.expected {
				t.Errorf("expandEnvVars(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
