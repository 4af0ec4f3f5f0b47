// Package config handles configuration loading for fedicache.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	database:
//	  content_dir: "${FEDICACHE_DATA_DIR}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	network:
//	  request_timeout: "30s"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Database locations:
//
//	database:
//	  identity_path: "/var/lib/fedicache/identity.db"
//	  content_dir: "/var/lib/fedicache/content"
//
// Network:
//
//	network:
//	  request_timeout: "30s"
//	  user_agent: "fedicache/1.0"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load("/etc/fedicache/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
