// Package config provides centralized configuration management for the
// GlowSuite licensing core. It handles loading configuration from multiple
// sources, validation, and path resolution for the on-device stores.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//  1. Environment variables (highest priority)
//  2. Configuration file (YAML, next to the executable)
//  3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern GLOW_* for namespacing:
//
//	GLOW_SERVER_PORT=8080
//	GLOW_QUOTA_DAILY_LIMIT=5
//	GLOW_LOGGING_LEVEL=info
//	GLOW_PATHS_DATA_DIR=data
//
// # Path Management
//
// The Paths type resolves the four on-device storage files (install id,
// key pair, license blob, usage counter) inside a single data directory
// anchored at the executable location. The data directory is created with
// mode 0700 since it holds private key material.
package config
