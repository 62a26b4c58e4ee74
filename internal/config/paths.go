package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Storage file names inside the data directory. One file per persisted
// record; replacing a file overwrites any prior value.
const (
	InstallIDFile = "install_id"
	KeyPairFile   = "keypair.dat"
	LicenseFile   = "license.dat"
	UsageFile     = "usage.json"
)

// Paths holds all resolved file system paths used by the application
type Paths struct {
	DataDir string
	LogsDir string
}

// NewPaths builds a Paths from configuration
func NewPaths(cfg PathsConfig) *Paths {
	return &Paths{
		DataDir: cfg.DataDir,
		LogsDir: cfg.LogsDir,
	}
}

// EnsureDirectories creates all required directories with restrictive
// permissions. The data dir holds key material, hence 0700.
func (p *Paths) EnsureDirectories() error {
	if err := os.MkdirAll(p.DataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data directory %s: %w", p.DataDir, err)
	}
	if err := os.MkdirAll(p.LogsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory %s: %w", p.LogsDir, err)
	}
	return nil
}

// InstallIDPath returns the installation identifier file path
func (p *Paths) InstallIDPath() string {
	return filepath.Join(p.DataDir, InstallIDFile)
}

// KeyPairPath returns the device key pair file path
func (p *Paths) KeyPairPath() string {
	return filepath.Join(p.DataDir, KeyPairFile)
}

// LicensePath returns the license blob file path
func (p *Paths) LicensePath() string {
	return filepath.Join(p.DataDir, LicenseFile)
}

// UsagePath returns the daily usage counter file path
func (p *Paths) UsagePath() string {
	return filepath.Join(p.DataDir, UsageFile)
}

// LogPathResolution logs all resolved paths at startup for debugging
func (p *Paths) LogPathResolution() {
	slog.Info("Resolved application paths",
		slog.String("data_dir", p.DataDir),
		slog.String("logs_dir", p.LogsDir),
		slog.String("install_id_file", p.InstallIDPath()),
		slog.String("keypair_file", p.KeyPairPath()),
		slog.String("license_file", p.LicensePath()),
		slog.String("usage_file", p.UsagePath()),
	)
}
