package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GLOW_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Quota.DailyLimit)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Server.RateLimit.Enabled)
	assert.Empty(t, cfg.License.IssuerPublicKey)
	assert.True(t, filepath.IsAbs(cfg.Paths.DataDir))
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("GLOW_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("GLOW_SERVER_PORT", "9090")
	t.Setenv("GLOW_QUOTA_DAILY_LIMIT", "10")
	t.Setenv("GLOW_LICENSE_ISSUER_PUBLIC_KEY", "dGVzdA==")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Quota.DailyLimit)
	assert.Equal(t, "dGVzdA==", cfg.License.IssuerPublicKey)
}

func TestLoadPartialConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("server:\n  port: 9090\n"), 0644))
	t.Setenv("GLOW_CONFIG_FILE", file)

	cfg, err := Load()
	require.NoError(t, err)

	// The file value applies
	assert.Equal(t, 9090, cfg.Server.Port)

	// Every field the file omits keeps its default
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "console", cfg.Logging.Output)
	assert.Equal(t, 5, cfg.Quota.DailyLimit)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.IdleTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.True(t, cfg.Server.RateLimit.Enabled)
	assert.Equal(t, float64(1), cfg.Server.RateLimit.RPS)
	assert.Equal(t, 5, cfg.Server.RateLimit.Burst)
}

func TestEnvTakesPrecedenceOverFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	content := "server:\n  port: 9090\nquota:\n  daily_limit: 20\n"
	require.NoError(t, os.WriteFile(file, []byte(content), 0644))
	t.Setenv("GLOW_CONFIG_FILE", file)
	t.Setenv("GLOW_SERVER_PORT", "7070")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port, "env wins over file")
	assert.Equal(t, 20, cfg.Quota.DailyLimit, "file wins over default")
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"unknown log output", func(c *Config) { c.Logging.Output = "syslog" }},
		{"zero quota", func(c *Config) { c.Quota.DailyLimit = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{
				Server:  ServerConfig{Port: 8080},
				Quota:   QuotaConfig{DailyLimit: 5},
				Logging: LoggingConfig{Level: "info", Output: "console"},
			}
			tt.mutate(&cfg)
			assert.Error(t, cfg.validate())
		})
	}
}

func TestPathsFileNames(t *testing.T) {
	paths := NewPaths(PathsConfig{DataDir: "/data", LogsDir: "/logs"})

	assert.Equal(t, filepath.Join("/data", InstallIDFile), paths.InstallIDPath())
	assert.Equal(t, filepath.Join("/data", KeyPairFile), paths.KeyPairPath())
	assert.Equal(t, filepath.Join("/data", LicenseFile), paths.LicensePath())
	assert.Equal(t, filepath.Join("/data", UsageFile), paths.UsagePath())
}
