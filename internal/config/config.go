package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server" envconfig:"SERVER"`
	License LicenseConfig `yaml:"license" envconfig:"LICENSE"`
	Quota   QuotaConfig   `yaml:"quota" envconfig:"QUOTA"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
	Paths   PathsConfig   `yaml:"paths" envconfig:"PATHS"`
}

// ServerConfig contains HTTP server configuration for the local UI API
type ServerConfig struct {
	Port            int             `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig throttles license activation attempts
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"1"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"5"`
}

// LicenseConfig contains license verification configuration
type LicenseConfig struct {
	// IssuerPublicKey overrides the embedded issuer verification key.
	// Base64-encoded SPKI. Empty means use the built-in key.
	IssuerPublicKey string `yaml:"issuer_public_key" envconfig:"ISSUER_PUBLIC_KEY"`
}

// QuotaConfig contains free-tier daily usage configuration
type QuotaConfig struct {
	DailyLimit int `yaml:"daily_limit" envconfig:"DAILY_LIMIT" default:"5"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	LogsDir string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("GLOW", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	configFile := getConfigFilePath()
	if _, err := os.Stat(configFile); err == nil {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	if err := cfg.resolvePaths(); err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs merges the config file into the envconfig result. The
// env result is the base, so defaults survive a partial file; a file
// value applies only where it is set and the matching env var did not
// move the field off its default. Precedence: env, then file, then
// defaults.
func mergeConfigs(fileConfig, envConfig Config) Config {
	merged := envConfig

	if fileConfig.Server.Port != 0 && envConfig.Server.Port == 8080 {
		merged.Server.Port = fileConfig.Server.Port
	}
	if fileConfig.Server.ReadTimeout != 0 && envConfig.Server.ReadTimeout == 15*time.Second {
		merged.Server.ReadTimeout = fileConfig.Server.ReadTimeout
	}
	if fileConfig.Server.WriteTimeout != 0 && envConfig.Server.WriteTimeout == 15*time.Second {
		merged.Server.WriteTimeout = fileConfig.Server.WriteTimeout
	}
	if fileConfig.Server.IdleTimeout != 0 && envConfig.Server.IdleTimeout == 60*time.Second {
		merged.Server.IdleTimeout = fileConfig.Server.IdleTimeout
	}
	if fileConfig.Server.ShutdownTimeout != 0 && envConfig.Server.ShutdownTimeout == 30*time.Second {
		merged.Server.ShutdownTimeout = fileConfig.Server.ShutdownTimeout
	}
	// rate_limit.enabled merges from env only: a yaml false is
	// indistinguishable from an omitted key
	if fileConfig.Server.RateLimit.RPS != 0 && envConfig.Server.RateLimit.RPS == 1 {
		merged.Server.RateLimit.RPS = fileConfig.Server.RateLimit.RPS
	}
	if fileConfig.Server.RateLimit.Burst != 0 && envConfig.Server.RateLimit.Burst == 5 {
		merged.Server.RateLimit.Burst = fileConfig.Server.RateLimit.Burst
	}

	if fileConfig.License.IssuerPublicKey != "" && envConfig.License.IssuerPublicKey == "" {
		merged.License.IssuerPublicKey = fileConfig.License.IssuerPublicKey
	}
	if fileConfig.Quota.DailyLimit != 0 && envConfig.Quota.DailyLimit == 5 {
		merged.Quota.DailyLimit = fileConfig.Quota.DailyLimit
	}

	if fileConfig.Logging.Level != "" && envConfig.Logging.Level == "info" {
		merged.Logging.Level = fileConfig.Logging.Level
	}
	if fileConfig.Logging.Format != "" && envConfig.Logging.Format == "json" {
		merged.Logging.Format = fileConfig.Logging.Format
	}
	if fileConfig.Logging.Output != "" && envConfig.Logging.Output == "console" {
		merged.Logging.Output = fileConfig.Logging.Output
	}
	if fileConfig.Logging.FilePath != "" && envConfig.Logging.FilePath == "logs/app.log" {
		merged.Logging.FilePath = fileConfig.Logging.FilePath
	}

	if fileConfig.Paths.DataDir != "" && envConfig.Paths.DataDir == "data" {
		merged.Paths.DataDir = fileConfig.Paths.DataDir
	}
	if fileConfig.Paths.LogsDir != "" && envConfig.Paths.LogsDir == "logs" {
		merged.Paths.LogsDir = fileConfig.Paths.LogsDir
	}

	return merged
}

// getConfigFilePath returns the config file path next to the executable
func getConfigFilePath() string {
	if path := os.Getenv("GLOW_CONFIG_FILE"); path != "" {
		return path
	}

	execDir, err := getExecutableDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(execDir, "config.yaml")
}

func getExecutableDir() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(execPath), nil
}

// resolvePaths converts relative paths to absolute paths anchored at the
// executable directory, falling back to the working directory
func (c *Config) resolvePaths() error {
	base, err := getExecutableDir()
	if err != nil {
		base, err = os.Getwd()
		if err != nil {
			return err
		}
	}

	if !filepath.IsAbs(c.Paths.DataDir) {
		c.Paths.DataDir = filepath.Join(base, c.Paths.DataDir)
	}
	if !filepath.IsAbs(c.Paths.LogsDir) {
		c.Paths.LogsDir = filepath.Join(base, c.Paths.LogsDir)
	}
	if !filepath.IsAbs(c.Logging.FilePath) {
		c.Logging.FilePath = filepath.Join(base, c.Logging.FilePath)
	}

	return nil
}

// validate checks configuration values
func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		return fmt.Errorf("invalid log output: %s", c.Logging.Output)
	}

	if c.Quota.DailyLimit < 1 {
		return fmt.Errorf("invalid daily quota limit: %d", c.Quota.DailyLimit)
	}

	return nil
}

// FileExists checks if a file exists and is not a directory
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
