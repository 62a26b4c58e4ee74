package services

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"glowcli/internal/config"
)

// HealthService reports application health for the local UI
type HealthService struct {
	paths     *config.Paths
	license   LicenseService
	logger    *slog.Logger
	startedAt time.Time
	version   string
}

// NewHealthService creates a health service
func NewHealthService(paths *config.Paths, license LicenseService, version string, logger *slog.Logger) *HealthService {
	return &HealthService{
		paths:     paths,
		license:   license,
		logger:    logger.With(slog.String("service", "health")),
		startedAt: time.Now(),
		version:   version,
	}
}

// HealthStatus is the health check response body
type HealthStatus struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthCheck reports overall health, probing the storage subsystem
// since it is the one environment dependency everything needs
func (s *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	checks := map[string]string{
		"storage": "ok",
	}
	status := "healthy"

	if err := s.probeStorage(); err != nil {
		checks["storage"] = err.Error()
		status = "degraded"
	}

	if licensed, err := s.license.VerifyStoredLicense(ctx); err != nil {
		checks["license"] = "error"
		status = "degraded"
	} else if licensed {
		checks["license"] = "active"
	} else {
		checks["license"] = "not_activated"
	}

	return HealthStatus{
		Status:    status,
		Version:   s.version,
		Uptime:    time.Since(s.startedAt).Round(time.Second).String(),
		Timestamp: time.Now(),
		Checks:    checks,
	}
}

// LivenessCheck reports process liveness only
func (s *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Version:   s.version,
		Uptime:    time.Since(s.startedAt).Round(time.Second).String(),
		Timestamp: time.Now(),
	}
}

// probeStorage verifies the data directory is writable
func (s *HealthService) probeStorage() error {
	probe := filepath.Join(s.paths.DataDir, ".health")
	if err := os.WriteFile(probe, []byte("ok"), 0600); err != nil {
		return err
	}
	return os.Remove(probe)
}
