package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glowcli/internal/services"
	"glowcli/internal/shared/testutil"
)

func TestHealthCheck(t *testing.T) {
	env := newServiceEnv(t, 5)
	health := services.NewHealthService(env.paths, env.service, "v1.0.0", testutil.Logger())

	status := health.HealthCheck(context.Background())
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "v1.0.0", status.Version)
	assert.Equal(t, "ok", status.Checks["storage"])
	assert.Equal(t, "not_activated", status.Checks["license"])
}

func TestHealthCheckReportsActiveLicense(t *testing.T) {
	env := newServiceEnv(t, 5)
	env.activate(t)

	health := services.NewHealthService(env.paths, env.service, "v1.0.0", testutil.Logger())

	status := health.HealthCheck(context.Background())
	require.Equal(t, "healthy", status.Status)
	assert.Equal(t, "active", status.Checks["license"])
}

func TestLivenessCheck(t *testing.T) {
	env := newServiceEnv(t, 5)
	health := services.NewHealthService(env.paths, env.service, "v1.0.0", testutil.Logger())

	status := health.LivenessCheck(context.Background())
	assert.Equal(t, "alive", status.Status)
	assert.Empty(t, status.Checks)
}
