package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glowcli/internal/identity"
	"glowcli/internal/license"
	"glowcli/internal/middleware"
	"glowcli/internal/quota"
	"glowcli/internal/services"
	"glowcli/internal/shared/testutil"
)

type gateEnv struct {
	service services.LicenseService
	issuer  *testutil.IssuerFixture
	handler http.Handler
	calls   int
}

func newGateEnv(t *testing.T, dailyLimit int) *gateEnv {
	t.Helper()

	paths := testutil.Paths(t)
	logger := testutil.Logger()
	issuer := testutil.NewIssuerFixture(t)

	provider := identity.NewProvider(paths, logger)
	verifier := license.NewVerifier(paths, provider, issuer.PublicKey, logger)
	counter := quota.NewCounter(paths, dailyLimit, logger)
	service := services.NewLicenseService(provider, verifier, counter, logger, nil)

	env := &gateEnv{service: service, issuer: issuer}

	gate := middleware.NewActionGate(service, logger)
	env.handler = gate.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.calls++
		w.WriteHeader(http.StatusOK)
	}))

	return env
}

func (e *gateEnv) request(t *testing.T) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/action", nil))
	return rec
}

func TestActionGateFreeTierBudget(t *testing.T) {
	env := newGateEnv(t, 2)

	for i := 0; i < 2; i++ {
		rec := env.request(t)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, 2, env.calls)

	rec := env.request(t)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 2, env.calls, "denied request must not reach the handler")

	assert.Contains(t, rec.Header().Get("Content-Type"), "application/problem+json")
	var problem map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "/problems/quota-exhausted", problem["type"])
	assert.Equal(t, float64(0), problem["remaining"])
}

func TestActionGatePremiumUnlimited(t *testing.T) {
	env := newGateEnv(t, 1)
	ctx := context.Background()

	data, err := env.service.GetInstallData(ctx)
	require.NoError(t, err)
	artifact := env.issuer.IssueLicense(t, data.InstallID, data.PublicKeyJWK)
	ok, err := env.service.ActivateLicense(ctx, artifact)
	require.NoError(t, err)
	require.True(t, ok)

	for i := 0; i < 5; i++ {
		rec := env.request(t)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, 5, env.calls)
}
