package identity

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glowcli/internal/config"
	apperrors "glowcli/internal/errors"
	"glowcli/internal/security"
)

func testPaths(t *testing.T) *config.Paths {
	t.Helper()
	dir := t.TempDir()
	paths := config.NewPaths(config.PathsConfig{DataDir: dir, LogsDir: dir})
	require.NoError(t, paths.EnsureDirectories())
	return paths
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGetOrCreateInstallID(t *testing.T) {
	paths := testPaths(t)
	provider := NewProvider(paths, testLogger())

	id, err := provider.GetOrCreateInstallID()
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err, "install id should be a UUID")

	// Stable within the same provider
	again, err := provider.GetOrCreateInstallID()
	require.NoError(t, err)
	assert.Equal(t, id, again)

	// Stable across provider instances (read back from disk)
	other := NewProvider(paths, testLogger())
	fromDisk, err := other.GetOrCreateInstallID()
	require.NoError(t, err)
	assert.Equal(t, id, fromDisk)
}

func TestInstallIDRegeneratedWhenMalformed(t *testing.T) {
	paths := testPaths(t)
	require.NoError(t, os.WriteFile(paths.InstallIDPath(), []byte("not-a-uuid\n"), 0600))

	provider := NewProvider(paths, testLogger())
	id, err := provider.GetOrCreateInstallID()
	require.NoError(t, err)

	_, err = uuid.Parse(id)
	assert.NoError(t, err)
	assert.NotEqual(t, "not-a-uuid", id)
}

func TestInstallIDResetProducesNewIdentity(t *testing.T) {
	paths := testPaths(t)

	first, err := NewProvider(paths, testLogger()).GetOrCreateInstallID()
	require.NoError(t, err)

	require.NoError(t, os.Remove(paths.InstallIDPath()))

	second, err := NewProvider(paths, testLogger()).GetOrCreateInstallID()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestGetOrCreateKeyPairPersists(t *testing.T) {
	paths := testPaths(t)

	first := NewProvider(paths, testLogger())
	key, err := first.GetOrCreateKeyPair()
	require.NoError(t, err)
	require.NotNil(t, key)
	assert.Equal(t, elliptic.P256(), key.Curve)

	// The key file must not contain the raw private key
	raw, err := os.ReadFile(paths.KeyPairPath())
	require.NoError(t, err)
	assert.NotContains(t, string(raw), key.D.String())

	// A fresh provider loads the same key from disk
	second := NewProvider(paths, testLogger())
	loaded, err := second.GetOrCreateKeyPair()
	require.NoError(t, err)
	assert.Equal(t, key.D, loaded.D)
	assert.Equal(t, key.X, loaded.X)
	assert.Equal(t, key.Y, loaded.Y)
}

func TestKeyPairFileTamperedNonce(t *testing.T) {
	paths := testPaths(t)

	// A key file whose nonce was truncated on disk must surface a
	// storage error, not crash key loading
	file := encryptedKeyFile{
		Algorithm: "ECDSA-P256",
		Payload: &security.EncryptedPayload{
			Version:    1,
			Salt:       []byte("0123456789abcdef0123456789abcdef"),
			Nonce:      []byte{0x01, 0x02, 0x03},
			Ciphertext: []byte("not real ciphertext"),
		},
	}
	data, err := json.Marshal(file)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(paths.KeyPairPath(), data, 0600))

	provider := NewProvider(paths, testLogger())
	require.NotPanics(t, func() {
		_, err = provider.GetOrCreateKeyPair()
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsStorageUnavailable(err))
}

func TestKeyPairUnreadableAfterInstallIDChange(t *testing.T) {
	paths := testPaths(t)

	provider := NewProvider(paths, testLogger())
	_, err := provider.GetOrCreateKeyPair()
	require.NoError(t, err)

	// Replace the install id; the stored key was encrypted under the
	// old one and can no longer be decrypted
	require.NoError(t, os.WriteFile(paths.InstallIDPath(), []byte(uuid.NewString()+"\n"), 0600))

	fresh := NewProvider(paths, testLogger())
	_, err = fresh.GetOrCreateKeyPair()
	assert.Error(t, err)
}

func TestExportPublicKeyJWKDeterministic(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	first, err := ExportPublicKeyJWK(&key.PublicKey)
	require.NoError(t, err)
	second, err := ExportPublicKeyJWK(&key.PublicKey)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Contains(t, first, `"crv":"P-256"`)
	assert.Contains(t, first, `"kty":"EC"`)
}

func TestJWKRoundTrip(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	jwk, err := ExportPublicKeyJWK(&key.PublicKey)
	require.NoError(t, err)

	parsed, err := ParsePublicKeyJWK(jwk)
	require.NoError(t, err)
	assert.True(t, key.PublicKey.Equal(parsed))
}

func TestParsePublicKeyJWKRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		jwk  string
	}{
		{"not json", "definitely not json"},
		{"wrong key type", `{"crv":"P-256","kty":"RSA","x":"AA","y":"AA"}`},
		{"wrong curve", `{"crv":"P-384","kty":"EC","x":"AA","y":"AA"}`},
		{"bad coordinates", `{"crv":"P-256","kty":"EC","x":"AQ","y":"AQ"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePublicKeyJWK(tt.jwk)
			assert.Error(t, err)
		})
	}
}

func TestGetInstallData(t *testing.T) {
	provider := NewProvider(testPaths(t), testLogger())

	data, err := provider.GetInstallData()
	require.NoError(t, err)

	_, err = uuid.Parse(data.InstallID)
	assert.NoError(t, err)

	parsed, err := ParsePublicKeyJWK(data.PublicKeyJWK)
	require.NoError(t, err)

	key, err := provider.GetOrCreateKeyPair()
	require.NoError(t, err)
	assert.True(t, key.PublicKey.Equal(parsed))
}
