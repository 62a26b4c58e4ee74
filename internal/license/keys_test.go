package license

import (
	"crypto/elliptic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "glowcli/internal/errors"
)

func TestEmbeddedIssuerKeyParses(t *testing.T) {
	key, err := IssuerPublicKey("")
	require.NoError(t, err)
	assert.Equal(t, elliptic.P256(), key.Curve)
}

func TestIssuerKeyOverride(t *testing.T) {
	embedded, err := IssuerPublicKey("")
	require.NoError(t, err)

	override, err := IssuerPublicKey(issuerPublicKeyB64)
	require.NoError(t, err)
	assert.True(t, embedded.Equal(override))
}

func TestParseIssuerPublicKeyRejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		b64  string
	}{
		{"not base64", "!!!"},
		{"base64 but not spki", "aGVsbG8gd29ybGQ="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseIssuerPublicKey(tt.b64)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrIssuerKeyInvalid)
		})
	}
}
