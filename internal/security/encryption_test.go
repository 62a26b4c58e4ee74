package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plaintext := []byte("device private key material")
	passphrase := []byte("install-id|pepper")

	payload, err := Encrypt(plaintext, passphrase, nil)
	require.NoError(t, err)
	require.NotNil(t, payload)
	assert.Equal(t, uint8(1), payload.Version)
	assert.NotEmpty(t, payload.Salt)
	assert.NotEmpty(t, payload.Nonce)
	assert.NotEqual(t, plaintext, payload.Ciphertext)

	decrypted, err := Decrypt(payload, passphrase, nil)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestDecryptWrongPassphrase(t *testing.T) {
	payload, err := Encrypt([]byte("secret"), []byte("correct"), nil)
	require.NoError(t, err)

	_, err = Decrypt(payload, []byte("incorrect"), nil)
	assert.Error(t, err)
}

func TestDecryptTamperedCiphertext(t *testing.T) {
	payload, err := Encrypt([]byte("secret"), []byte("pass"), nil)
	require.NoError(t, err)

	payload.Ciphertext[0] ^= 0x01

	_, err = Decrypt(payload, []byte("pass"), nil)
	assert.Error(t, err)
}

func TestDecryptRejectsMalformedPayload(t *testing.T) {
	passphrase := []byte("pass")
	payload, err := Encrypt([]byte("secret"), passphrase, nil)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*EncryptedPayload)
	}{
		{"truncated nonce", func(p *EncryptedPayload) { p.Nonce = p.Nonce[:3] }},
		{"oversized nonce", func(p *EncryptedPayload) { p.Nonce = append(p.Nonce, 0xFF) }},
		{"empty nonce", func(p *EncryptedPayload) { p.Nonce = nil }},
		{"missing salt", func(p *EncryptedPayload) { p.Salt = nil }},
		{"missing ciphertext", func(p *EncryptedPayload) { p.Ciphertext = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			broken := *payload
			tt.mutate(&broken)

			// Must return an error, never panic
			_, err := Decrypt(&broken, passphrase, nil)
			assert.Error(t, err)
		})
	}
}

func TestDecryptUnsupportedVersion(t *testing.T) {
	payload, err := Encrypt([]byte("secret"), []byte("pass"), nil)
	require.NoError(t, err)

	payload.Version = 2

	_, err = Decrypt(payload, []byte("pass"), nil)
	assert.ErrorContains(t, err, "unsupported payload version")
}

func TestEncryptProducesUniquePayloads(t *testing.T) {
	plaintext := []byte("same input")
	passphrase := []byte("same pass")

	first, err := Encrypt(plaintext, passphrase, nil)
	require.NoError(t, err)
	second, err := Encrypt(plaintext, passphrase, nil)
	require.NoError(t, err)

	assert.NotEqual(t, first.Salt, second.Salt)
	assert.NotEqual(t, first.Nonce, second.Nonce)
	assert.NotEqual(t, first.Ciphertext, second.Ciphertext)
}
