package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

// EncryptionConfig defines key derivation and cipher parameters
type EncryptionConfig struct {
	// SCRYPT parameters (OWASP recommended minimum)
	SCryptN      int // CPU/memory cost parameter
	SCryptR      int // Block size parameter
	SCryptP      int // Parallelization parameter
	SCryptKeyLen int // Key length in bytes (32 for AES-256)

	// AES-GCM parameters
	NonceSize int // 96-bit nonce size for GCM
}

// DefaultEncryptionConfig returns OWASP ASVS compliant encryption configuration
func DefaultEncryptionConfig() *EncryptionConfig {
	return &EncryptionConfig{
		SCryptN:      32768,
		SCryptR:      8,
		SCryptP:      1,
		SCryptKeyLen: 32,
		NonceSize:    12,
	}
}

// EncryptedPayload represents encrypted key material at rest
type EncryptedPayload struct {
	Version    uint8  `json:"version"`
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// Encrypt seals plaintext with AES-256-GCM under a key derived from the
// passphrase via SCRYPT. The passphrase for the installation key store is
// derived from on-device values; this protects against casual copying of
// the key file, not against an attacker who controls the device.
func Encrypt(plaintext, passphrase []byte, config *EncryptionConfig) (*EncryptedPayload, error) {
	if len(plaintext) == 0 {
		return nil, errors.New("plaintext cannot be empty")
	}
	if len(passphrase) == 0 {
		return nil, errors.New("passphrase cannot be empty")
	}
	if config == nil {
		config = DefaultEncryptionConfig()
	}

	salt := make([]byte, 32)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	key, err := scrypt.Key(passphrase, salt, config.SCryptN, config.SCryptR, config.SCryptP, config.SCryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("key derivation failed: %w", err)
	}
	defer wipe(key)

	gcm, err := newGCM(key, config.NonceSize)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, config.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return &EncryptedPayload{
		Version:    1,
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: gcm.Seal(nil, nonce, plaintext, nil),
	}, nil
}

// Decrypt opens a payload produced by Encrypt. Any tampering with the
// ciphertext fails GCM authentication and returns an error.
func Decrypt(payload *EncryptedPayload, passphrase []byte, config *EncryptionConfig) ([]byte, error) {
	if payload == nil {
		return nil, errors.New("payload cannot be nil")
	}
	if len(passphrase) == 0 {
		return nil, errors.New("passphrase cannot be empty")
	}
	if config == nil {
		config = DefaultEncryptionConfig()
	}

	if payload.Version != 1 {
		return nil, fmt.Errorf("unsupported payload version: %d", payload.Version)
	}

	// The payload comes from disk and may be corrupted or tampered.
	// Reject malformed fields before they reach the cipher, which
	// panics on a wrong-length nonce.
	if len(payload.Salt) == 0 {
		return nil, errors.New("payload salt missing")
	}
	if len(payload.Nonce) != config.NonceSize {
		return nil, fmt.Errorf("invalid nonce length: %d", len(payload.Nonce))
	}
	if len(payload.Ciphertext) == 0 {
		return nil, errors.New("payload ciphertext missing")
	}

	key, err := scrypt.Key(passphrase, payload.Salt, config.SCryptN, config.SCryptR, config.SCryptP, config.SCryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("key derivation failed: %w", err)
	}
	defer wipe(key)

	gcm, err := newGCM(key, config.NonceSize)
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, payload.Nonce, payload.Ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}

	return plaintext, nil
}

func newGCM(key []byte, nonceSize int) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// wipe overwrites sensitive bytes in memory
func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
