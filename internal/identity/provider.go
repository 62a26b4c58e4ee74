package identity

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"

	"glowcli/internal/config"
	apperrors "glowcli/internal/errors"
	"glowcli/internal/security"
)

// keyStorePepper is mixed into the passphrase protecting the key file at
// rest. Together with the install id it keeps the private key opaque to
// casual inspection; it is not a defense against a hostile device owner.
const keyStorePepper = "glowsuite-keystore-v1"

// Provider manages the durable installation identity: a random install
// id and an ECDSA P-256 signing key pair, both created lazily on first
// access and persisted in the data directory. A single Provider instance
// is constructed at startup and shared by reference.
type Provider struct {
	paths  *config.Paths
	logger *slog.Logger

	mu        sync.Mutex
	installID string
	keyPair   *ecdsa.PrivateKey
}

// NewProvider creates an identity provider backed by the given paths
func NewProvider(paths *config.Paths, logger *slog.Logger) *Provider {
	return &Provider{
		paths:  paths,
		logger: logger.With(slog.String("component", "identity")),
	}
}

// GetOrCreateInstallID returns the durable installation identifier,
// generating and persisting a random UUID on first call. The id is
// immutable for the life of the installation; clearing the data
// directory produces a new one (and deactivates any issued license).
func (p *Provider) GetOrCreateInstallID() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.getOrCreateInstallIDLocked()
}

func (p *Provider) getOrCreateInstallIDLocked() (string, error) {
	if p.installID != "" {
		return p.installID, nil
	}

	path := p.paths.InstallIDPath()
	data, err := os.ReadFile(path)
	if err == nil {
		id := strings.TrimSpace(string(data))
		if _, parseErr := uuid.Parse(id); parseErr == nil {
			p.installID = id
			return id, nil
		}
		p.logger.Warn("Stored install id is malformed, regenerating",
			slog.String("path", path))
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("%w: reading install id: %v", apperrors.ErrStorageUnavailable, err)
	}

	id := uuid.NewString()
	if err := os.WriteFile(path, []byte(id+"\n"), 0600); err != nil {
		return "", fmt.Errorf("%w: persisting install id: %v", apperrors.ErrStorageUnavailable, err)
	}

	p.logger.Info("Installation id created",
		slog.String("install_id", id),
		slog.String("path", path))

	p.installID = id
	return id, nil
}

// encryptedKeyFile is the on-disk shape of the persisted key pair
type encryptedKeyFile struct {
	Algorithm string                     `json:"algorithm"`
	Payload   *security.EncryptedPayload `json:"payload"`
}

// GetOrCreateKeyPair returns the device-bound ECDSA P-256 signing key
// pair, generating and persisting it on first call. The private key is
// stored PKCS#8-encoded and encrypted at rest; it never leaves the
// device. Subsequent calls return the same pair.
func (p *Provider) GetOrCreateKeyPair() (*ecdsa.PrivateKey, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.keyPair != nil {
		return p.keyPair, nil
	}

	installID, err := p.getOrCreateInstallIDLocked()
	if err != nil {
		return nil, err
	}
	passphrase := []byte(installID + "|" + keyStorePepper)

	path := p.paths.KeyPairPath()
	data, err := os.ReadFile(path)
	if err == nil {
		key, loadErr := p.loadKeyPair(data, passphrase)
		if loadErr != nil {
			return nil, loadErr
		}
		p.keyPair = key
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: reading key pair: %v", apperrors.ErrStorageUnavailable, err)
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: generating key pair: %v", apperrors.ErrStorageUnavailable, err)
	}

	if err := p.saveKeyPair(key, passphrase, path); err != nil {
		return nil, err
	}

	p.logger.Info("Device key pair created",
		slog.String("curve", "P-256"),
		slog.String("path", path))

	p.keyPair = key
	return key, nil
}

func (p *Provider) saveKeyPair(key *ecdsa.PrivateKey, passphrase []byte, path string) error {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return fmt.Errorf("%w: encoding private key: %v", apperrors.ErrStorageUnavailable, err)
	}

	payload, err := security.Encrypt(der, passphrase, nil)
	if err != nil {
		return fmt.Errorf("%w: encrypting private key: %v", apperrors.ErrStorageUnavailable, err)
	}

	data, err := json.MarshalIndent(encryptedKeyFile{
		Algorithm: "ECDSA-P256",
		Payload:   payload,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding key file: %v", apperrors.ErrStorageUnavailable, err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("%w: persisting key pair: %v", apperrors.ErrStorageUnavailable, err)
	}

	return nil
}

func (p *Provider) loadKeyPair(data, passphrase []byte) (*ecdsa.PrivateKey, error) {
	var file encryptedKeyFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: parsing key file: %v", apperrors.ErrStorageUnavailable, err)
	}
	if file.Algorithm != "ECDSA-P256" || file.Payload == nil {
		return nil, fmt.Errorf("%w: unrecognized key file format", apperrors.ErrStorageUnavailable)
	}

	der, err := security.Decrypt(file.Payload, passphrase, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: decrypting private key: %v", apperrors.ErrStorageUnavailable, err)
	}

	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding private key: %v", apperrors.ErrStorageUnavailable, err)
	}

	key, ok := parsed.(*ecdsa.PrivateKey)
	if !ok || key.Curve != elliptic.P256() {
		return nil, fmt.Errorf("%w: stored key is not ECDSA P-256", apperrors.ErrStorageUnavailable)
	}

	return key, nil
}

// ExportPublicKeyJWK serializes a public key to its transportable JWK
// text form. The output is deterministic for a given key (fixed member
// order, fixed-width base64url coordinates) so the Issuer signs exactly
// the bytes the verifier later recomputes.
func ExportPublicKeyJWK(pub *ecdsa.PublicKey) (string, error) {
	if pub == nil || pub.Curve != elliptic.P256() {
		return "", fmt.Errorf("public key must be ECDSA P-256")
	}

	size := (pub.Curve.Params().BitSize + 7) / 8
	x := pub.X.FillBytes(make([]byte, size))
	y := pub.Y.FillBytes(make([]byte, size))

	jwk := fmt.Sprintf(`{"crv":"P-256","kty":"EC","x":"%s","y":"%s"}`,
		base64.RawURLEncoding.EncodeToString(x),
		base64.RawURLEncoding.EncodeToString(y))

	return jwk, nil
}

// ParsePublicKeyJWK reconstructs a P-256 public key from its JWK text
// form. Used by the Issuer, which receives the JWK out-of-band.
func ParsePublicKeyJWK(jwkStr string) (*ecdsa.PublicKey, error) {
	var jwk struct {
		Crv string `json:"crv"`
		Kty string `json:"kty"`
		X   string `json:"x"`
		Y   string `json:"y"`
	}
	if err := json.Unmarshal([]byte(jwkStr), &jwk); err != nil {
		return nil, fmt.Errorf("parsing JWK: %w", err)
	}
	if jwk.Kty != "EC" || jwk.Crv != "P-256" {
		return nil, fmt.Errorf("unsupported JWK key type %q/%q", jwk.Kty, jwk.Crv)
	}

	xb, err := base64.RawURLEncoding.DecodeString(jwk.X)
	if err != nil {
		return nil, fmt.Errorf("decoding JWK x coordinate: %w", err)
	}
	yb, err := base64.RawURLEncoding.DecodeString(jwk.Y)
	if err != nil {
		return nil, fmt.Errorf("decoding JWK y coordinate: %w", err)
	}

	pub := &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(xb),
		Y:     new(big.Int).SetBytes(yb),
	}
	if !pub.Curve.IsOnCurve(pub.X, pub.Y) {
		return nil, fmt.Errorf("JWK coordinates are not on P-256")
	}

	return pub, nil
}

// InstallData bundles the two values the user relays to the Issuer
type InstallData struct {
	InstallID    string `json:"install_id"`
	PublicKeyJWK string `json:"public_key_jwk"`
}

// GetInstallData returns the installation id and exported public key for
// display and out-of-band relay to the Issuer.
func (p *Provider) GetInstallData() (*InstallData, error) {
	installID, err := p.GetOrCreateInstallID()
	if err != nil {
		return nil, err
	}

	key, err := p.GetOrCreateKeyPair()
	if err != nil {
		return nil, err
	}

	jwk, err := ExportPublicKeyJWK(&key.PublicKey)
	if err != nil {
		return nil, err
	}

	return &InstallData{InstallID: installID, PublicKeyJWK: jwk}, nil
}
