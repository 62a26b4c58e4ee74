package license

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"glowcli/internal/identity"
)

// DefaultValidity is how long an issued license remains valid
const DefaultValidity = 365 * 24 * time.Hour

// Issuer mints signed license artifacts. It runs only in the
// administrative console tool, never inside the end-user application,
// so the signing key stays off end-user devices.
type Issuer struct {
	key      *ecdsa.PrivateKey
	validity time.Duration
	now      func() time.Time
}

// NewIssuer creates an issuer signing with the given private key
func NewIssuer(key *ecdsa.PrivateKey) *Issuer {
	return &Issuer{
		key:      key,
		validity: DefaultValidity,
		now:      time.Now,
	}
}

// WithValidity overrides the validity period for subsequently issued
// licenses
func (i *Issuer) WithValidity(d time.Duration) *Issuer {
	i.validity = d
	return i
}

// GenerateLicense builds and signs a license artifact for the given
// installation. Both values are relayed by the user out-of-band; the
// public key must be the exact JWK text the installation exported, since
// the signature binds the license facts to those bytes.
func (i *Issuer) GenerateLicense(installID, publicKeyJWK string) (string, error) {
	if _, err := uuid.Parse(installID); err != nil {
		return "", fmt.Errorf("install id is not a valid UUID: %w", err)
	}
	if _, err := identity.ParsePublicKeyJWK(publicKeyJWK); err != nil {
		return "", fmt.Errorf("invalid installation public key: %w", err)
	}

	now := i.now()
	licenseData := LicenseData{
		InstallID: installID,
		IssuedAt:  now,
		ExpiresAt: now.Add(i.validity),
		Type:      LicenseType,
	}

	rawData, err := json.Marshal(licenseData)
	if err != nil {
		return "", fmt.Errorf("encoding license data: %w", err)
	}

	input, err := SigningInput(rawData, publicKeyJWK)
	if err != nil {
		return "", err
	}

	digest := sha256.Sum256(input)
	sig, err := ecdsa.SignASN1(rand.Reader, i.key, digest[:])
	if err != nil {
		return "", fmt.Errorf("signing license data: %w", err)
	}

	envelope := Envelope{
		LicenseData: rawData,
		Signature:   base64.StdEncoding.EncodeToString(sig),
	}

	// Pretty-printed for manual relay (email, copy-paste). The verifier
	// compacts license_data before checking the signature, so formatting
	// does not affect validity.
	out, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding license envelope: %w", err)
	}

	return string(out), nil
}
