package license

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/base64"
	"fmt"

	apperrors "glowcli/internal/errors"
)

// issuerPublicKeyB64 is the Issuer's verification key (SPKI, Base64
// encoded), shipped with the application. Licenses are signed by the
// corresponding private key, which is held by the Issuer and never
// distributed to end-user devices.
const issuerPublicKeyB64 = "MFkwEwYHKoZIzj0CAQYIKoZIzj0DAQcDQgAE0IfksPe1KAtZVz5ndDvcob9tizdB6s3LnAG6ftvkFluVXpOaExa8O2941Qjes+NS3yt1zTePVE4tLsG5Hsr1Lg=="

// ParseIssuerPublicKey decodes a Base64 SPKI ECDSA P-256 public key
func ParseIssuerPublicKey(b64 string) (*ecdsa.PublicKey, error) {
	der, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding base64: %v", apperrors.ErrIssuerKeyInvalid, err)
	}

	parsed, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing SPKI: %v", apperrors.ErrIssuerKeyInvalid, err)
	}

	key, ok := parsed.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: key is not ECDSA", apperrors.ErrIssuerKeyInvalid)
	}

	return key, nil
}

// IssuerPublicKey returns the configured verification key, falling back
// to the embedded one when the override is empty.
func IssuerPublicKey(override string) (*ecdsa.PublicKey, error) {
	if override != "" {
		return ParseIssuerPublicKey(override)
	}
	return ParseIssuerPublicKey(issuerPublicKeyB64)
}
