package license

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// LicenseType is the only entitlement tier issued
const LicenseType = "premium"

// LicenseData holds the facts a license asserts about one installation
type LicenseData struct {
	InstallID string    `json:"install_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Type      string    `json:"type"`
}

// Validate performs fail-closed field validation. A license with any
// missing or zero required field is invalid, never "partially valid".
func (d *LicenseData) Validate() error {
	if d.InstallID == "" {
		return fmt.Errorf("license data missing install_id")
	}
	if d.IssuedAt.IsZero() {
		return fmt.Errorf("license data missing issued_at")
	}
	if d.ExpiresAt.IsZero() {
		return fmt.Errorf("license data missing expires_at")
	}
	if d.Type != LicenseType {
		return fmt.Errorf("unrecognized license type %q", d.Type)
	}
	return nil
}

// Envelope is the serialized license artifact: the license facts plus
// the Issuer's signature over them. LicenseData is kept raw so the
// signature is checked against the bytes the Issuer actually signed,
// not a re-serialization.
type Envelope struct {
	LicenseData json.RawMessage `json:"license_data"`
	Signature   string          `json:"signature"`
}

// ParseEnvelope decodes a license string. Parse failures are reported
// as errors; callers treat them as "no valid license", not as faults.
func ParseEnvelope(licenseString string) (*Envelope, *LicenseData, error) {
	var env Envelope
	if err := json.Unmarshal([]byte(licenseString), &env); err != nil {
		return nil, nil, fmt.Errorf("parsing license envelope: %w", err)
	}
	if len(env.LicenseData) == 0 || env.Signature == "" {
		return nil, nil, fmt.Errorf("license envelope missing required fields")
	}

	var data LicenseData
	if err := json.Unmarshal(env.LicenseData, &data); err != nil {
		return nil, nil, fmt.Errorf("parsing license data: %w", err)
	}
	if err := data.Validate(); err != nil {
		return nil, nil, err
	}

	return &env, &data, nil
}

// SigningInput builds the exact bytes the Issuer signs: the compact
// form of the license data JSON, a newline, and the installation's
// public key in its deterministic JWK text form. Compacting makes the
// input insensitive to envelope pretty-printing while any change to a
// single character of the data still breaks the signature.
func SigningInput(rawLicenseData []byte, publicKeyJWK string) ([]byte, error) {
	var compact bytes.Buffer
	if err := json.Compact(&compact, rawLicenseData); err != nil {
		return nil, fmt.Errorf("compacting license data: %w", err)
	}
	compact.WriteByte('\n')
	compact.WriteString(publicKeyJWK)
	return compact.Bytes(), nil
}
