package license

import (
	"context"
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"time"

	"glowcli/internal/config"
	apperrors "glowcli/internal/errors"
	"glowcli/internal/identity"
)

// failureReason classifies why verification rejected a license. Reasons
// are logged for diagnostics only; the public contract is a single
// boolean so callers cannot distinguish failure causes.
type failureReason string

const (
	reasonNoLicense         failureReason = "no_license"
	reasonMalformed         failureReason = "malformed"
	reasonExpired           failureReason = "expired"
	reasonSignatureMismatch failureReason = "signature_mismatch"
	reasonDeviceMismatch    failureReason = "device_mismatch"
)

// Verifier validates the stored license artifact against the Issuer's
// verification key and this device's installation identity. One
// Verifier instance is constructed at startup and shared by reference.
type Verifier struct {
	paths     *config.Paths
	identity  *identity.Provider
	issuerKey *ecdsa.PublicKey
	logger    *slog.Logger
	now       func() time.Time
}

// NewVerifier creates a license verifier
func NewVerifier(paths *config.Paths, provider *identity.Provider, issuerKey *ecdsa.PublicKey, logger *slog.Logger) *Verifier {
	return &Verifier{
		paths:     paths,
		identity:  provider,
		issuerKey: issuerKey,
		logger:    logger.With(slog.String("component", "license")),
		now:       time.Now,
	}
}

// Verify checks the stored license blob. It returns false for an
// absent, malformed, expired, tampered, or foreign-device license; an
// error is returned only for environment failures (storage, crypto
// subsystem), which are distinct from "unlicensed".
func (v *Verifier) Verify(ctx context.Context) (bool, error) {
	valid, _, err := v.loadAndVerify(ctx)
	return valid, err
}

// loadAndVerify reads the stored license blob and runs the check
// sequence over it, returning the parsed data alongside the result so
// callers render the exact bytes that were verified.
func (v *Verifier) loadAndVerify(ctx context.Context) (bool, *LicenseData, error) {
	data, err := os.ReadFile(v.paths.LicensePath())
	if err != nil {
		if os.IsNotExist(err) {
			v.logRejection(ctx, reasonNoLicense, nil)
			return false, nil, nil
		}
		return false, nil, fmt.Errorf("%w: reading license: %v", apperrors.ErrStorageUnavailable, err)
	}

	return v.verifyArtifact(ctx, string(data))
}

// verifyArtifact runs the full check sequence against a license string
// held in memory. Shared by Verify and Activate.
func (v *Verifier) verifyArtifact(ctx context.Context, licenseString string) (bool, *LicenseData, error) {
	env, licenseData, err := ParseEnvelope(licenseString)
	if err != nil {
		v.logRejection(ctx, reasonMalformed, err)
		return false, nil, nil
	}

	// Inclusive boundary: a license expiring exactly now is expired.
	if !v.now().Before(licenseData.ExpiresAt) {
		v.logRejection(ctx, reasonExpired, nil)
		return false, nil, nil
	}

	keyPair, err := v.identity.GetOrCreateKeyPair()
	if err != nil {
		return false, nil, err
	}
	publicKeyJWK, err := identity.ExportPublicKeyJWK(&keyPair.PublicKey)
	if err != nil {
		return false, nil, fmt.Errorf("%w: exporting public key: %v", apperrors.ErrStorageUnavailable, err)
	}

	if !v.checkSignature(env, publicKeyJWK) {
		v.logRejection(ctx, reasonSignatureMismatch, nil)
		return false, nil, nil
	}

	installID, err := v.identity.GetOrCreateInstallID()
	if err != nil {
		return false, nil, err
	}
	if licenseData.InstallID != installID {
		v.logRejection(ctx, reasonDeviceMismatch, nil)
		return false, nil, nil
	}

	return true, licenseData, nil
}

// checkSignature verifies the Issuer's ECDSA signature over the license
// data bound to this device's public key
func (v *Verifier) checkSignature(env *Envelope, publicKeyJWK string) bool {
	sig, err := base64.StdEncoding.DecodeString(env.Signature)
	if err != nil {
		return false
	}

	input, err := SigningInput(env.LicenseData, publicKeyJWK)
	if err != nil {
		return false
	}

	digest := sha256.Sum256(input)
	return ecdsa.VerifyASN1(v.issuerKey, digest[:], sig)
}

// Activate verifies a pasted license string in memory and persists it
// only on success, so an invalid paste never clobbers a previously
// valid license. A persistence failure after successful verification is
// reported as ErrActivationPersist, distinct from "license invalid".
func (v *Verifier) Activate(ctx context.Context, licenseString string) (bool, error) {
	valid, _, err := v.verifyArtifact(ctx, licenseString)
	if err != nil {
		return false, err
	}
	if !valid {
		return false, nil
	}

	if err := os.WriteFile(v.paths.LicensePath(), []byte(licenseString), 0600); err != nil {
		v.logger.ErrorContext(ctx, "Failed to persist activated license",
			slog.String("path", v.paths.LicensePath()),
			slog.String("error", err.Error()))
		return false, fmt.Errorf("%w: %v", apperrors.ErrActivationPersist, err)
	}

	v.logger.InfoContext(ctx, "License activated",
		slog.String("path", v.paths.LicensePath()))

	return true, nil
}

// Info describes the stored license for UI display
type Info struct {
	IsValid   bool       `json:"is_valid"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	IssuedAt  *time.Time `json:"issued_at,omitempty"`
	Type      string     `json:"type,omitempty"`
}

// Info returns display data about the stored license. Expiry details
// are reported only when the license verifies.
func (v *Verifier) Info(ctx context.Context) (*Info, error) {
	valid, licenseData, err := v.loadAndVerify(ctx)
	if err != nil {
		return nil, err
	}
	if !valid {
		return &Info{IsValid: false}, nil
	}

	return &Info{
		IsValid:   true,
		ExpiresAt: &licenseData.ExpiresAt,
		IssuedAt:  &licenseData.IssuedAt,
		Type:      licenseData.Type,
	}, nil
}

func (v *Verifier) logRejection(ctx context.Context, reason failureReason, err error) {
	attrs := []any{slog.String("reason", string(reason))}
	if err != nil {
		attrs = append(attrs, slog.String("detail", err.Error()))
	}
	v.logger.DebugContext(ctx, "License verification rejected", attrs...)
}
