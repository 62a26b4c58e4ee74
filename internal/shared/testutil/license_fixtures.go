// Package testutil provides shared fixtures for licensing tests: a
// throwaway issuer key pair, temp-directory paths, and helpers that
// mint valid, expired, and tampered license artifacts.
package testutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"glowcli/internal/config"
	"glowcli/internal/license"
)

// Logger returns a discard logger for wiring components under test
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Paths returns a Paths rooted in a fresh temp directory
func Paths(t *testing.T) *config.Paths {
	t.Helper()
	dir := t.TempDir()
	paths := config.NewPaths(config.PathsConfig{DataDir: dir, LogsDir: dir})
	if err := paths.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return paths
}

// IssuerFixture holds a throwaway issuer key pair for one test
type IssuerFixture struct {
	Key       *ecdsa.PrivateKey
	PublicKey *ecdsa.PublicKey
}

// NewIssuerFixture generates a fresh issuer key pair
func NewIssuerFixture(t *testing.T) *IssuerFixture {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate issuer key: %v", err)
	}
	return &IssuerFixture{Key: key, PublicKey: &key.PublicKey}
}

// PublicKeyB64 returns the base64-encoded SPKI form of the issuer
// public key, the format the verifier accepts as an override
func (f *IssuerFixture) PublicKeyB64(t *testing.T) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(f.PublicKey)
	if err != nil {
		t.Fatalf("marshal issuer public key: %v", err)
	}
	return base64.StdEncoding.EncodeToString(der)
}

// IssueLicense mints a valid one-year license for the given installation
func (f *IssuerFixture) IssueLicense(t *testing.T, installID, publicKeyJWK string) string {
	t.Helper()
	artifact, err := license.NewIssuer(f.Key).GenerateLicense(installID, publicKeyJWK)
	if err != nil {
		t.Fatalf("issue license: %v", err)
	}
	return artifact
}

// IssueLicenseWithValidity mints a license with a custom validity
// period. Negative durations produce an already-expired license.
func (f *IssuerFixture) IssueLicenseWithValidity(t *testing.T, installID, publicKeyJWK string, validity time.Duration) string {
	t.Helper()
	artifact, err := license.NewIssuer(f.Key).WithValidity(validity).GenerateLicense(installID, publicKeyJWK)
	if err != nil {
		t.Fatalf("issue license: %v", err)
	}
	return artifact
}

// SignEnvelope builds a license envelope over arbitrary license data
// bytes, bypassing the issuer's field validation. Used to construct
// artifacts a well-behaved issuer would never produce.
func (f *IssuerFixture) SignEnvelope(t *testing.T, rawLicenseData []byte, publicKeyJWK string) string {
	t.Helper()

	input, err := license.SigningInput(rawLicenseData, publicKeyJWK)
	if err != nil {
		t.Fatalf("build signing input: %v", err)
	}
	digest := sha256.Sum256(input)
	sig, err := ecdsa.SignASN1(rand.Reader, f.Key, digest[:])
	if err != nil {
		t.Fatalf("sign license data: %v", err)
	}

	env := license.Envelope{
		LicenseData: rawLicenseData,
		Signature:   base64.StdEncoding.EncodeToString(sig),
	}
	out, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("encode envelope: %v", err)
	}
	return string(out)
}

// TamperLicense alters the install id inside the signed license data.
// The result is still well-formed, so only the signature check can
// reject it.
func TamperLicense(t *testing.T, artifact string) string {
	t.Helper()

	var env license.Envelope
	if err := json.Unmarshal([]byte(artifact), &env); err != nil {
		t.Fatalf("parse artifact to tamper: %v", err)
	}

	var data license.LicenseData
	if err := json.Unmarshal(env.LicenseData, &data); err != nil {
		t.Fatalf("parse license data to tamper: %v", err)
	}

	last := data.InstallID[len(data.InstallID)-1]
	flipped := "a"
	if last == 'a' {
		flipped = "b"
	}
	data.InstallID = data.InstallID[:len(data.InstallID)-1] + flipped

	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("encode tampered license data: %v", err)
	}
	env.LicenseData = raw

	out, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("encode tampered envelope: %v", err)
	}
	return string(out)
}
