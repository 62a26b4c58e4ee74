package errors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/render"
)

// License-specific sentinel errors. Verification failures never surface
// these to the UI; they collapse to a boolean result so callers cannot
// distinguish why a license was rejected. Environment failures do
// propagate, since the user's corrective action differs.
var (
	// ErrStorageUnavailable signals that the local storage or crypto
	// subsystem is inaccessible. Initialization failure, not "unlicensed".
	ErrStorageUnavailable = errors.New("local storage unavailable")

	// ErrActivationPersist signals that a verified license could not be
	// written to local storage (e.g. quota exceeded, permissions).
	ErrActivationPersist = errors.New("failed to persist license")

	// ErrIssuerKeyInvalid signals a malformed embedded or configured
	// issuer verification key. Fatal at startup.
	ErrIssuerKeyInvalid = errors.New("invalid issuer verification key")
)

// IsStorageUnavailable reports whether err wraps ErrStorageUnavailable
func IsStorageUnavailable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}

// IsActivationPersist reports whether err wraps ErrActivationPersist
func IsActivationPersist(err error) bool {
	return errors.Is(err, ErrActivationPersist)
}

// ProblemDetails implements RFC 7807 Problem Details for HTTP APIs
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	// Extensions carries additional response fields
	Extensions map[string]interface{} `json:"-"`
}

// Render implements the render.Renderer interface
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, pd.Status)
	return nil
}

// MarshalJSON includes extension members alongside the standard fields
func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	data := make(map[string]interface{})

	data["type"] = pd.Type
	data["title"] = pd.Title
	data["status"] = pd.Status

	if pd.Detail != "" {
		data["detail"] = pd.Detail
	}
	if pd.Instance != "" {
		data["instance"] = pd.Instance
	}
	for k, v := range pd.Extensions {
		data[k] = v
	}

	return json.Marshal(data)
}

// NewProblemDetails creates a new RFC 7807 compliant error
func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:     problemType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	}
}

// ActivationFailedProblem returns the deliberately generic activation
// failure response. The detail never says why verification failed.
func ActivationFailedProblem(instance string) *ProblemDetails {
	return NewProblemDetails(
		http.StatusUnprocessableEntity,
		"/problems/license-activation-failed",
		"Activation failed",
		"The license could not be activated. Check your license key and try again.",
		instance,
	)
}

// StorageUnavailableProblem returns the actionable storage failure response
func StorageUnavailableProblem(instance string, err error) *ProblemDetails {
	pd := NewProblemDetails(
		http.StatusServiceUnavailable,
		"/problems/storage-unavailable",
		"Local storage unavailable",
		"The application could not access local storage. Check permissions and available disk space.",
		instance,
	)
	pd.Extensions = map[string]interface{}{"cause": err.Error()}
	return pd
}

// ActivationPersistProblem returns the distinct response for a license
// that verified but could not be saved
func ActivationPersistProblem(instance string) *ProblemDetails {
	return NewProblemDetails(
		http.StatusInsufficientStorage,
		"/problems/license-persist-failed",
		"Could not save license",
		"The license is valid but could not be saved. Free up local storage and activate again.",
		instance,
	)
}
