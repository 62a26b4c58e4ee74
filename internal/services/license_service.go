package services

import (
	"context"
	"log/slog"
	"time"

	"glowcli/internal/identity"
	"glowcli/internal/license"
	"glowcli/internal/quota"
)

// LicenseService provides the UI-facing licensing and quota operations.
// The presentation layer consumes this interface only; it never touches
// the identity provider, verifier, or counter directly.
type LicenseService interface {
	GetInstallData(ctx context.Context) (*identity.InstallData, error)
	ActivateLicense(ctx context.Context, licenseString string) (bool, error)
	VerifyStoredLicense(ctx context.Context) (bool, error)
	GetLicenseInfo(ctx context.Context) (*LicenseInfoResponse, error)
	GetDailyUsage(ctx context.Context) (quota.Usage, error)
	IncrementDailyUsage(ctx context.Context) (int, error)
	GetRemainingUsage(ctx context.Context, isPremium bool) (int, error)
	ConsumeAction(ctx context.Context) (quota.Decision, error)
}

// LicenseInfoResponse aggregates license and quota state for UI display
type LicenseInfoResponse struct {
	IsValid        bool       `json:"is_valid"`
	IsPremium      bool       `json:"is_premium"`
	InstallationID string     `json:"installation_id"`
	ExpiryDate     *time.Time `json:"expiry_date,omitempty"`
	RemainingUsage int        `json:"remaining_usage"`
}

// licenseService implements LicenseService
type licenseService struct {
	identity *identity.Provider
	verifier *license.Verifier
	counter  *quota.Counter
	logger   *slog.Logger
	metrics  *LicenseMetrics
}

// NewLicenseService creates the licensing service. metrics may be nil,
// in which case no instruments are recorded.
func NewLicenseService(provider *identity.Provider, verifier *license.Verifier, counter *quota.Counter, logger *slog.Logger, metrics *LicenseMetrics) LicenseService {
	return &licenseService{
		identity: provider,
		verifier: verifier,
		counter:  counter,
		logger:   logger.With(slog.String("service", "license")),
		metrics:  metrics,
	}
}

// GetInstallData returns the installation id and public key JWK for the
// user to relay to the Issuer
func (s *licenseService) GetInstallData(ctx context.Context) (*identity.InstallData, error) {
	return s.identity.GetInstallData()
}

// ActivateLicense verifies and persists a pasted license string
func (s *licenseService) ActivateLicense(ctx context.Context, licenseString string) (bool, error) {
	ok, err := s.verifier.Activate(ctx, licenseString)
	s.metrics.recordActivation(ctx, ok && err == nil)

	if err != nil {
		s.logger.ErrorContext(ctx, "License activation failed",
			slog.String("error", err.Error()))
		return false, err
	}
	if !ok {
		// Deliberately generic: the caller learns only that activation
		// failed, not which verification step rejected it.
		s.logger.WarnContext(ctx, "License activation rejected")
	}
	return ok, nil
}

// VerifyStoredLicense checks the stored license artifact
func (s *licenseService) VerifyStoredLicense(ctx context.Context) (bool, error) {
	start := time.Now()
	valid, err := s.verifier.Verify(ctx)
	if err != nil {
		return false, err
	}
	s.metrics.recordVerification(ctx, valid, time.Since(start))
	return valid, nil
}

// GetLicenseInfo aggregates license validity, installation id, expiry,
// and remaining quota into one response for the UI banner
func (s *licenseService) GetLicenseInfo(ctx context.Context) (*LicenseInfoResponse, error) {
	installID, err := s.identity.GetOrCreateInstallID()
	if err != nil {
		return nil, err
	}

	info, err := s.verifier.Info(ctx)
	if err != nil {
		return nil, err
	}

	remaining, err := s.counter.GetRemainingUsage(info.IsValid)
	if err != nil {
		return nil, err
	}

	return &LicenseInfoResponse{
		IsValid:        info.IsValid,
		IsPremium:      info.IsValid,
		InstallationID: installID,
		ExpiryDate:     info.ExpiresAt,
		RemainingUsage: remaining,
	}, nil
}

// GetDailyUsage returns today's usage record
func (s *licenseService) GetDailyUsage(ctx context.Context) (quota.Usage, error) {
	return s.counter.GetDailyUsage()
}

// IncrementDailyUsage consumes one free-tier action and returns the new
// count
func (s *licenseService) IncrementDailyUsage(ctx context.Context) (int, error) {
	count, err := s.counter.IncrementDailyUsage()
	if err != nil {
		return 0, err
	}
	s.metrics.recordQuotaConsumed(ctx)
	return count, nil
}

// GetRemainingUsage returns remaining free actions, or the unlimited
// sentinel for premium
func (s *licenseService) GetRemainingUsage(ctx context.Context, isPremium bool) (int, error) {
	return s.counter.GetRemainingUsage(isPremium)
}

// ConsumeAction is the admission check for one gated action: premium
// installs pass through, free-tier installs consume one quota unit and
// are denied once the daily budget is exhausted.
func (s *licenseService) ConsumeAction(ctx context.Context) (quota.Decision, error) {
	isPremium, err := s.VerifyStoredLicense(ctx)
	if err != nil {
		return quota.Decision{}, err
	}

	decision, err := s.counter.CanPerformAction(isPremium)
	if err != nil {
		return quota.Decision{}, err
	}
	if !decision.Allowed {
		s.metrics.recordQuotaDenied(ctx)
		return decision, nil
	}

	if !isPremium {
		count, err := s.counter.IncrementDailyUsage()
		if err != nil {
			return quota.Decision{}, err
		}
		s.metrics.recordQuotaConsumed(ctx)
		decision.Remaining = s.counter.Limit() - count
		if decision.Remaining < 0 {
			decision.Remaining = 0
		}
	}

	return decision, nil
}
