package services

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// LicenseMetrics holds OpenTelemetry instruments for license and quota
// operations
type LicenseMetrics struct {
	ActivationAttempts   metric.Int64Counter
	ActivationSuccess    metric.Int64Counter
	ActivationFailures   metric.Int64Counter
	VerificationTotal    metric.Int64Counter
	VerificationDuration metric.Float64Histogram
	QuotaConsumed        metric.Int64Counter
	QuotaDenied          metric.Int64Counter
}

// NewLicenseMetrics creates the license operation instruments
func NewLicenseMetrics(meter metric.Meter) (*LicenseMetrics, error) {
	m := &LicenseMetrics{}
	var err error

	if m.ActivationAttempts, err = meter.Int64Counter(
		"license_activation_attempts_total",
		metric.WithDescription("Total license activation attempts"),
	); err != nil {
		return nil, fmt.Errorf("creating activation attempts counter: %w", err)
	}

	if m.ActivationSuccess, err = meter.Int64Counter(
		"license_activation_success_total",
		metric.WithDescription("Successful license activations"),
	); err != nil {
		return nil, fmt.Errorf("creating activation success counter: %w", err)
	}

	if m.ActivationFailures, err = meter.Int64Counter(
		"license_activation_failures_total",
		metric.WithDescription("Failed license activations"),
	); err != nil {
		return nil, fmt.Errorf("creating activation failures counter: %w", err)
	}

	if m.VerificationTotal, err = meter.Int64Counter(
		"license_verification_total",
		metric.WithDescription("License verification checks by result"),
	); err != nil {
		return nil, fmt.Errorf("creating verification counter: %w", err)
	}

	if m.VerificationDuration, err = meter.Float64Histogram(
		"license_verification_duration_seconds",
		metric.WithDescription("License verification duration"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating verification histogram: %w", err)
	}

	if m.QuotaConsumed, err = meter.Int64Counter(
		"quota_consumed_total",
		metric.WithDescription("Free-tier quota units consumed"),
	); err != nil {
		return nil, fmt.Errorf("creating quota consumed counter: %w", err)
	}

	if m.QuotaDenied, err = meter.Int64Counter(
		"quota_denied_total",
		metric.WithDescription("Actions denied by exhausted quota"),
	); err != nil {
		return nil, fmt.Errorf("creating quota denied counter: %w", err)
	}

	return m, nil
}

// recordVerification records one verification outcome. Safe on a nil
// receiver so metrics stay optional in tests.
func (m *LicenseMetrics) recordVerification(ctx context.Context, valid bool, duration time.Duration) {
	if m == nil {
		return
	}
	result := "invalid"
	if valid {
		result = "valid"
	}
	m.VerificationTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
	m.VerificationDuration.Record(ctx, duration.Seconds())
}

func (m *LicenseMetrics) recordActivation(ctx context.Context, success bool) {
	if m == nil {
		return
	}
	m.ActivationAttempts.Add(ctx, 1)
	if success {
		m.ActivationSuccess.Add(ctx, 1)
	} else {
		m.ActivationFailures.Add(ctx, 1)
	}
}

func (m *LicenseMetrics) recordQuotaConsumed(ctx context.Context) {
	if m == nil {
		return
	}
	m.QuotaConsumed.Add(ctx, 1)
}

func (m *LicenseMetrics) recordQuotaDenied(ctx context.Context) {
	if m == nil {
		return
	}
	m.QuotaDenied.Add(ctx, 1)
}
