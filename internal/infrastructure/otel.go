package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
)

const (
	ServiceName    = "glowsuite-licensing"
	ServiceVersion = "v1.0.0"
	MeterName      = "glowcli"
)

// OTelProviders holds the OpenTelemetry providers used by the application.
// Only the metrics pipeline is wired; traces are not exported.
type OTelProviders struct {
	MeterProvider  *sdkmetric.MeterProvider
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// InitializeOTel initializes the OpenTelemetry metrics pipeline with a
// Prometheus exporter. The returned handler serves the /metrics endpoint.
func InitializeOTel(logger *slog.Logger) (*OTelProviders, error) {
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(ServiceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(meterProvider)

	providers := &OTelProviders{
		MeterProvider:  meterProvider,
		Meter:          meterProvider.Meter(MeterName),
		PrometheusHTTP: promhttp.Handler(),
		Logger:         logger,
	}

	logger.Info("OpenTelemetry metrics initialized",
		slog.String("service", ServiceName),
		slog.String("version", ServiceVersion),
		slog.String("exporter", "prometheus"))

	return providers, nil
}

// Shutdown gracefully shuts down the metrics pipeline
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	if p.MeterProvider == nil {
		return nil
	}
	if err := p.MeterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}
	return nil
}
