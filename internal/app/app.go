package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"glowcli/internal/config"
	"glowcli/internal/identity"
	"glowcli/internal/infrastructure"
	"glowcli/internal/license"
	custommw "glowcli/internal/middleware"
	"glowcli/internal/quota"
	"glowcli/internal/services"
	transporthttp "glowcli/internal/transport/http"
)

// Application holds the wired components of the licensing service
type Application struct {
	config   *config.Config
	logger   *slog.Logger
	otel     *infrastructure.OTelProviders
	service  services.LicenseService
	health   *services.HealthService
	server   *http.Server
	shutdown []func(ctx context.Context) error
}

// NewApplication builds the full dependency graph from configuration.
// Components are singletons created once and passed by reference.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	paths := config.NewPaths(cfg.Paths)
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}
	paths.LogPathResolution()

	otelProviders, err := infrastructure.InitializeOTel(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize otel: %w", err)
	}

	metrics, err := services.NewLicenseMetrics(otelProviders.Meter)
	if err != nil {
		logger.Warn("metrics initialization failed, continuing without metrics",
			slog.String("error", err.Error()))
		metrics = nil
	}

	issuerKey, err := license.IssuerPublicKey(cfg.License.IssuerPublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load issuer public key: %w", err)
	}

	provider := identity.NewProvider(paths, logger)
	verifier := license.NewVerifier(paths, provider, issuerKey, logger)
	counter := quota.NewCounter(paths, cfg.Quota.DailyLimit, logger)
	service := services.NewLicenseService(provider, verifier, counter, logger, metrics)
	health := services.NewHealthService(paths, service, infrastructure.ServiceVersion, logger)

	app := &Application{
		config:  cfg,
		logger:  logger,
		otel:    otelProviders,
		service: service,
		health:  health,
	}
	app.shutdown = append(app.shutdown, otelProviders.Shutdown)

	app.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      app.routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return app, nil
}

// routes assembles the router with the middleware chain and mounts
func (app *Application) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(custommw.RequestID)
	r.Use(custommw.StructuredLogger(app.logger))
	r.Use(custommw.Recoverer(app.logger))
	r.Use(custommw.SecurityHeaders)

	var activationLimiter *custommw.RateLimiter
	if app.config.Server.RateLimit.Enabled {
		activationLimiter = custommw.NewRateLimiter(
			app.config.Server.RateLimit.RPS,
			app.config.Server.RateLimit.Burst,
			app.logger,
		)
	}

	licenseHandler := transporthttp.NewLicenseHandler(app.service, activationLimiter, app.logger)
	usageHandler := transporthttp.NewUsageHandler(app.service, app.logger)
	healthHandler := transporthttp.NewHealthHandler(app.health, app.logger)
	gate := custommw.NewActionGate(app.service, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Mount("/license", licenseHandler.Routes())
		r.Mount("/usage", usageHandler.Routes())
		r.Mount("/health", healthHandler.Routes())

		// Quota-gated action endpoint. The gate consumes one unit of
		// daily usage for free-tier installs before the handler runs.
		r.Group(func(r chi.Router) {
			r.Use(gate.Handler)
			r.Post("/action", transporthttp.ActionHandler(app.logger))
		})
	})

	r.Handle("/metrics", app.otel.PrometheusHTTP)

	return r
}

// Run starts the HTTP server and blocks until shutdown completes.
// SIGINT and SIGTERM trigger a graceful drain bounded by the configured
// shutdown timeout.
func (app *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.logger.Info("server starting",
			slog.String("addr", app.server.Addr),
			slog.String("version", infrastructure.ServiceVersion))
		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
		defer cancel()

		if err := app.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	err := g.Wait()

	cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, fn := range app.shutdown {
		if cerr := fn(cleanupCtx); cerr != nil {
			app.logger.Warn("cleanup error", slog.String("error", cerr.Error()))
		}
	}
	if cerr := infrastructure.CloseLogFile(); cerr != nil && err == nil {
		err = cerr
	}

	app.logger.Info("shutdown complete")
	return err
}
