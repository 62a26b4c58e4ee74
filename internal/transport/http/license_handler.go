package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apperrors "glowcli/internal/errors"
	"glowcli/internal/middleware"
	"glowcli/internal/services"
)

var validate = validator.New()

// LicenseHandler handles license-related HTTP requests for the local UI
type LicenseHandler struct {
	service services.LicenseService
	logger  *slog.Logger
	limiter *middleware.RateLimiter
}

// NewLicenseHandler creates a new license handler. limiter may be nil
// to disable activation throttling.
func NewLicenseHandler(service services.LicenseService, limiter *middleware.RateLimiter, logger *slog.Logger) *LicenseHandler {
	return &LicenseHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "license")),
		limiter: limiter,
	}
}

// ActivationRequest is the license activation payload
type ActivationRequest struct {
	License string `json:"license" validate:"required,min=2"`
}

// Bind implements the render.Binder interface
func (a *ActivationRequest) Bind(r *http.Request) error {
	return validate.Struct(a)
}

// ActivationResponse reports the activation outcome
type ActivationResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Routes returns a chi router for license endpoints
func (h *LicenseHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/install-data", h.GetInstallData)
	r.Get("/status", h.GetStatus)
	r.Get("/verify", h.Verify)

	if h.limiter != nil {
		r.With(h.limiter.Handler).Post("/activate", h.Activate)
	} else {
		r.Post("/activate", h.Activate)
	}

	return r
}

// GetInstallData handles GET /api/license/install-data. It returns the
// installation id and public key JWK the user relays to the Issuer.
func (h *LicenseHandler) GetInstallData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	data, err := h.service.GetInstallData(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get install data",
			slog.String("error", err.Error()))
		h.renderStorageError(w, r, err)
		return
	}

	render.JSON(w, r, data)
}

// GetStatus handles GET /api/license/status
func (h *LicenseHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	info, err := h.service.GetLicenseInfo(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get license info",
			slog.String("error", err.Error()))
		h.renderStorageError(w, r, err)
		return
	}

	render.JSON(w, r, info)
}

// Verify handles GET /api/license/verify
func (h *LicenseHandler) Verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	valid, err := h.service.VerifyStoredLicense(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "license verification errored",
			slog.String("error", err.Error()))
		h.renderStorageError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]bool{"valid": valid})
}

// Activate handles POST /api/license/activate
func (h *LicenseHandler) Activate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)
	instance := r.URL.Path + "#" + reqID

	var req ActivationRequest
	if err := render.Bind(r, &req); err != nil {
		render.Render(w, r, apperrors.InvalidRequestWithError(err))
		return
	}

	ok, err := h.service.ActivateLicense(ctx, req.License)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrActivationPersist):
			render.Render(w, r, apperrors.ActivationPersistProblem(instance))
		case apperrors.IsStorageUnavailable(err):
			render.Render(w, r, apperrors.StorageUnavailableProblem(instance, err))
		default:
			render.Render(w, r, apperrors.ErrInternalServer)
		}
		return
	}

	if !ok {
		// Callers never learn which check rejected the license.
		render.Render(w, r, apperrors.ActivationFailedProblem(instance))
		return
	}

	render.JSON(w, r, ActivationResponse{
		Success:   true,
		Message:   "License activated successfully",
		Timestamp: time.Now(),
	})
}

func (h *LicenseHandler) renderStorageError(w http.ResponseWriter, r *http.Request, err error) {
	instance := r.URL.Path + "#" + middleware.GetReqID(r.Context())
	if apperrors.IsStorageUnavailable(err) {
		render.Render(w, r, apperrors.StorageUnavailableProblem(instance, err))
		return
	}
	render.Render(w, r, apperrors.ErrInternalServer)
}
