package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apperrors "glowcli/internal/errors"
	"glowcli/internal/middleware"
	"glowcli/internal/services"
)

// UsageHandler exposes the daily free-tier quota to the UI
type UsageHandler struct {
	service services.LicenseService
	logger  *slog.Logger
}

// NewUsageHandler creates a new usage handler
func NewUsageHandler(service services.LicenseService, logger *slog.Logger) *UsageHandler {
	return &UsageHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "usage")),
	}
}

// Routes returns a chi router for usage endpoints
func (h *UsageHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.GetUsage)
	r.Post("/increment", h.Increment)

	return r
}

// UsageResponse reports today's usage for the UI banner
type UsageResponse struct {
	Date      string `json:"date"`
	Count     int    `json:"count"`
	Remaining int    `json:"remaining"`
}

// GetUsage handles GET /api/usage
func (h *UsageHandler) GetUsage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	usage, err := h.service.GetDailyUsage(ctx)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	isPremium, err := h.service.VerifyStoredLicense(ctx)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	remaining, err := h.service.GetRemainingUsage(ctx, isPremium)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.JSON(w, r, UsageResponse{
		Date:      usage.Date,
		Count:     usage.Count,
		Remaining: remaining,
	})
}

// Increment handles POST /api/usage/increment
func (h *UsageHandler) Increment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	count, err := h.service.IncrementDailyUsage(ctx)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]int{"count": count})
}

func (h *UsageHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.ErrorContext(r.Context(), "usage request failed",
		slog.String("error", err.Error()))

	instance := r.URL.Path + "#" + middleware.GetReqID(r.Context())
	if apperrors.IsStorageUnavailable(err) {
		render.Render(w, r, apperrors.StorageUnavailableProblem(instance, err))
		return
	}
	render.Render(w, r, apperrors.ErrInternalServer)
}
