package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"
)

// ActionHandler serves the gated analysis action. Admission control
// happens in the middleware in front of it, so by the time this runs
// the request has already been paid for.
func ActionHandler(logger *slog.Logger) http.HandlerFunc {
	log := logger.With(slog.String("handler", "action"))
	return func(w http.ResponseWriter, r *http.Request) {
		log.DebugContext(r.Context(), "action executed")
		render.JSON(w, r, map[string]interface{}{
			"status":       "completed",
			"completed_at": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
