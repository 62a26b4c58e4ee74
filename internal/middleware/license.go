package middleware

import (
	"log/slog"
	"net/http"

	apperrors "glowcli/internal/errors"
	"glowcli/internal/quota"
	"glowcli/internal/services"
)

// ActionGate admits requests to gated analysis actions: premium
// installs pass through, free-tier installs consume one daily quota
// unit per request and are denied once exhausted.
type ActionGate struct {
	service services.LicenseService
	logger  *slog.Logger
}

// NewActionGate creates the premium/quota gate middleware
func NewActionGate(service services.LicenseService, logger *slog.Logger) *ActionGate {
	return &ActionGate{
		service: service,
		logger:  logger.With(slog.String("component", "action_gate")),
	}
}

// Handler wraps gated action routes
func (g *ActionGate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		decision, err := g.service.ConsumeAction(ctx)
		if err != nil {
			g.logger.ErrorContext(ctx, "action admission check failed",
				slog.String("error", err.Error()))

			writeProblem(w, r, apperrors.StorageUnavailableProblem(r.URL.Path, err))
			return
		}

		if !decision.Allowed {
			g.logger.InfoContext(ctx, "action denied, daily quota exhausted",
				slog.Int("remaining", decision.Remaining))

			pd := apperrors.NewProblemDetails(
				http.StatusForbidden,
				"/problems/quota-exhausted",
				"Daily free usage limit reached",
				"Activate a premium license for unlimited usage, or try again tomorrow.",
				r.URL.Path,
			)
			pd.Extensions = map[string]interface{}{"remaining": decision.Remaining}
			writeProblem(w, r, pd)
			return
		}

		if decision.Remaining != quota.UnlimitedUsage {
			g.logger.DebugContext(ctx, "free-tier action admitted",
				slog.Int("remaining", decision.Remaining))
		}

		next.ServeHTTP(w, r)
	})
}
