package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/storefront-checkout/internal/service"
	"github.com/utafrali/storefront-checkout/pkg/health"
	"github.com/utafrali/storefront-checkout/pkg/middleware"
)

// RouterConfig holds the router's deployment-specific settings.
type RouterConfig struct {
	ServiceName    string
	RequestTimeout time.Duration
	CORS           middleware.CORSConfig
	// RateLimit throttles wizard commands per session. Zero RPS disables it.
	RateLimit middleware.RateLimitConfig
	// PprofAllowedCIDRs enables /debug/pprof for these networks. Empty
	// disables profiling.
	PprofAllowedCIDRs []string
}

// NewRouter creates a chi router with all checkout wizard routes registered.
func NewRouter(
	wizardService *service.WizardService,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(cfg.RequestTimeout))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	if len(cfg.PprofAllowedCIDRs) > 0 {
		middleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, logger)
	}

	// Wizard API endpoints
	wizardHandler := NewWizardHandler(wizardService, logger)

	rateLimit := cfg.RateLimit
	rateLimit.Key = middleware.SessionIDFromRequest

	r.Route("/api/v1/checkout/wizard", func(r chi.Router) {
		r.Use(RequireSession)
		r.Use(ContentTypeJSON)

		r.Get("/", wizardHandler.GetWizard)
		r.Get("/submissions", wizardHandler.ListSubmissions)

		// Every command writes the session's state.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(rateLimit, logger))

			r.Delete("/", wizardHandler.Reset)
			r.Patch("/contact", wizardHandler.UpdateContact)
			r.Patch("/shipping", wizardHandler.UpdateShipping)
			r.Put("/payment", wizardHandler.SetPaymentMethod)
			r.Post("/advance", wizardHandler.Advance)
			r.Post("/retreat", wizardHandler.Retreat)
			r.Post("/jump", wizardHandler.Jump)
			r.Post("/submit", wizardHandler.Submit)
		})
	})

	return r
}
