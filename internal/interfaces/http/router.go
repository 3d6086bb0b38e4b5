// Package http assembles the HTTP surface of the descriptor service.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/flexophore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/flexophore/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/flexophore/internal/interfaces/http/handlers"
	"github.com/turtacn/flexophore/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and middleware dependencies of the
// route tree.  Nil handlers leave their routes unregistered.
type RouterConfig struct {
	DescriptorHandler *handlers.DescriptorHandler
	HealthHandler     *handlers.HealthHandler

	Logger           logging.Logger
	LoggingConfig    middleware.LoggingConfig
	Metrics          *prometheus.FlexophoreMetrics
	MetricsCollector prometheus.MetricsCollector
	MetricsPath      string
}

// NewRouter constructs the complete HTTP route tree.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	if cfg.Logger != nil {
		r.Use(middleware.RequestLogging(cfg.Logger, cfg.LoggingConfig))
	}
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	if cfg.HealthHandler != nil {
		r.Get("/healthz", cfg.HealthHandler.Liveness)
		r.Get("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsCollector != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, cfg.MetricsCollector.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		registerDescriptorRoutes(api, cfg.DescriptorHandler)
	})
	return r
}

func registerDescriptorRoutes(r chi.Router, h *handlers.DescriptorHandler) {
	if h == nil {
		return
	}
	r.Post("/descriptors", h.Create)
	r.Post("/descriptors/batch", h.Batch)
	r.Post("/similarity", h.Similarity)
	r.Post("/rank", h.Rank)
}
