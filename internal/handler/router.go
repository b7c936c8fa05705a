package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/shopbot-dev/shopbot/pkg/observability"
)

// RouterConfig holds the knobs the router needs.
type RouterConfig struct {
	RateLimit float64
	RateBurst int
}

// NewRouter wires the HTTP routes to the bot core.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(Metrics)
	if cfg.RateLimit > 0 {
		r.Use(RateLimit(rate.Limit(cfg.RateLimit), cfg.RateBurst))
	}

	r.Get("/healthz", observability.LivenessHandler())

	r.Route("/api", func(api chi.Router) {
		h.RegisterRoutes(api)
	})

	return r
}
