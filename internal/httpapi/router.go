package httpapi

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/careerlink/messaging/internal/metrics"
)

// NewRouter builds the REST router. Everything under /api/v1/messages
// requires a caller identity; health and metrics stay open for probes and
// scrapers.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1/messages", func(r chi.Router) {
		r.Use(RequireIdentity)

		r.Post("/send", h.SendMessage)
		r.Get("/conversations/all", h.Conversations)
		r.Get("/{userID}", h.Thread)
	})

	return r
}
