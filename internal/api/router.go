package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// apiLimiter guards the whole group; downloadLimiter additionally guards
// the download route. sseHandler, if non-nil, is mounted at GET /events.
func NewRouter(h *Handler, apiLimiter, downloadLimiter *Limiter, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(apiLimiter.Middleware)

	r.Get("/status", h.Status)
	r.Get("/health", h.Health)

	// Discovery routes are registered before the id parameter route; chi
	// matches static segments first.
	r.Get("/wallpapers/random", h.Random)
	r.Get("/wallpapers/search", h.Search)
	r.Get("/wallpapers/filter", h.Filter)
	r.Get("/wallpapers/popular", h.Popular)

	r.Get("/wallpapers", h.List)
	r.Get("/wallpapers/{id}", h.Get)
	r.Get("/wallpapers/{id}/preview", h.Preview)
	r.With(downloadLimiter.Middleware).Get("/wallpapers/{id}/download", h.Download)
	r.Post("/wallpapers/{id}/favorite", h.Favorite)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
