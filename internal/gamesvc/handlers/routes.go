package handlers

import (
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
)

// SetRoutes mounts the API under /v1 and metrics, when given, at /metrics.
func (h *Handler) SetRoutes(r *chi.Mux, metrics http.Handler) {
	if metrics != nil {
		r.Handle("/metrics", metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		// public routes
		r.Get("/health", h.HealthHandler)
		r.Post("/login", h.Login)

		// Secure routes
		r.Group(func(r chi.Router) {
			r.Use(h.Auth.Verifier())
			r.Use(jwtauth.Authenticator)

			r.Post("/logout", h.Logout)

			r.Get("/rooms", h.ListRooms)
			r.Post("/rooms", h.CreateRoom)
			r.Get("/rooms/{name}", h.GetRoom)
			r.Get("/rooms/{name}/cards", h.MyCards)
			r.Get("/rooms/{name}/history", h.RoomHistory)
			r.Get("/rooms/{name}/events", h.RoomEvents)
			r.Get("/games/{id}", h.GetGame)
		})
	})
}
