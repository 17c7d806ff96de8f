package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all chat routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/chat", func(r chi.Router) {
		r.Post("/", h.HandleReply)
		r.Get("/providers", h.HandleProviders)
	})
}
