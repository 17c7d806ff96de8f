package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all watchlist routes. The {id} "active" addresses
// the active watchlist.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/watchlists", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Put("/active", h.HandleSetActive)
		r.Get("/containing/{symbol}", h.HandleContaining)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGet)
			r.Put("/", h.HandleRename)
			r.Delete("/", h.HandleDelete)
			r.Post("/stocks", h.HandleAddStock)
			r.Delete("/stocks/{symbol}", h.HandleRemoveStock)
		})
	})
}
