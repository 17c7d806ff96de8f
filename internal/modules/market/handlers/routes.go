package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all market data routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/market", func(r chi.Router) {
		r.Get("/quote/{symbol}", h.HandleQuote)
		r.Get("/quotes", h.HandleQuotes)
		r.Get("/history/{symbol}", h.HandleHistory)
		r.Get("/indices", h.HandleIndices)
		r.Get("/index", h.HandleIndexTable)
		r.Get("/movers", h.HandleMovers)
		r.Get("/search", h.HandleSearch)
		r.Get("/technicals/{symbol}", h.HandleTechnicals)
		r.Get("/bhavcopy", h.HandleBhavcopy)
	})
}
