// Package handlers provides HTTP handlers for dashboard insights.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/sharesathi/internal/modules/insights"
	"github.com/rs/zerolog"
)

// InsightsService is the insights.Service surface used by the handlers.
type InsightsService interface {
	QuoteOfTheDay(ctx context.Context) insights.DailyQuote
	CompanyProfile(ctx context.Context, query string) (*insights.CompanyProfile, error)
}

// Handler handles insights HTTP requests
type Handler struct {
	service InsightsService
	log     zerolog.Logger
}

// NewHandler creates a new insights handler
func NewHandler(service InsightsService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "insights").Logger(),
	}
}

// HandleQuote handles GET /api/insights/quote
func (h *Handler) HandleQuote(w http.ResponseWriter, r *http.Request) {
	h.writeData(w, h.service.QuoteOfTheDay(r.Context()))
}

// HandleCompany handles GET /api/insights/company?q=TATAMOTORS
func (h *Handler) HandleCompany(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.CompanyProfile(r.Context(), r.URL.Query().Get("q"))
	if errors.Is(err, insights.ErrEmptyQuery) {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Company profile lookup failed")
		h.writeData(w, map[string]interface{}{"available": false})
		return
	}
	h.writeData(w, profile)
}

func (h *Handler) writeData(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
