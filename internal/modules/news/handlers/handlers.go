// Package handlers provides HTTP handlers for the news feed.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/aristath/sharesathi/internal/modules/news"
	"github.com/rs/zerolog"
)

// NewsService is the news.Service surface used by the handlers.
type NewsService interface {
	Latest(ctx context.Context) *news.Feed
	ForSymbol(ctx context.Context, symbol string, terms ...string) *news.Feed
}

// Handler handles news HTTP requests
type Handler struct {
	service NewsService
	log     zerolog.Logger
}

// NewHandler creates a new news handler
func NewHandler(service NewsService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "news").Logger(),
	}
}

// HandleLatest handles GET /api/news?symbol=TCS&q=tata
func (h *Handler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	q := r.URL.Query().Get("q")

	var feed *news.Feed
	if symbol == "" && q == "" {
		feed = h.service.Latest(r.Context())
	} else {
		feed = h.service.ForSymbol(r.Context(), symbol, q)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"data": feed,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"count":     len(feed.Items),
		},
	}); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

