// Package handlers provides HTTP handlers for market data.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/sharesathi/internal/clients/nse"
	"github.com/aristath/sharesathi/internal/clients/yahoo"
	"github.com/aristath/sharesathi/internal/modules/market"
	"github.com/aristath/sharesathi/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const (
	defaultMovers = 5
	maxMovers     = 25
	maxBatch      = 50
)

// MarketService is the market.Service surface used by the handlers.
type MarketService interface {
	Quote(ctx context.Context, symbol string) (*market.Quote, error)
	Quotes(ctx context.Context, symbols []string) market.BatchQuotes
	Headlines(ctx context.Context) market.BatchQuotes
	History(ctx context.Context, symbol, rng string) ([]market.PricePoint, error)
	IndexTable(ctx context.Context, index string) (*market.IndexTable, error)
	Movers(ctx context.Context, index string, n int) (*market.Movers, error)
	Search(query string, limit int) []market.Instrument
	Technicals(ctx context.Context, symbol string) (*market.Technicals, error)
	Bhavcopy(ctx context.Context, date time.Time) (*market.Bhavcopy, error)
}

// Handler handles market data HTTP requests
type Handler struct {
	service MarketService
	log     zerolog.Logger
}

// NewHandler creates a new market handler
func NewHandler(service MarketService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "market").Logger(),
	}
}

// HandleQuote handles GET /api/market/quote/{symbol}
func (h *Handler) HandleQuote(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	q, err := h.service.Quote(r.Context(), symbol)
	if err != nil {
		h.handleServiceError(w, err, "quote", symbol)
		return
	}
	h.writeData(w, map[string]interface{}{"quote": q, "available": true})
}

// HandleQuotes handles GET /api/market/quotes?symbols=A,B
func (h *Handler) HandleQuotes(w http.ResponseWriter, r *http.Request) {
	symbols := utils.ParseCSV(r.URL.Query().Get("symbols"))
	if len(symbols) == 0 {
		h.writeError(w, http.StatusBadRequest, "symbols parameter is required")
		return
	}
	if len(symbols) > maxBatch {
		h.writeError(w, http.StatusBadRequest, "too many symbols")
		return
	}
	h.writeData(w, h.service.Quotes(r.Context(), symbols))
}

// HandleHistory handles GET /api/market/history/{symbol}?range=1y
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	rng := r.URL.Query().Get("range")
	if rng == "" {
		rng = "1y"
	}

	points, err := h.service.History(r.Context(), symbol, rng)
	if err != nil {
		h.handleServiceError(w, err, "history", symbol)
		return
	}
	h.writeData(w, map[string]interface{}{
		"symbol":    utils.DisplaySymbol(symbol),
		"range":     rng,
		"interval":  yahoo.IntervalFor(rng),
		"points":    points,
		"available": len(points) > 0,
	})
}

// HandleIndices handles GET /api/market/indices
func (h *Handler) HandleIndices(w http.ResponseWriter, r *http.Request) {
	h.writeData(w, map[string]interface{}{
		"indices":   nse.Indices,
		"headlines": h.service.Headlines(r.Context()),
	})
}

// HandleIndexTable handles GET /api/market/index?name=NIFTY%2050
func (h *Handler) HandleIndexTable(w http.ResponseWriter, r *http.Request) {
	name := indexParam(r, "name")
	table, err := h.service.IndexTable(r.Context(), name)
	if err != nil {
		h.handleServiceError(w, err, "index", name)
		return
	}
	h.writeData(w, map[string]interface{}{"table": table, "available": true})
}

// HandleMovers handles GET /api/market/movers?index=NIFTY%2050&n=5
func (h *Handler) HandleMovers(w http.ResponseWriter, r *http.Request) {
	name := indexParam(r, "index")
	n := intParam(r, "n", defaultMovers)
	if n < 1 || n > maxMovers {
		h.writeError(w, http.StatusBadRequest, "n must be between 1 and 25")
		return
	}

	movers, err := h.service.Movers(r.Context(), name, n)
	if err != nil {
		h.handleServiceError(w, err, "movers", name)
		return
	}
	h.writeData(w, map[string]interface{}{"movers": movers, "available": true})
}

// HandleSearch handles GET /api/market/search?q=tata
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	limit := intParam(r, "limit", market.DefaultSearchLimit)
	h.writeData(w, map[string]interface{}{
		"query":   q,
		"results": h.service.Search(q, limit),
	})
}

// HandleTechnicals handles GET /api/market/technicals/{symbol}
func (h *Handler) HandleTechnicals(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	tech, err := h.service.Technicals(r.Context(), symbol)
	if err != nil {
		h.handleServiceError(w, err, "technicals", symbol)
		return
	}
	h.writeData(w, map[string]interface{}{"technicals": tech, "available": true})
}

// HandleBhavcopy handles GET /api/market/bhavcopy?date=2025-01-03
func (h *Handler) HandleBhavcopy(w http.ResponseWriter, r *http.Request) {
	var date time.Time
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		date = d
	}

	b, err := h.service.Bhavcopy(r.Context(), date)
	if err != nil {
		h.handleServiceError(w, err, "bhavcopy", r.URL.Query().Get("date"))
		return
	}
	h.writeData(w, map[string]interface{}{
		"date":      b.Date.Format("2006-01-02"),
		"rows":      b.Rows,
		"count":     len(b.Rows),
		"available": true,
	})
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error, op, subject string) {
	switch {
	case errors.Is(err, market.ErrInvalidSymbol), errors.Is(err, market.ErrInvalidRange):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, market.ErrUnknownIndex):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, market.ErrUnavailable):
		h.log.Warn().Err(err).Str("op", op).Str("subject", subject).Msg("Market data unavailable")
		h.writeData(w, map[string]interface{}{"available": false})
	default:
		h.log.Error().Err(err).Str("op", op).Str("subject", subject).Msg("Market request failed")
		h.writeError(w, http.StatusInternalServerError, "failed to load market data")
	}
}

func indexParam(r *http.Request, key string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return nse.Indices[0]
}

func intParam(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return n
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
