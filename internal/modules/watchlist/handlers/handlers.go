// Package handlers provides HTTP handlers for watchlist management.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/sharesathi/internal/modules/watchlist"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// activeAlias addresses the active watchlist in URLs.
const activeAlias = "active"

// Handler handles watchlist HTTP requests
type Handler struct {
	store *watchlist.Store
	log   zerolog.Logger
}

// NewHandler creates a new watchlist handler
func NewHandler(store *watchlist.Store, log zerolog.Logger) *Handler {
	return &Handler{
		store: store,
		log:   log.With().Str("handler", "watchlist").Logger(),
	}
}

// NameRequest is the body of create and rename requests
type NameRequest struct {
	Name string `json:"name"`
}

// ActiveRequest is the body of PUT /api/watchlists/active
type ActiveRequest struct {
	ID string `json:"id"`
}

// StockRequest is the body of POST /api/watchlists/{id}/stocks
type StockRequest struct {
	Symbol string `json:"symbol"`
}

// HandleList handles GET /api/watchlists
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	h.writeCollection(w, http.StatusOK)
}

// HandleGet handles GET /api/watchlists/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := h.watchlistID(r)
	if id == "" {
		id = h.store.ActiveID()
	}

	wl, ok := h.store.Get(id)
	if !ok {
		h.writeError(w, http.StatusNotFound, watchlist.ErrNotFound.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"watchlist": wl,
			"active":    wl.ID == h.store.ActiveID(),
			"canAdd":    h.store.CanAddTo(wl.ID),
		},
		"metadata": metadata(),
	})
}

// HandleCreate handles POST /api/watchlists
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	id, err := h.store.Create(r.Context(), req.Name)
	if err != nil {
		h.handleStoreError(w, err, "create")
		return
	}

	wl, _ := h.store.Get(id)
	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"data":     wl,
		"metadata": metadata(),
	})
}

// HandleRename handles PUT /api/watchlists/{id}
func (h *Handler) HandleRename(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := h.resolvedID(r)
	if err := h.store.Rename(r.Context(), id, req.Name); err != nil {
		h.handleStoreError(w, err, "rename")
		return
	}

	wl, _ := h.store.Get(id)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     wl,
		"metadata": metadata(),
	})
}

// HandleDelete handles DELETE /api/watchlists/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), h.resolvedID(r)); err != nil {
		h.handleStoreError(w, err, "delete")
		return
	}
	h.writeCollection(w, http.StatusOK)
}

// HandleSetActive handles PUT /api/watchlists/active
func (h *Handler) HandleSetActive(w http.ResponseWriter, r *http.Request) {
	var req ActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.store.SetActive(r.Context(), req.ID); err != nil {
		h.handleStoreError(w, err, "set active")
		return
	}
	h.writeCollection(w, http.StatusOK)
}

// HandleAddStock handles POST /api/watchlists/{id}/stocks
func (h *Handler) HandleAddStock(w http.ResponseWriter, r *http.Request) {
	var req StockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := h.watchlistID(r)
	if err := h.store.AddStock(r.Context(), req.Symbol, id); err != nil {
		h.handleStoreError(w, err, "add stock")
		return
	}
	h.writeWatchlist(w, id)
}

// HandleRemoveStock handles DELETE /api/watchlists/{id}/stocks/{symbol}
func (h *Handler) HandleRemoveStock(w http.ResponseWriter, r *http.Request) {
	id := h.watchlistID(r)
	if err := h.store.RemoveStock(r.Context(), chi.URLParam(r, "symbol"), id); err != nil {
		h.handleStoreError(w, err, "remove stock")
		return
	}
	h.writeWatchlist(w, id)
}

// HandleContaining handles GET /api/watchlists/containing/{symbol}
func (h *Handler) HandleContaining(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	lists := h.store.WatchlistsContaining(symbol)

	ids := make([]string, 0, len(lists))
	for _, wl := range lists {
		ids = append(ids, wl.ID)
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"symbol":       symbol,
			"watchlistIds": ids,
			"inActive":     h.store.IsInWatchlist(symbol, ""),
		},
		"metadata": metadata(),
	})
}

// watchlistID returns the {id} URL parameter, mapping "active" to "".
func (h *Handler) watchlistID(r *http.Request) string {
	id := chi.URLParam(r, "id")
	if id == activeAlias {
		return ""
	}
	return id
}

// resolvedID is watchlistID with "" replaced by the active id.
func (h *Handler) resolvedID(r *http.Request) string {
	if id := h.watchlistID(r); id != "" {
		return id
	}
	return h.store.ActiveID()
}

func (h *Handler) handleStoreError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, watchlist.ErrCapacityExceeded), errors.Is(err, watchlist.ErrLastWatchlist):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, watchlist.ErrReadOnly):
		h.writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, watchlist.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, watchlist.ErrInvalidName), errors.Is(err, watchlist.ErrInvalidSymbol):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Str("op", op).Msg("Watchlist operation failed")
		h.writeError(w, http.StatusInternalServerError, "failed to save watchlists")
	}
}

func (h *Handler) writeCollection(w http.ResponseWriter, status int) {
	h.writeJSON(w, status, map[string]interface{}{
		"data": map[string]interface{}{
			"watchlists":        h.store.List(),
			"activeWatchlistId": h.store.ActiveID(),
			"canCreate":         h.store.CanCreate(),
			"limits": map[string]int{
				"maxWatchlists": watchlist.MaxWatchlists,
				"maxSymbols":    watchlist.MaxSymbols,
				"maxNameLength": watchlist.MaxNameLength,
			},
		},
		"metadata": metadata(),
	})
}

func (h *Handler) writeWatchlist(w http.ResponseWriter, id string) {
	if id == "" {
		id = h.store.ActiveID()
	}
	wl, _ := h.store.Get(id)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"watchlist": wl,
			"canAdd":    h.store.CanAddTo(id),
		},
		"metadata": metadata(),
	})
}

func metadata() map[string]interface{} {
	return map[string]interface{}{
		"timestamp": time.Now().Format(time.RFC3339),
	}
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
