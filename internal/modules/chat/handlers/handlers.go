// Package handlers provides HTTP handlers for the chat assistant.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/sharesathi/internal/modules/chat"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds the request body; history makes it larger than one message.
const maxBodyBytes = 64 << 10

// ChatService is the chat.Service surface used by the handlers.
type ChatService interface {
	Reply(ctx context.Context, req chat.Request) (*chat.Reply, error)
	Providers() []string
}

// Handler handles chat HTTP requests
type Handler struct {
	service ChatService
	log     zerolog.Logger
}

// NewHandler creates a new chat handler
func NewHandler(service ChatService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "chat").Logger(),
	}
}

// HandleReply handles POST /api/chat
func (h *Handler) HandleReply(w http.ResponseWriter, r *http.Request) {
	var req chat.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := h.service.Reply(r.Context(), req)
	if errors.Is(err, chat.ErrEmptyMessage) {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Chat reply failed")
		h.writeError(w, http.StatusInternalServerError, "failed to generate reply")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": reply,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleProviders handles GET /api/chat/providers
func (h *Handler) HandleProviders(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"providers":        h.service.Providers(),
			"maxMessageLength": chat.MaxMessageLength,
		},
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

