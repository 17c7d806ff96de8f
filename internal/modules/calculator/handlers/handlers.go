// Package handlers provides HTTP handlers for the what-if investment calculator.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/sharesathi/internal/modules/calculator"
	"github.com/aristath/sharesathi/internal/modules/market"
	"github.com/rs/zerolog"
)

// CalculatorService is the calculator.Service surface used by the handlers.
type CalculatorService interface {
	Calculate(ctx context.Context, req calculator.Request) (*calculator.Outcome, error)
	Compare(ctx context.Context, symbol string, amount float64) ([]calculator.Outcome, error)
	Defaults() (float64, int)
}

// Handler handles calculator HTTP requests
type Handler struct {
	service CalculatorService
	log     zerolog.Logger
}

// NewHandler creates a new calculator handler
func NewHandler(service CalculatorService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "calculator").Logger(),
	}
}

// HandleCalculate handles GET /api/calculator?symbol=TCS&amount=10000&years=5
func (h *Handler) HandleCalculate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	amount, err := parseAmount(q.Get("amount"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, calculator.ErrInvalidAmount.Error())
		return
	}

	years := 0
	if raw := q.Get("years"); raw != "" {
		years, err = strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, calculator.ErrInvalidYears.Error())
			return
		}
	}

	out, err := h.service.Calculate(r.Context(), calculator.Request{
		Symbol:    q.Get("symbol"),
		Amount:    amount,
		YearsBack: years,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeData(w, out)
}

// HandleCompare handles GET /api/calculator/compare?symbol=TCS&amount=10000
func (h *Handler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	amount, err := parseAmount(q.Get("amount"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, calculator.ErrInvalidAmount.Error())
		return
	}

	outcomes, err := h.service.Compare(r.Context(), q.Get("symbol"), amount)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeData(w, map[string]interface{}{"outcomes": outcomes})
}

// HandlePresets handles GET /api/calculator/presets
func (h *Handler) HandlePresets(w http.ResponseWriter, r *http.Request) {
	amount, years := h.service.Defaults()
	h.writeData(w, map[string]interface{}{
		"presets":          calculator.Presets,
		"defaultAmount":    amount,
		"defaultYearsBack": years,
	})
}

func parseAmount(raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseFloat(raw, 64)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, market.ErrInvalidSymbol),
		errors.Is(err, calculator.ErrInvalidAmount),
		errors.Is(err, calculator.ErrInvalidYears):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Msg("Calculation failed")
		h.writeData(w, map[string]interface{}{"result": nil, "available": false})
	}
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
