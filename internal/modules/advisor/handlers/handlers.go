// Package handlers provides HTTP handlers for diversification advisor operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/internal/modules/advisor"
)

// RecommendationsRequest is the body of a gap-scan request.
type RecommendationsRequest struct {
	Tickers    []string  `json:"tickers"`
	Weights    []float64 `json:"weights"`
	TimePeriod int       `json:"time_period"`
}

// Handler handles diversification advisor HTTP requests
type Handler struct {
	advisor         *advisor.Advisor
	defaultLookback int
	log             zerolog.Logger
}

// NewHandler creates a new advisor handler
func NewHandler(adv *advisor.Advisor, defaultLookback int, log zerolog.Logger) *Handler {
	if defaultLookback < 1 {
		defaultLookback = 2
	}
	return &Handler{
		advisor:         adv,
		defaultLookback: defaultLookback,
		log:             log.With().Str("handler", "advisor").Logger(),
	}
}

// HandleRecommendations handles POST /api/recommendations
func (h *Handler) HandleRecommendations(w http.ResponseWriter, r *http.Request) {
	var req RecommendationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.NewValidationError("invalid request body: %v", err))
		return
	}

	lookback := req.TimePeriod
	if lookback == 0 {
		lookback = h.defaultLookback
	}

	report, err := h.advisor.Recommend(r.Context(), req.Tickers, req.Weights, lookback)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

// HandleSectors handles GET /api/sectors
func (h *Handler) HandleSectors(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"sectors": advisor.SectorETFs(),
	})
}

// writeError maps domain errors onto HTTP statuses: invalid input 400,
// missing market data 502, numerical degeneracy 422, everything else 500.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	kind := "internal"

	var validationErr *domain.ValidationError
	var dataErr *domain.DataUnavailableError
	var degenerateErr *domain.NumericalDegenerateError
	switch {
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
		kind = "validation"
	case errors.As(err, &dataErr):
		status = http.StatusBadGateway
		kind = "data_unavailable"
	case errors.As(err, &degenerateErr):
		status = http.StatusUnprocessableEntity
		kind = "numerical_degenerate"
	}

	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Request failed")
	} else {
		h.log.Warn().Err(err).Int("status", status).Msg("Request rejected")
	}

	h.writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"kind":    kind,
			"message": err.Error(),
		},
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
