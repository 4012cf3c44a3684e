// Package handlers provides HTTP handlers for portfolio analysis operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/internal/modules/analysis"
)

// Handler handles portfolio analysis HTTP requests
type Handler struct {
	service *analysis.Service
	log     zerolog.Logger
}

// NewHandler creates a new analysis handler
func NewHandler(service *analysis.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "analysis").Logger(),
	}
}

// HandleAnalyze handles POST /api/analyze
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analysis.AnalyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	resp, err := h.service.Analyze(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// HandleOptimize handles POST /api/optimize
func (h *Handler) HandleOptimize(w http.ResponseWriter, r *http.Request) {
	var req analysis.OptimizeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	resp, err := h.service.Optimize(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// HandleBlackLitterman handles POST /api/blacklitterman
func (h *Handler) HandleBlackLitterman(w http.ResponseWriter, r *http.Request) {
	var req analysis.BlackLittermanRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	resp, err := h.service.AnalyzeBlackLitterman(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// HandleCompare handles POST /api/compare
func (h *Handler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	var req analysis.CompareRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	resp, err := h.service.Compare(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.NewValidationError("invalid request body: %v", err)
	}
	return nil
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
