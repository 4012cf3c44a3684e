package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/marketdata"
)

// CacheHandlers provides price cache maintenance endpoints
type CacheHandlers struct {
	log     zerolog.Logger
	repo    *marketdata.Repository
	preload *marketdata.PreloadJob
}

// NewCacheHandlers creates cache maintenance handlers
func NewCacheHandlers(log zerolog.Logger, repo *marketdata.Repository, preload *marketdata.PreloadJob) *CacheHandlers {
	return &CacheHandlers{
		log:     log.With().Str("handler", "cache").Logger(),
		repo:    repo,
		preload: preload,
	}
}

// ClearCacheRequest is the optional body for POST /api/cache/clear
type ClearCacheRequest struct {
	OlderThanDays *int `json:"older_than_days"`
}

// HandleCacheInfo returns cache statistics.
// GET /api/cache/info
func (h *CacheHandlers) HandleCacheInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.repo.Info()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read cache info")
		h.writeError(w, http.StatusInternalServerError, "failed to read cache info")
		return
	}

	h.writeJSON(w, http.StatusOK, info)
}

// HandleCacheClear removes cached price frames.
// POST /api/cache/clear
//
// An empty body clears everything. With {"older_than_days": N} only
// entries fetched more than N days ago are removed.
func (h *CacheHandlers) HandleCacheClear(w http.ResponseWriter, r *http.Request) {
	var req ClearCacheRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.OlderThanDays != nil && *req.OlderThanDays < 0 {
		h.writeError(w, http.StatusBadRequest, "older_than_days must not be negative")
		return
	}

	var deleted int64
	var err error
	if req.OlderThanDays != nil {
		deleted, err = h.repo.DeleteOlderThan(time.Duration(*req.OlderThanDays) * 24 * time.Hour)
	} else {
		deleted, err = h.repo.Clear()
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to clear cache")
		h.writeError(w, http.StatusInternalServerError, "failed to clear cache")
		return
	}

	h.log.Info().Int64("deleted", deleted).Msg("Cache cleared")
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Cache cleared successfully",
		"deleted": deleted,
	})
}

// HandleCachePreload warms the cache for the common ticker groups.
// POST /api/cache/preload
//
// Runs synchronously, bounded by the request deadline. Per-group fetch
// failures are logged by the job and do not fail the request.
func (h *CacheHandlers) HandleCachePreload(w http.ResponseWriter, r *http.Request) {
	if err := h.preload.RunContext(r.Context()); err != nil {
		h.log.Error().Err(err).Msg("Cache preload aborted")
		h.writeError(w, http.StatusInternalServerError, "cache preload aborted")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Cache preloaded successfully",
	})
}

// writeError writes a JSON error response
func (h *CacheHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"kind":    kindForStatus(status),
			"message": message,
		},
	})
}

func kindForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "validation"
	default:
		return "internal"
	}
}

// writeJSON writes a JSON response
func (h *CacheHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
