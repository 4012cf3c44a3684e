package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/frontier/internal/database"
	"github.com/aristath/frontier/internal/marketdata"
)

// SystemHandlers provides system monitoring endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	cacheDB     *database.DB
	cacheRepo   *marketdata.Repository
	startupTime time.Time
}

// NewSystemHandlers creates system monitoring handlers
func NewSystemHandlers(log zerolog.Logger, cacheDB *database.DB, cacheRepo *marketdata.Repository) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("handler", "system").Logger(),
		cacheDB:     cacheDB,
		cacheRepo:   cacheRepo,
		startupTime: time.Now(),
	}
}

// DatabaseStatus summarizes the cache database file
type DatabaseStatus struct {
	Name      string  `json:"name"`
	SizeMB    float64 `json:"size_mb"`
	WALSizeMB float64 `json:"wal_size_mb"`
	Healthy   bool    `json:"healthy"`
}

// SystemStatusResponse is the payload for GET /api/system/status
type SystemStatusResponse struct {
	Status      string                `json:"status"`
	UptimeHours float64               `json:"uptime_hours"`
	CPUPercent  float64               `json:"cpu_percent"`
	RAMPercent  float64               `json:"ram_percent"`
	Goroutines  int                   `json:"goroutines"`
	GoVersion   string                `json:"go_version"`
	HeapAllocMB float64               `json:"heap_alloc_mb"`
	Database    *DatabaseStatus       `json:"database,omitempty"`
	Cache       *marketdata.CacheInfo `json:"cache,omitempty"`
}

// HandleSystemStatus returns process and storage health.
// GET /api/system/status
//
// Individual probe failures degrade the payload instead of failing the
// request, so the endpoint stays useful when one subsystem is down.
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, ramPercent := h.getSystemStats()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	response := SystemStatusResponse{
		Status:      "ok",
		UptimeHours: time.Since(h.startupTime).Hours(),
		CPUPercent:  cpuPercent,
		RAMPercent:  ramPercent,
		Goroutines:  runtime.NumGoroutine(),
		GoVersion:   runtime.Version(),
		HeapAllocMB: float64(memStats.HeapAlloc) / 1024 / 1024,
	}

	if h.cacheDB != nil {
		status := &DatabaseStatus{
			Name:    h.cacheDB.Name(),
			Healthy: true,
		}

		if err := h.cacheDB.QuickCheck(r.Context()); err != nil {
			h.log.Warn().Err(err).Msg("Cache database ping failed")
			status.Healthy = false
			response.Status = "degraded"
		}

		if stats, err := h.cacheDB.GetStats(); err == nil {
			status.SizeMB = float64(stats.SizeBytes) / 1024 / 1024
			status.WALSizeMB = float64(stats.WALSizeBytes) / 1024 / 1024
		} else {
			h.log.Warn().Err(err).Msg("Failed to read database stats")
		}

		response.Database = status
	}

	if h.cacheRepo != nil {
		info, err := h.cacheRepo.Info()
		if err != nil {
			h.log.Warn().Err(err).Msg("Failed to read cache info")
			response.Status = "degraded"
		} else {
			response.Cache = info
		}
	}

	h.writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// getSystemStats returns CPU and RAM usage percentages.
// The CPU sample window is 100ms to keep the endpoint responsive.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}
