package di

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/frontier/internal/config"
)

func TestWire(t *testing.T) {
	cfg := &config.Config{
		DataDir:          t.TempDir(),
		Port:             8000,
		LookbackYears:    2,
		CacheTTLDays:     7,
		SyntheticData:    true,
		PreloadEnabled:   true,
		PreloadSchedule:  "0 0 6 * * 1-5",
		YahooMaxRetries:  3,
		YahooConcurrency: 4,
		RiskFreeRate:     0.02,
		InflationRate:    0.025,
		FrontierPoints:   50,
		RandomCount:      1000,
		Tau:              0.05,
		RiskAversion:     2.5,
	}
	log := zerolog.Nop()

	container, err := Wire(cfg, log)
	require.NoError(t, err)
	require.NotNil(t, container)
	t.Cleanup(func() { _ = container.Close() })

	// Verify container is fully populated
	assert.NotNil(t, container.CacheDB)
	assert.NotNil(t, container.YahooClient)
	assert.NotNil(t, container.PriceRepo)
	assert.NotNil(t, container.PriceProvider)
	assert.NotNil(t, container.StatsEngine)
	assert.NotNil(t, container.Optimizer)
	assert.NotNil(t, container.FrontierGenerator)
	assert.NotNil(t, container.HRPOptimizer)
	assert.NotNil(t, container.Advisor)
	assert.NotNil(t, container.AnalysisService)
	assert.NotNil(t, container.AnalysisHandlers)
	assert.NotNil(t, container.AdvisorHandlers)
	assert.NotNil(t, container.Scheduler)
	assert.NotNil(t, container.PreloadJob)
	assert.NotNil(t, container.CleanupJob)

	// The cache schema was applied during wiring
	info, err := container.PriceRepo.Info()
	require.NoError(t, err)
	assert.Equal(t, 0, info.Entries)
}

func TestWire_RejectsBadPreloadSchedule(t *testing.T) {
	cfg := &config.Config{
		DataDir:         t.TempDir(),
		CacheTTLDays:    7,
		PreloadEnabled:  true,
		PreloadSchedule: "not a cron spec",
	}

	container, err := Wire(cfg, zerolog.Nop())
	require.Error(t, err)
	assert.Nil(t, container)
	assert.Contains(t, err.Error(), "cache preload")
}
