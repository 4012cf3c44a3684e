package marketdata

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// PreloadGroups are the ticker sets warmed by the preload job: large-cap
// names, broad index and asset-class ETFs, sector ETFs, and index trackers.
var PreloadGroups = [][]string{
	{"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA"},
	{"VOO", "VTI", "VXUS", "GLD", "TLT"},
	{"XLK", "XLF", "XLV", "XLE", "XLI"},
	{"SPY", "QQQ", "IWM", "EFA", "EEM"},
}

// PreloadPeriods are the lookback windows warmed for each group
var PreloadPeriods = []int{1, 2, 3}

// PreloadJob warms the price cache for commonly requested ticker groups.
// A warm cache keeps first-request latency low after TTL expiry.
type PreloadJob struct {
	provider *CachedProvider
	timeout  time.Duration
	log      zerolog.Logger
}

// NewPreloadJob creates a cache preload job
func NewPreloadJob(provider *CachedProvider, log zerolog.Logger) *PreloadJob {
	return &PreloadJob{
		provider: provider,
		timeout:  10 * time.Minute,
		log:      log.With().Str("job", "cache_preload").Logger(),
	}
}

// Run warms every preload group for every period, bounded by the job timeout.
func (j *PreloadJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	return j.RunContext(ctx)
}

// RunContext warms every preload group for every period until ctx expires.
// Individual group failures are logged and counted, not fatal.
func (j *PreloadJob) RunContext(ctx context.Context) error {
	start := time.Now()
	var loaded, failed int

	for _, group := range PreloadGroups {
		for _, years := range PreloadPeriods {
			if err := ctx.Err(); err != nil {
				return err
			}

			if err := j.provider.Preload(ctx, group, years); err != nil {
				failed++
				j.log.Warn().
					Err(err).
					Strs("tickers", group).
					Int("years", years).
					Msg("Failed to preload group")
				continue
			}
			loaded++
		}
	}

	j.log.Info().
		Int("loaded", loaded).
		Int("failed", failed).
		Dur("elapsed", time.Since(start)).
		Msg("Cache preload completed")

	return nil
}

// Name returns the job name for scheduling and logging
func (j *PreloadJob) Name() string {
	return "cache_preload"
}
