package marketdata

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// CachedProvider wraps an upstream Fetcher with a persistent price cache.
//
// Lookup order:
//  1. Fresh cache entry → instant return
//  2. Upstream fetch → store and return
//  3. Upstream failed: stale cache entry → return, flagged degraded
//  4. Optional synthetic fallback → return, flagged degraded
//
// A singleflight.Group coalesces concurrent fetches for the same key, so a
// burst of requests for one ticker group costs at most one upstream call.
type CachedProvider struct {
	upstream Fetcher
	fallback Fetcher // optional, used only when upstream and stale cache both fail
	repo     *Repository
	ttl      time.Duration
	group    singleflight.Group
	log      zerolog.Logger
}

// CachedProviderOptions configures optional cache behavior
type CachedProviderOptions struct {
	// Fallback serves deterministic synthetic frames when the upstream
	// source fails and no stale entry exists. Nil disables the fallback.
	Fallback Fetcher
}

// NewCachedProvider creates a caching provider over an upstream fetcher
func NewCachedProvider(upstream Fetcher, repo *Repository, ttl time.Duration, log zerolog.Logger, opts CachedProviderOptions) *CachedProvider {
	return &CachedProvider{
		upstream: upstream,
		fallback: opts.Fallback,
		repo:     repo,
		ttl:      ttl,
		log:      log.With().Str("component", "price_cache").Logger(),
	}
}

// framedResult carries a frame together with its provenance
type framedResult struct {
	frame    *PriceFrame
	source   string
	degraded bool
}

// FetchFrame returns an aligned price frame, serving from cache when fresh
func (c *CachedProvider) FetchFrame(ctx context.Context, tickers []string, lookbackYears int) (*PriceFrame, error) {
	res, err := c.fetchFrame(ctx, tickers, lookbackYears)
	if err != nil {
		return nil, err
	}
	return res.frame, nil
}

func (c *CachedProvider) fetchFrame(ctx context.Context, tickers []string, lookbackYears int) (*framedResult, error) {
	if err := ValidateLookback(lookbackYears); err != nil {
		return nil, err
	}
	normalized, err := NormalizeTickers(tickers)
	if err != nil {
		return nil, err
	}

	key := CacheKey(normalized, lookbackYears)

	// Fast path outside the flight group
	if frame, err := c.repo.GetFresh(key); err == nil && frame != nil {
		return &framedResult{frame: frame, source: "cache"}, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// Re-check freshness: another caller may have populated the
		// cache while we waited on the flight group.
		if frame, err := c.repo.GetFresh(key); err == nil && frame != nil {
			return &framedResult{frame: frame, source: "cache"}, nil
		}

		frame, fetchErr := c.upstream.FetchFrame(ctx, normalized, lookbackYears)
		if fetchErr == nil {
			if storeErr := c.repo.Store(key, normalized, lookbackYears, frame, c.ttl); storeErr != nil {
				c.log.Warn().Err(storeErr).Str("key", key).Msg("Failed to store frame in cache")
			}
			return &framedResult{frame: frame, source: "upstream"}, nil
		}

		// Upstream failed. Stale data is better than no data.
		if stale, staleErr := c.repo.GetStale(key); staleErr == nil && stale != nil {
			c.log.Warn().
				Err(fetchErr).
				Str("key", key).
				Msg("Upstream fetch failed, serving stale cache entry")
			return &framedResult{frame: stale, source: "cache-stale", degraded: true}, nil
		}

		if c.fallback != nil {
			if synthetic, synthErr := c.fallback.FetchFrame(ctx, normalized, lookbackYears); synthErr == nil {
				c.log.Warn().
					Err(fetchErr).
					Str("key", key).
					Msg("Upstream fetch failed, serving synthetic data")
				return &framedResult{frame: synthetic, source: "synthetic", degraded: true}, nil
			}
		}

		return nil, fetchErr
	})
	if err != nil {
		return nil, err
	}

	return v.(*framedResult), nil
}

// FetchReturns returns aligned daily returns, cached
func (c *CachedProvider) FetchReturns(ctx context.Context, tickers []string, lookbackYears int) (*ReturnSet, error) {
	res, err := c.fetchFrame(ctx, tickers, lookbackYears)
	if err != nil {
		return nil, err
	}

	rs, err := FrameToReturns(res.frame)
	if err != nil {
		return nil, err
	}
	rs.Source = res.source
	rs.Degraded = res.degraded
	return rs, nil
}

// FetchSeries returns one ticker's close history, cached
func (c *CachedProvider) FetchSeries(ctx context.Context, symbol string, lookbackYears int) (*Series, error) {
	res, err := c.fetchFrame(ctx, []string{symbol}, lookbackYears)
	if err != nil {
		return nil, err
	}

	normalized := res.frame.Tickers[0]
	return &Series{
		Symbol: normalized,
		Dates:  res.frame.Dates,
		Closes: res.frame.Closes[normalized],
		Source: res.source,
	}, nil
}

// MarketCaps delegates to the upstream source; capitalizations are not cached
func (c *CachedProvider) MarketCaps(ctx context.Context, tickers []string) (map[string]float64, error) {
	return c.upstream.MarketCaps(ctx, tickers)
}

// Preload warms the cache for a ticker group without returning data
func (c *CachedProvider) Preload(ctx context.Context, tickers []string, lookbackYears int) error {
	_, err := c.fetchFrame(ctx, tickers, lookbackYears)
	return err
}
