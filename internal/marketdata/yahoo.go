package marketdata

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/clients/yahoo"
	"github.com/aristath/frontier/internal/domain"
)

// YahooProvider fetches price history from Yahoo Finance.
// Per-ticker downloads run concurrently, bounded by a semaphore.
type YahooProvider struct {
	client      *yahoo.Client
	concurrency int
	log         zerolog.Logger
}

// NewYahooProvider creates a provider backed by the Yahoo Finance client
func NewYahooProvider(client *yahoo.Client, concurrency int, log zerolog.Logger) *YahooProvider {
	if concurrency < 1 {
		concurrency = 4
	}
	return &YahooProvider{
		client:      client,
		concurrency: concurrency,
		log:         log.With().Str("component", "yahoo_provider").Logger(),
	}
}

// FetchFrame downloads and aligns adjusted closes for the ticker group
func (p *YahooProvider) FetchFrame(ctx context.Context, tickers []string, lookbackYears int) (*PriceFrame, error) {
	if err := ValidateLookback(lookbackYears); err != nil {
		return nil, err
	}
	normalized, err := NormalizeTickers(tickers)
	if err != nil {
		return nil, err
	}

	period := PeriodForYears(lookbackYears)

	type fetchResult struct {
		symbol string
		series *Series
		err    error
	}

	sem := make(chan struct{}, p.concurrency)
	results := make(chan fetchResult, len(normalized))

	var wg sync.WaitGroup
	for _, symbol := range normalized {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				results <- fetchResult{symbol: symbol, err: ctx.Err()}
				return
			}

			prices, err := p.client.GetHistoricalPrices(symbol, period)
			if err != nil {
				results <- fetchResult{symbol: symbol, err: err}
				return
			}

			results <- fetchResult{symbol: symbol, series: historyToSeries(symbol, prices)}
		}(symbol)
	}

	wg.Wait()
	close(results)

	series := make(map[string]*Series, len(normalized))
	for r := range results {
		if r.err != nil {
			return nil, &domain.DataUnavailableError{
				Message: "failed to fetch price history for " + r.symbol,
				Err:     r.err,
			}
		}
		if len(r.series.Closes) == 0 {
			return nil, domain.NewDataUnavailableError("no price data returned for %s", r.symbol)
		}
		series[r.symbol] = r.series
	}

	frame, err := AlignSeries(series)
	if err != nil {
		return nil, err
	}

	p.log.Debug().
		Strs("tickers", frame.Tickers).
		Int("days", frame.Window()).
		Str("period", period).
		Msg("Fetched price frame")

	return frame, nil
}

// FetchReturns downloads history and converts it to daily returns
func (p *YahooProvider) FetchReturns(ctx context.Context, tickers []string, lookbackYears int) (*ReturnSet, error) {
	frame, err := p.FetchFrame(ctx, tickers, lookbackYears)
	if err != nil {
		return nil, err
	}

	rs, err := FrameToReturns(frame)
	if err != nil {
		return nil, err
	}
	rs.Source = "yahoo"
	return rs, nil
}

// FetchSeries downloads one ticker's adjusted close history
func (p *YahooProvider) FetchSeries(ctx context.Context, symbol string, lookbackYears int) (*Series, error) {
	frame, err := p.FetchFrame(ctx, []string{symbol}, lookbackYears)
	if err != nil {
		return nil, err
	}

	normalized := frame.Tickers[0]
	return &Series{
		Symbol: normalized,
		Dates:  frame.Dates,
		Closes: frame.Closes[normalized],
		Source: "yahoo",
	}, nil
}

// MarketCaps fetches market capitalizations concurrently.
// Tickers without a reported cap are skipped, not errors.
func (p *YahooProvider) MarketCaps(ctx context.Context, tickers []string) (map[string]float64, error) {
	normalized, err := NormalizeTickers(tickers)
	if err != nil {
		return nil, err
	}

	sem := make(chan struct{}, p.concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	caps := make(map[string]float64, len(normalized))

	for _, symbol := range normalized {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				return
			}

			profile, err := p.client.GetAssetProfile(symbol)
			if err != nil {
				p.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to fetch asset profile, skipping cap")
				return
			}
			if profile.MarketCap <= 0 {
				return
			}

			mu.Lock()
			caps[symbol] = float64(profile.MarketCap)
			mu.Unlock()
		}(symbol)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return caps, nil
}

func historyToSeries(symbol string, prices []yahoo.HistoricalPrice) *Series {
	s := &Series{Symbol: symbol}
	for _, p := range prices {
		close := p.AdjClose
		if close <= 0 {
			close = p.Close
		}
		if close <= 0 {
			continue
		}
		s.Dates = append(s.Dates, p.Date)
		s.Closes = append(s.Closes, close)
	}
	return s
}
