// Package yahoo fetches price history and asset profiles from Yahoo Finance.
package yahoo

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wnjoon/go-yfinance/pkg/models"
	"github.com/wnjoon/go-yfinance/pkg/ticker"
)

// Client is a Yahoo Finance API client
type Client struct {
	log        zerolog.Logger
	maxRetries int
}

// NewClient creates a new Yahoo Finance client
func NewClient(log zerolog.Logger, maxRetries int) *Client {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Client{
		log:        log.With().Str("client", "yahoo").Logger(),
		maxRetries: maxRetries,
	}
}

// NormalizeSymbol uppercases and trims a ticker symbol
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// GetHistoricalPrices fetches daily adjusted OHLCV bars for the given period.
// Period uses Yahoo range notation, e.g. "1y", "2y", "5y".
func (c *Client) GetHistoricalPrices(symbol string, period string) ([]HistoricalPrice, error) {
	symbol = NormalizeSymbol(symbol)

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		prices, err := c.fetchHistoryOnce(symbol, period)
		if err == nil {
			return prices, nil
		}

		lastErr = err
		if attempt < c.maxRetries-1 {
			waitTime := time.Duration(1<<uint(attempt)) * time.Second
			c.log.Warn().Err(err).Str("symbol", symbol).Int("attempt", attempt+1).Dur("wait", waitTime).Msg("Retrying")
			time.Sleep(waitTime)
		}
	}

	return nil, fmt.Errorf("failed to get history for %s after %d attempts: %w", symbol, c.maxRetries, lastErr)
}

func (c *Client) fetchHistoryOnce(symbol string, period string) ([]HistoricalPrice, error) {
	t, err := ticker.New(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticker: %w", err)
	}
	defer t.Close()

	params := models.HistoryParams{
		Period:     period,
		Interval:   "1d",
		AutoAdjust: true,
	}

	bars, err := t.History(params)
	if err != nil {
		return nil, fmt.Errorf("failed to get historical prices: %w", err)
	}

	historicalPrices := make([]HistoricalPrice, 0, len(bars))
	for _, bar := range bars {
		historicalPrices = append(historicalPrices, HistoricalPrice{
			Date:     bar.Date,
			Open:     bar.Open,
			High:     bar.High,
			Low:      bar.Low,
			Close:    bar.Close,
			Volume:   int64(bar.Volume),
			AdjClose: bar.AdjClose,
		})
	}

	return historicalPrices, nil
}

// GetAssetProfile fetches name, quote type and market capitalization for a symbol.
// MarketCap is 0 when Yahoo does not report one (common for some ETFs).
func (c *Client) GetAssetProfile(symbol string) (*AssetProfile, error) {
	symbol = NormalizeSymbol(symbol)

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		profile, err := c.fetchProfileOnce(symbol)
		if err == nil {
			return profile, nil
		}

		lastErr = err
		if attempt < c.maxRetries-1 {
			waitTime := time.Duration(1<<uint(attempt)) * time.Second
			c.log.Warn().Err(err).Str("symbol", symbol).Int("attempt", attempt+1).Dur("wait", waitTime).Msg("Retrying")
			time.Sleep(waitTime)
		}
	}

	return nil, fmt.Errorf("failed to get profile for %s after %d attempts: %w", symbol, c.maxRetries, lastErr)
}

func (c *Client) fetchProfileOnce(symbol string) (*AssetProfile, error) {
	t, err := ticker.New(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticker: %w", err)
	}
	defer t.Close()

	info, err := t.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to get info: %w", err)
	}

	profile := &AssetProfile{
		Symbol:    symbol,
		QuoteType: info.QuoteType,
	}

	if info.LongName != "" {
		profile.Name = info.LongName
	} else if info.ShortName != "" {
		profile.Name = info.ShortName
	}

	if info.MarketCap > 0 {
		profile.MarketCap = info.MarketCap
	}

	return profile, nil
}
