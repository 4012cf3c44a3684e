// Package marketdata retrieves, aligns and caches daily price history
// for groups of tickers, and derives the return series the optimization
// engine consumes.
package marketdata

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/pkg/formulas"
)

// MinHistoryDays is the minimum number of aligned price rows required to
// produce a usable return series.
const MinHistoryDays = 30

// PriceFrame holds date-aligned adjusted closes for a group of tickers.
// Tickers are sorted and unique; every close series has len(Dates) entries.
type PriceFrame struct {
	Tickers []string             `msgpack:"tickers"`
	Dates   []time.Time          `msgpack:"dates"`
	Closes  map[string][]float64 `msgpack:"closes"`
}

// Window returns the number of aligned price rows
func (f *PriceFrame) Window() int {
	return len(f.Dates)
}

// Series is one ticker's daily adjusted close history
type Series struct {
	Symbol string      `json:"symbol"`
	Dates  []time.Time `json:"dates"`
	Closes []float64   `json:"closes"`
	Source string      `json:"source,omitempty"`
}

// ReturnSet holds aligned daily returns for a group of tickers.
// Tickers is the canonical (sorted) order for any matrix built from Returns.
type ReturnSet struct {
	Tickers  []string             `json:"tickers"`
	Dates    []time.Time          `json:"dates"`
	Returns  map[string][]float64 `json:"returns"`
	Source   string               `json:"source"`
	Degraded bool                 `json:"degraded"`
}

// NumDays returns the number of return observations
func (rs *ReturnSet) NumDays() int {
	return len(rs.Dates)
}

// Matrix returns the T x n return matrix in Tickers order
func (rs *ReturnSet) Matrix() [][]float64 {
	t := rs.NumDays()
	matrix := make([][]float64, t)
	for i := 0; i < t; i++ {
		row := make([]float64, len(rs.Tickers))
		for j, ticker := range rs.Tickers {
			row[j] = rs.Returns[ticker][i]
		}
		matrix[i] = row
	}
	return matrix
}

// Provider serves return series and market metadata to the engine
type Provider interface {
	// FetchReturns returns aligned daily returns for the tickers over the
	// lookback window. Fails with a ValidationError for bad input and a
	// DataUnavailableError when history cannot be obtained.
	FetchReturns(ctx context.Context, tickers []string, lookbackYears int) (*ReturnSet, error)

	// FetchSeries returns one ticker's adjusted close history
	FetchSeries(ctx context.Context, symbol string, lookbackYears int) (*Series, error)

	// MarketCaps returns market capitalizations by ticker. Tickers without
	// a reported cap are absent from the result.
	MarketCaps(ctx context.Context, tickers []string) (map[string]float64, error)
}

// Fetcher retrieves aligned price frames from an upstream source.
// The cache layer wraps a Fetcher and exposes the Provider interface.
type Fetcher interface {
	FetchFrame(ctx context.Context, tickers []string, lookbackYears int) (*PriceFrame, error)
	MarketCaps(ctx context.Context, tickers []string) (map[string]float64, error)
}

// ValidateLookback checks the lookback window is within the supported range
func ValidateLookback(years int) error {
	if years < 1 || years > 10 {
		return domain.NewValidationError("lookback must be between 1 and 10 years, got %d", years)
	}
	return nil
}

// NormalizeTickers uppercases, trims, deduplicates and sorts ticker symbols
func NormalizeTickers(tickers []string) ([]string, error) {
	if len(tickers) == 0 {
		return nil, domain.NewValidationError("at least one ticker is required")
	}

	seen := make(map[string]bool, len(tickers))
	normalized := make([]string, 0, len(tickers))
	for _, t := range tickers {
		symbol := strings.ToUpper(strings.TrimSpace(t))
		if symbol == "" {
			return nil, domain.NewValidationError("ticker symbols must be non-empty")
		}
		if !seen[symbol] {
			seen[symbol] = true
			normalized = append(normalized, symbol)
		}
	}

	sort.Strings(normalized)
	return normalized, nil
}

// CacheKey builds the canonical cache key for a ticker group and lookback
func CacheKey(tickers []string, lookbackYears int) string {
	sorted := make([]string, len(tickers))
	copy(sorted, tickers)
	sort.Strings(sorted)
	return fmt.Sprintf("%s:%dy", strings.Join(sorted, ","), lookbackYears)
}

// PeriodForYears converts a lookback in years to Yahoo range notation
func PeriodForYears(years int) string {
	return fmt.Sprintf("%dy", years)
}

// AlignSeries builds a date-aligned price frame from per-ticker series.
// Missing observations are forward-filled, then back-filled, matching how
// sparse columns are cleaned before return estimation. A ticker with no
// data at all fails the whole frame.
func AlignSeries(series map[string]*Series) (*PriceFrame, error) {
	if len(series) == 0 {
		return nil, domain.NewDataUnavailableError("no price series to align")
	}

	tickers := make([]string, 0, len(series))
	for symbol := range series {
		tickers = append(tickers, symbol)
	}
	sort.Strings(tickers)

	// Union of observation dates across all tickers
	dateSet := make(map[string]time.Time)
	for _, s := range series {
		for _, d := range s.Dates {
			key := d.Format("2006-01-02")
			if _, ok := dateSet[key]; !ok {
				dateSet[key] = d
			}
		}
	}

	dateKeys := make([]string, 0, len(dateSet))
	for key := range dateSet {
		dateKeys = append(dateKeys, key)
	}
	sort.Strings(dateKeys)

	dates := make([]time.Time, len(dateKeys))
	for i, key := range dateKeys {
		dates[i] = dateSet[key]
	}

	closes := make(map[string][]float64, len(tickers))
	for _, symbol := range tickers {
		s := series[symbol]

		byDate := make(map[string]float64, len(s.Dates))
		for i, d := range s.Dates {
			byDate[d.Format("2006-01-02")] = s.Closes[i]
		}

		column := make([]float64, len(dateKeys))
		for i, key := range dateKeys {
			if price, ok := byDate[key]; ok && price > 0 {
				column[i] = price
			} else {
				column[i] = math.NaN()
			}
		}

		fillColumn(column)

		if math.IsNaN(column[0]) {
			return nil, domain.NewDataUnavailableError("no usable price data for %s", symbol)
		}

		closes[symbol] = column
	}

	return &PriceFrame{
		Tickers: tickers,
		Dates:   dates,
		Closes:  closes,
	}, nil
}

// fillColumn forward-fills NaN gaps, then back-fills any leading NaNs
func fillColumn(column []float64) {
	for i := 1; i < len(column); i++ {
		if math.IsNaN(column[i]) && !math.IsNaN(column[i-1]) {
			column[i] = column[i-1]
		}
	}
	for i := len(column) - 2; i >= 0; i-- {
		if math.IsNaN(column[i]) && !math.IsNaN(column[i+1]) {
			column[i] = column[i+1]
		}
	}
}

// FrameToReturns converts an aligned price frame to daily percentage returns
func FrameToReturns(frame *PriceFrame) (*ReturnSet, error) {
	if frame.Window() < MinHistoryDays {
		return nil, domain.NewDataUnavailableError(
			"insufficient price history: only %d days available (need at least %d)",
			frame.Window(), MinHistoryDays,
		)
	}

	returns := make(map[string][]float64, len(frame.Tickers))
	for _, symbol := range frame.Tickers {
		returns[symbol] = formulas.CalculateReturns(frame.Closes[symbol])
	}

	return &ReturnSet{
		Tickers: frame.Tickers,
		Dates:   frame.Dates[1:],
		Returns: returns,
	}, nil
}
