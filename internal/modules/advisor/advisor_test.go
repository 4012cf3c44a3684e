package advisor

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/internal/marketdata"
	"github.com/aristath/frontier/internal/modules/optimization"
)

// fakeProvider serves fixed daily return series by symbol. Symbols without
// a series fail with DataUnavailableError, like a real upstream would.
type fakeProvider struct {
	series map[string][]float64
}

func (p *fakeProvider) returnsFor(symbol string) ([]float64, error) {
	r, ok := p.series[symbol]
	if !ok {
		return nil, domain.NewDataUnavailableError("no data for %s", symbol)
	}
	return r, nil
}

func (p *fakeProvider) FetchReturns(_ context.Context, tickers []string, _ int) (*marketdata.ReturnSet, error) {
	normalized, err := marketdata.NormalizeTickers(tickers)
	if err != nil {
		return nil, err
	}

	returns := make(map[string][]float64, len(normalized))
	days := 0
	for _, symbol := range normalized {
		r, err := p.returnsFor(symbol)
		if err != nil {
			return nil, err
		}
		returns[symbol] = r
		days = len(r)
	}

	dates := make([]time.Time, days)
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}

	return &marketdata.ReturnSet{
		Tickers: normalized,
		Dates:   dates,
		Returns: returns,
		Source:  "fake",
	}, nil
}

func (p *fakeProvider) FetchSeries(_ context.Context, symbol string, _ int) (*marketdata.Series, error) {
	r, err := p.returnsFor(symbol)
	if err != nil {
		return nil, err
	}

	closes := make([]float64, len(r))
	price := 100.0
	dates := make([]time.Time, len(r))
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i, ret := range r {
		price *= 1 + ret
		closes[i] = price
		dates[i] = start.AddDate(0, 0, i)
	}

	return &marketdata.Series{Symbol: symbol, Dates: dates, Closes: closes, Source: "fake"}, nil
}

func (p *fakeProvider) MarketCaps(_ context.Context, tickers []string) (map[string]float64, error) {
	caps := make(map[string]float64, len(tickers))
	for _, t := range tickers {
		caps[t] = 1e9
	}
	return caps, nil
}

// wiggle is a +/- alternating shock shared across the fixtures so
// correlations come out exact.
func wiggle(i int) float64 {
	if i%2 == 0 {
		return 1.0
	}
	return -1.0
}

func driftSeries(drift, shockScale float64, days int) []float64 {
	out := make([]float64, days)
	for i := range out {
		out[i] = drift + shockScale*0.02*wiggle(i)
	}
	return out
}

func newTestAdvisor(p marketdata.Provider) *Advisor {
	return NewAdvisor(p, optimization.NewStatsEngine(zerolog.Nop()), 4, zerolog.Nop())
}

func TestAdvisor_RecommendsDiversifier(t *testing.T) {
	// AAA and BBB move in lockstep; GLD moves against them with low
	// volatility and improves the blend, TLT adds correlated losses.
	provider := &fakeProvider{series: map[string][]float64{
		"AAA": driftSeries(0.01, 1.0, 60),
		"BBB": driftSeries(0.01, 1.0, 60),
		"GLD": driftSeries(0.002, -0.1, 60),
		"TLT": driftSeries(-0.002, 1.0, 60),
	}}
	advisor := newTestAdvisor(provider)

	report, err := advisor.Recommend(context.Background(), []string{"aaa", "bbb"}, []float64{0.5, 0.5}, 2)
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, 17, report.CandidatesTested, "every catalogue ETF outside the portfolio is tested")
	assert.Equal(t, 15, report.CandidatesSkipped, "candidates without data are skipped, not fatal")
	assert.Len(t, report.Diagnostics, 15)

	require.Len(t, report.Recommendations, 1)
	rec := report.Recommendations[0]
	assert.Equal(t, "GLD", rec.Ticker)
	assert.Equal(t, "Gold", rec.Name)
	assert.Greater(t, rec.SharpeImprovement, 0.0)
	assert.Greater(t, rec.NewReturn, 0.0)
	assert.Greater(t, rec.NewVolatility, 0.0)
	assert.InDelta(t, -1.0, rec.Correlation, 1e-9, "GLD moves exactly against both holdings")
	assert.Greater(t, rec.AnnualizedReturn, 0.0)
	assert.Greater(t, rec.AnnualizedVolatility, 0.0)

	// GLD prices only ever rise in this fixture
	assert.Equal(t, "above_trend", rec.TrendStatus)
	require.NotNil(t, rec.DistanceFromTrend)
	assert.Greater(t, *rec.DistanceFromTrend, 0.0)
}

func TestAdvisor_SkipsHeldCandidates(t *testing.T) {
	provider := &fakeProvider{series: map[string][]float64{
		"AAA": driftSeries(0.01, 1.0, 60),
		"BBB": driftSeries(0.01, 1.0, 60),
		"GLD": driftSeries(0.002, -0.1, 60),
		"TLT": driftSeries(-0.002, 1.0, 60),
	}}
	advisor := newTestAdvisor(provider)

	report, err := advisor.Recommend(context.Background(), []string{"AAA", "BBB", "GLD"}, []float64{0.4, 0.4, 0.2}, 2)
	require.NoError(t, err)

	assert.Equal(t, 16, report.CandidatesTested, "held catalogue members are not re-tested")
	for _, rec := range report.Recommendations {
		assert.NotEqual(t, "GLD", rec.Ticker)
	}
	assert.Empty(t, report.Recommendations, "TLT hurts the blend and everything else has no data")
}

func TestAdvisor_RanksAndCapsRecommendations(t *testing.T) {
	series := map[string][]float64{
		"AAA": driftSeries(0.01, 1.0, 60),
		"BBB": driftSeries(0.01, 1.0, 60),
	}
	// Every candidate helps; later alphabet positions get higher drift so
	// the expected ranking is exact.
	for i, symbol := range sectorETFSymbols() {
		series[symbol] = driftSeries(0.002+0.0005*float64(i), -0.1, 60)
	}
	provider := &fakeProvider{series: series}
	advisor := newTestAdvisor(provider)

	report, err := advisor.Recommend(context.Background(), []string{"AAA", "BBB"}, []float64{0.5, 0.5}, 2)
	require.NoError(t, err)

	assert.Equal(t, 0, report.CandidatesSkipped)
	require.Len(t, report.Recommendations, maxRecommendations, "output is capped at the top five")

	tickers := make([]string, 0, len(report.Recommendations))
	for i, rec := range report.Recommendations {
		tickers = append(tickers, rec.Ticker)
		if i > 0 {
			assert.LessOrEqual(t, rec.SharpeImprovement, report.Recommendations[i-1].SharpeImprovement,
				"recommendations are sorted by improvement")
		}
	}
	assert.Equal(t, []string{"XLY", "XLV", "XLU", "XLRE", "XLP"}, tickers)

	again, err := advisor.Recommend(context.Background(), []string{"AAA", "BBB"}, []float64{0.5, 0.5}, 2)
	require.NoError(t, err)
	assert.Equal(t, report, again, "the scan is deterministic despite running concurrently")
}

func TestAdvisor_ValidatesInput(t *testing.T) {
	advisor := newTestAdvisor(&fakeProvider{})
	ctx := context.Background()
	var validationErr *domain.ValidationError

	_, err := advisor.Recommend(ctx, nil, nil, 2)
	require.ErrorAs(t, err, &validationErr)

	_, err = advisor.Recommend(ctx, []string{"AAA"}, []float64{0.5, 0.5}, 2)
	require.ErrorAs(t, err, &validationErr, "weights must pair with tickers")

	_, err = advisor.Recommend(ctx, []string{"AAA", "AAA"}, []float64{0.5, 0.5}, 2)
	require.ErrorAs(t, err, &validationErr, "duplicate holdings are rejected")

	_, err = advisor.Recommend(ctx, []string{"AAA"}, []float64{-0.5}, 2)
	require.ErrorAs(t, err, &validationErr, "negative weights are rejected")

	_, err = advisor.Recommend(ctx, []string{"AAA"}, []float64{0.0}, 2)
	require.ErrorAs(t, err, &validationErr, "zero total weight is rejected")

	_, err = advisor.Recommend(ctx, []string{"AAA"}, []float64{1.0}, 0)
	require.ErrorAs(t, err, &validationErr, "lookback must be in range")
}

func TestAdvisor_CurrentDataUnavailable(t *testing.T) {
	advisor := newTestAdvisor(&fakeProvider{series: map[string][]float64{}})

	var dataErr *domain.DataUnavailableError
	_, err := advisor.Recommend(context.Background(), []string{"ZZZ"}, []float64{1.0}, 2)
	require.ErrorAs(t, err, &dataErr, "missing history for the portfolio itself is fatal")
}

func TestSectorETFs(t *testing.T) {
	catalogue := SectorETFs()
	assert.Len(t, catalogue, 17)
	assert.Equal(t, "Gold", catalogue["GLD"])
	assert.Equal(t, "Technology", catalogue["XLK"])

	symbols := sectorETFSymbols()
	require.Len(t, symbols, 17)
	assert.True(t, sort.StringsAreSorted(symbols), "symbols come back ordered")
}
