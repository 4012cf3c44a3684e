// Package advisor scans a catalogue of sector ETFs for additions that would
// improve a portfolio's risk-adjusted return.
package advisor

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/internal/marketdata"
	"github.com/aristath/frontier/internal/modules/optimization"
	"github.com/aristath/frontier/pkg/formulas"
)

const (
	// Each candidate is tested at a 10% allocation carved out of the
	// current holdings.
	blendCurrentShare   = 0.9
	blendCandidateShare = 0.1

	maxRecommendations = 5
	trendEMALength     = 200
)

// Recommendation is one catalogue ETF whose addition raised the test
// portfolio's Sharpe ratio.
type Recommendation struct {
	Ticker               string   `json:"ticker"`
	Name                 string   `json:"name"`
	SharpeImprovement    float64  `json:"sharpe_improvement"`
	NewReturn            float64  `json:"new_return"`
	NewVolatility        float64  `json:"new_volatility"`
	Correlation          float64  `json:"correlation"`
	AnnualizedReturn     float64  `json:"annualized_return"`
	AnnualizedVolatility float64  `json:"annualized_volatility"`
	TrendStatus          string   `json:"trend_status,omitempty"`
	DistanceFromTrend    *float64 `json:"distance_from_trend,omitempty"`
}

// Report carries the scan outcome. Candidates whose data could not be
// fetched are skipped, counted, and explained in Diagnostics.
type Report struct {
	Recommendations   []Recommendation `json:"recommendations"`
	CandidatesTested  int              `json:"candidates_tested"`
	CandidatesSkipped int              `json:"candidates_skipped,omitempty"`
	Diagnostics       []string         `json:"diagnostics,omitempty"`
}

// Advisor evaluates diversification candidates against a live portfolio.
type Advisor struct {
	provider    marketdata.Provider
	stats       *optimization.StatsEngine
	concurrency int
	log         zerolog.Logger
}

// NewAdvisor creates a new advisor.
func NewAdvisor(provider marketdata.Provider, stats *optimization.StatsEngine, concurrency int, log zerolog.Logger) *Advisor {
	if concurrency < 1 {
		concurrency = 4
	}
	return &Advisor{
		provider:    provider,
		stats:       stats,
		concurrency: concurrency,
		log:         log.With().Str("component", "advisor").Logger(),
	}
}

// Recommend tests every catalogue ETF the portfolio does not already hold:
// the candidate is given a 10% allocation, the rest scaled to 90%, and the
// blend's Sharpe ratio compared against the current portfolio. Candidates
// that improve it are ranked by improvement; the top five are returned.
func (a *Advisor) Recommend(ctx context.Context, tickers []string, weights []float64, lookbackYears int) (*Report, error) {
	held, weightOf, err := normalizeHoldings(tickers, weights)
	if err != nil {
		return nil, err
	}
	if err := marketdata.ValidateLookback(lookbackYears); err != nil {
		return nil, err
	}

	current, err := a.provider.FetchReturns(ctx, held, lookbackYears)
	if err != nil {
		return nil, err
	}
	currentMoments, err := a.stats.ComputeMoments(current.Tickers, current.Matrix(), optimization.MomentsOptions{})
	if err != nil {
		return nil, err
	}
	currentStats, err := optimization.CalculateStats(weightsFor(current.Tickers, weightOf), currentMoments, optimization.DefaultStatsConfig())
	if err != nil {
		return nil, err
	}

	heldSet := make(map[string]bool, len(held))
	for _, symbol := range held {
		heldSet[symbol] = true
	}
	catalogue := SectorETFs()
	candidates := make([]string, 0, len(catalogue))
	for _, symbol := range sectorETFSymbols() {
		if !heldSet[symbol] {
			candidates = append(candidates, symbol)
		}
	}

	type scanResult struct {
		symbol string
		rec    *Recommendation
		err    error
	}

	sem := make(chan struct{}, a.concurrency)
	results := make(chan scanResult, len(candidates))

	var wg sync.WaitGroup
	for _, symbol := range candidates {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				results <- scanResult{symbol: symbol, err: ctx.Err()}
				return
			}

			rec, err := a.evaluateCandidate(ctx, symbol, catalogue[symbol], held, weightOf, currentStats.SharpeRatio, lookbackYears)
			results <- scanResult{symbol: symbol, rec: rec, err: err}
		}(symbol)
	}

	wg.Wait()
	close(results)

	report := &Report{
		Recommendations:  make([]Recommendation, 0, maxRecommendations),
		CandidatesTested: len(candidates),
	}
	for r := range results {
		if r.err != nil {
			report.CandidatesSkipped++
			report.Diagnostics = append(report.Diagnostics, fmt.Sprintf("%s: %v", r.symbol, r.err))
			a.log.Debug().Err(r.err).Str("ticker", r.symbol).Msg("Candidate skipped")
			continue
		}
		if r.rec != nil {
			report.Recommendations = append(report.Recommendations, *r.rec)
		}
	}
	sort.Strings(report.Diagnostics)

	sort.Slice(report.Recommendations, func(i, j int) bool {
		ri, rj := report.Recommendations[i], report.Recommendations[j]
		if ri.SharpeImprovement != rj.SharpeImprovement {
			return ri.SharpeImprovement > rj.SharpeImprovement
		}
		return ri.Ticker < rj.Ticker
	})
	if len(report.Recommendations) > maxRecommendations {
		report.Recommendations = report.Recommendations[:maxRecommendations]
	}

	a.log.Info().
		Int("tested", report.CandidatesTested).
		Int("skipped", report.CandidatesSkipped).
		Int("recommended", len(report.Recommendations)).
		Msg("Portfolio gap scan complete")

	return report, nil
}

// evaluateCandidate returns nil, nil when the candidate does not improve
// the Sharpe ratio.
func (a *Advisor) evaluateCandidate(
	ctx context.Context,
	symbol, name string,
	held []string,
	weightOf map[string]float64,
	currentSharpe float64,
	lookbackYears int,
) (*Recommendation, error) {
	universe := make([]string, 0, len(held)+1)
	universe = append(universe, held...)
	universe = append(universe, symbol)

	rs, err := a.provider.FetchReturns(ctx, universe, lookbackYears)
	if err != nil {
		return nil, err
	}
	m, err := a.stats.ComputeMoments(rs.Tickers, rs.Matrix(), optimization.MomentsOptions{})
	if err != nil {
		return nil, err
	}

	testWeights := make([]float64, len(rs.Tickers))
	var sum float64
	for i, ticker := range rs.Tickers {
		if ticker == symbol {
			testWeights[i] = blendCandidateShare
		} else {
			testWeights[i] = blendCurrentShare * weightOf[ticker]
		}
		sum += testWeights[i]
	}
	for i := range testWeights {
		testWeights[i] /= sum
	}

	testStats, err := optimization.CalculateStats(testWeights, m, optimization.DefaultStatsConfig())
	if err != nil {
		return nil, err
	}

	improvement := testStats.SharpeRatio - currentSharpe
	if improvement <= 0 {
		return nil, nil
	}

	candidateReturns := rs.Returns[symbol]
	var corrSum float64
	for _, ticker := range held {
		corrSum += formulas.Correlation(candidateReturns, rs.Returns[ticker])
	}

	rec := &Recommendation{
		Ticker:               symbol,
		Name:                 name,
		SharpeImprovement:    improvement,
		NewReturn:            testStats.Return,
		NewVolatility:        testStats.Volatility,
		Correlation:          corrSum / float64(len(held)),
		AnnualizedReturn:     formulas.CalculateAnnualReturn(candidateReturns),
		AnnualizedVolatility: formulas.AnnualizedVolatility(candidateReturns),
	}
	a.attachTrend(ctx, rec, lookbackYears)

	return rec, nil
}

// attachTrend tags the candidate with its position relative to the 200-day
// EMA. Trend data is advisory; failures leave the tag empty.
func (a *Advisor) attachTrend(ctx context.Context, rec *Recommendation, lookbackYears int) {
	series, err := a.provider.FetchSeries(ctx, rec.Ticker, lookbackYears)
	if err != nil {
		a.log.Debug().Err(err).Str("ticker", rec.Ticker).Msg("Trend data unavailable for candidate")
		return
	}

	distance := formulas.CalculateDistanceFromEMA(series.Closes, trendEMALength)
	if distance == nil {
		return
	}

	rec.DistanceFromTrend = distance
	if *distance >= 0 {
		rec.TrendStatus = "above_trend"
	} else {
		rec.TrendStatus = "below_trend"
	}
}

func normalizeHoldings(tickers []string, weights []float64) ([]string, map[string]float64, error) {
	if len(tickers) == 0 {
		return nil, nil, domain.NewValidationError("no tickers provided")
	}
	if len(weights) != len(tickers) {
		return nil, nil, domain.NewValidationError("got %d weights for %d tickers", len(weights), len(tickers))
	}

	weightOf := make(map[string]float64, len(tickers))
	held := make([]string, 0, len(tickers))
	var sum float64
	for i, raw := range tickers {
		symbol := strings.ToUpper(strings.TrimSpace(raw))
		if symbol == "" {
			return nil, nil, domain.NewValidationError("ticker at position %d is blank", i)
		}
		if _, dup := weightOf[symbol]; dup {
			return nil, nil, domain.NewValidationError("duplicate ticker %s", symbol)
		}
		w := weights[i]
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return nil, nil, domain.NewValidationError("invalid weight %v for %s", w, symbol)
		}
		weightOf[symbol] = w
		held = append(held, symbol)
		sum += w
	}
	if sum <= 0 {
		return nil, nil, domain.NewValidationError("weights must sum to a positive value")
	}
	for symbol := range weightOf {
		weightOf[symbol] /= sum
	}
	sort.Strings(held)

	return held, weightOf, nil
}

func weightsFor(tickers []string, weightOf map[string]float64) []float64 {
	out := make([]float64, len(tickers))
	for i, ticker := range tickers {
		out[i] = weightOf[ticker]
	}
	return out
}
