// Package analysis orchestrates market data, the optimization engine and the
// advisor into the portfolio analysis operations behind the JSON API.
package analysis

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/internal/marketdata"
	"github.com/aristath/frontier/internal/modules/advisor"
	"github.com/aristath/frontier/internal/modules/optimization"
	"github.com/aristath/frontier/pkg/formulas"
)

const (
	defaultMinExposure = 0.01
	cvarConfidence     = 0.95
)

// Options carries the tunables every analysis run shares.
type Options struct {
	RiskFreeRate     float64
	InflationRate    float64
	DefaultLookback  int
	FrontierPoints   int
	RandomPortfolios int
	RandomSeed       int64
	Tau              float64
	Delta            float64
}

// DefaultOptions returns the stock configuration.
func DefaultOptions() Options {
	return Options{
		RiskFreeRate:     optimization.DefaultRiskFreeRate,
		InflationRate:    optimization.DefaultInflationRate,
		DefaultLookback:  2,
		FrontierPoints:   optimization.DefaultFrontierPoints,
		RandomPortfolios: optimization.DefaultRandomPortfolios,
		RandomSeed:       1,
		Tau:              optimization.DefaultTau,
		Delta:            optimization.DefaultDelta,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.DefaultLookback <= 0 {
		o.DefaultLookback = def.DefaultLookback
	}
	if o.FrontierPoints <= 0 {
		o.FrontierPoints = def.FrontierPoints
	}
	if o.RandomPortfolios <= 0 {
		o.RandomPortfolios = def.RandomPortfolios
	}
	if o.Tau <= 0 {
		o.Tau = def.Tau
	}
	if o.Delta <= 0 {
		o.Delta = def.Delta
	}
	return o
}

// Service runs the portfolio analysis operations.
type Service struct {
	provider       marketdata.Provider
	stats          *optimization.StatsEngine
	optimizer      *optimization.MVOptimizer
	frontier       *optimization.FrontierGenerator
	hrp            *optimization.HRPOptimizer
	advisorService *advisor.Advisor
	opts           Options
	log            zerolog.Logger
}

// NewService creates a new analysis service.
func NewService(
	provider marketdata.Provider,
	stats *optimization.StatsEngine,
	optimizer *optimization.MVOptimizer,
	frontier *optimization.FrontierGenerator,
	hrp *optimization.HRPOptimizer,
	advisorService *advisor.Advisor,
	opts Options,
	log zerolog.Logger,
) *Service {
	return &Service{
		provider:       provider,
		stats:          stats,
		optimizer:      optimizer,
		frontier:       frontier,
		hrp:            hrp,
		advisorService: advisorService,
		opts:           opts.withDefaults(),
		log:            log.With().Str("service", "analysis").Logger(),
	}
}

// Analyze runs the full portfolio analysis: current statistics, the
// efficient frontier with and without the risk-free sweep, a random
// portfolio cloud, the unconstrained max-Sharpe solve and diversification
// recommendations.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResponse, error) {
	runID := uuid.New().String()
	log := s.log.With().Str("run_id", runID).Logger()
	start := time.Now()

	period, err := s.resolvePeriod(req.TimePeriod)
	if err != nil {
		return nil, err
	}
	bySymbol, err := pairWeights(req.Tickers, req.Weights)
	if err != nil {
		return nil, err
	}

	rs, err := s.provider.FetchReturns(ctx, req.Tickers, period)
	if err != nil {
		return nil, err
	}
	moments, err := s.stats.ComputeMoments(rs.Tickers, rs.Matrix(), optimization.MomentsOptions{})
	if err != nil {
		return nil, err
	}
	cfg := s.statsConfig()

	resp := &AnalyzeResponse{RunID: runID}
	if rs.Degraded {
		resp.Degraded = true
		resp.Diagnostics = append(resp.Diagnostics, "market data served from a degraded source")
	}

	weights, renormalized, err := normalizeToOne(weightsInOrder(rs.Tickers, bySymbol))
	if err != nil {
		return nil, err
	}
	if renormalized {
		log.Warn().Msg("Weights did not sum to 1, renormalized")
	}

	currentStats, err := optimization.CalculateStats(weights, moments, cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Current portfolio statistics unavailable, serving fallback values")
		currentStats = s.fallbackStats()
		resp.Degraded = true
		resp.Diagnostics = append(resp.Diagnostics, fmt.Sprintf("current statistics unavailable: %v", err))
	}
	resp.CurrentPortfolio = PortfolioSnapshot{Tickers: rs.Tickers, Weights: weights, Stats: currentStats}

	fr, err := s.frontier.Generate(moments, s.opts.FrontierPoints, cfg)
	if err != nil {
		return nil, err
	}
	resp.EfficientFrontier = fr.Points
	if fr.Degraded {
		resp.Degraded = true
	}
	if fr.SkippedTargets > 0 {
		resp.Diagnostics = append(resp.Diagnostics,
			fmt.Sprintf("efficient frontier: %d of %d targets did not converge", fr.SkippedTargets, s.opts.FrontierPoints))
	}

	random, err := optimization.GenerateRandomPortfolios(moments, s.opts.RandomPortfolios, s.opts.RandomSeed, cfg)
	if err != nil {
		return nil, err
	}
	resp.RandomPortfolios = random

	optimal, err := s.optimizer.Optimize(moments, optimization.ObjectiveMaxSharpe,
		optimization.DefaultConstraints(moments.NumAssets()), cfg)
	if err != nil {
		return nil, err
	}
	resp.OptimalPortfolio = toOptimalPortfolio(optimal)

	if rep, recErr := s.advisorService.Recommend(ctx, rs.Tickers, weights, period); recErr != nil {
		log.Warn().Err(recErr).Msg("Recommendations unavailable")
		resp.Recommendations = []advisor.Recommendation{}
		resp.Diagnostics = append(resp.Diagnostics, fmt.Sprintf("recommendations unavailable: %v", recErr))
	} else {
		resp.Recommendations = rep.Recommendations
	}

	plot, err := s.frontier.GenerateWithRiskFree(moments, s.opts.FrontierPoints, cfg)
	if err != nil {
		return nil, err
	}
	resp.EfficientFrontierPlot = plot
	if plot.Degraded {
		resp.Degraded = true
	}

	resp.Analysis = AnalysisSummary{
		DistanceFromOptimal:  optimal.Stats.SharpeRatio - currentStats.SharpeRatio,
		RiskLevel:            riskLevel(currentStats.Volatility),
		ExpectedAnnualReturn: percent(currentStats.Return),
		AnnualVolatility:     percent(currentStats.Volatility),
		CVaR95:               formulas.CalculatePortfolioCVaR(allocationMap(rs.Tickers, weights), rs.Returns, cvarConfidence),
		TimePeriod:           periodLabel(period),
	}

	log.Info().
		Int("assets", moments.NumAssets()).
		Int("frontier_points", len(resp.EfficientFrontier)).
		Int("recommendations", len(resp.Recommendations)).
		Bool("degraded", resp.Degraded).
		Dur("elapsed", time.Since(start)).
		Msg("Portfolio analysis complete")

	return resp, nil
}

// Optimize solves for optimal weights under the requested objective, then a
// second time under minimum-allocation bounds. Infeasible minimums fall
// back to the 1% uniform solve with a diagnostic instead of failing the
// whole request.
func (s *Service) Optimize(ctx context.Context, req OptimizeRequest) (*OptimizeResponse, error) {
	runID := uuid.New().String()
	log := s.log.With().Str("run_id", runID).Logger()
	start := time.Now()

	period, err := s.resolvePeriod(req.TimePeriod)
	if err != nil {
		return nil, err
	}
	objective, err := optimization.ParseObjective(req.Constraint)
	if err != nil {
		return nil, err
	}

	var currentBySymbol map[string]float64
	if req.CurrentWeights != nil {
		currentBySymbol, err = pairWeights(req.Tickers, req.CurrentWeights)
		if err != nil {
			return nil, err
		}
	}

	rs, err := s.provider.FetchReturns(ctx, req.Tickers, period)
	if err != nil {
		return nil, err
	}
	moments, err := s.stats.ComputeMoments(rs.Tickers, rs.Matrix(), optimization.MomentsOptions{})
	if err != nil {
		return nil, err
	}
	cfg := s.statsConfig()
	n := moments.NumAssets()

	optimal, err := s.optimizer.Optimize(moments, objective, optimization.DefaultConstraints(n), cfg)
	if err != nil {
		return nil, err
	}

	alt, exposureUsed, altDiags, err := s.alternativeSolve(moments, objective, req, rs.Tickers, cfg)
	if err != nil {
		return nil, err
	}

	var currentStats *optimization.PortfolioStats
	if currentBySymbol != nil {
		stats, err := optimization.CalculateStats(weightsInOrder(rs.Tickers, currentBySymbol), moments, cfg)
		if err != nil {
			return nil, err
		}
		currentStats = &stats
	}

	plot, err := s.frontier.GenerateWithRiskFree(moments, s.opts.FrontierPoints, cfg)
	if err != nil {
		return nil, err
	}

	diags := altDiags
	for _, d := range optimal.Diagnostics {
		diags = append(diags, "optimal solve: "+d)
	}
	for _, d := range alt.Diagnostics {
		diags = append(diags, "alternative solve: "+d)
	}

	log.Info().
		Str("objective", string(objective)).
		Bool("converged", optimal.Converged).
		Dur("elapsed", time.Since(start)).
		Msg("Portfolio optimization complete")

	return &OptimizeResponse{
		RunID:                 runID,
		Allocation:            optimal.Allocation,
		OptimalStats:          optimal.Stats,
		AlternativeAllocation: alt.Allocation,
		AlternativeStats:      alt.Stats,
		CurrentStats:          currentStats,
		EfficientFrontierPlot: plot,
		ConstraintUsed:        string(objective),
		TimePeriod:            period,
		MinExposureUsed:       exposureUsed,
		Converged:             optimal.Converged,
		Diagnostics:           diags,
	}, nil
}

// AnalyzeBlackLitterman runs the Black-Litterman pipeline: equilibrium
// returns implied by market weights, optional investor views, posterior
// blending, then the max-Sharpe solve and frontier on the blended moments.
func (s *Service) AnalyzeBlackLitterman(ctx context.Context, req BlackLittermanRequest) (*BlackLittermanResponse, error) {
	runID := uuid.New().String()
	log := s.log.With().Str("run_id", runID).Logger()

	period, err := s.resolvePeriod(req.TimePeriod)
	if err != nil {
		return nil, err
	}
	bySymbol, err := pairWeights(req.Tickers, req.Weights)
	if err != nil {
		return nil, err
	}

	riskFree := s.opts.RiskFreeRate
	if req.RiskFreeRate != nil {
		riskFree = *req.RiskFreeRate
	}
	if riskFree < 0 || riskFree >= 1 {
		return nil, domain.NewValidationError("risk-free rate must be in [0, 1), got %v", riskFree)
	}

	rs, err := s.provider.FetchReturns(ctx, req.Tickers, period)
	if err != nil {
		return nil, err
	}
	moments, err := s.stats.ComputeMoments(rs.Tickers, rs.Matrix(), optimization.MomentsOptions{})
	if err != nil {
		return nil, err
	}

	resp := &BlackLittermanResponse{RunID: runID}

	caps, err := s.provider.MarketCaps(ctx, rs.Tickers)
	if err != nil {
		log.Warn().Err(err).Msg("Market caps unavailable, equilibrium will use equal weights")
		resp.Diagnostics = append(resp.Diagnostics, fmt.Sprintf("market caps unavailable: %v", err))
		caps = nil
	}

	session, err := optimization.NewBLSession(moments, optimization.BLOptions{
		Tau:          s.opts.Tau,
		Delta:        s.opts.Delta,
		RiskFreeRate: riskFree,
		MarketCaps:   caps,
	}, s.log)
	if err != nil {
		return nil, err
	}

	equilibrium, err := session.Equilibrium()
	if err != nil {
		return nil, err
	}
	resp.EquilibriumReturns = append([]float64(nil), equilibrium...)

	if len(req.Views) > 0 {
		views := make([]optimization.View, 0, len(req.Views))
		for _, vr := range req.Views {
			view, err := vr.toView()
			if err != nil {
				return nil, err
			}
			views = append(views, view)
		}
		if err := session.ApplyViews(views); err != nil {
			return nil, err
		}
		posterior, _, err := session.Posterior()
		if err != nil {
			return nil, err
		}
		resp.PosteriorReturns = append([]float64(nil), posterior...)
	}
	resp.ViewsUsed = session.ViewsUsed()

	blMoments, err := session.Moments()
	if err != nil {
		return nil, err
	}
	cfg := session.StatsConfig()

	weights, renormalized, err := normalizeToOne(weightsInOrder(rs.Tickers, bySymbol))
	if err != nil {
		return nil, err
	}
	if renormalized {
		log.Warn().Msg("Weights did not sum to 1, renormalized")
	}
	currentStats, err := optimization.CalculateStats(weights, blMoments, cfg)
	if err != nil {
		return nil, err
	}
	resp.CurrentPortfolio = PortfolioSnapshot{Tickers: rs.Tickers, Weights: weights, Stats: currentStats}

	optimal, err := session.Optimize(s.optimizer, optimization.ObjectiveMaxSharpe,
		optimization.DefaultConstraints(moments.NumAssets()))
	if err != nil {
		return nil, err
	}
	resp.OptimalPortfolio = toOptimalPortfolio(optimal)

	fr, err := s.frontier.Generate(blMoments, s.opts.FrontierPoints, cfg)
	if err != nil {
		return nil, err
	}
	resp.EfficientFrontier = fr.Points
	if fr.SkippedTargets > 0 {
		resp.Diagnostics = append(resp.Diagnostics,
			fmt.Sprintf("efficient frontier: %d of %d targets did not converge", fr.SkippedTargets, s.opts.FrontierPoints))
	}

	resp.Analysis = BlackLittermanSummary{
		TimePeriod:   periodLabel(period),
		RiskFreeRate: fmt.Sprintf("%.1f%%", riskFree*100),
		ModelType:    "Black-Litterman",
	}

	log.Info().
		Bool("views_used", resp.ViewsUsed).
		Int("views", len(req.Views)).
		Msg("Black-Litterman analysis complete")

	return resp, nil
}

// Compare evaluates the submitted allocations plus the server strategies
// (equal weight, max Sharpe, min volatility, hierarchical risk parity) over
// one universe. Portfolios that cannot be evaluated are skipped with a
// diagnostic rather than failing the run.
func (s *Service) Compare(ctx context.Context, req CompareRequest) (*CompareResponse, error) {
	runID := uuid.New().String()

	period, err := s.resolvePeriod(req.TimePeriod)
	if err != nil {
		return nil, err
	}
	if len(req.Portfolios) == 0 {
		return nil, domain.NewValidationError("no portfolios provided")
	}

	rs, err := s.provider.FetchReturns(ctx, req.Tickers, period)
	if err != nil {
		return nil, err
	}
	moments, err := s.stats.ComputeMoments(rs.Tickers, rs.Matrix(), optimization.MomentsOptions{})
	if err != nil {
		return nil, err
	}
	cfg := s.statsConfig()
	n := moments.NumAssets()

	resp := &CompareResponse{RunID: runID, Tickers: rs.Tickers, TimePeriod: period}

	appendEntry := func(name string, weights []float64) error {
		stats, err := optimization.CalculateStats(weights, moments, cfg)
		if err != nil {
			return err
		}
		resp.Comparison = append(resp.Comparison, StrategyComparison{
			Name:       name,
			Weights:    weights,
			Stats:      stats,
			Allocation: allocationMap(rs.Tickers, weights),
		})
		return nil
	}

	for i, p := range req.Portfolios {
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("Portfolio %d", i+1)
		}
		bySymbol, err := pairWeights(req.Tickers, p.Weights)
		if err != nil {
			resp.Diagnostics = append(resp.Diagnostics, fmt.Sprintf("%s skipped: %v", name, err))
			continue
		}
		weights, _, err := normalizeToOne(weightsInOrder(rs.Tickers, bySymbol))
		if err != nil {
			resp.Diagnostics = append(resp.Diagnostics, fmt.Sprintf("%s skipped: %v", name, err))
			continue
		}
		if err := appendEntry(name, weights); err != nil {
			resp.Diagnostics = append(resp.Diagnostics, fmt.Sprintf("%s skipped: %v", name, err))
		}
	}

	equal := make([]float64, n)
	for i := range equal {
		equal[i] = 1.0 / float64(n)
	}
	if err := appendEntry("equal_weight", equal); err != nil {
		resp.Diagnostics = append(resp.Diagnostics, fmt.Sprintf("equal_weight strategy unavailable: %v", err))
	}

	for _, objective := range []optimization.Objective{optimization.ObjectiveMaxSharpe, optimization.ObjectiveMinVolatility} {
		result, err := s.optimizer.Optimize(moments, objective, optimization.DefaultConstraints(n), cfg)
		if err != nil {
			resp.Diagnostics = append(resp.Diagnostics, fmt.Sprintf("%s strategy unavailable: %v", objective, err))
			continue
		}
		resp.Comparison = append(resp.Comparison, StrategyComparison{
			Name:       string(objective),
			Weights:    result.Weights,
			Stats:      result.Stats,
			Allocation: result.Allocation,
		})
	}

	if hrpWeights, err := s.hrp.Optimize(moments); err != nil {
		resp.Diagnostics = append(resp.Diagnostics, fmt.Sprintf("hrp strategy unavailable: %v", err))
	} else if err := appendEntry("hrp", weightsInOrder(rs.Tickers, hrpWeights)); err != nil {
		resp.Diagnostics = append(resp.Diagnostics, fmt.Sprintf("hrp strategy unavailable: %v", err))
	}

	return resp, nil
}

// RandomPortfolios samples a reproducible cloud of random allocations for a
// universe.
func (s *Service) RandomPortfolios(ctx context.Context, req RandomPortfoliosRequest) (*RandomPortfoliosResponse, error) {
	runID := uuid.New().String()

	period, err := s.resolvePeriod(req.TimePeriod)
	if err != nil {
		return nil, err
	}

	rs, err := s.provider.FetchReturns(ctx, req.Tickers, period)
	if err != nil {
		return nil, err
	}
	moments, err := s.stats.ComputeMoments(rs.Tickers, rs.Matrix(), optimization.MomentsOptions{})
	if err != nil {
		return nil, err
	}

	count := req.Count
	if count <= 0 {
		count = s.opts.RandomPortfolios
	}
	portfolios, err := optimization.GenerateRandomPortfolios(moments, count, s.opts.RandomSeed, s.statsConfig())
	if err != nil {
		return nil, err
	}

	return &RandomPortfoliosResponse{
		RunID:      runID,
		Tickers:    rs.Tickers,
		Portfolios: portfolios,
		TimePeriod: period,
	}, nil
}

// alternativeSolve runs the minimum-allocation variant of an optimize
// request. Any failure of the requested constraint falls back to the 1%
// uniform default, mirroring the lenient behavior callers expect.
func (s *Service) alternativeSolve(
	m *optimization.MomentEstimates,
	objective optimization.Objective,
	req OptimizeRequest,
	symbols []string,
	cfg optimization.StatsConfig,
) (*optimization.OptimizationResult, any, []string, error) {
	c, used, err := s.resolveMinExposure(req, symbols)
	if err == nil {
		result, solveErr := s.optimizer.Optimize(m, objective, c, cfg)
		if solveErr == nil {
			return result, used, nil, nil
		}
		err = solveErr
	}

	diags := []string{fmt.Sprintf("minimum-allocation solve fell back to the %v uniform default: %v", defaultMinExposure, err)}
	fallback := optimization.UniformMinimumConstraints(len(symbols), defaultMinExposure)
	result, fallbackErr := s.optimizer.Optimize(m, objective, fallback, cfg)
	if fallbackErr != nil {
		return nil, nil, nil, fallbackErr
	}
	return result, defaultMinExposure, diags, nil
}

// resolveMinExposure turns the request's minimum-exposure field into
// constraints plus the value echoed back as min_exposure_used. A per-asset
// list arrives in request-ticker order and is reordered to the canonical
// universe.
func (s *Service) resolveMinExposure(req OptimizeRequest, symbols []string) (optimization.Constraints, any, error) {
	me := req.MinExposure
	n := len(symbols)

	switch {
	case me == nil || (me.Scalar == nil && me.PerAsset == nil):
		return optimization.UniformMinimumConstraints(n, defaultMinExposure), defaultMinExposure, nil
	case me.Scalar != nil:
		return optimization.UniformMinimumConstraints(n, *me.Scalar), *me.Scalar, nil
	default:
		if len(me.PerAsset) != len(req.Tickers) {
			return optimization.Constraints{}, nil, domain.NewValidationError(
				"got %d minimum allocations for %d tickers", len(me.PerAsset), len(req.Tickers))
		}
		bySymbol, err := pairWeights(req.Tickers, me.PerAsset)
		if err != nil {
			return optimization.Constraints{}, nil, err
		}
		return optimization.CustomMinimumConstraints(weightsInOrder(symbols, bySymbol)), me.PerAsset, nil
	}
}

func (s *Service) resolvePeriod(years int) (int, error) {
	if years == 0 {
		years = s.opts.DefaultLookback
	}
	if err := marketdata.ValidateLookback(years); err != nil {
		return 0, err
	}
	return years, nil
}

func (s *Service) statsConfig() optimization.StatsConfig {
	return optimization.StatsConfig{
		RiskFreeRate:  s.opts.RiskFreeRate,
		InflationRate: s.opts.InflationRate,
		Mode:          optimization.SharpeZeroRF,
	}
}

// fallbackStats are the sentinel statistics served when the current
// portfolio's stats cannot be computed. The run is flagged degraded; the
// engine itself never fabricates numbers.
func (s *Service) fallbackStats() optimization.PortfolioStats {
	const (
		fallbackReturn     = 0.08
		fallbackVolatility = 0.15
		fallbackSharpe     = 0.53
	)
	real := fallbackReturn - s.opts.InflationRate
	return optimization.PortfolioStats{
		Return:          fallbackReturn,
		RealReturn:      real,
		Volatility:      fallbackVolatility,
		SharpeRatio:     fallbackSharpe,
		RealSharpeRatio: real / fallbackVolatility,
		InflationRate:   s.opts.InflationRate,
	}
}

func toOptimalPortfolio(r *optimization.OptimizationResult) OptimalPortfolio {
	return OptimalPortfolio{
		Weights:     r.Weights,
		Stats:       r.Stats,
		Allocation:  r.Allocation,
		Converged:   r.Converged,
		Diagnostics: r.Diagnostics,
	}
}

// pairWeights keys request values by canonical (trimmed, uppercased)
// symbol, validating the pairing.
func pairWeights(tickers []string, values []float64) (map[string]float64, error) {
	if len(tickers) == 0 {
		return nil, domain.NewValidationError("no tickers provided")
	}
	if len(values) != len(tickers) {
		return nil, domain.NewValidationError("got %d weights for %d tickers", len(values), len(tickers))
	}

	bySymbol := make(map[string]float64, len(tickers))
	for i, raw := range tickers {
		symbol := strings.ToUpper(strings.TrimSpace(raw))
		if symbol == "" {
			return nil, domain.NewValidationError("ticker at position %d is blank", i)
		}
		if _, dup := bySymbol[symbol]; dup {
			return nil, domain.NewValidationError("duplicate ticker %s", symbol)
		}
		if math.IsNaN(values[i]) || math.IsInf(values[i], 0) {
			return nil, domain.NewValidationError("weight for %s is not finite", symbol)
		}
		bySymbol[symbol] = values[i]
	}
	return bySymbol, nil
}

func weightsInOrder(symbols []string, bySymbol map[string]float64) []float64 {
	out := make([]float64, len(symbols))
	for i, symbol := range symbols {
		out[i] = bySymbol[symbol]
	}
	return out
}

func normalizeToOne(weights []float64) ([]float64, bool, error) {
	var sum float64
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 {
		return nil, false, domain.NewValidationError("weights must sum to a positive value, got %v", sum)
	}
	out := make([]float64, len(weights))
	for i, w := range weights {
		out[i] = w / sum
	}
	return out, math.Abs(sum-1) > 1e-6, nil
}

func allocationMap(tickers []string, weights []float64) map[string]float64 {
	out := make(map[string]float64, len(tickers))
	for i, t := range tickers {
		out[t] = weights[i]
	}
	return out
}

func riskLevel(volatility float64) string {
	switch {
	case volatility > 0.25:
		return "High"
	case volatility > 0.15:
		return "Medium"
	default:
		return "Low"
	}
}

func percent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

func periodLabel(years int) string {
	if years == 1 {
		return "1 year"
	}
	return fmt.Sprintf("%d years", years)
}
