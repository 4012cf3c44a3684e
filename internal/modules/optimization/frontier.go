package optimization

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/domain"
)

const (
	// DefaultFrontierPoints is the sweep resolution used by the analysis service
	DefaultFrontierPoints = 50

	// capitalAllocationPoints spans 0% to 100% risk-free in 5% steps
	capitalAllocationPoints = 21

	fallbackSeed = 42
)

// FrontierPoint is one solved portfolio on the efficient frontier
type FrontierPoint struct {
	Return      float64   `json:"return"`
	Volatility  float64   `json:"volatility"`
	SharpeRatio float64   `json:"sharpe_ratio"`
	Weights     []float64 `json:"weights"`
}

// CALPoint is one point on the Capital Allocation Line
type CALPoint struct {
	Return          float64 `json:"return"`
	Volatility      float64 `json:"volatility"`
	RiskFreeWeight  float64 `json:"risk_free_weight"`
	PortfolioWeight float64 `json:"portfolio_weight"`
}

// FrontierResult carries the sweep output plus its quality diagnostics.
// SkippedTargets counts return levels whose solve did not converge; those
// targets are dropped from Points and explained in Diagnostics. Fallback
// marks the synthetic frontier produced when no target converges at all.
type FrontierResult struct {
	Points         []FrontierPoint `json:"efficient_frontier"`
	CAL            []CALPoint      `json:"capital_allocation_line,omitempty"`
	Tangency       *FrontierPoint  `json:"tangency_portfolio,omitempty"`
	RiskFreeRate   float64         `json:"risk_free_rate"`
	SkippedTargets int             `json:"skipped_targets,omitempty"`
	Diagnostics    []string        `json:"diagnostics,omitempty"`
	Fallback       bool            `json:"fallback,omitempty"`
	Degraded       bool            `json:"degraded,omitempty"`
}

// FrontierGenerator sweeps target returns to trace the efficient frontier.
type FrontierGenerator struct {
	optimizer *MVOptimizer
	log       zerolog.Logger
}

// NewFrontierGenerator creates a new frontier generator.
func NewFrontierGenerator(optimizer *MVOptimizer, log zerolog.Logger) *FrontierGenerator {
	return &FrontierGenerator{
		optimizer: optimizer,
		log:       log.With().Str("component", "frontier").Logger(),
	}
}

// Generate traces the frontier with numPoints targets linearly spaced over
// the range of per-asset mean returns. Targets whose solve fails are dropped
// and recorded; if every target fails a deterministic synthetic frontier is
// returned, flagged Fallback and Degraded.
func (g *FrontierGenerator) Generate(m *MomentEstimates, numPoints int, cfg StatsConfig) (*FrontierResult, error) {
	n := m.NumAssets()
	if n == 0 {
		return nil, domain.NewValidationError("no assets provided")
	}
	if numPoints <= 0 {
		numPoints = DefaultFrontierPoints
	}

	result := &FrontierResult{RiskFreeRate: cfg.RiskFreeRate}

	if n == 1 {
		stats, err := CalculateStats([]float64{1.0}, m, cfg)
		if err != nil {
			return nil, err
		}
		result.Points = []FrontierPoint{{
			Return:      stats.Return,
			Volatility:  stats.Volatility,
			SharpeRatio: stats.SharpeRatio,
			Weights:     []float64{1.0},
		}}
		return result, nil
	}

	minRet, maxRet := returnRange(m.MeanReturns)
	constraints := DefaultConstraints(n)

	for _, target := range linspace(minRet, maxRet, numPoints) {
		problem := g.optimizer.targetReturnProblem(m, constraints, target)
		x, converged, reason := g.optimizer.minimize(problem, constraints.initialGuess())
		if !converged {
			result.SkippedTargets++
			result.Diagnostics = append(result.Diagnostics,
				fmt.Sprintf("target return %.4f: %s", target, reason))
			continue
		}

		weights := constraints.normalize(x)
		stats, err := CalculateStats(weights, m, cfg)
		if err != nil {
			return nil, err
		}

		result.Points = append(result.Points, FrontierPoint{
			Return:      stats.Return,
			Volatility:  stats.Volatility,
			SharpeRatio: stats.SharpeRatio,
			Weights:     weights,
		})
	}

	if result.SkippedTargets > 0 {
		g.log.Warn().
			Int("skipped", result.SkippedTargets).
			Int("requested", numPoints).
			Msg("Frontier targets dropped due to solver non-convergence")
	}

	if len(result.Points) == 0 {
		g.log.Warn().Msg("No frontier targets converged, generating synthetic fallback frontier")
		g.syntheticFallback(result, m, numPoints, cfg)
	}

	return result, nil
}

// GenerateWithRiskFree traces the frontier, selects the tangency portfolio
// (a selection over computed points, not a separate solve), and builds the
// Capital Allocation Line between the risk-free asset and the tangency.
func (g *FrontierGenerator) GenerateWithRiskFree(m *MomentEstimates, numPoints int, cfg StatsConfig) (*FrontierResult, error) {
	result, err := g.Generate(m, numPoints, cfg)
	if err != nil {
		return nil, err
	}
	if len(result.Points) == 0 {
		return result, nil
	}

	best := 0
	for i, p := range result.Points {
		if p.SharpeRatio > result.Points[best].SharpeRatio {
			best = i
		}
	}
	tangency := result.Points[best]
	result.Tangency = &tangency

	rf := cfg.RiskFreeRate
	result.CAL = make([]CALPoint, 0, capitalAllocationPoints)
	for i := 0; i < capitalAllocationPoints; i++ {
		rfWeight := float64(i) / float64(capitalAllocationPoints-1)
		pfWeight := 1.0 - rfWeight
		result.CAL = append(result.CAL, CALPoint{
			Return:          rf*rfWeight + tangency.Return*pfWeight,
			Volatility:      tangency.Volatility * pfWeight,
			RiskFreeWeight:  rfWeight,
			PortfolioWeight: pfWeight,
		})
	}

	return result, nil
}

// syntheticFallback fills the result with a deterministic degraded frontier
// so downstream consumers never receive an empty sequence.
func (g *FrontierGenerator) syntheticFallback(result *FrontierResult, m *MomentEstimates, numPoints int, cfg StatsConfig) {
	n := m.NumAssets()
	rng := rand.New(rand.NewSource(fallbackSeed))

	minRet, maxRet := returnRange(m.MeanReturns)
	minVol, maxVol := volatilityRange(m.CovMatrix)

	for i := 0; i < numPoints; i++ {
		frac := 0.0
		if numPoints > 1 {
			frac = float64(i) / float64(numPoints-1)
		}
		ret := minRet + (maxRet-minRet)*frac
		vol := minVol + (maxVol-minVol)*frac

		weights := make([]float64, n)
		var sum float64
		for j := range weights {
			weights[j] = rng.Float64()
			sum += weights[j]
		}
		for j := range weights {
			weights[j] /= sum
		}

		var sharpe float64
		if vol > 0 {
			if cfg.Mode == SharpeWithRF {
				sharpe = (ret - cfg.RiskFreeRate) / vol
			} else {
				sharpe = ret / vol
			}
		}

		result.Points = append(result.Points, FrontierPoint{
			Return:      ret,
			Volatility:  vol,
			SharpeRatio: sharpe,
			Weights:     weights,
		})
	}

	result.Fallback = true
	result.Degraded = true
	result.Diagnostics = append(result.Diagnostics, "synthetic fallback frontier: no targets converged")
}

func returnRange(means []float64) (lo, hi float64) {
	lo, hi = means[0], means[0]
	for _, r := range means[1:] {
		lo = math.Min(lo, r)
		hi = math.Max(hi, r)
	}
	return lo, hi
}

func volatilityRange(cov [][]float64) (lo, hi float64) {
	lo = math.Sqrt(math.Max(cov[0][0], 0))
	hi = lo
	for i := 1; i < len(cov); i++ {
		v := math.Sqrt(math.Max(cov[i][i], 0))
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func linspace(lo, hi float64, count int) []float64 {
	points := make([]float64, count)
	if count == 1 {
		points[0] = lo
		return points
	}
	step := (hi - lo) / float64(count-1)
	for i := range points {
		points[i] = lo + step*float64(i)
	}
	return points
}
