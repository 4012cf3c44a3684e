package optimization

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/optimize"

	"github.com/aristath/frontier/internal/domain"
)

// Objective selects the quantity the optimizer extremizes.
type Objective string

const (
	ObjectiveMaxSharpe     Objective = "max_sharpe"
	ObjectiveMinVolatility Objective = "min_volatility"
)

// ParseObjective validates an objective name from an API request
func ParseObjective(s string) (Objective, error) {
	switch Objective(s) {
	case ObjectiveMaxSharpe, ObjectiveMinVolatility:
		return Objective(s), nil
	case "":
		return ObjectiveMaxSharpe, nil
	default:
		return "", domain.NewValidationError("unknown objective: %s", s)
	}
}

// OptimizationResult is the outcome of one constrained solve.
// Converged false means the solver stopped without meeting its convergence
// criteria; Weights then hold the best iterate found (projected and
// renormalized), and Diagnostics explain what happened. Non-convergence is
// deliberately not a Go error.
type OptimizationResult struct {
	Objective   Objective          `json:"objective"`
	Weights     []float64          `json:"weights"`
	Allocation  map[string]float64 `json:"allocation"`
	Stats       PortfolioStats     `json:"stats"`
	Converged   bool               `json:"converged"`
	Diagnostics []string           `json:"diagnostics,omitempty"`
}

// MVOptimizer performs constrained mean-variance portfolio optimization.
// The sum-to-one budget is enforced with a quadratic penalty; box bounds by
// projection. BFGS is tried first, NelderMead as the derivative-free
// fallback.
type MVOptimizer struct {
	log zerolog.Logger
}

// NewMVOptimizer creates a new mean-variance optimizer.
func NewMVOptimizer(log zerolog.Logger) *MVOptimizer {
	return &MVOptimizer{
		log: log.With().Str("component", "mv_optimizer").Logger(),
	}
}

const penaltyWeight = 1000.0

// Optimize solves for the weight vector extremizing the objective subject to
// sum(w) == 1 and the per-asset bounds in constraints. Infeasible constraint
// configurations fail with a ValidationError before any solver call.
func (o *MVOptimizer) Optimize(m *MomentEstimates, objective Objective, c Constraints, cfg StatsConfig) (*OptimizationResult, error) {
	n := m.NumAssets()
	if n == 0 {
		return nil, domain.NewValidationError("no assets provided")
	}
	if len(m.MeanReturns) != n || len(m.CovMatrix) != n {
		return nil, domain.NewValidationError("moment estimates are inconsistent with %d assets", n)
	}
	if err := c.Validate(n); err != nil {
		return nil, err
	}

	if n == 1 {
		return o.buildResult(m, objective, []float64{1.0}, c, cfg, true, nil)
	}

	var problem optimize.Problem
	switch objective {
	case ObjectiveMaxSharpe:
		problem = o.maxSharpeProblem(m, c, cfg)
	case ObjectiveMinVolatility:
		problem = o.minVolatilityProblem(m, c)
	default:
		return nil, domain.NewValidationError("unknown objective: %s", objective)
	}

	initial := c.initialGuess()
	x, converged, reason := o.minimize(problem, initial)

	var diagnostics []string
	if !converged {
		diagnostics = append(diagnostics, fmt.Sprintf("%s solve did not converge: %s; returning best iterate", objective, reason))
		o.log.Warn().
			Str("objective", string(objective)).
			Str("reason", reason).
			Msg("Solver did not converge, returning best iterate")
	}

	return o.buildResult(m, objective, x, c, cfg, converged, diagnostics)
}

// maxSharpeProblem minimizes the negative Sharpe ratio. The risk-free rate
// enters only in SharpeWithRF mode.
func (o *MVOptimizer) maxSharpeProblem(m *MomentEstimates, c Constraints, cfg StatsConfig) optimize.Problem {
	n := m.NumAssets()
	rf := 0.0
	if cfg.Mode == SharpeWithRF {
		rf = cfg.RiskFreeRate
	}

	return optimize.Problem{
		Func: func(x []float64) float64 {
			xProj := c.clamp(x)

			var ret, variance float64
			for i := 0; i < n; i++ {
				ret += m.MeanReturns[i] * xProj[i]
				for j := 0; j < n; j++ {
					variance += xProj[i] * xProj[j] * m.CovMatrix[i][j]
				}
			}
			stdDev := math.Sqrt(math.Max(variance, 1e-10))

			var sum float64
			for i := 0; i < n; i++ {
				sum += xProj[i]
			}

			obj := -(ret - rf) / stdDev
			obj += penaltyWeight * (sum - 1.0) * (sum - 1.0)
			return obj
		},
		Grad: func(grad, x []float64) {
			xProj := c.clamp(x)

			var ret, variance float64
			for i := 0; i < n; i++ {
				ret += m.MeanReturns[i] * xProj[i]
				for j := 0; j < n; j++ {
					variance += xProj[i] * xProj[j] * m.CovMatrix[i][j]
				}
			}
			stdDev := math.Sqrt(math.Max(variance, 1e-10))
			excess := ret - rf

			for i := 0; i < n; i++ {
				var dVariance float64
				for j := 0; j < n; j++ {
					dVariance += 2 * m.CovMatrix[i][j] * xProj[j]
				}
				grad[i] = -m.MeanReturns[i]/stdDev + excess*dVariance/(2*stdDev*stdDev*stdDev)
			}

			var sum float64
			for i := 0; i < n; i++ {
				sum += xProj[i]
			}
			for i := 0; i < n; i++ {
				grad[i] += 2 * penaltyWeight * (sum - 1.0)
			}
		},
	}
}

// minVolatilityProblem minimizes the portfolio variance
func (o *MVOptimizer) minVolatilityProblem(m *MomentEstimates, c Constraints) optimize.Problem {
	n := m.NumAssets()

	return optimize.Problem{
		Func: func(x []float64) float64 {
			xProj := c.clamp(x)

			var variance float64
			for i := 0; i < n; i++ {
				for j := 0; j < n; j++ {
					variance += xProj[i] * xProj[j] * m.CovMatrix[i][j]
				}
			}

			var sum float64
			for i := 0; i < n; i++ {
				sum += xProj[i]
			}

			obj := variance
			obj += penaltyWeight * (sum - 1.0) * (sum - 1.0)
			return obj
		},
		Grad: func(grad, x []float64) {
			xProj := c.clamp(x)

			for i := 0; i < n; i++ {
				grad[i] = 0
				for j := 0; j < n; j++ {
					grad[i] += 2 * m.CovMatrix[i][j] * xProj[j]
				}
			}

			var sum float64
			for i := 0; i < n; i++ {
				sum += xProj[i]
			}
			for i := 0; i < n; i++ {
				grad[i] += 2 * penaltyWeight * (sum - 1.0)
			}
		},
	}
}

// targetReturnProblem minimizes variance with an additional penalty holding
// the weighted return at target. Used by the frontier sweep.
func (o *MVOptimizer) targetReturnProblem(m *MomentEstimates, c Constraints, target float64) optimize.Problem {
	n := m.NumAssets()

	return optimize.Problem{
		Func: func(x []float64) float64 {
			xProj := c.clamp(x)

			var ret, variance float64
			for i := 0; i < n; i++ {
				ret += m.MeanReturns[i] * xProj[i]
				for j := 0; j < n; j++ {
					variance += xProj[i] * xProj[j] * m.CovMatrix[i][j]
				}
			}

			var sum float64
			for i := 0; i < n; i++ {
				sum += xProj[i]
			}

			obj := variance
			obj += penaltyWeight * (sum - 1.0) * (sum - 1.0)
			obj += penaltyWeight * (ret - target) * (ret - target)
			return obj
		},
		Grad: func(grad, x []float64) {
			xProj := c.clamp(x)

			var ret float64
			for i := 0; i < n; i++ {
				ret += m.MeanReturns[i] * xProj[i]
			}

			for i := 0; i < n; i++ {
				grad[i] = 0
				for j := 0; j < n; j++ {
					grad[i] += 2 * m.CovMatrix[i][j] * xProj[j]
				}
			}

			var sum float64
			for i := 0; i < n; i++ {
				sum += xProj[i]
			}
			for i := 0; i < n; i++ {
				grad[i] += 2 * penaltyWeight * (sum - 1.0)
				grad[i] += 2 * penaltyWeight * (ret - target) * m.MeanReturns[i]
			}
		},
	}
}

// minimize runs BFGS with a NelderMead fallback. Returns the best iterate,
// whether an accepted convergence status was reached, and a reason when not.
func (o *MVOptimizer) minimize(problem optimize.Problem, initial []float64) (x []float64, converged bool, reason string) {
	accepted := func(s optimize.Status) bool {
		switch s {
		case optimize.Success, optimize.GradientThreshold, optimize.FunctionConvergence:
			return true
		}
		return false
	}

	result, err := optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.BFGS{})
	if err == nil && result != nil && accepted(result.Status) {
		return result.X, true, ""
	}

	fallback, fbErr := optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.NelderMead{})
	if fbErr == nil && fallback != nil && accepted(fallback.Status) {
		return fallback.X, true, ""
	}

	// Neither method converged. Prefer the better of the two iterates,
	// falling back to the initial guess when both solvers failed outright.
	switch {
	case result != nil && fallback != nil:
		if fallback.F < result.F {
			result = fallback
		}
	case fallback != nil:
		result = fallback
	}

	if result == nil {
		best := make([]float64, len(initial))
		copy(best, initial)
		return best, false, fmt.Sprintf("solver error: %v", err)
	}

	reason = fmt.Sprintf("status %v", result.Status)
	if err != nil {
		reason = fmt.Sprintf("%s (bfgs: %v)", reason, err)
	}
	if fbErr != nil {
		reason = fmt.Sprintf("%s (neldermead: %v)", reason, fbErr)
	}
	return result.X, false, reason
}

// buildResult projects, renormalizes, and annotates the final iterate
func (o *MVOptimizer) buildResult(
	m *MomentEstimates,
	objective Objective,
	x []float64,
	c Constraints,
	cfg StatsConfig,
	converged bool,
	diagnostics []string,
) (*OptimizationResult, error) {
	weights := c.normalize(x)

	stats, err := CalculateStats(weights, m, cfg)
	if err != nil {
		return nil, err
	}

	allocation := make(map[string]float64, m.NumAssets())
	for i, ticker := range m.Tickers {
		allocation[ticker] = weights[i]
	}

	return &OptimizationResult{
		Objective:   objective,
		Weights:     weights,
		Allocation:  allocation,
		Stats:       stats,
		Converged:   converged,
		Diagnostics: diagnostics,
	}, nil
}
