package optimization

import (
	"math"

	"github.com/aristath/frontier/internal/domain"
)

// Constraints bounds each weight and implies the sum-to-one budget.
// Entries are index-aligned with the asset universe.
type Constraints struct {
	MinWeights []float64
	MaxWeights []float64
}

// DefaultConstraints allows any long-only allocation: [0, 1] per asset
func DefaultConstraints(n int) Constraints {
	return constraintsWithMins(make([]float64, n))
}

// UniformMinimumConstraints forces every asset to at least minAllocation
func UniformMinimumConstraints(n int, minAllocation float64) Constraints {
	mins := make([]float64, n)
	for i := range mins {
		mins[i] = minAllocation
	}
	return constraintsWithMins(mins)
}

// CustomMinimumConstraints forces per-asset minimum allocations
func CustomMinimumConstraints(minAllocations []float64) Constraints {
	mins := make([]float64, len(minAllocations))
	copy(mins, minAllocations)
	return constraintsWithMins(mins)
}

func constraintsWithMins(mins []float64) Constraints {
	maxs := make([]float64, len(mins))
	for i := range maxs {
		maxs[i] = 1.0
	}
	return Constraints{MinWeights: mins, MaxWeights: maxs}
}

// Validate checks feasibility for a universe of n assets.
// An infeasible minimum-allocation configuration is a caller error and is
// reported before any solver runs.
func (c Constraints) Validate(n int) error {
	if len(c.MinWeights) != n || len(c.MaxWeights) != n {
		return domain.NewValidationError("constraint bounds length does not match %d assets", n)
	}

	var minSum float64
	for i := 0; i < n; i++ {
		if c.MinWeights[i] < 0 || c.MaxWeights[i] > 1 || c.MinWeights[i] > c.MaxWeights[i] {
			return domain.NewValidationError(
				"invalid bounds for asset %d: [%.4f, %.4f]", i, c.MinWeights[i], c.MaxWeights[i])
		}
		minSum += c.MinWeights[i]
	}
	if minSum > 1.0+1e-9 {
		return domain.NewValidationError(
			"total minimum allocation %.1f%% exceeds 100%%", minSum*100)
	}

	return nil
}

// initialGuess is equal weights, or the minimum-allocation vector when any
// minimum is set.
func (c Constraints) initialGuess() []float64 {
	n := len(c.MinWeights)
	guess := make([]float64, n)

	hasMinimum := false
	for _, m := range c.MinWeights {
		if m > 0 {
			hasMinimum = true
			break
		}
	}

	if hasMinimum {
		copy(guess, c.MinWeights)
		return guess
	}

	for i := range guess {
		guess[i] = 1.0 / float64(n)
	}
	return guess
}

// clamp projects a candidate onto the box bounds
func (c Constraints) clamp(x []float64) []float64 {
	proj := make([]float64, len(x))
	for i := range x {
		proj[i] = math.Max(c.MinWeights[i], math.Min(c.MaxWeights[i], x[i]))
	}
	return proj
}

// normalize rescales a candidate to sum to one without leaving the bounds.
// The mass above each minimum is scaled uniformly; a few clamp passes absorb
// any maximum-bound overshoot.
func (c Constraints) normalize(x []float64) []float64 {
	n := len(x)
	w := c.clamp(x)

	var minSum float64
	for _, m := range c.MinWeights {
		minSum += m
	}

	for iter := 0; iter < 8; iter++ {
		var sum float64
		for _, v := range w {
			sum += v
		}
		if math.Abs(sum-1.0) < 1e-9 {
			break
		}

		free := sum - minSum
		if free <= 1e-12 {
			extra := (1.0 - minSum) / float64(n)
			for i := range w {
				w[i] = c.MinWeights[i] + extra
			}
		} else {
			scale := (1.0 - minSum) / free
			for i := range w {
				w[i] = c.MinWeights[i] + (w[i]-c.MinWeights[i])*scale
			}
		}
		w = c.clamp(w)
	}

	return w
}
