package optimization

import (
	"math/rand"

	"github.com/aristath/frontier/internal/domain"
)

// DefaultRandomPortfolios is the sample count the analysis service requests
const DefaultRandomPortfolios = 1000

// RandomPortfolio is one randomly weighted portfolio, used to give frontier
// charts a cloud of feasible-but-unoptimized context points.
type RandomPortfolio struct {
	Return      float64   `json:"return"`
	Volatility  float64   `json:"volatility"`
	SharpeRatio float64   `json:"sharpe_ratio"`
	Weights     []float64 `json:"weights"`
}

// GenerateRandomPortfolios samples count random long-only weight vectors and
// evaluates each against the moments. A fixed seed makes the sample
// reproducible.
func GenerateRandomPortfolios(m *MomentEstimates, count int, seed int64, cfg StatsConfig) ([]RandomPortfolio, error) {
	n := m.NumAssets()
	if n == 0 {
		return nil, domain.NewValidationError("no assets provided")
	}
	if count <= 0 {
		count = DefaultRandomPortfolios
	}

	rng := rand.New(rand.NewSource(seed))
	portfolios := make([]RandomPortfolio, 0, count)

	for i := 0; i < count; i++ {
		weights := make([]float64, n)
		var sum float64
		for j := range weights {
			weights[j] = rng.Float64()
			sum += weights[j]
		}
		if sum == 0 {
			weights[0] = 1.0
			sum = 1.0
		}
		for j := range weights {
			weights[j] /= sum
		}

		stats, err := CalculateStats(weights, m, cfg)
		if err != nil {
			return nil, err
		}

		portfolios = append(portfolios, RandomPortfolio{
			Return:      stats.Return,
			Volatility:  stats.Volatility,
			SharpeRatio: stats.SharpeRatio,
			Weights:     weights,
		})
	}

	return portfolios, nil
}
