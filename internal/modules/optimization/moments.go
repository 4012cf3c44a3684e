package optimization

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/pkg/formulas"
)

// Model defaults
const (
	DefaultRiskFreeRate  = 0.02  // 2% annual
	DefaultInflationRate = 0.025 // 2.5% annual
	DefaultTau           = 0.05  // prior uncertainty scalar
	DefaultDelta         = 2.5   // market risk aversion

	// Pairs above this correlation are worth surfacing: they add little
	// diversification and can make the covariance nearly singular.
	highCorrelationThreshold = 0.80

	defaultShrinkageIntensity = 0.2
)

// SharpeMode selects the Sharpe ratio convention.
// The plain mean-variance path historically divides raw return by
// volatility; the Black-Litterman path subtracts the risk-free rate first.
// Both are intentional and must be chosen explicitly.
type SharpeMode int

const (
	// SharpeZeroRF computes return / volatility
	SharpeZeroRF SharpeMode = iota
	// SharpeWithRF computes (return - riskFreeRate) / volatility
	SharpeWithRF
)

// MomentEstimates holds annualized return moments for an asset universe.
// Vector and matrix entries are index-aligned with Tickers. Estimates are
// replaced wholesale when the underlying returns change, never mutated.
type MomentEstimates struct {
	Tickers     []string
	MeanReturns []float64
	CovMatrix   [][]float64
}

// NumAssets returns the universe size
func (m *MomentEstimates) NumAssets() int {
	return len(m.Tickers)
}

// MomentsOptions configures moment estimation
type MomentsOptions struct {
	// Shrinkage blends the sample covariance toward a constant-correlation
	// target. Off by default so the plain sample estimates are returned.
	Shrinkage bool

	// ShrinkageIntensity in (0,1]; zero means the default 0.2
	ShrinkageIntensity float64
}

// StatsConfig parameterizes portfolio statistics
type StatsConfig struct {
	RiskFreeRate  float64
	InflationRate float64
	Mode          SharpeMode
}

// DefaultStatsConfig returns the plain mean-variance configuration
func DefaultStatsConfig() StatsConfig {
	return StatsConfig{
		RiskFreeRate:  DefaultRiskFreeRate,
		InflationRate: DefaultInflationRate,
		Mode:          SharpeZeroRF,
	}
}

// PortfolioStats describes a weighted portfolio under given moments
type PortfolioStats struct {
	Return          float64 `json:"return"`
	RealReturn      float64 `json:"real_return"`
	Volatility      float64 `json:"volatility"`
	SharpeRatio     float64 `json:"sharpe_ratio"`
	RealSharpeRatio float64 `json:"real_sharpe_ratio"`
	InflationRate   float64 `json:"inflation_rate"`
}

// StatsEngine estimates return moments from historical daily returns.
type StatsEngine struct {
	log zerolog.Logger
}

// NewStatsEngine creates a new statistics engine.
func NewStatsEngine(log zerolog.Logger) *StatsEngine {
	return &StatsEngine{
		log: log.With().Str("component", "statistics").Logger(),
	}
}

// ComputeMoments converts a daily returns matrix (rows = observations in
// time order, columns = assets aligned with tickers) into annualized mean
// returns and covariance. Sample mean and sample covariance are both scaled
// by 252 trading days.
func (e *StatsEngine) ComputeMoments(tickers []string, dailyReturns [][]float64, opts MomentsOptions) (*MomentEstimates, error) {
	n := len(tickers)
	if n == 0 {
		return nil, domain.NewValidationError("no tickers provided")
	}
	if len(dailyReturns) < 2 {
		return nil, domain.NewValidationError("need at least 2 return observations, got %d", len(dailyReturns))
	}
	for i, row := range dailyReturns {
		if len(row) != n {
			return nil, domain.NewValidationError("returns row %d has %d columns, expected %d", i, len(row), n)
		}
	}

	// Column-major view of the returns matrix
	columns := make([][]float64, n)
	for j := 0; j < n; j++ {
		col := make([]float64, len(dailyReturns))
		for i, row := range dailyReturns {
			if math.IsNaN(row[j]) {
				return nil, domain.NewValidationError("returns for %s contain NaN at row %d", tickers[j], i)
			}
			col[i] = row[j]
		}
		columns[j] = col
	}

	means := make([]float64, n)
	for j := 0; j < n; j++ {
		means[j] = formulas.Mean(columns[j]) * formulas.TradingDaysPerYear
	}

	cov := make([][]float64, n)
	for i := 0; i < n; i++ {
		cov[i] = make([]float64, n)
		for j := 0; j <= i; j++ {
			c := formulas.Covariance(columns[i], columns[j]) * formulas.TradingDaysPerYear
			cov[i][j] = c
			cov[j][i] = c
		}
	}

	e.logHighCorrelations(tickers, columns)

	if opts.Shrinkage {
		intensity := opts.ShrinkageIntensity
		if intensity <= 0 {
			intensity = defaultShrinkageIntensity
		}
		cov = shrinkToConstantCorrelation(cov, intensity)
	}

	return &MomentEstimates{
		Tickers:     tickers,
		MeanReturns: means,
		CovMatrix:   cov,
	}, nil
}

func (e *StatsEngine) logHighCorrelations(tickers []string, columns [][]float64) {
	for i := 0; i < len(tickers); i++ {
		for j := i + 1; j < len(tickers); j++ {
			corr := formulas.Correlation(columns[i], columns[j])
			if math.Abs(corr) >= highCorrelationThreshold {
				e.log.Debug().
					Str("asset_a", tickers[i]).
					Str("asset_b", tickers[j]).
					Float64("correlation", corr).
					Msg("Highly correlated asset pair")
			}
		}
	}
}

// shrinkToConstantCorrelation blends the sample covariance toward a target
// where every pair shares the average correlation. Variances are preserved.
func shrinkToConstantCorrelation(cov [][]float64, intensity float64) [][]float64 {
	n := len(cov)
	if n < 2 {
		return cov
	}

	// Average off-diagonal correlation
	var sumCorr float64
	var pairs int
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			denom := math.Sqrt(cov[i][i] * cov[j][j])
			if denom > 0 {
				sumCorr += cov[i][j] / denom
				pairs++
			}
		}
	}
	if pairs == 0 {
		return cov
	}
	meanCorr := sumCorr / float64(pairs)

	shrunk := make([][]float64, n)
	for i := 0; i < n; i++ {
		shrunk[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			if i == j {
				shrunk[i][j] = cov[i][j]
				continue
			}
			target := meanCorr * math.Sqrt(cov[i][i]*cov[j][j])
			shrunk[i][j] = (1-intensity)*cov[i][j] + intensity*target
		}
	}
	return shrunk
}

// CalculateStats computes portfolio statistics for a weight vector under the
// given moments. Pure: identical inputs always produce identical output.
func CalculateStats(weights []float64, m *MomentEstimates, cfg StatsConfig) (PortfolioStats, error) {
	n := m.NumAssets()
	if len(weights) != n {
		return PortfolioStats{}, domain.NewValidationError("weight vector length %d does not match %d assets", len(weights), n)
	}

	var ret float64
	for i, w := range weights {
		if math.IsNaN(w) || math.IsNaN(m.MeanReturns[i]) {
			return PortfolioStats{}, domain.NewValidationError("NaN in weights or mean returns at index %d", i)
		}
		ret += w * m.MeanReturns[i]
	}

	var variance float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			c := m.CovMatrix[i][j]
			if math.IsNaN(c) {
				return PortfolioStats{}, domain.NewValidationError("NaN in covariance at [%d][%d]", i, j)
			}
			variance += weights[i] * weights[j] * c
		}
	}
	volatility := math.Sqrt(math.Max(variance, 0.0))

	var sharpe float64
	if volatility > 0 {
		switch cfg.Mode {
		case SharpeWithRF:
			sharpe = (ret - cfg.RiskFreeRate) / volatility
		default:
			sharpe = ret / volatility
		}
	}

	realReturn := ret - cfg.InflationRate
	var realSharpe float64
	if volatility > 0 {
		realSharpe = realReturn / volatility
	}

	return PortfolioStats{
		Return:          ret,
		RealReturn:      realReturn,
		Volatility:      volatility,
		SharpeRatio:     sharpe,
		RealSharpeRatio: realSharpe,
		InflationRate:   cfg.InflationRate,
	}, nil
}
