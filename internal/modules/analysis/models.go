package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/internal/modules/advisor"
	"github.com/aristath/frontier/internal/modules/optimization"
)

// MinExposure decodes the polymorphic minimum-exposure request field:
// null, a single fraction applied to every asset, or a per-asset list.
type MinExposure struct {
	Scalar   *float64
	PerAsset []float64
}

func (m *MinExposure) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '[' {
		var list []float64
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("min_exposure must be a number or a list of numbers: %w", err)
		}
		m.PerAsset = list
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("min_exposure must be a number or a list of numbers: %w", err)
	}
	m.Scalar = &v
	return nil
}

// ViewRequest is one investor view as submitted over the API.
// Confidence zero means the default 0.5.
type ViewRequest struct {
	Assets     []string `json:"assets"`
	Value      float64  `json:"view"`
	Type       string   `json:"type"`
	Confidence float64  `json:"confidence,omitempty"`
}

func (v ViewRequest) toView() (optimization.View, error) {
	switch v.Type {
	case "absolute":
		return optimization.NewAbsoluteView(v.Assets, v.Value, v.Confidence)
	case "relative":
		if len(v.Assets) != 2 {
			return optimization.View{}, domain.NewValidationError(
				"relative view needs exactly two assets, got %d", len(v.Assets))
		}
		return optimization.NewRelativeView(v.Assets[0], v.Assets[1], v.Value, v.Confidence)
	default:
		return optimization.View{}, domain.NewValidationError(
			"view type must be absolute or relative, got %q", v.Type)
	}
}

// AnalyzeRequest asks for the full analysis of an existing portfolio.
type AnalyzeRequest struct {
	Tickers    []string  `json:"tickers"`
	Weights    []float64 `json:"weights"`
	TimePeriod int       `json:"time_period"`
}

// OptimizeRequest asks for optimal weights under a named objective, plus an
// alternative solve with minimum allocations.
type OptimizeRequest struct {
	Tickers        []string     `json:"tickers"`
	Constraint     string       `json:"constraint"`
	CurrentWeights []float64    `json:"current_weights"`
	TimePeriod     int          `json:"time_period"`
	MinExposure    *MinExposure `json:"min_exposure"`
}

// BlackLittermanRequest runs the Black-Litterman pipeline over a portfolio,
// optionally blending investor views into the equilibrium prior.
type BlackLittermanRequest struct {
	Tickers      []string      `json:"tickers"`
	Weights      []float64     `json:"weights"`
	TimePeriod   int           `json:"time_period"`
	RiskFreeRate *float64      `json:"risk_free_rate"`
	Views        []ViewRequest `json:"views"`
}

// UserPortfolio is one named weight set submitted for comparison.
type UserPortfolio struct {
	Name    string    `json:"name"`
	Weights []float64 `json:"weights"`
}

// CompareRequest evaluates several allocations over one asset universe.
type CompareRequest struct {
	Tickers    []string        `json:"tickers"`
	Portfolios []UserPortfolio `json:"portfolios"`
	TimePeriod int             `json:"time_period"`
}

// RandomPortfoliosRequest samples random allocations for a universe.
type RandomPortfoliosRequest struct {
	Tickers    []string `json:"tickers"`
	Count      int      `json:"count"`
	TimePeriod int      `json:"time_period"`
}

// PortfolioSnapshot describes a concrete weighted portfolio.
type PortfolioSnapshot struct {
	Tickers []string                    `json:"tickers"`
	Weights []float64                   `json:"weights"`
	Stats   optimization.PortfolioStats `json:"stats"`
}

// OptimalPortfolio is a solved allocation with its convergence diagnostics.
type OptimalPortfolio struct {
	Weights     []float64                   `json:"weights"`
	Stats       optimization.PortfolioStats `json:"stats"`
	Allocation  map[string]float64          `json:"allocation"`
	Converged   bool                        `json:"converged"`
	Diagnostics []string                    `json:"diagnostics,omitempty"`
}

// AnalysisSummary is the human-oriented digest of an analysis run.
type AnalysisSummary struct {
	DistanceFromOptimal  float64 `json:"distance_from_optimal"`
	RiskLevel            string  `json:"risk_level"`
	ExpectedAnnualReturn string  `json:"expected_annual_return"`
	AnnualVolatility     string  `json:"annual_volatility"`
	CVaR95               float64 `json:"cvar_95"`
	TimePeriod           string  `json:"time_period"`
}

// AnalyzeResponse is the full portfolio analysis payload.
type AnalyzeResponse struct {
	RunID                 string                         `json:"run_id"`
	CurrentPortfolio      PortfolioSnapshot              `json:"current_portfolio"`
	OptimalPortfolio      OptimalPortfolio               `json:"optimal_portfolio"`
	EfficientFrontier     []optimization.FrontierPoint   `json:"efficient_frontier"`
	RandomPortfolios      []optimization.RandomPortfolio `json:"random_portfolios"`
	Recommendations       []advisor.Recommendation       `json:"recommendations"`
	EfficientFrontierPlot *optimization.FrontierResult   `json:"efficient_frontier_plot"`
	Analysis              AnalysisSummary                `json:"analysis"`
	Degraded              bool                           `json:"degraded,omitempty"`
	Diagnostics           []string                       `json:"diagnostics,omitempty"`
}

// OptimizeResponse carries the requested solve plus the minimum-allocation
// alternative. MinExposureUsed echoes the constraint that actually applied:
// a single fraction or a per-asset list.
type OptimizeResponse struct {
	RunID                 string                       `json:"run_id"`
	Allocation            map[string]float64           `json:"allocation"`
	OptimalStats          optimization.PortfolioStats  `json:"optimal_stats"`
	AlternativeAllocation map[string]float64           `json:"alternative_allocation"`
	AlternativeStats      optimization.PortfolioStats  `json:"alternative_stats"`
	CurrentStats          *optimization.PortfolioStats `json:"current_stats"`
	EfficientFrontierPlot *optimization.FrontierResult `json:"efficient_frontier_plot"`
	ConstraintUsed        string                       `json:"constraint_used"`
	TimePeriod            int                          `json:"time_period"`
	MinExposureUsed       any                          `json:"min_exposure_used"`
	Converged             bool                         `json:"converged"`
	Diagnostics           []string                     `json:"diagnostics,omitempty"`
}

// BlackLittermanSummary labels a Black-Litterman run.
type BlackLittermanSummary struct {
	TimePeriod   string `json:"time_period"`
	RiskFreeRate string `json:"risk_free_rate"`
	ModelType    string `json:"model_type"`
}

// BlackLittermanResponse is the Black-Litterman analysis payload.
// PosteriorReturns is null when no views were supplied.
type BlackLittermanResponse struct {
	RunID              string                       `json:"run_id"`
	CurrentPortfolio   PortfolioSnapshot            `json:"current_portfolio"`
	OptimalPortfolio   OptimalPortfolio             `json:"optimal_portfolio"`
	EquilibriumReturns []float64                    `json:"equilibrium_returns"`
	PosteriorReturns   []float64                    `json:"posterior_returns"`
	EfficientFrontier  []optimization.FrontierPoint `json:"efficient_frontier"`
	ViewsUsed          bool                         `json:"views_used"`
	Analysis           BlackLittermanSummary        `json:"analysis"`
	Diagnostics        []string                     `json:"diagnostics,omitempty"`
}

// StrategyComparison is one evaluated allocation in a comparison run.
type StrategyComparison struct {
	Name       string                      `json:"name"`
	Weights    []float64                   `json:"weights"`
	Stats      optimization.PortfolioStats `json:"stats"`
	Allocation map[string]float64          `json:"allocation"`
}

// CompareResponse lists user portfolios next to the server strategies.
type CompareResponse struct {
	RunID       string               `json:"run_id"`
	Tickers     []string             `json:"tickers"`
	Comparison  []StrategyComparison `json:"comparison"`
	TimePeriod  int                  `json:"time_period"`
	Diagnostics []string             `json:"diagnostics,omitempty"`
}

// RandomPortfoliosResponse is a sampled cloud of feasible allocations.
type RandomPortfoliosResponse struct {
	RunID      string                         `json:"run_id"`
	Tickers    []string                       `json:"tickers"`
	Portfolios []optimization.RandomPortfolio `json:"portfolios"`
	TimePeriod int                            `json:"time_period"`
}
