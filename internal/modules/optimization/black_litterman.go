package optimization

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/aristath/frontier/internal/domain"
)

// blState tracks the session through its fixed call order
type blState int

const (
	stateInitialized blState = iota
	stateEquilibriumComputed
	stateViewsApplied
	statePosteriorComputed
	stateOptimized
)

// BLOptions configures a Black-Litterman session.
// Zero values select the model defaults.
type BLOptions struct {
	Tau          float64
	Delta        float64
	RiskFreeRate float64

	// MarketCaps keys capitalizations by ticker. When every session ticker
	// has a positive cap the market weights are the normalized caps;
	// otherwise equal weights are used.
	MarketCaps map[string]float64
}

// BLSession runs one Black-Litterman analysis over a fixed asset universe:
// equilibrium returns via reverse optimization, optional investor views,
// Bayesian posterior blending, then mean-variance optimization on the
// blended moments. Calls must follow that order.
type BLSession struct {
	tickers       []string
	index         map[string]int
	cov           [][]float64
	marketWeights []float64

	tau          float64
	delta        float64
	riskFreeRate float64

	equilibrium      []float64
	views            []View
	pick             *mat.Dense
	viewValues       *mat.VecDense
	omega            *mat.Dense
	posteriorReturns []float64
	posteriorCov     [][]float64

	state blState
	log   zerolog.Logger
}

// NewBLSession creates a session from historical moments. Only the
// covariance of the sample moments is used as the prior; the mean returns
// are replaced by the equilibrium (and later posterior) estimates.
func NewBLSession(m *MomentEstimates, opts BLOptions, log zerolog.Logger) (*BLSession, error) {
	n := m.NumAssets()
	if n == 0 {
		return nil, domain.NewValidationError("no assets provided")
	}
	if len(m.CovMatrix) != n {
		return nil, domain.NewValidationError("covariance size %d does not match %d assets", len(m.CovMatrix), n)
	}

	s := &BLSession{
		tickers:      m.Tickers,
		index:        make(map[string]int, n),
		cov:          m.CovMatrix,
		tau:          opts.Tau,
		delta:        opts.Delta,
		riskFreeRate: opts.RiskFreeRate,
		state:        stateInitialized,
		log:          log.With().Str("component", "black_litterman").Logger(),
	}
	for i, t := range m.Tickers {
		s.index[t] = i
	}

	if s.tau <= 0 {
		s.tau = DefaultTau
	}
	if s.delta <= 0 {
		s.delta = DefaultDelta
	}
	if s.riskFreeRate == 0 {
		s.riskFreeRate = DefaultRiskFreeRate
	}

	s.marketWeights = s.resolveMarketWeights(opts.MarketCaps)
	return s, nil
}

// resolveMarketWeights normalizes caps when complete, else falls back to
// equal weights.
func (s *BLSession) resolveMarketWeights(caps map[string]float64) []float64 {
	n := len(s.tickers)
	weights := make([]float64, n)

	if len(caps) > 0 {
		var total float64
		complete := true
		for _, t := range s.tickers {
			c, ok := caps[t]
			if !ok || c <= 0 {
				complete = false
				break
			}
			total += c
		}
		if complete && total > 0 {
			for i, t := range s.tickers {
				weights[i] = caps[t] / total
			}
			return weights
		}
		s.log.Warn().Msg("Market caps incomplete, falling back to equal market weights")
	}

	for i := range weights {
		weights[i] = 1.0 / float64(n)
	}
	return weights
}

// MarketWeights returns the weights used for reverse optimization
func (s *BLSession) MarketWeights() []float64 {
	out := make([]float64, len(s.marketWeights))
	copy(out, s.marketWeights)
	return out
}

// RiskFreeRate returns the session's risk-free rate
func (s *BLSession) RiskFreeRate() float64 {
	return s.riskFreeRate
}

// ViewsUsed reports whether investor views entered the blend
func (s *BLSession) ViewsUsed() bool {
	return len(s.views) > 0
}

// Equilibrium computes the market-implied returns via reverse optimization:
// Π = δ · Σ · w_market. Idempotent once computed.
func (s *BLSession) Equilibrium() ([]float64, error) {
	if s.equilibrium != nil {
		return s.equilibrium, nil
	}

	n := len(s.tickers)
	sigma := denseFromRows(s.cov)
	w := mat.NewVecDense(n, s.marketWeights)

	var pi mat.VecDense
	pi.MulVec(sigma, w)
	pi.ScaleVec(s.delta, &pi)

	s.equilibrium = make([]float64, n)
	for i := 0; i < n; i++ {
		s.equilibrium[i] = pi.AtVec(i)
	}
	s.state = stateEquilibriumComputed

	return s.equilibrium, nil
}

// ApplyViews assembles the pick matrix P, view vector Q, and diagonal
// uncertainty Ω from the given views. Requires Equilibrium first.
func (s *BLSession) ApplyViews(views []View) error {
	if s.state < stateEquilibriumComputed {
		return domain.NewValidationError("views require equilibrium returns to be computed first")
	}
	if len(views) == 0 {
		return domain.NewValidationError("no views provided")
	}

	n := len(s.tickers)
	k := len(views)
	pick := mat.NewDense(k, n, nil)
	values := mat.NewVecDense(k, nil)
	omega := mat.NewDense(k, k, nil)
	sigma := denseFromRows(s.cov)

	for i, view := range views {
		for _, member := range view.members() {
			if _, ok := s.index[member]; !ok {
				return domain.NewValidationError("view references unknown ticker %s", member)
			}
		}

		switch view.Kind {
		case ViewAbsolute:
			share := 1.0 / float64(len(view.Assets))
			for _, asset := range view.Assets {
				pick.Set(i, s.index[asset], share)
			}
		case ViewRelative:
			pick.Set(i, s.index[view.AssetA], 1.0)
			pick.Set(i, s.index[view.AssetB], -1.0)
		default:
			return domain.NewValidationError("unknown view kind: %s", view.Kind)
		}
		values.SetVec(i, view.Value)

		// Ω_ii = τ · (P_i Σ P_iᵀ) / confidence
		row := pick.RowView(i)
		var sigmaRow mat.VecDense
		sigmaRow.MulVec(sigma, row)
		omega.Set(i, i, s.tau*mat.Dot(row, &sigmaRow)/view.Confidence)
	}

	s.views = views
	s.pick = pick
	s.viewValues = values
	s.omega = omega
	s.state = stateViewsApplied

	return nil
}

// Posterior blends the equilibrium prior with the applied views:
//
//	precision = (τΣ)⁻¹ + Pᵀ Ω⁻¹ P
//	mean      = precision⁻¹ [(τΣ)⁻¹ Π + Pᵀ Ω⁻¹ Q]
//	cov       = precision⁻¹
//
// A singular matrix anywhere in the chain is fatal for the call.
func (s *BLSession) Posterior() ([]float64, [][]float64, error) {
	if s.state < stateViewsApplied {
		return nil, nil, domain.NewValidationError("posterior requires views to be applied first")
	}
	if s.state >= statePosteriorComputed {
		return s.posteriorReturns, s.posteriorCov, nil
	}

	n := len(s.tickers)
	sigma := denseFromRows(s.cov)

	var tauSigma mat.Dense
	tauSigma.Scale(s.tau, sigma)
	tauSigmaInv, err := invert(&tauSigma, "scaled prior covariance")
	if err != nil {
		return nil, nil, err
	}

	omegaInv, err := invert(s.omega, "view uncertainty matrix")
	if err != nil {
		return nil, nil, err
	}

	// Pᵀ Ω⁻¹ P
	var pTOmegaInv mat.Dense
	pTOmegaInv.Mul(s.pick.T(), omegaInv)
	var viewPrecision mat.Dense
	viewPrecision.Mul(&pTOmegaInv, s.pick)

	var precision mat.Dense
	precision.Add(tauSigmaInv, &viewPrecision)
	precisionInv, err := invert(&precision, "posterior precision matrix")
	if err != nil {
		return nil, nil, err
	}

	// (τΣ)⁻¹ Π + Pᵀ Ω⁻¹ Q
	pi := mat.NewVecDense(n, s.equilibrium)
	var priorTerm mat.VecDense
	priorTerm.MulVec(tauSigmaInv, pi)
	var viewTerm mat.VecDense
	viewTerm.MulVec(&pTOmegaInv, s.viewValues)
	var combined mat.VecDense
	combined.AddVec(&priorTerm, &viewTerm)

	var mean mat.VecDense
	mean.MulVec(precisionInv, &combined)

	s.posteriorReturns = make([]float64, n)
	for i := 0; i < n; i++ {
		s.posteriorReturns[i] = mean.AtVec(i)
	}
	s.posteriorCov = rowsFromDense(precisionInv)
	s.state = statePosteriorComputed

	return s.posteriorReturns, s.posteriorCov, nil
}

// Moments returns the estimates downstream optimization should use: the
// posterior when views were blended, the pure equilibrium otherwise.
func (s *BLSession) Moments() (*MomentEstimates, error) {
	switch {
	case s.state >= statePosteriorComputed:
		return &MomentEstimates{
			Tickers:     s.tickers,
			MeanReturns: s.posteriorReturns,
			CovMatrix:   s.posteriorCov,
		}, nil
	case s.state >= stateEquilibriumComputed:
		return &MomentEstimates{
			Tickers:     s.tickers,
			MeanReturns: s.equilibrium,
			CovMatrix:   s.cov,
		}, nil
	default:
		return nil, domain.NewValidationError("equilibrium returns not yet computed")
	}
}

// StatsConfig returns the Black-Litterman statistics convention: explicit
// risk-free subtraction in the Sharpe ratio.
func (s *BLSession) StatsConfig() StatsConfig {
	return StatsConfig{
		RiskFreeRate:  s.riskFreeRate,
		InflationRate: DefaultInflationRate,
		Mode:          SharpeWithRF,
	}
}

// Optimize runs mean-variance optimization on the session's blended moments
func (s *BLSession) Optimize(optimizer *MVOptimizer, objective Objective, c Constraints) (*OptimizationResult, error) {
	moments, err := s.Moments()
	if err != nil {
		return nil, err
	}

	result, err := optimizer.Optimize(moments, objective, c, s.StatsConfig())
	if err != nil {
		return nil, err
	}

	s.state = stateOptimized
	return result, nil
}

// invert computes a matrix inverse, mapping singularity to the numerical
// degeneracy error. gonum reports both near-singular and exactly singular
// matrices as Condition errors; a finite condition number means the inverse
// was still computed and passes through, an infinite one means it was not.
func invert(a mat.Matrix, what string) (*mat.Dense, error) {
	var inv mat.Dense
	if err := inv.Inverse(a); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 0) {
			return nil, &domain.NumericalDegenerateError{
				Message: fmt.Sprintf("cannot invert %s", what),
				Err:     err,
			}
		}
	}
	return &inv, nil
}

func denseFromRows(rows [][]float64) *mat.Dense {
	n := len(rows)
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			d.Set(i, j, rows[i][j])
		}
	}
	return d
}

func rowsFromDense(d *mat.Dense) [][]float64 {
	r, c := d.Dims()
	rows := make([][]float64, r)
	for i := 0; i < r; i++ {
		rows[i] = make([]float64, c)
		for j := 0; j < c; j++ {
			rows[i][j] = d.At(i, j)
		}
	}
	return rows
}
