package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/internal/marketdata"
	"github.com/aristath/frontier/internal/modules/advisor"
	"github.com/aristath/frontier/internal/modules/analysis"
	"github.com/aristath/frontier/internal/modules/optimization"
)

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

	return &marketdata.ReturnSet{Tickers: normalized, Dates: dates, Returns: returns, Source: "fake"}, nil
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

// driftSeries produces a return series alternating +/-2% around the drift
// with the given period, so different periods stay uncorrelated.
func driftSeries(drift float64, period, days int) []float64 {
	out := make([]float64, days)
	for i := range out {
		shock := 0.02
		if i%period >= period/2 {
			shock = -0.02
		}
		out[i] = drift + shock
	}
	return out
}

func newTestHandler() *Handler {
	log := zerolog.Nop()
	p := &fakeProvider{series: map[string][]float64{
		"AAA": driftSeries(0.004, 2, 80),
		"BBB": driftSeries(0.002, 4, 80),
	}}
	stats := optimization.NewStatsEngine(log)
	optimizer := optimization.NewMVOptimizer(log)
	service := analysis.NewService(
		p,
		stats,
		optimizer,
		optimization.NewFrontierGenerator(optimizer, log),
		optimization.NewHRPOptimizer(),
		advisor.NewAdvisor(p, stats, 4, log),
		analysis.Options{
			RiskFreeRate:     0.02,
			InflationRate:    0.025,
			DefaultLookback:  2,
			FrontierPoints:   7,
			RandomPortfolios: 20,
			RandomSeed:       7,
			Tau:              0.05,
			Delta:            2.5,
		},
		log,
	)
	return NewHandler(service, log)
}

func post(t *testing.T, handle http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", path, bytes.NewReader(payload))
	w := httptest.NewRecorder()
	handle(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	return response
}

func TestHandleAnalyze(t *testing.T) {
	handler := newTestHandler()

	w := post(t, handler.HandleAnalyze, "/api/analyze", map[string]interface{}{
		"tickers":     []string{"AAA", "BBB"},
		"weights":     []float64{0.5, 0.5},
		"time_period": 2,
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	response := decodeBody(t, w)
	assert.Contains(t, response, "current_portfolio")
	assert.Contains(t, response, "optimal_portfolio")
	assert.Contains(t, response, "efficient_frontier")
	assert.Contains(t, response, "random_portfolios")
	assert.Contains(t, response, "recommendations")
	assert.Contains(t, response, "efficient_frontier_plot")

	summary := response["analysis"].(map[string]interface{})
	assert.Equal(t, "2 years", summary["time_period"])
	assert.NotEmpty(t, summary["risk_level"])
	assert.True(t, strings.HasSuffix(summary["expected_annual_return"].(string), "%"))
}

func TestHandleAnalyzeRejectsBadJSON(t *testing.T) {
	handler := newTestHandler()

	req := httptest.NewRequest("POST", "/api/analyze", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	handler.HandleAnalyze(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	response := decodeBody(t, w)
	errBody := response["error"].(map[string]interface{})
	assert.Equal(t, "validation", errBody["kind"])
	assert.Contains(t, errBody["message"], "invalid request body")
}

func TestHandleAnalyzeValidationError(t *testing.T) {
	handler := newTestHandler()

	w := post(t, handler.HandleAnalyze, "/api/analyze", map[string]interface{}{
		"tickers": []string{"AAA", "BBB"},
		"weights": []float64{1},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	response := decodeBody(t, w)
	errBody := response["error"].(map[string]interface{})
	assert.Equal(t, "validation", errBody["kind"])
}

func TestHandleAnalyzeDataUnavailable(t *testing.T) {
	handler := newTestHandler()

	w := post(t, handler.HandleAnalyze, "/api/analyze", map[string]interface{}{
		"tickers": []string{"AAA", "ZZZ"},
		"weights": []float64{0.5, 0.5},
	})
	assert.Equal(t, http.StatusBadGateway, w.Code)

	response := decodeBody(t, w)
	errBody := response["error"].(map[string]interface{})
	assert.Equal(t, "data_unavailable", errBody["kind"])
}

func TestHandleOptimize(t *testing.T) {
	handler := newTestHandler()

	w := post(t, handler.HandleOptimize, "/api/optimize", map[string]interface{}{
		"tickers":    []string{"AAA", "BBB"},
		"constraint": "max_sharpe",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	response := decodeBody(t, w)
	assert.Contains(t, response, "allocation")
	assert.Contains(t, response, "optimal_stats")
	assert.Contains(t, response, "alternative_allocation")
	assert.Contains(t, response, "alternative_stats")
	assert.Contains(t, response, "efficient_frontier_plot")
	assert.Equal(t, "max_sharpe", response["constraint_used"])
	assert.Equal(t, float64(2), response["time_period"])
	assert.Equal(t, 0.01, response["min_exposure_used"])

	require.Contains(t, response, "current_stats")
	assert.Nil(t, response["current_stats"], "no current weights were submitted")
}

func TestHandleBlackLitterman(t *testing.T) {
	handler := newTestHandler()

	w := post(t, handler.HandleBlackLitterman, "/api/blacklitterman", map[string]interface{}{
		"tickers": []string{"AAA", "BBB"},
		"weights": []float64{0.5, 0.5},
	})
	assert.Equal(t, http.StatusOK, w.Code)

	response := decodeBody(t, w)
	assert.Len(t, response["equilibrium_returns"], 2)
	require.Contains(t, response, "posterior_returns")
	assert.Nil(t, response["posterior_returns"], "no views were submitted")
	assert.Equal(t, false, response["views_used"])

	summary := response["analysis"].(map[string]interface{})
	assert.Equal(t, "Black-Litterman", summary["model_type"])
	assert.Equal(t, "2.0%", summary["risk_free_rate"])
}

func TestHandleCompare(t *testing.T) {
	handler := newTestHandler()

	w := post(t, handler.HandleCompare, "/api/compare", map[string]interface{}{
		"tickers": []string{"AAA", "BBB"},
		"portfolios": []map[string]interface{}{
			{"name": "mine", "weights": []float64{0.5, 0.5}},
		},
	})
	assert.Equal(t, http.StatusOK, w.Code)

	response := decodeBody(t, w)
	comparison := response["comparison"].([]interface{})
	require.NotEmpty(t, comparison)

	first := comparison[0].(map[string]interface{})
	assert.Equal(t, "mine", first["name"])
	assert.Contains(t, first, "stats")
	assert.Contains(t, first, "allocation")
}
