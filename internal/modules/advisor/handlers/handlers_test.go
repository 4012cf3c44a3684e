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

func flatSeries(drift float64, days int) []float64 {
	out := make([]float64, days)
	for i := range out {
		shock := 0.02
		if i%2 == 1 {
			shock = -0.02
		}
		out[i] = drift + shock
	}
	return out
}

func newTestHandler() *Handler {
	log := zerolog.Nop()
	p := &fakeProvider{series: map[string][]float64{
		"AAA": flatSeries(0.004, 60),
		"BBB": flatSeries(0.002, 60),
	}}
	adv := advisor.NewAdvisor(p, optimization.NewStatsEngine(log), 4, log)
	return NewHandler(adv, 2, log)
}

func TestHandleRecommendations(t *testing.T) {
	handler := newTestHandler()

	payload, err := json.Marshal(map[string]interface{}{
		"tickers": []string{"AAA", "BBB"},
		"weights": []float64{0.5, 0.5},
	})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/recommendations", bytes.NewReader(payload))
	w := httptest.NewRecorder()
	handler.HandleRecommendations(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Contains(t, response, "recommendations")
	assert.Equal(t, float64(17), response["candidates_tested"])
	assert.Empty(t, response["recommendations"], "no catalogue data, every candidate is skipped")
}

func TestHandleRecommendationsValidationError(t *testing.T) {
	handler := newTestHandler()

	payload, _ := json.Marshal(map[string]interface{}{
		"tickers": []string{"AAA", "BBB"},
		"weights": []float64{1},
	})

	req := httptest.NewRequest("POST", "/api/recommendations", bytes.NewReader(payload))
	w := httptest.NewRecorder()
	handler.HandleRecommendations(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	errBody := response["error"].(map[string]interface{})
	assert.Equal(t, "validation", errBody["kind"])
}

func TestHandleRecommendationsRejectsBadJSON(t *testing.T) {
	handler := newTestHandler()

	req := httptest.NewRequest("POST", "/api/recommendations", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	handler.HandleRecommendations(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleRecommendationsDataUnavailable(t *testing.T) {
	handler := newTestHandler()

	payload, _ := json.Marshal(map[string]interface{}{
		"tickers": []string{"ZZZ"},
		"weights": []float64{1},
	})

	req := httptest.NewRequest("POST", "/api/recommendations", bytes.NewReader(payload))
	w := httptest.NewRecorder()
	handler.HandleRecommendations(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	errBody := response["error"].(map[string]interface{})
	assert.Equal(t, "data_unavailable", errBody["kind"])
}

func TestHandleSectors(t *testing.T) {
	handler := newTestHandler()

	req := httptest.NewRequest("GET", "/api/sectors", nil)
	w := httptest.NewRecorder()
	handler.HandleSectors(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Len(t, response["sectors"], 17)
	assert.Equal(t, "Technology", response["sectors"]["XLK"])
}
