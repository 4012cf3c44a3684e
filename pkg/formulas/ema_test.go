package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateEMA_EmptyInput(t *testing.T) {
	result := CalculateEMA([]float64{}, 200)
	assert.Nil(t, result)
}

func TestCalculateEMA_InsufficientDataFallsBackToSMA(t *testing.T) {
	closes := []float64{100, 102, 104}

	result := CalculateEMA(closes, 200)
	require.NotNil(t, result)

	// With fewer closes than the period, result is the plain mean
	assert.InDelta(t, 102.0, *result, 1e-9)
}

func TestCalculateEMA_ConstantPrices(t *testing.T) {
	closes := make([]float64, 250)
	for i := range closes {
		closes[i] = 50.0
	}

	result := CalculateEMA(closes, 200)
	require.NotNil(t, result)

	// EMA of a constant series is the constant
	assert.InDelta(t, 50.0, *result, 1e-6)
}

func TestCalculateEMA_TrendingPrices(t *testing.T) {
	// Steadily rising prices: EMA lags below the last price
	closes := make([]float64, 250)
	for i := range closes {
		closes[i] = 100.0 + float64(i)
	}

	result := CalculateEMA(closes, 200)
	require.NotNil(t, result)
	assert.Less(t, *result, closes[len(closes)-1])
}

func TestCalculateDistanceFromEMA_AboveEMA(t *testing.T) {
	closes := make([]float64, 250)
	for i := range closes {
		closes[i] = 100.0 + float64(i)
	}

	dist := CalculateDistanceFromEMA(closes, 200)
	require.NotNil(t, dist)

	// Rising series ends above its moving average
	assert.Greater(t, *dist, 0.0)
}

func TestCalculateDistanceFromEMA_BelowEMA(t *testing.T) {
	closes := make([]float64, 250)
	for i := range closes {
		closes[i] = 350.0 - float64(i)
	}

	dist := CalculateDistanceFromEMA(closes, 200)
	require.NotNil(t, dist)
	assert.Less(t, *dist, 0.0)
}

func TestCalculateDistanceFromEMA_EmptyInput(t *testing.T) {
	dist := CalculateDistanceFromEMA([]float64{}, 200)
	assert.Nil(t, dist)
}

func TestCalculateSMA(t *testing.T) {
	closes := []float64{10, 20, 30, 40, 50}

	result := CalculateSMA(closes, 5)
	require.NotNil(t, result)
	assert.InDelta(t, 30.0, *result, 1e-9)
}

func TestCalculateSMA_InsufficientData(t *testing.T) {
	result := CalculateSMA([]float64{10, 20}, 5)
	assert.Nil(t, result)
}
