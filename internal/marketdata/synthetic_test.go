package marketdata

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyntheticProvider_Deterministic(t *testing.T) {
	p := NewSyntheticProvider(zerolog.Nop())
	ctx := context.Background()

	a, err := p.FetchFrame(ctx, []string{"AAPL", "MSFT"}, 1)
	require.NoError(t, err)
	b, err := p.FetchFrame(ctx, []string{"AAPL", "MSFT"}, 1)
	require.NoError(t, err)

	// Same symbols always produce the same price path
	assert.Equal(t, a.Closes["AAPL"], b.Closes["AAPL"])
	assert.Equal(t, a.Closes["MSFT"], b.Closes["MSFT"])

	// Different symbols produce different paths
	assert.NotEqual(t, a.Closes["AAPL"], a.Closes["MSFT"])
}

func TestSyntheticProvider_FrameShape(t *testing.T) {
	p := NewSyntheticProvider(zerolog.Nop())

	frame, err := p.FetchFrame(context.Background(), []string{"voo", "GLD"}, 2)
	require.NoError(t, err)

	assert.Equal(t, []string{"GLD", "VOO"}, frame.Tickers)
	assert.Equal(t, 2*252, frame.Window())
	assert.Len(t, frame.Dates, 2*252)

	for _, symbol := range frame.Tickers {
		require.Len(t, frame.Closes[symbol], 2*252)
		for _, price := range frame.Closes[symbol] {
			assert.Greater(t, price, 0.0)
		}
	}

	// Dates are chronological weekdays
	for i := 1; i < len(frame.Dates); i++ {
		assert.True(t, frame.Dates[i].After(frame.Dates[i-1]))
	}
	for _, d := range frame.Dates {
		wd := d.Weekday()
		assert.NotEqual(t, time.Saturday, wd)
		assert.NotEqual(t, time.Sunday, wd)
	}
}

func TestSyntheticProvider_Returns(t *testing.T) {
	p := NewSyntheticProvider(zerolog.Nop())

	rs, err := p.FetchReturns(context.Background(), []string{"TLT"}, 1)
	require.NoError(t, err)

	assert.Equal(t, "synthetic", rs.Source)
	assert.True(t, rs.Degraded)
	assert.Equal(t, 251, rs.NumDays())
}

func TestSyntheticProvider_ValidatesInput(t *testing.T) {
	p := NewSyntheticProvider(zerolog.Nop())

	_, err := p.FetchFrame(context.Background(), nil, 1)
	assert.Error(t, err)
	_, err = p.FetchFrame(context.Background(), []string{"AAPL"}, 0)
	assert.Error(t, err)
}

func TestSyntheticProvider_MarketCaps(t *testing.T) {
	p := NewSyntheticProvider(zerolog.Nop())

	caps, err := p.MarketCaps(context.Background(), []string{"AAPL", "MSFT"})
	require.NoError(t, err)
	require.Len(t, caps, 2)
	for _, c := range caps {
		assert.Greater(t, c, 0.0)
	}
}
