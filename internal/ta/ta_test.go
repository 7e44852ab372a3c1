package ta

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-agent/internal/types"
)

func TestSMA(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}
	assert.InDelta(t, 4.0, SMA(closes, 3), 1e-9)
	assert.True(t, math.IsNaN(SMA(closes, 6)))
}

func TestRSIExtremes(t *testing.T) {
	up := make([]float64, 20)
	for i := range up {
		up[i] = 100 + float64(i)
	}
	assert.InDelta(t, 100.0, RSI(up, 14), 1e-9)

	down := make([]float64, 20)
	for i := range down {
		down[i] = 100 - float64(i)
	}
	assert.InDelta(t, 0.0, RSI(down, 14), 1e-9)
}

func TestBollingerBandsBracketMean(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + 5*math.Sin(float64(i))
	}
	mid, up, low := Bollinger(closes, 20, 2.0)
	assert.Greater(t, up, mid)
	assert.Less(t, low, mid)
}

func TestATRFlatSeriesIsRange(t *testing.T) {
	n := 20
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i := 0; i < n; i++ {
		highs[i], lows[i], closes[i] = 102, 98, 100
	}
	assert.InDelta(t, 4.0, ATR(highs, lows, closes, 14), 1e-9)
}

func TestMACDConstantSeriesIsZero(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 250
	}
	macd, signal := MACD(closes)
	assert.InDelta(t, 0.0, macd, 1e-9)
	assert.InDelta(t, 0.0, signal, 1e-9)
}

func TestMACDPositiveInUptrend(t *testing.T) {
	closes := make([]float64, 80)
	for i := range closes {
		closes[i] = 100 * math.Pow(1.01, float64(i))
	}
	macd, signal := MACD(closes)
	assert.Greater(t, macd, 0.0)
	assert.Greater(t, signal, 0.0)
}

func TestComputeShortHistoryFallsBackNeutral(t *testing.T) {
	candles := []types.Candle{
		{High: 101, Low: 99, Close: 100},
		{High: 102, Low: 100, Close: 101},
	}
	inds := Compute(candles)
	assert.InDelta(t, 50.0, inds.RSI, 1e-9)
	assert.Nil(t, inds.SMA50)
	assert.Nil(t, inds.SMA200)
	assert.Zero(t, inds.ATR)
}

func TestComputeFullHistory(t *testing.T) {
	candles := make([]types.Candle, 250)
	price := 100.0
	for i := range candles {
		price *= 1.001
		candles[i] = types.Candle{High: price * 1.01, Low: price * 0.99, Close: price}
	}
	inds := Compute(candles)
	require.NotNil(t, inds.SMA50)
	require.NotNil(t, inds.SMA200)
	assert.Greater(t, *inds.SMA50, *inds.SMA200)
	assert.Greater(t, inds.ATR, 0.0)
	assert.Greater(t, inds.BBUpper, inds.BBLower)
	assert.Greater(t, inds.RSI, 50.0)
}
