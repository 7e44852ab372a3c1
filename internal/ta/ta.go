package ta

import (
	"math"

	"trading-agent/internal/types"
)

func SMA(closes []float64, n int) float64 {
	if len(closes) < n || n <= 0 {
		return math.NaN()
	}
	sum := 0.0
	for i := len(closes) - n; i < len(closes); i++ {
		sum += closes[i]
	}
	return sum / float64(n)
}

func RSI(closes []float64, period int) float64 {
	if len(closes) < period+1 || period <= 0 {
		return math.NaN()
	}
	gain, loss := 0.0, 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	if loss == 0 {
		return 100.0
	}
	rs := (gain / float64(period)) / (loss / float64(period))
	return 100.0 - (100.0 / (1.0 + rs))
}

func StdDev(vals []float64, n int) float64 {
	if len(vals) < n || n <= 0 {
		return math.NaN()
	}
	m := SMA(vals, n)
	s := 0.0
	for i := len(vals) - n; i < len(vals); i++ {
		d := vals[i] - m
		s += d * d
	}
	return math.Sqrt(s / float64(n))
}

func Bollinger(closes []float64, n int, k float64) (mid, up, low float64) {
	mid = SMA(closes, n)
	sd := StdDev(closes, n)
	up = mid + k*sd
	low = mid - k*sd
	return
}

func ATR(highs, lows, closes []float64, period int) float64 {
	if len(highs) != len(lows) || len(lows) != len(closes) {
		return math.NaN()
	}
	n := period
	if len(closes) < n+1 {
		return math.NaN()
	}
	trs := make([]float64, 0, n)
	for i := len(closes) - n; i < len(closes); i++ {
		tr1 := highs[i] - lows[i]
		tr2 := math.Abs(highs[i] - closes[i-1])
		tr3 := math.Abs(lows[i] - closes[i-1])
		tr := math.Max(tr1, math.Max(tr2, tr3))
		trs = append(trs, tr)
	}
	sum := 0.0
	for _, v := range trs {
		sum += v
	}
	return sum / float64(n)
}

// emaSeries returns the exponential moving average series for the input.
func emaSeries(vals []float64, period int) []float64 {
	if len(vals) < period || period <= 0 {
		return nil
	}
	out := make([]float64, len(vals))
	k := 2.0 / (float64(period) + 1.0)
	// seed with SMA of the first period
	seed := 0.0
	for i := 0; i < period; i++ {
		seed += vals[i]
	}
	seed /= float64(period)
	out[period-1] = seed
	for i := period; i < len(vals); i++ {
		out[i] = vals[i]*k + out[i-1]*(1.0-k)
	}
	return out[period-1:]
}

// MACD returns the latest MACD line (EMA12-EMA26) and its 9-period
// signal line.
func MACD(closes []float64) (macd, signal float64) {
	const fast, slow, sig = 12, 26, 9
	if len(closes) < slow+sig {
		return math.NaN(), math.NaN()
	}
	fastEMA := emaSeries(closes, fast)
	slowEMA := emaSeries(closes, slow)
	// align: slowEMA starts (slow-fast) later than fastEMA
	offset := slow - fast
	line := make([]float64, len(slowEMA))
	for i := range slowEMA {
		line[i] = fastEMA[i+offset] - slowEMA[i]
	}
	sigSeries := emaSeries(line, sig)
	if len(sigSeries) == 0 {
		return line[len(line)-1], math.NaN()
	}
	return line[len(line)-1], sigSeries[len(sigSeries)-1]
}

// Compute builds the indicator snapshot the decision stage embeds in its
// request. SMA50/SMA200 are omitted (nil) when history is too short, the
// rest fall back to neutral values so a thin history still analyzes.
func Compute(candles []types.Candle) types.Indicators {
	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
	}

	inds := types.Indicators{}

	if v := RSI(closes, 14); !math.IsNaN(v) {
		inds.RSI = v
	} else {
		inds.RSI = 50.0
	}

	if macd, sig := MACD(closes); !math.IsNaN(macd) {
		inds.MACD = macd
		if !math.IsNaN(sig) {
			inds.MACDSignal = sig
		}
	}

	if _, up, low := Bollinger(closes, 20, 2.0); !math.IsNaN(up) {
		inds.BBUpper = up
		inds.BBLower = low
	}

	if v := ATR(highs, lows, closes, 14); !math.IsNaN(v) {
		inds.ATR = v
	}

	if v := SMA(closes, 50); !math.IsNaN(v) {
		sma := v
		inds.SMA50 = &sma
	}
	if v := SMA(closes, 200); !math.IsNaN(v) {
		sma := v
		inds.SMA200 = &sma
	}

	return inds
}
