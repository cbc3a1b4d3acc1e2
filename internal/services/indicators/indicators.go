// Package indicators computes chart overlays from close prices. Every function
// returns a slice aligned with its input; positions without enough history
// are nil.
package indicators

import (
	"math"

	"StockLens/internal/domain/models"
)

// Params selects the indicator windows.
type Params struct {
	SMAShort   int
	SMALong    int
	EMAFast    int
	EMASlow    int
	RSIPeriod  int
	BollWindow int
	BollStdDev float64
	MACDFast   int
	MACDSlow   int
	MACDSignal int
}

// DefaultParams are the windows used for the stock chart.
func DefaultParams() Params {
	return Params{
		SMAShort:   20,
		SMALong:    50,
		EMAFast:    12,
		EMASlow:    26,
		RSIPeriod:  14,
		BollWindow: 20,
		BollStdDev: 2,
		MACDFast:   12,
		MACDSlow:   26,
		MACDSignal: 9,
	}
}

// Compute runs every indicator over closes.
func Compute(closes []float64, p Params) *models.Indicators {
	upper, middle, lower := Bollinger(closes, p.BollWindow, p.BollStdDev)
	line, signal, hist := MACD(closes, p.MACDFast, p.MACDSlow, p.MACDSignal)
	return &models.Indicators{
		SMA20:           SMA(closes, p.SMAShort),
		SMA50:           SMA(closes, p.SMALong),
		EMA12:           EMA(closes, p.EMAFast),
		EMA26:           EMA(closes, p.EMASlow),
		RSI14:           RSI(closes, p.RSIPeriod),
		BollingerUpper:  upper,
		BollingerMiddle: middle,
		BollingerLower:  lower,
		MACDLine:        line,
		MACDSignal:      signal,
		MACDHistogram:   hist,
	}
}

// SMA is the simple moving average over window.
func SMA(prices []float64, window int) []*float64 {
	out := make([]*float64, len(prices))
	if window <= 0 || len(prices) < window {
		return out
	}
	sum := 0.0
	for i, v := range prices {
		sum += v
		if i >= window {
			sum -= prices[i-window]
		}
		if i >= window-1 {
			out[i] = ptr(sum / float64(window))
		}
	}
	return out
}

// EMA is the exponential moving average seeded with the SMA of the first window prices.
func EMA(prices []float64, window int) []*float64 {
	out := make([]*float64, len(prices))
	if window <= 0 || len(prices) < window {
		return out
	}
	k := 2 / float64(window+1)
	seed := 0.0
	for _, v := range prices[:window] {
		seed += v
	}
	prev := seed / float64(window)
	out[window-1] = ptr(prev)
	for i := window; i < len(prices); i++ {
		prev = prices[i]*k + prev*(1-k)
		out[i] = ptr(prev)
	}
	return out
}

// RSI is the Wilder-smoothed relative strength index. The first period price
// changes only seed the averages, so the first value sits at index period+1,
// after one smoothing step.
func RSI(prices []float64, period int) []*float64 {
	out := make([]*float64, len(prices))
	if period <= 0 || len(prices) < period+1 {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		g, l := change(prices[i-1], prices[i])
		avgGain += g
		avgLoss += l
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(prices); i++ {
		g, l := change(prices[i-1], prices[i])
		avgGain = (avgGain*float64(period-1) + g) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + l) / float64(period)
		out[i] = ptr(rsiValue(avgGain, avgLoss))
	}
	return out
}

func change(prev, cur float64) (gain, loss float64) {
	d := cur - prev
	if d > 0 {
		return d, 0
	}
	return 0, -d
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// Bollinger returns the bands around the window SMA at numStd population
// standard deviations.
func Bollinger(prices []float64, window int, numStd float64) (upper, middle, lower []*float64) {
	middle = SMA(prices, window)
	upper = make([]*float64, len(prices))
	lower = make([]*float64, len(prices))
	for i, m := range middle {
		if m == nil {
			continue
		}
		var sq float64
		for _, v := range prices[i-window+1 : i+1] {
			d := v - *m
			sq += d * d
		}
		sd := math.Sqrt(sq / float64(window))
		upper[i] = ptr(*m + numStd*sd)
		lower[i] = ptr(*m - numStd*sd)
	}
	return upper, middle, lower
}

// MACD returns the fast-minus-slow EMA line, its signal EMA and the histogram.
func MACD(prices []float64, fast, slow, signal int) (line, sig, hist []*float64) {
	ef := EMA(prices, fast)
	es := EMA(prices, slow)

	line = make([]*float64, len(prices))
	first := -1
	values := make([]float64, 0, len(prices))
	for i := range prices {
		if ef[i] == nil || es[i] == nil {
			continue
		}
		if first < 0 {
			first = i
		}
		v := *ef[i] - *es[i]
		line[i] = ptr(v)
		values = append(values, v)
	}

	sig = make([]*float64, len(prices))
	hist = make([]*float64, len(prices))
	if first < 0 {
		return line, sig, hist
	}
	for j, s := range EMA(values, signal) {
		if s == nil {
			continue
		}
		i := first + j
		sig[i] = s
		hist[i] = ptr(*line[i] - *s)
	}
	return line, sig, hist
}

// Tail keeps the last n entries of every indicator.
func Tail(ind *models.Indicators, n int) *models.Indicators {
	if ind == nil {
		return nil
	}
	cut := func(s []*float64) []*float64 {
		if n >= 0 && len(s) > n {
			return s[len(s)-n:]
		}
		return s
	}
	return &models.Indicators{
		SMA20:           cut(ind.SMA20),
		SMA50:           cut(ind.SMA50),
		EMA12:           cut(ind.EMA12),
		EMA26:           cut(ind.EMA26),
		RSI14:           cut(ind.RSI14),
		BollingerUpper:  cut(ind.BollingerUpper),
		BollingerMiddle: cut(ind.BollingerMiddle),
		BollingerLower:  cut(ind.BollingerLower),
		MACDLine:        cut(ind.MACDLine),
		MACDSignal:      cut(ind.MACDSignal),
		MACDHistogram:   cut(ind.MACDHistogram),
	}
}

func ptr(v float64) *float64 { return &v }
