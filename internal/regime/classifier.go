// Package regime labels market conditions from recent price history and an
// auxiliary volatility index reading. Classification is a pure function of
// its inputs: the caller owns all state, which keeps multi-instrument
// parallel runs safe.
package regime

import (
	"math"

	"github.com/tradeforge/index-backtest/internal/indicators"
	"github.com/tradeforge/index-backtest/pkg/types"
)

// Label is one of the closed set of market regime tags.
type Label string

const (
	TrendingHighVol Label = "trending_high_vol"
	TrendingLowVol  Label = "trending_low_vol"
	RangeLowVol     Label = "range_low_vol"
	EventRiskHigh   Label = "event_risk_high"
)

const (
	minTrendWindow   = 20
	strictMAWindow   = 50
	trendDeviation   = 0.005
	maAlignThreshold = 0.02
)

// Thresholds holds the volatility-index bands used to split regimes.
type Thresholds struct {
	VIXHigh float64
	VIXLow  float64
}

// DefaultThresholds returns the standard VIX bands.
func DefaultThresholds() Thresholds {
	return Thresholds{VIXHigh: 20, VIXLow: 12}
}

// Context carries the per-bar regime inputs handed to strategies and the
// exit engine alongside the resolved label.
type Context struct {
	Label                Label
	VIX                  float64
	Breadth              float64
	VolatilityPercentile float64
}

// Classify labels the current bar from a trailing window of bars, the
// volatility index value and an optional market-breadth reading. Boundary
// values resolve to the range label, the safest of the set. Breadth below
// -0.5 (broad decline) is treated as non-trending regardless of price.
func Classify(window []types.OHLCV, vix, breadth float64, th Thresholds) Label {
	trending := isTrending(window)
	if breadth < -0.5 {
		trending = false
	}

	switch {
	case vix > th.VIXHigh:
		if trending {
			return TrendingHighVol
		}
		return EventRiskHigh
	case vix < th.VIXLow:
		if trending {
			return TrendingLowVol
		}
		return RangeLowVol
	default:
		return RangeLowVol
	}
}

// isTrending applies the mean-deviation test, or the stricter moving-average
// alignment test once enough history exists for a long MA.
func isTrending(window []types.OHLCV) bool {
	if len(window) < minTrendWindow {
		return false
	}
	closes := types.Closes(window)

	if len(closes) >= strictMAWindow {
		smaShort := indicators.SMA(closes, 20)
		smaLong := indicators.SMA(closes, 50)
		last := len(closes) - 1
		if smaLong[last] == 0 || math.IsNaN(smaShort[last]) || math.IsNaN(smaLong[last]) {
			return false
		}
		return math.Abs(smaShort[last]-smaLong[last])/smaLong[last] > maAlignThreshold
	}

	recent := closes[len(closes)-minTrendWindow:]
	m := 0.0
	for _, c := range recent {
		m += c
	}
	m /= float64(len(recent))
	if m == 0 {
		return false
	}
	return math.Abs(recent[len(recent)-1]-m)/m > trendDeviation
}

// VolatilityPercentile ranks the latest 20-bar annualized volatility within
// the trailing 50 readings, as a value in [0, 100]. With insufficient history
// it returns the neutral 50.
func VolatilityPercentile(window []types.OHLCV) float64 {
	const volWindow = 20
	const rankWindow = 50

	closes := types.Closes(window)
	rets := indicators.Returns(closes)

	var vols []float64
	for i := volWindow; i < len(rets); i++ {
		sample := rets[i-volWindow+1 : i+1]
		vols = append(vols, stddev(sample)*math.Sqrt(252))
	}
	if len(vols) < rankWindow {
		return 50
	}

	recent := vols[len(vols)-rankWindow:]
	latest := recent[len(recent)-1]
	below := 0
	for _, v := range recent {
		if v < latest {
			below++
		}
	}
	return float64(below) / float64(len(recent)) * 100
}

func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := 0.0
	for _, v := range values {
		m += v
	}
	m /= float64(len(values))
	variance := 0.0
	for _, v := range values {
		variance += (v - m) * (v - m)
	}
	return math.Sqrt(variance / float64(len(values)))
}
