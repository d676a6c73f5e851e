package indicators

import (
	"math"

	"github.com/tradeforge/index-backtest/pkg/types"
)

// TrueRange computes the per-bar true range: the largest of high-low,
// |high-prevClose| and |low-prevClose|. The first bar uses high-low.
func TrueRange(data []types.OHLCV) []float64 {
	out := make([]float64, len(data))
	for i, d := range data {
		tr := d.High - d.Low
		if i > 0 {
			prevClose := data[i-1].Close
			tr = math.Max(tr, math.Max(math.Abs(d.High-prevClose), math.Abs(d.Low-prevClose)))
		}
		out[i] = tr
	}
	return out
}

// ATR computes the average true range as a rolling mean over the period.
// Leading entries are backfilled with the first valid value so downstream
// stop-distance math never sees NaN; a series too short for any valid value
// falls back to 2% of each close.
func ATR(data []types.OHLCV, period int) []float64 {
	out := make([]float64, len(data))
	if period <= 0 || len(data) < period {
		for i, d := range data {
			out[i] = d.Close * 0.02
		}
		return out
	}
	tr := TrueRange(data)
	avg := SMA(tr, period)
	first := avg[period-1]
	for i := range out {
		if i < period-1 {
			out[i] = first
		} else {
			out[i] = avg[i]
		}
	}
	return out
}
