package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeforge/index-backtest/pkg/types"
)

func bars(closes ...float64) []types.OHLCV {
	out := make([]types.OHLCV, len(closes))
	base := time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC)
	for i, c := range closes {
		out[i] = types.OHLCV{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1000,
		}
	}
	return out
}

func TestSMA_Basic(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	out := SMA(values, 3)

	require.Len(t, out, 5)
	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	assert.InDelta(t, 2.0, out[2], 1e-9)
	assert.InDelta(t, 3.0, out[3], 1e-9)
	assert.InDelta(t, 4.0, out[4], 1e-9)
}

func TestSMA_ShortSeries(t *testing.T) {
	out := SMA([]float64{1, 2}, 5)

	require.Len(t, out, 2)
	for _, v := range out {
		assert.True(t, math.IsNaN(v))
	}
}

func TestEMA_SeededWithSMA(t *testing.T) {
	values := []float64{10, 10, 10, 10, 10}
	out := EMA(values, 3)

	assert.True(t, math.IsNaN(out[1]))
	assert.InDelta(t, 10.0, out[2], 1e-9)
	assert.InDelta(t, 10.0, out[4], 1e-9)
}

func TestRSI_NeutralOnShortSeries(t *testing.T) {
	out := RSI([]float64{100, 101}, 14)

	for _, v := range out {
		assert.Equal(t, 50.0, v)
	}
}

func TestRSI_AllGainsReads100(t *testing.T) {
	values := make([]float64, 20)
	for i := range values {
		values[i] = 100 + float64(i)
	}
	out := RSI(values, 14)

	assert.Equal(t, 100.0, out[len(out)-1])
}

func TestRSI_FlatSeriesStaysNeutral(t *testing.T) {
	values := make([]float64, 30)
	for i := range values {
		values[i] = 100
	}
	out := RSI(values, 14)

	for _, v := range out {
		assert.Equal(t, 50.0, v)
	}
}

func TestRSI_BoundedRange(t *testing.T) {
	values := []float64{100, 90, 110, 85, 120, 80, 130, 75, 140, 70, 150, 65, 160, 60, 170, 55}
	out := RSI(values, 14)

	for _, v := range out {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 100.0)
	}
}

func TestATR_BackfillsLeadingValues(t *testing.T) {
	data := bars(100, 101, 102, 103, 104, 105)
	out := ATR(data, 3)

	require.Len(t, out, 6)
	// Leading entries take the first valid rolling value, never NaN.
	for _, v := range out {
		assert.False(t, math.IsNaN(v))
		assert.Greater(t, v, 0.0)
	}
	assert.Equal(t, out[0], out[1])
	assert.Equal(t, out[0], out[2])
}

func TestATR_ShortSeriesFallback(t *testing.T) {
	data := bars(200, 201)
	out := ATR(data, 14)

	require.Len(t, out, 2)
	assert.InDelta(t, 200*0.02, out[0], 1e-9)
	assert.InDelta(t, 201*0.02, out[1], 1e-9)
}

func TestBollinger_FlatSeriesCollapses(t *testing.T) {
	values := make([]float64, 25)
	for i := range values {
		values[i] = 50
	}
	middle, upper, lower := Bollinger(values, 20, 2.0)

	last := len(values) - 1
	assert.InDelta(t, 50.0, middle[last], 1e-9)
	assert.InDelta(t, 50.0, upper[last], 1e-9)
	assert.InDelta(t, 50.0, lower[last], 1e-9)
}

func TestBollinger_BandsBracketMean(t *testing.T) {
	values := []float64{10, 12, 11, 13, 12, 14, 13, 15, 14, 16, 15, 17, 16, 18, 17, 19, 18, 20, 19, 21, 20}
	middle, upper, lower := Bollinger(values, 20, 2.0)

	last := len(values) - 1
	assert.Greater(t, upper[last], middle[last])
	assert.Less(t, lower[last], middle[last])
}

func TestMACD_AlignedAndDefined(t *testing.T) {
	values := make([]float64, 60)
	for i := range values {
		values[i] = 100 + float64(i)*0.5
	}
	line, signal, hist := MACD(values, 12, 26, 9)

	require.Len(t, line, 60)
	assert.True(t, math.IsNaN(line[24]))
	assert.False(t, math.IsNaN(line[25]))
	// Signal needs a further full window over the defined part of the line.
	assert.False(t, math.IsNaN(signal[25+8]))
	assert.False(t, math.IsNaN(hist[len(hist)-1]))
	// Steady uptrend keeps fast EMA above slow EMA.
	assert.Greater(t, line[len(line)-1], 0.0)
}

func TestRollingMax_Window(t *testing.T) {
	values := []float64{1, 5, 3, 2, 8, 4}
	out := RollingMax(values, 3)

	assert.True(t, math.IsNaN(out[1]))
	assert.Equal(t, 5.0, out[2])
	assert.Equal(t, 5.0, out[3])
	assert.Equal(t, 8.0, out[4])
	assert.Equal(t, 8.0, out[5])
}

func TestRollingMin_Window(t *testing.T) {
	values := []float64{5, 1, 3, 2, 8, 4}
	out := RollingMin(values, 3)

	assert.Equal(t, 1.0, out[2])
	assert.Equal(t, 1.0, out[3])
	assert.Equal(t, 2.0, out[4])
	assert.Equal(t, 2.0, out[5])
}

func TestReturns_FirstEntryUndefined(t *testing.T) {
	out := Returns([]float64{100, 110, 99})

	assert.True(t, math.IsNaN(out[0]))
	assert.InDelta(t, 0.10, out[1], 1e-9)
	assert.InDelta(t, -0.10, out[2], 1e-9)
}
