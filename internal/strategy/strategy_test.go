package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeforge/index-backtest/internal/regime"
	"github.com/tradeforge/index-backtest/pkg/types"
)

func barsFromCloses(closes []float64) []types.OHLCV {
	out := make([]types.OHLCV, len(closes))
	base := time.Date(2024, 6, 3, 9, 15, 0, 0, time.UTC)
	for i, c := range closes {
		out[i] = types.OHLCV{
			Timestamp: base.AddDate(0, 0, i),
			Open:      c, High: c * 1.005, Low: c * 0.995, Close: c,
			Volume: 1000,
		}
	}
	return out
}

func flatWindow(n int) []types.OHLCV {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100
	}
	return barsFromCloses(closes)
}

func rangeContext() regime.Context {
	return regime.Context{Label: regime.RangeLowVol, VIX: 13, VolatilityPercentile: 50}
}

func trendingContext() regime.Context {
	return regime.Context{Label: regime.TrendingHighVol, VIX: 22, VolatilityPercentile: 60}
}

func TestBreakout_LongSignalOnConfirmedBreak(t *testing.T) {
	window := flatWindow(50)
	window[49] = types.OHLCV{
		Timestamp: window[49].Timestamp,
		Open:      100, High: 103, Low: 100, Close: 102.5,
		Volume: 2000,
	}

	sig, err := NewBreakout(nil).Generate("NIFTY", window, trendingContext())
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, BreakoutID, sig.StrategyID)
	assert.Equal(t, Long, sig.Direction)
	assert.Equal(t, 102.5, sig.EntryPrice)
	assert.Greater(t, sig.TargetPrice, sig.EntryPrice)
	assert.Less(t, sig.StopPrice, sig.EntryPrice)
	assert.NoError(t, sig.Validate())
	assert.GreaterOrEqual(t, sig.Confidence, 50.0)
}

func TestBreakout_FlatSeriesNeverSignals(t *testing.T) {
	window := flatWindow(60)
	b := NewBreakout(nil)
	for i := 41; i <= len(window); i++ {
		sig, err := b.Generate("NIFTY", window[:i], trendingContext())
		require.NoError(t, err)
		assert.Nil(t, sig, "bar %d", i)
	}
}

func TestBreakout_VetoedByLowVolume(t *testing.T) {
	window := flatWindow(50)
	window[49] = types.OHLCV{
		Timestamp: window[49].Timestamp,
		Open:      100, High: 103, Low: 100, Close: 102.5,
		Volume: 900, // below the trailing average
	}

	sig, err := NewBreakout(nil).Generate("NIFTY", window, trendingContext())
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestBreakout_VetoedByQuietVolatility(t *testing.T) {
	window := flatWindow(50)
	window[49] = types.OHLCV{
		Timestamp: window[49].Timestamp,
		Open:      100, High: 103, Low: 100, Close: 102.5,
		Volume: 2000,
	}
	ctx := trendingContext()
	ctx.VolatilityPercentile = 30

	sig, err := NewBreakout(nil).Generate("NIFTY", window, ctx)
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestBreakout_ShortWindowIsNoSignal(t *testing.T) {
	sig, err := NewBreakout(nil).Generate("NIFTY", flatWindow(20), trendingContext())
	require.NoError(t, err)
	assert.Nil(t, sig)
}

// meanReversionSetup builds a pullback that dips RSI into oversold while the
// close still holds above its 20-bar average: a low base, a gap to a higher
// shelf, a drift down the shelf and then one hard down bar.
func meanReversionSetup() []types.OHLCV {
	closes := make([]float64, 0, 60)
	for i := 0; i < 45; i++ {
		closes = append(closes, 100)
	}
	closes = append(closes, 200)
	level := 200.0
	for i := 0; i < 13; i++ {
		if i%2 == 0 {
			level -= 1
		} else {
			level += 0.5
		}
		closes = append(closes, level)
	}
	closes = append(closes, level-7)

	window := barsFromCloses(closes)
	window[len(window)-1].Volume = 1500
	return window
}

func TestMeanReversion_LongOnOversoldCross(t *testing.T) {
	sig, err := NewMeanReversion(nil).Generate("BANKNIFTY", meanReversionSetup(), rangeContext())
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, MeanReversionID, sig.StrategyID)
	assert.Equal(t, Long, sig.Direction)
	assert.NoError(t, sig.Validate())
	assert.GreaterOrEqual(t, sig.Confidence, 50.0)
}

func TestMeanReversion_FlatSeriesIsNoSignal(t *testing.T) {
	sig, err := NewMeanReversion(nil).Generate("BANKNIFTY", flatWindow(60), rangeContext())
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestMeanReversion_ShortWindowIsNoSignal(t *testing.T) {
	sig, err := NewMeanReversion(nil).Generate("BANKNIFTY", flatWindow(25), rangeContext())
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestVolatilityExpansion_LongTowardUpperEdge(t *testing.T) {
	window := flatWindow(40)
	window[39] = types.OHLCV{
		Timestamp: window[39].Timestamp,
		Open:      100, High: 101.8, Low: 100, Close: 101.7,
		Volume: 2000,
	}

	sig, err := NewVolatilityExpansion(nil).Generate("NIFTY", window, rangeContext())
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, VolatilityExpansionID, sig.StrategyID)
	assert.Equal(t, Long, sig.Direction)
	assert.NoError(t, sig.Validate())
	// Calm VIX plus a volume surge both add to the base score.
	assert.Greater(t, sig.Confidence, 70.0)
}

func TestVolatilityExpansion_MidRangeCloseIsNoSignal(t *testing.T) {
	sig, err := NewVolatilityExpansion(nil).Generate("NIFTY", flatWindow(40), rangeContext())
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestVolatilityExpansion_WideRangeIsNoSignal(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		if i%2 == 0 {
			closes[i] = 100
		} else {
			closes[i] = 108
		}
	}
	window := barsFromCloses(closes)
	window[39].Volume = 2000

	sig, err := NewVolatilityExpansion(nil).Generate("NIFTY", window, rangeContext())
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestRegistry_KnownIDsBuild(t *testing.T) {
	for id := range Registry() {
		s, err := Build(id, Params{"target_pct": 0.05})
		require.NoError(t, err)
		assert.Equal(t, id, s.ID())
		assert.NotEmpty(t, s.Regimes())
	}
}

func TestRegistry_UnknownIDFails(t *testing.T) {
	_, err := Build("gamma_scalping", nil)
	assert.Error(t, err)
}

func TestSignalValidate_RejectsInvertedLongStop(t *testing.T) {
	sig := &Signal{
		StrategyID: BreakoutID, Direction: Long,
		Confidence: 60, EntryPrice: 100, StopPrice: 105, TargetPrice: 110,
	}
	assert.Error(t, sig.Validate())
}

func TestSignalValidate_RejectsNeutralDirection(t *testing.T) {
	sig := &Signal{
		StrategyID: BreakoutID, Direction: Neutral,
		Confidence: 60, EntryPrice: 100, StopPrice: 98, TargetPrice: 103,
	}
	assert.Error(t, sig.Validate())
}
