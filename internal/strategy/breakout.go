package strategy

import (
	"fmt"
	"math"

	"github.com/tradeforge/index-backtest/internal/indicators"
	"github.com/tradeforge/index-backtest/internal/regime"
	"github.com/tradeforge/index-backtest/pkg/types"
)

// BreakoutID identifies the directional price-breakout strategy.
const BreakoutID = "price_breakout"

// Breakout trades confirmed breaks of the trailing range: the current bar
// must trade beyond the prior rolling extreme and close beyond the extreme of
// the bar before that, with volume and volatility-environment confirmation.
type Breakout struct {
	lookback      int
	volumeMin     float64
	volPctileMin  float64
	targetPct     float64
	stopPct       float64
	minRiskReward float64
}

// NewBreakout constructs the breakout strategy from a parameter bag.
func NewBreakout(p Params) Strategy {
	return &Breakout{
		lookback:      int(p.get("lookback", 20)),
		volumeMin:     p.get("volume_ratio_min", 1.1),
		volPctileMin:  p.get("vol_percentile_min", 50),
		targetPct:     p.get("target_pct", 0.03),
		stopPct:       p.get("stop_pct", 0.02),
		minRiskReward: p.get("min_risk_reward", 0.8),
	}
}

func (b *Breakout) ID() string { return BreakoutID }

func (b *Breakout) Regimes() []regime.Label {
	return []regime.Label{regime.TrendingHighVol, regime.TrendingLowVol}
}

// Generate evaluates the gate chain in fixed order: breakout confirmation,
// volume confirmation, volatility environment, then risk/reward. The first
// failed gate short-circuits to no signal.
func (b *Breakout) Generate(symbol string, window []types.OHLCV, ctx regime.Context) (*Signal, error) {
	if len(window) < b.lookback+21 {
		return nil, nil
	}

	cur := window[len(window)-1]
	highs := make([]float64, len(window))
	lows := make([]float64, len(window))
	for i, d := range window {
		highs[i] = d.High
		lows[i] = d.Low
	}

	// Extremes exclude the current bar so it can actually break them.
	last := len(window) - 1
	priorHigh := maxOf(highs[last-b.lookback : last])
	priorLow := minOf(lows[last-b.lookback : last])
	confirmHigh := maxOf(highs[last-1-b.lookback : last-1])
	confirmLow := minOf(lows[last-1-b.lookback : last-1])

	upside := cur.High > priorHigh && cur.Close > confirmHigh
	downside := cur.Low < priorLow && cur.Close < confirmLow
	if !upside && !downside {
		return nil, nil
	}

	volRatio := volumeRatio(window, 20)
	if volRatio < b.volumeMin {
		return nil, nil
	}

	if ctx.VolatilityPercentile < b.volPctileMin {
		return nil, nil
	}

	entry := cur.Close
	var dir Direction
	var stop, target float64
	if upside {
		dir = Long
		target = entry * (1 + b.targetPct)
		stop = math.Max(entry*(1-b.stopPct), priorHigh*0.995)
	} else {
		dir = Short
		target = entry * (1 - b.targetPct)
		stop = math.Min(entry*(1+b.stopPct), priorLow*1.005)
	}

	risk := math.Abs(entry - stop)
	reward := math.Abs(target - entry)
	if risk <= 0 || reward/risk < b.minRiskReward {
		return nil, nil
	}

	return &Signal{
		Time:        cur.Timestamp,
		Symbol:      symbol,
		StrategyID:  BreakoutID,
		Direction:   dir,
		Confidence:  b.confidence(window, volRatio, ctx),
		EntryPrice:  entry,
		StopPrice:   stop,
		TargetPrice: target,
		Reason:      fmt.Sprintf("%s breakout of %d-bar range, volume %.2fx", dir, b.lookback, volRatio),
	}, nil
}

// confidence starts at the shared base and adds bounded bonuses for trend
// strength, volume surge and volatility expansion.
func (b *Breakout) confidence(window []types.OHLCV, volRatio float64, ctx regime.Context) float64 {
	score := baseConfidence

	closes := types.Closes(window)
	sma20 := indicators.SMA(closes, 20)
	last := len(closes) - 1
	if !math.IsNaN(sma20[last]) && sma20[last] > 0 {
		if math.Abs(closes[last]-sma20[last])/sma20[last] > 0.02 {
			score += 15
		}
	}
	if volRatio >= 2.0 {
		score += 15
	} else if volRatio >= 1.5 {
		score += 5
	}
	if ctx.VolatilityPercentile >= 80 {
		score += 10
	}
	return clampConfidence(score)
}

func maxOf(values []float64) float64 {
	max := values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

func minOf(values []float64) float64 {
	min := values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
	}
	return min
}
