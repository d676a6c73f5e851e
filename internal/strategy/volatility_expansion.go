package strategy

import (
	"fmt"
	"math"

	"github.com/tradeforge/index-backtest/internal/indicators"
	"github.com/tradeforge/index-backtest/internal/regime"
	"github.com/tradeforge/index-backtest/pkg/types"
)

// VolatilityExpansionID identifies the compression-breakout strategy.
const VolatilityExpansionID = "volatility_expansion"

// VolatilityExpansion looks for tight consolidations about to resolve: a
// narrow trailing range with the latest close pressing one edge, volume
// picking up and true range expanding. The entry is directional toward the
// edge being pressed, which is where the resolution is most likely to break.
type VolatilityExpansion struct {
	rangePeriod  int
	rangeMaxPct  float64
	edgeFraction float64
	volumeMin    float64
	atrRatioMin  float64
	targetPct    float64
	stopPct      float64
}

// NewVolatilityExpansion constructs the strategy from a parameter bag.
func NewVolatilityExpansion(p Params) Strategy {
	return &VolatilityExpansion{
		rangePeriod:  int(p.get("range_period", 10)),
		rangeMaxPct:  p.get("range_max_pct", 0.04),
		edgeFraction: p.get("edge_fraction", 0.2),
		volumeMin:    p.get("volume_ratio_min", 1.5),
		atrRatioMin:  p.get("atr_ratio_min", 1.1),
		targetPct:    p.get("target_pct", 0.03),
		stopPct:      p.get("stop_pct", 0.02),
	}
}

func (v *VolatilityExpansion) ID() string { return VolatilityExpansionID }

func (v *VolatilityExpansion) Regimes() []regime.Label {
	return []regime.Label{regime.RangeLowVol, regime.TrendingLowVol}
}

func (v *VolatilityExpansion) Generate(symbol string, window []types.OHLCV, ctx regime.Context) (*Signal, error) {
	if len(window) < v.rangePeriod+30 {
		return nil, nil
	}

	last := len(window) - 1
	cur := window[last]

	rangeHigh := window[last-v.rangePeriod+1].High
	rangeLow := window[last-v.rangePeriod+1].Low
	for _, d := range window[last-v.rangePeriod+1:] {
		if d.High > rangeHigh {
			rangeHigh = d.High
		}
		if d.Low < rangeLow {
			rangeLow = d.Low
		}
	}
	width := rangeHigh - rangeLow
	if width <= 0 || cur.Close <= 0 {
		return nil, nil
	}
	if width/cur.Close > v.rangeMaxPct {
		return nil, nil
	}

	// The close must press one edge of the compression; a close in the middle
	// carries no directional information.
	nearHigh := cur.Close >= rangeHigh-width*v.edgeFraction
	nearLow := cur.Close <= rangeLow+width*v.edgeFraction
	if !nearHigh && !nearLow {
		return nil, nil
	}

	volRatio := volumeRatio(window, 20)
	if volRatio < v.volumeMin {
		return nil, nil
	}

	atr := indicators.ATR(window, 14)
	curTR := math.Max(cur.High-cur.Low, math.Max(
		math.Abs(cur.High-window[last-1].Close),
		math.Abs(cur.Low-window[last-1].Close)))
	if atr[last] <= 0 || curTR/atr[last] < v.atrRatioMin {
		return nil, nil
	}

	entry := cur.Close
	var dir Direction
	var stop, target float64
	if nearHigh {
		dir = Long
		target = entry * (1 + v.targetPct)
		stop = math.Max(entry*(1-v.stopPct), rangeLow)
	} else {
		dir = Short
		target = entry * (1 - v.targetPct)
		stop = math.Min(entry*(1+v.stopPct), rangeHigh)
	}

	score := baseConfidence
	if ctx.VIX > 0 && ctx.VIX < 15 {
		score += 15
	} else if ctx.VIX > 0 && ctx.VIX < 18 {
		score += 10
	}
	if volRatio >= 2.0 {
		score += 15
	}

	return &Signal{
		Time:        cur.Timestamp,
		Symbol:      symbol,
		StrategyID:  VolatilityExpansionID,
		Direction:   dir,
		Confidence:  clampConfidence(score),
		EntryPrice:  entry,
		StopPrice:   stop,
		TargetPrice: target,
		Reason:      fmt.Sprintf("%s expansion from %.2f%% range, TR %.2fx ATR", dir, width/cur.Close*100, curTR/atr[last]),
	}, nil
}
