package strategy

import (
	"fmt"

	"github.com/tradeforge/index-backtest/internal/indicators"
	"github.com/tradeforge/index-backtest/internal/regime"
	"github.com/tradeforge/index-backtest/pkg/types"
)

// MeanReversionID identifies the RSI mean-reversion strategy.
const MeanReversionID = "rsi_mean_reversion"

// MeanReversion fades momentum extremes in ranging markets: it enters long
// when RSI crosses down into oversold while price holds above its moving
// average, and mirrored for shorts. Stops are ATR-based, targets a fixed
// percentage.
type MeanReversion struct {
	rsiPeriod   int
	oversold    float64
	overbought  float64
	smaPeriod   int
	stopATRMult float64
	targetPct   float64
}

// NewMeanReversion constructs the mean-reversion strategy from a parameter bag.
func NewMeanReversion(p Params) Strategy {
	return &MeanReversion{
		rsiPeriod:   int(p.get("rsi_period", 14)),
		oversold:    p.get("oversold", 25),
		overbought:  p.get("overbought", 75),
		smaPeriod:   int(p.get("sma_period", 20)),
		stopATRMult: p.get("stop_atr_mult", 1.5),
		targetPct:   p.get("target_pct", 0.035),
	}
}

func (m *MeanReversion) ID() string { return MeanReversionID }

func (m *MeanReversion) Regimes() []regime.Label {
	return []regime.Label{regime.RangeLowVol}
}

func (m *MeanReversion) Generate(symbol string, window []types.OHLCV, ctx regime.Context) (*Signal, error) {
	minBars := m.rsiPeriod
	if m.smaPeriod > minBars {
		minBars = m.smaPeriod
	}
	if len(window) < minBars+10 {
		return nil, nil
	}

	closes := types.Closes(window)
	rsi := indicators.RSI(closes, m.rsiPeriod)
	sma := indicators.SMA(closes, m.smaPeriod)
	atr := indicators.ATR(window, 14)

	last := len(window) - 1
	cur := window[last]

	// Momentum bound: the RSI must cross the threshold on this bar, not
	// merely sit beyond it, so one extreme cannot fire every bar.
	oversoldCross := rsi[last] < m.oversold && rsi[last-1] >= m.oversold && cur.Close > sma[last]
	overboughtCross := rsi[last] > m.overbought && rsi[last-1] <= m.overbought && cur.Close < sma[last]
	if !oversoldCross && !overboughtCross {
		return nil, nil
	}

	volRatio := volumeRatio(window, 20)
	if volRatio < 1.0 {
		return nil, nil
	}

	entry := cur.Close
	var dir Direction
	var stop, target float64
	if oversoldCross {
		dir = Long
		stop = entry - atr[last]*m.stopATRMult
		target = entry * (1 + m.targetPct)
	} else {
		dir = Short
		stop = entry + atr[last]*m.stopATRMult
		target = entry * (1 - m.targetPct)
	}
	if stop <= 0 {
		return nil, nil
	}

	score := baseConfidence
	if oversoldCross && rsi[last] < m.oversold-5 {
		score += 15
	}
	if overboughtCross && rsi[last] > m.overbought+5 {
		score += 15
	}
	if volRatio > 1.5 {
		score += 10
	}

	return &Signal{
		Time:        cur.Timestamp,
		Symbol:      symbol,
		StrategyID:  MeanReversionID,
		Direction:   dir,
		Confidence:  clampConfidence(score),
		EntryPrice:  entry,
		StopPrice:   stop,
		TargetPrice: target,
		Reason:      fmt.Sprintf("%s RSI reversion (RSI %.1f)", dir, rsi[last]),
	}, nil
}
