package backtest

import (
	"github.com/tradeforge/index-backtest/internal/regime"
	"github.com/tradeforge/index-backtest/internal/strategy"
	"github.com/tradeforge/index-backtest/pkg/types"
)

// PartialLevel books a fraction of the original size once price moves the
// given profit distance from entry.
type PartialLevel struct {
	Pct      float64 // profit distance as a fraction of entry, e.g. 0.02
	Fraction float64 // fraction of OriginalSize to exit at this level
}

// ExitConfig holds the layered exit parameters.
type ExitConfig struct {
	TrailingPct              float64 // pct trail from the best close; ignored when ATR mult set
	TrailingATRMult          float64
	PartialLevels            []PartialLevel
	MaxHoldingBars           int     // 0 disables the time exit
	VolatilityExitPercentile float64 // 0 disables the volatility leg of the regime exit
	SlippageRate             float64
}

// ExitEvent is one booked exit tranche for the current bar.
type ExitEvent struct {
	Price  float64
	Size   int
	Reason ExitReason
}

// ExitEngine evaluates the exit rules for every open position on every bar,
// in fixed priority: hard stop/target, then partial levels, then time, then
// regime. The first full-exit match wins; partials may precede a
// later-priority full exit on the same bar. The trailing stop ratchets from
// closes at the end of the bar, so intrabar crosses are checked against the
// stop as it stood at the open.
type ExitEngine struct {
	cfg ExitConfig
}

// NewExitEngine creates an exit engine with the given configuration.
func NewExitEngine(cfg ExitConfig) *ExitEngine {
	return &ExitEngine{cfg: cfg}
}

// Evaluate applies the exit rules to one position for one bar. It mutates the
// position (remaining size, consumed levels, trailing state) and returns the
// exit events to book.
func (e *ExitEngine) Evaluate(pos *Position, bar types.OHLCV, barIndex int, atr float64, ctx regime.Context) []ExitEvent {
	if pos.Closed() {
		return nil
	}

	var events []ExitEvent

	switch {
	case e.stopHit(pos, bar):
		reason := ExitStopLoss
		if pos.stopRatcheted() {
			reason = ExitTrailStop
		}
		events = append(events, e.fullExit(pos, pos.StopPrice, reason))

	case e.targetHit(pos, bar):
		events = append(events, e.fullExit(pos, pos.TargetPrice, ExitTarget))

	default:
		events = append(events, e.partials(pos, bar)...)

		if !pos.Closed() {
			if e.cfg.MaxHoldingBars > 0 && barIndex-pos.EntryIndex >= e.cfg.MaxHoldingBars {
				events = append(events, e.fullExit(pos, bar.Close, ExitTimeExit))
			} else if e.regimeAdverse(ctx) {
				events = append(events, e.fullExit(pos, bar.Close, ExitRegimeExit))
			}
		}
	}

	e.ratchet(pos, bar.Close, atr)
	return events
}

// ForceClose liquidates whatever remains at the last close. Mandatory at end
// of series so the aggregator never sees an unterminated position.
func (e *ExitEngine) ForceClose(pos *Position, lastClose float64) *ExitEvent {
	if pos.Closed() {
		return nil
	}
	ev := e.fullExit(pos, lastClose, ExitEndOfData)
	return &ev
}

func (e *ExitEngine) stopHit(pos *Position, bar types.OHLCV) bool {
	if pos.StopPrice <= 0 {
		return false
	}
	if pos.Direction == strategy.Long {
		return bar.Low <= pos.StopPrice
	}
	return bar.High >= pos.StopPrice
}

func (e *ExitEngine) targetHit(pos *Position, bar types.OHLCV) bool {
	if pos.TargetPrice <= 0 {
		return false
	}
	if pos.Direction == strategy.Long {
		return bar.High >= pos.TargetPrice
	}
	return bar.Low <= pos.TargetPrice
}

// partials books each untouched level the bar reaches. Fractions apply to the
// original size, capped at whatever remains.
func (e *ExitEngine) partials(pos *Position, bar types.OHLCV) []ExitEvent {
	var events []ExitEvent
	for i, lvl := range e.cfg.PartialLevels {
		if pos.consumedLevels[i] || pos.Closed() {
			continue
		}
		levelPrice := pos.EntryPrice * (1 + pos.Direction.Sign()*lvl.Pct)
		touched := bar.High >= levelPrice
		if pos.Direction == strategy.Short {
			touched = bar.Low <= levelPrice
		}
		if !touched {
			continue
		}

		size := int(lvl.Fraction * float64(pos.OriginalSize))
		if size > pos.RemainingSize {
			size = pos.RemainingSize
		}
		if size <= 0 {
			continue
		}
		pos.consumedLevels[i] = true
		pos.RemainingSize -= size
		events = append(events, ExitEvent{
			Price:  e.worsen(levelPrice, pos.Direction),
			Size:   size,
			Reason: ExitPartialTP,
		})
	}
	return events
}

func (e *ExitEngine) regimeAdverse(ctx regime.Context) bool {
	if ctx.Label == regime.EventRiskHigh {
		return true
	}
	return e.cfg.VolatilityExitPercentile > 0 && ctx.VolatilityPercentile >= e.cfg.VolatilityExitPercentile
}

func (e *ExitEngine) fullExit(pos *Position, price float64, reason ExitReason) ExitEvent {
	ev := ExitEvent{
		Price:  e.worsen(price, pos.Direction),
		Size:   pos.RemainingSize,
		Reason: reason,
	}
	pos.RemainingSize = 0
	return ev
}

// ratchet updates the trailing extreme from the bar close and tightens the
// stop toward it. The stop never loosens.
func (e *ExitEngine) ratchet(pos *Position, close, atr float64) {
	if pos.Closed() || (e.cfg.TrailingPct <= 0 && e.cfg.TrailingATRMult <= 0) {
		return
	}

	if pos.Direction == strategy.Long {
		if close > pos.trailExtreme {
			pos.trailExtreme = close
		}
	} else {
		if close < pos.trailExtreme {
			pos.trailExtreme = close
		}
	}

	distance := pos.trailExtreme * e.cfg.TrailingPct
	if e.cfg.TrailingATRMult > 0 {
		distance = atr * e.cfg.TrailingATRMult
	}
	if distance <= 0 {
		return
	}

	if pos.Direction == strategy.Long {
		if candidate := pos.trailExtreme - distance; candidate > pos.StopPrice {
			pos.StopPrice = candidate
		}
	} else {
		if candidate := pos.trailExtreme + distance; pos.StopPrice > 0 && candidate < pos.StopPrice {
			pos.StopPrice = candidate
		}
	}
}

// worsen applies slippage against the exiting side.
func (e *ExitEngine) worsen(price float64, dir strategy.Direction) float64 {
	if dir == strategy.Long {
		return price * (1 - e.cfg.SlippageRate)
	}
	return price * (1 + e.cfg.SlippageRate)
}
