// Package risk sizes approved signals and vetoes the rest. Sizing blends a
// fixed-fraction risk budget with a Kelly estimate learned from each
// strategy's realized outcomes; the gates cap open positions, per-symbol
// concentration, daily losses and net portfolio delta.
package risk

import (
	"fmt"
	"math"

	"github.com/tradeforge/index-backtest/internal/strategy"
)

// Cold-start Kelly assumptions used until a strategy has booked enough
// outcomes to estimate its own edge.
const (
	coldStartWinRate = 0.6
	coldStartAvgWin  = 0.025
	coldStartAvgLoss = 0.015
	minOutcomes      = 10
)

// Manager enforces the limits and tracks per-strategy outcomes.
type Manager struct {
	limits Limits
	stats  map[string]*outcomeStats
}

// NewManager creates a risk manager with the given limits.
func NewManager(limits Limits) *Manager {
	return &Manager{
		limits: limits,
		stats:  make(map[string]*outcomeStats),
	}
}

// Approve checks every gate and returns the first violation, or nil when the
// signal may be sized and opened.
func (m *Manager) Approve(sig *strategy.Signal, state PortfolioState) error {
	if state.OpenPositions >= m.limits.MaxOpenPositions {
		return fmt.Errorf("open positions %d at limit %d", state.OpenPositions, m.limits.MaxOpenPositions)
	}
	if state.SymbolCount >= m.limits.MaxPerSymbol {
		return fmt.Errorf("%s already holds %d positions, limit %d", sig.Symbol, state.SymbolCount, m.limits.MaxPerSymbol)
	}
	if state.DailyPnL <= -m.limits.MaxDailyLossPct*m.limits.AccountCapital {
		return fmt.Errorf("daily loss %.2f breached cutoff %.2f", state.DailyPnL, m.limits.MaxDailyLossPct*m.limits.AccountCapital)
	}
	if m.limits.AccountCapital > 0 {
		delta := (state.NetNotional + sig.Direction.Sign()*sig.EntryPrice*float64(m.PositionSize(sig))) / m.limits.AccountCapital
		if math.Abs(delta) > m.limits.MaxPortfolioDelta {
			return fmt.Errorf("portfolio delta %.2f would exceed bound %.2f", delta, m.limits.MaxPortfolioDelta)
		}
	}
	return nil
}

// PositionSize returns the whole-unit quantity for the signal: the smaller of
// the fixed-fraction risk size and the Kelly notional size, scaled by signal
// confidence. Degenerate stops size to zero.
func (m *Manager) PositionSize(sig *strategy.Signal) int {
	stopDistance := math.Abs(sig.EntryPrice - sig.StopPrice)
	if stopDistance <= 0 || sig.EntryPrice <= 0 {
		return 0
	}

	riskBudget := m.limits.AccountCapital * m.limits.MaxRiskPerTrade * (sig.Confidence / 100)
	riskSize := math.Floor(riskBudget / stopDistance)

	kellySize := math.Floor(m.KellyFraction(sig.StrategyID) * m.limits.AccountCapital / sig.EntryPrice)

	size := math.Min(riskSize, kellySize)
	if size < 0 {
		return 0
	}
	return int(size)
}

// KellyFraction estimates f = (b·p − q)/b for the strategy from its tracked
// outcomes, capped at the configured fraction and floored at zero.
func (m *Manager) KellyFraction(strategyID string) float64 {
	p := coldStartWinRate
	avgWin := coldStartAvgWin
	avgLoss := coldStartAvgLoss

	if s, ok := m.stats[strategyID]; ok && s.wins+s.losses >= minOutcomes {
		total := float64(s.wins + s.losses)
		p = float64(s.wins) / total
		if s.wins > 0 {
			avgWin = s.winSum / float64(s.wins)
		}
		if s.losses > 0 {
			avgLoss = s.lossSum / float64(s.losses)
		}
	}

	if avgLoss <= 0 || avgWin <= 0 {
		return 0
	}
	b := avgWin / avgLoss
	f := (b*p - (1 - p)) / b
	if f < 0 {
		return 0
	}
	if f > m.limits.KellyFractionCap {
		return m.limits.KellyFractionCap
	}
	return f
}

// RecordOutcome feeds a realized trade return (fraction of entry notional)
// back into the strategy's Kelly estimate.
func (m *Manager) RecordOutcome(strategyID string, ret float64) {
	s, ok := m.stats[strategyID]
	if !ok {
		s = &outcomeStats{}
		m.stats[strategyID] = s
	}
	if ret > 0 {
		s.wins++
		s.winSum += ret
	} else if ret < 0 {
		s.losses++
		s.lossSum += -ret
	}
}
