package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeforge/index-backtest/internal/strategy"
)

func trade(strategyID string, netPnL float64) Trade {
	entry := time.Date(2024, 2, 1, 9, 15, 0, 0, time.UTC)
	return Trade{
		PositionID: "pos",
		Symbol:     "NIFTY",
		StrategyID: strategyID,
		Direction:  strategy.Long,
		EntryTime:  entry,
		EntryPrice: 100,
		ExitTime:   entry.AddDate(0, 0, 1),
		ExitPrice:  100 + netPnL/10,
		Size:       10,
		ExitReason: ExitTarget,
		GrossPnL:   netPnL,
		NetPnL:     netPnL,
	}
}

func TestAggregate_ZeroTradesReturnsZeroValuedSummary(t *testing.T) {
	s := Aggregate(nil, nil, 100000)

	assert.Equal(t, 0, s.TotalTrades)
	assert.Equal(t, 0.0, s.WinRate)
	assert.Equal(t, 0.0, s.ProfitFactor)
	assert.Equal(t, 0.0, s.SharpeRatio)
	assert.Equal(t, 0.0, s.CalmarRatio)
	require.NotNil(t, s.PerStrategy)
	assert.Empty(t, s.PerStrategy)
}

func TestAggregate_ProfitFactorInfiniteWithNoLosses(t *testing.T) {
	trades := []Trade{trade(strategy.BreakoutID, 500), trade(strategy.BreakoutID, 300)}

	s := Aggregate(trades, nil, 100000)

	assert.True(t, math.IsInf(s.ProfitFactor, 1))
	assert.Equal(t, 1.0, s.WinRate)
}

func TestAggregate_SharpeZeroOnFlatDailyPnL(t *testing.T) {
	daily := map[string]float64{
		"2024-02-01": 0,
		"2024-02-02": 0,
		"2024-02-03": 0,
	}

	s := Aggregate(nil, daily, 100000)

	assert.Equal(t, 0.0, s.SharpeRatio)
	assert.False(t, math.IsNaN(s.SharpeRatio))
}

func TestAggregate_IsIdempotent(t *testing.T) {
	trades := []Trade{
		trade(strategy.BreakoutID, 500),
		trade(strategy.MeanReversionID, -200),
		trade(strategy.BreakoutID, -100),
	}
	daily := map[string]float64{"2024-02-01": 500, "2024-02-02": -300}

	first := Aggregate(trades, daily, 100000)
	second := Aggregate(trades, daily, 100000)

	assert.Equal(t, first, second)
}

func TestAggregate_DrawdownAndCalmar(t *testing.T) {
	daily := map[string]float64{
		"2024-02-01": 1000,
		"2024-02-02": -2000,
	}

	s := Aggregate(nil, daily, 100000)

	assert.InDelta(t, (99000.0-101000.0)/101000.0, s.MaxDrawdown, 1e-9)
	assert.Less(t, s.MaxDrawdown, 0.0)
	assert.InDelta(t, s.AnnualizedReturn/math.Abs(s.MaxDrawdown), s.CalmarRatio, 1e-9)
}

func TestAggregate_PerStrategyBreakdown(t *testing.T) {
	trades := []Trade{
		trade(strategy.BreakoutID, 500),
		trade(strategy.BreakoutID, -250),
		trade(strategy.MeanReversionID, 100),
	}

	s := Aggregate(trades, nil, 100000)

	require.Len(t, s.PerStrategy, 2)
	breakout := s.PerStrategy[strategy.BreakoutID]
	assert.Equal(t, 2, breakout.TotalTrades)
	assert.Equal(t, 0.5, breakout.WinRate)
	assert.InDelta(t, 2.0, breakout.ProfitFactor, 1e-9)

	reversion := s.PerStrategy[strategy.MeanReversionID]
	assert.Equal(t, 1, reversion.TotalTrades)
	assert.True(t, math.IsInf(reversion.ProfitFactor, 1))
}

func TestAggregate_WinRateAndTotals(t *testing.T) {
	trades := []Trade{
		trade(strategy.BreakoutID, 300),
		trade(strategy.BreakoutID, -100),
		trade(strategy.BreakoutID, -100),
		trade(strategy.BreakoutID, 500),
	}

	s := Aggregate(trades, nil, 100000)

	assert.Equal(t, 4, s.TotalTrades)
	assert.Equal(t, 0.5, s.WinRate)
	assert.Equal(t, 600.0, s.TotalPnL)
	assert.Equal(t, 800.0, s.GrossProfit)
	assert.Equal(t, 200.0, s.GrossLoss)
	assert.InDelta(t, 4.0, s.ProfitFactor, 1e-9)
}
