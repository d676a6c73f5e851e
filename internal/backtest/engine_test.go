package backtest

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeforge/index-backtest/internal/logger"
	"github.com/tradeforge/index-backtest/internal/regime"
	"github.com/tradeforge/index-backtest/internal/risk"
	"github.com/tradeforge/index-backtest/internal/strategy"
	"github.com/tradeforge/index-backtest/pkg/types"
)

// stubStrategy fires a fixed signal at one bar index and stays quiet
// otherwise. failEvery/panicEvery simulate broken strategies.
type stubStrategy struct {
	id         string
	fireAt     int
	signal     *strategy.Signal
	failEvery  bool
	panicEvery bool
}

func (s *stubStrategy) ID() string { return s.id }

func (s *stubStrategy) Regimes() []regime.Label {
	return []regime.Label{regime.TrendingHighVol, regime.TrendingLowVol, regime.RangeLowVol, regime.EventRiskHigh}
}

func (s *stubStrategy) Generate(symbol string, window []types.OHLCV, ctx regime.Context) (*strategy.Signal, error) {
	if s.panicEvery {
		panic("broken strategy")
	}
	if s.failEvery {
		return nil, fmt.Errorf("indicator blew up")
	}
	if len(window)-1 != s.fireAt {
		return nil, nil
	}
	sig := *s.signal
	sig.Time = window[len(window)-1].Timestamp
	sig.Symbol = symbol
	return &sig, nil
}

func flatSeries(n int, close float64) []types.OHLCV {
	out := make([]types.OHLCV, n)
	base := time.Date(2024, 1, 2, 9, 15, 0, 0, time.UTC)
	for i := range out {
		out[i] = types.OHLCV{
			Timestamp: base.AddDate(0, 0, i),
			Open:      close, High: close * 1.005, Low: close * 0.995, Close: close,
			Volume: 1000,
		}
	}
	return out
}

func testEngine(cfg RunConfig, strategies ...strategy.Strategy) *Engine {
	if cfg.InitialCapital == 0 {
		cfg.InitialCapital = 100000
	}
	return NewEngine(cfg, strategies, risk.NewManager(risk.DefaultLimits(cfg.InitialCapital)), logger.Discard())
}

func holdSignal() *strategy.Signal {
	return &strategy.Signal{
		StrategyID:  strategy.BreakoutID,
		Direction:   strategy.Long,
		Confidence:  60,
		EntryPrice:  100,
		StopPrice:   1,
		TargetPrice: 10000,
	}
}

func TestRunSymbol_OpenPositionForceClosedAtEndOfData(t *testing.T) {
	stub := &stubStrategy{id: strategy.BreakoutID, fireAt: 60, signal: holdSignal()}
	engine := testEngine(RunConfig{}, stub)

	result, err := engine.RunSymbol("NIFTY", flatSeries(200, 100), nil)

	require.NoError(t, err)
	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	assert.Equal(t, ExitEndOfData, trade.ExitReason)
	assert.Equal(t, 100.0, trade.ExitPrice)
	assert.Equal(t, 199-60, trade.HoldingBars)
	assert.Greater(t, trade.Size, 0)
}

func TestRunSymbol_ShortSeriesYieldsZeroTradesNoError(t *testing.T) {
	engine := testEngine(RunConfig{}, &stubStrategy{id: strategy.BreakoutID, fireAt: 10, signal: holdSignal()})

	result, err := engine.RunSymbol("NIFTY", flatSeries(30, 100), nil)

	require.NoError(t, err)
	assert.Empty(t, result.Trades)
}

func TestRunSymbol_MalformedSeriesIsDataError(t *testing.T) {
	data := flatSeries(60, 100)
	data[10].Low = data[10].High + 5

	engine := testEngine(RunConfig{})
	_, err := engine.RunSymbol("NIFTY", data, nil)

	require.Error(t, err)
	var runErr *RunError
	require.True(t, errors.As(err, &runErr))
	assert.Equal(t, ErrorCategoryData, runErr.Category)
	assert.False(t, runErr.IsFatal())
}

func TestRunSymbol_DuplicateTimestampIsDataError(t *testing.T) {
	data := flatSeries(60, 100)
	data[11].Timestamp = data[10].Timestamp

	engine := testEngine(RunConfig{})
	_, err := engine.RunSymbol("NIFTY", data, nil)

	assert.Error(t, err)
}

func TestRunSymbol_StrategyErrorIsNotFatal(t *testing.T) {
	engine := testEngine(RunConfig{}, &stubStrategy{id: strategy.BreakoutID, failEvery: true})

	result, err := engine.RunSymbol("NIFTY", flatSeries(80, 100), nil)

	require.NoError(t, err)
	assert.Empty(t, result.Trades)
}

func TestRunSymbol_StrategyPanicIsRecovered(t *testing.T) {
	engine := testEngine(RunConfig{}, &stubStrategy{id: strategy.BreakoutID, panicEvery: true})

	result, err := engine.RunSymbol("NIFTY", flatSeries(80, 100), nil)

	require.NoError(t, err)
	assert.Empty(t, result.Trades)
}

func TestRunSymbol_EntryCommissionDebitedOnEntryDay(t *testing.T) {
	stub := &stubStrategy{id: strategy.BreakoutID, fireAt: 60, signal: holdSignal()}
	engine := testEngine(RunConfig{CommissionRate: 0.001}, stub)

	data := flatSeries(200, 100)
	result, err := engine.RunSymbol("NIFTY", data, nil)

	require.NoError(t, err)
	entryDay := data[60].Timestamp.Format("2006-01-02")
	assert.Less(t, result.DailyPnL[entryDay], 0.0)
}

func TestRunSymbol_TrancheSizesSumToOriginal(t *testing.T) {
	sig := holdSignal()
	sig.StopPrice = 90
	stub := &stubStrategy{id: strategy.BreakoutID, fireAt: 60, signal: sig}
	engine := testEngine(RunConfig{
		Exit: ExitConfig{
			PartialLevels:  []PartialLevel{{Pct: 0.004, Fraction: 0.5}},
			MaxHoldingBars: 5,
		},
	}, stub)

	result, err := engine.RunSymbol("NIFTY", flatSeries(200, 100), nil)

	require.NoError(t, err)
	require.Len(t, result.Trades, 2)
	assert.Equal(t, ExitPartialTP, result.Trades[0].ExitReason)
	assert.Equal(t, ExitTimeExit, result.Trades[1].ExitReason)
	assert.Equal(t, result.Trades[0].PositionID, result.Trades[1].PositionID)

	total := result.Trades[0].Size + result.Trades[1].Size
	sized := risk.NewManager(risk.DefaultLimits(100000)).PositionSize(&strategy.Signal{
		StrategyID: strategy.BreakoutID, Direction: strategy.Long,
		Confidence: 60, EntryPrice: 100, StopPrice: 90, TargetPrice: 10000,
	})
	assert.Equal(t, sized, total)
}

func TestRunSymbol_HighVIXSeriesTriggersRegimeExit(t *testing.T) {
	sig := holdSignal()
	stub := &stubStrategy{id: strategy.BreakoutID, fireAt: 60, signal: sig}
	engine := testEngine(RunConfig{}, stub)

	data := flatSeries(100, 100)
	vix := make([]float64, len(data))
	for i := range vix {
		vix[i] = 14
		if i > 60 {
			vix[i] = 30 // flat series + high VIX classifies as event risk
		}
	}

	result, err := engine.RunSymbol("NIFTY", data, vix)

	require.NoError(t, err)
	require.Len(t, result.Trades, 1)
	assert.Equal(t, ExitRegimeExit, result.Trades[0].ExitReason)
}

func TestWorkerPool_MergesSymbolsAndSkipsBadSeries(t *testing.T) {
	newEngine := func() *Engine {
		stub := &stubStrategy{id: strategy.BreakoutID, fireAt: 60, signal: holdSignal()}
		return testEngine(RunConfig{}, stub)
	}
	pool := NewWorkerPool(2, newEngine, 100000, logger.Discard())

	bad := flatSeries(80, 100)
	bad[5].Low = bad[5].High + 1

	batch := pool.RunBatch([]SymbolJob{
		{Symbol: "NIFTY", Data: flatSeries(200, 100)},
		{Symbol: "BANKNIFTY", Data: flatSeries(200, 250)},
		{Symbol: "FINNIFTY", Data: bad},
	})

	assert.Equal(t, []string{"FINNIFTY"}, batch.Skipped)
	assert.Len(t, batch.Trades, 2)
	assert.Equal(t, 2, batch.Summary.TotalTrades)
	symbols := map[string]bool{}
	for _, tr := range batch.Trades {
		symbols[tr.Symbol] = true
	}
	assert.True(t, symbols["NIFTY"])
	assert.True(t, symbols["BANKNIFTY"])
}
