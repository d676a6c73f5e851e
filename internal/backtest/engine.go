// Package backtest walks historical bars through the strategy, risk and exit
// layers and reduces the booked trades into performance metrics. Each symbol
// simulates independently and deterministically; nothing here touches I/O.
package backtest

import (
	"fmt"

	"github.com/tradeforge/index-backtest/internal/indicators"
	"github.com/tradeforge/index-backtest/internal/logger"
	"github.com/tradeforge/index-backtest/internal/monitoring"
	"github.com/tradeforge/index-backtest/internal/regime"
	"github.com/tradeforge/index-backtest/internal/risk"
	"github.com/tradeforge/index-backtest/internal/strategy"
	"github.com/tradeforge/index-backtest/pkg/types"
)

const (
	defaultWarmupBars  = 50
	defaultVIXFallback = 15.0
	atrPeriod          = 14
)

// RunConfig holds the simulation parameters shared across symbols.
type RunConfig struct {
	InitialCapital   float64
	CommissionRate   float64
	SlippageRate     float64
	WarmupBars       int
	VIXFallback      float64
	RegimeThresholds regime.Thresholds
	Exit             ExitConfig
}

// Engine runs the bar loop for one symbol at a time.
type Engine struct {
	cfg        RunConfig
	strategies []strategy.Strategy
	riskMgr    *risk.Manager
	exits      *ExitEngine
	log        *logger.Logger
}

// SymbolResult is the per-symbol output: booked trades plus realized P&L by
// calendar date.
type SymbolResult struct {
	Symbol   string
	Trades   []Trade
	DailyPnL map[string]float64
}

// NewEngine creates a backtest engine. Zero-valued warm-up, VIX fallback and
// regime thresholds take their defaults; the exit engine inherits the run's
// slippage rate.
func NewEngine(cfg RunConfig, strategies []strategy.Strategy, riskMgr *risk.Manager, log *logger.Logger) *Engine {
	if cfg.WarmupBars <= 0 {
		cfg.WarmupBars = defaultWarmupBars
	}
	if cfg.VIXFallback <= 0 {
		cfg.VIXFallback = defaultVIXFallback
	}
	if cfg.RegimeThresholds == (regime.Thresholds{}) {
		cfg.RegimeThresholds = regime.DefaultThresholds()
	}
	if cfg.Exit.SlippageRate <= 0 {
		cfg.Exit.SlippageRate = cfg.SlippageRate
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Engine{
		cfg:        cfg,
		strategies: strategies,
		riskMgr:    riskMgr,
		exits:      NewExitEngine(cfg.Exit),
		log:        log,
	}
}

// RunSymbol simulates one symbol's bar series. A series shorter than the
// warm-up window completes with zero trades; a malformed series returns a
// data error so the batch can skip the symbol.
func (e *Engine) RunSymbol(symbol string, data []types.OHLCV, vix []float64) (*SymbolResult, error) {
	result := &SymbolResult{Symbol: symbol, DailyPnL: make(map[string]float64)}

	if err := validateSeries(data); err != nil {
		return nil, NewDataError("engine", "RunSymbol", fmt.Sprintf("bad series for %s", symbol), err)
	}
	if len(data) <= e.cfg.WarmupBars {
		e.log.Warn("%s: %d bars below warm-up %d, no trades", symbol, len(data), e.cfg.WarmupBars)
		return result, nil
	}

	atr := indicators.ATR(data, atrPeriod)
	var open []*Position

	for i := e.cfg.WarmupBars; i < len(data); i++ {
		bar := data[i]
		window := data[:i+1]
		day := bar.Timestamp.Format("2006-01-02")

		vixVal := e.cfg.VIXFallback
		if i < len(vix) && vix[i] > 0 {
			vixVal = vix[i]
		}
		ctx := regime.Context{
			Label:                regime.Classify(window, vixVal, 0, e.cfg.RegimeThresholds),
			VIX:                  vixVal,
			VolatilityPercentile: regime.VolatilityPercentile(window),
		}

		// Exits run before entries so a freed slot can be reused same bar.
		open = e.processExits(result, open, bar, i, atr[i], ctx)
		open = e.processEntries(result, open, symbol, window, ctx, i, day)
	}

	e.forceCloseAll(result, open, data)
	return result, nil
}

// processExits evaluates every open position and books the resulting trades.
// It returns the still-open positions.
func (e *Engine) processExits(result *SymbolResult, open []*Position, bar types.OHLCV, barIndex int, atr float64, ctx regime.Context) []*Position {
	kept := open[:0]
	for _, pos := range open {
		for _, ev := range e.exits.Evaluate(pos, bar, barIndex, atr, ctx) {
			result.Trades = append(result.Trades, e.bookTrade(result, pos, ev, bar, barIndex))
		}
		if !pos.Closed() {
			kept = append(kept, pos)
		}
	}
	return kept
}

// processEntries routes strategies by regime, validates and risk-gates their
// signals and opens the accepted ones.
func (e *Engine) processEntries(result *SymbolResult, open []*Position, symbol string, window []types.OHLCV, ctx regime.Context, barIndex int, day string) []*Position {
	for _, s := range e.strategies {
		if !suitedFor(s, ctx.Label) {
			continue
		}

		sig, err := e.generate(s, symbol, window, ctx)
		if err != nil {
			e.log.Error("%s", NewStrategyError(s.ID(), "Generate", err))
			monitoring.RecordStrategyError(s.ID())
			continue
		}
		if sig == nil {
			continue
		}
		if err := sig.Validate(); err != nil {
			e.log.Warn("%s bar %d: rejected signal: %v", symbol, barIndex, err)
			continue
		}

		state := e.portfolioState(open, result.DailyPnL[day])
		if err := e.riskMgr.Approve(sig, state); err != nil {
			e.log.Info("%s bar %d: %s vetoed: %v", symbol, barIndex, s.ID(), err)
			continue
		}
		size := e.riskMgr.PositionSize(sig)
		if size <= 0 {
			continue
		}

		fill := sig.EntryPrice * (1 + sig.Direction.Sign()*e.cfg.SlippageRate)
		pos := NewPosition(sig, size, fill, barIndex)

		// Entry commission lands on the entry day even if the trade closes later.
		result.DailyPnL[day] -= fill * float64(size) * e.cfg.CommissionRate
		open = append(open, pos)
		e.log.Trade("%s %s %s %d @ %.2f stop %.2f target %.2f (%s)",
			symbol, sig.Direction, s.ID(), size, fill, sig.StopPrice, sig.TargetPrice, sig.Reason)
	}
	return open
}

// generate calls the strategy with panic recovery; one broken strategy must
// not stop the bar loop.
func (e *Engine) generate(s strategy.Strategy, symbol string, window []types.OHLCV, ctx regime.Context) (sig *strategy.Signal, err error) {
	defer func() {
		if r := recover(); r != nil {
			sig = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.Generate(symbol, window, ctx)
}

func (e *Engine) bookTrade(result *SymbolResult, pos *Position, ev ExitEvent, bar types.OHLCV, barIndex int) Trade {
	sign := pos.Direction.Sign()
	gross := (ev.Price - pos.EntryPrice) * float64(ev.Size) * sign
	costs := ev.Price * float64(ev.Size) * e.cfg.CommissionRate
	net := gross - costs

	result.DailyPnL[bar.Timestamp.Format("2006-01-02")] += net
	e.riskMgr.RecordOutcome(pos.StrategyID, (ev.Price-pos.EntryPrice)*sign/pos.EntryPrice)
	monitoring.RecordTrade(pos.Symbol, pos.StrategyID, string(ev.Reason))
	e.log.Trade("%s exit %s %d @ %.2f (%s) net %.2f", pos.Symbol, pos.StrategyID, ev.Size, ev.Price, ev.Reason, net)

	return Trade{
		PositionID:  pos.ID,
		Symbol:      pos.Symbol,
		StrategyID:  pos.StrategyID,
		Direction:   pos.Direction,
		EntryTime:   pos.EntryTime,
		EntryPrice:  pos.EntryPrice,
		ExitTime:    bar.Timestamp,
		ExitPrice:   ev.Price,
		Size:        ev.Size,
		ExitReason:  ev.Reason,
		GrossPnL:    gross,
		Costs:       costs,
		NetPnL:      net,
		HoldingBars: barIndex - pos.EntryIndex,
	}
}

func (e *Engine) forceCloseAll(result *SymbolResult, open []*Position, data []types.OHLCV) {
	if len(open) == 0 || len(data) == 0 {
		return
	}
	last := data[len(data)-1]
	lastIndex := len(data) - 1
	for _, pos := range open {
		if ev := e.exits.ForceClose(pos, last.Close); ev != nil {
			result.Trades = append(result.Trades, e.bookTrade(result, pos, *ev, last, lastIndex))
		}
	}
}

func (e *Engine) portfolioState(open []*Position, dailyPnL float64) risk.PortfolioState {
	notional := 0.0
	for _, pos := range open {
		notional += pos.Direction.Sign() * pos.EntryPrice * float64(pos.RemainingSize)
	}
	return risk.PortfolioState{
		OpenPositions: len(open),
		SymbolCount:   len(open),
		DailyPnL:      dailyPnL,
		NetNotional:   notional,
	}
}

func suitedFor(s strategy.Strategy, label regime.Label) bool {
	for _, l := range s.Regimes() {
		if l == label {
			return true
		}
	}
	return false
}

// validateSeries enforces the loader invariants a second time at the engine
// boundary: strictly ascending unique timestamps and coherent bar prices.
func validateSeries(data []types.OHLCV) error {
	for i, bar := range data {
		if bar.Low > bar.Open || bar.Low > bar.Close || bar.High < bar.Open || bar.High < bar.Close {
			return fmt.Errorf("bar %d: low/high do not bracket open/close", i)
		}
		if i > 0 && !bar.Timestamp.After(data[i-1].Timestamp) {
			return fmt.Errorf("bar %d: timestamp not strictly ascending", i)
		}
	}
	return nil
}
