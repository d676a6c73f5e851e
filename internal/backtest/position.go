package backtest

import (
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/tradeforge/index-backtest/internal/strategy"
)

// ExitReason tags the rule that closed a tranche.
type ExitReason string

const (
	ExitStopLoss   ExitReason = "STOP_LOSS"
	ExitTarget     ExitReason = "TARGET"
	ExitTrailStop  ExitReason = "TRAIL_STOP"
	ExitPartialTP  ExitReason = "PARTIAL_TP"
	ExitTimeExit   ExitReason = "TIME_EXIT"
	ExitRegimeExit ExitReason = "REGIME_EXIT"
	ExitEndOfData  ExitReason = "END_OF_DATA"
)

// Position is one simulated entry with its evolving exit state. The exit
// engine mutates the stop, the trail extreme and the consumed partial levels
// bar by bar until RemainingSize reaches zero.
type Position struct {
	ID            string
	Symbol        string
	StrategyID    string
	Direction     strategy.Direction
	EntryTime     time.Time
	EntryIndex    int
	EntryPrice    float64
	OriginalSize  int
	RemainingSize int

	StopPrice   float64 // live stop; trailing only ever tightens it
	TargetPrice float64

	initialStop    float64
	trailExtreme   float64 // best close since entry
	consumedLevels map[int]bool
}

// NewPosition opens a position for an accepted signal at the slippage-adjusted
// fill price.
func NewPosition(sig *strategy.Signal, size int, fillPrice float64, entryIndex int) *Position {
	return &Position{
		ID:             ulid.Make().String(),
		Symbol:         sig.Symbol,
		StrategyID:     sig.StrategyID,
		Direction:      sig.Direction,
		EntryTime:      sig.Time,
		EntryIndex:     entryIndex,
		EntryPrice:     fillPrice,
		OriginalSize:   size,
		RemainingSize:  size,
		StopPrice:      sig.StopPrice,
		TargetPrice:    sig.TargetPrice,
		initialStop:    sig.StopPrice,
		trailExtreme:   fillPrice,
		consumedLevels: make(map[int]bool),
	}
}

// Closed reports whether nothing remains to exit.
func (p *Position) Closed() bool { return p.RemainingSize <= 0 }

// stopRatcheted reports whether trailing has tightened the stop past its
// initial level; a cross of a ratcheted stop books as TRAIL_STOP.
func (p *Position) stopRatcheted() bool { return p.StopPrice != p.initialStop }

// Trade is the immutable record of one closed tranche. A position with
// partial exits yields several trades; their sizes sum to OriginalSize.
type Trade struct {
	PositionID  string
	Symbol      string
	StrategyID  string
	Direction   strategy.Direction
	EntryTime   time.Time
	EntryPrice  float64
	ExitTime    time.Time
	ExitPrice   float64
	Size        int
	ExitReason  ExitReason
	GrossPnL    float64
	Costs       float64
	NetPnL      float64
	HoldingBars int
}
