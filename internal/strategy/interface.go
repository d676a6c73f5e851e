// Package strategy defines the trade-signal contract and the concrete
// rule-based strategies that implement it. A strategy inspects a trailing
// price window plus the current regime context and either emits a Signal or
// nothing; "no setup" is an ordinary nil return, never an error.
package strategy

import (
	"fmt"
	"time"

	"github.com/tradeforge/index-backtest/internal/regime"
	"github.com/tradeforge/index-backtest/pkg/types"
)

// Direction is the side of a trade signal.
type Direction int

const (
	Long Direction = iota
	Short
	Neutral
)

func (d Direction) String() string {
	switch d {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	case Neutral:
		return "NEUTRAL"
	default:
		return "UNKNOWN"
	}
}

// Sign returns the P&L multiplier for the direction.
func (d Direction) Sign() float64 {
	switch d {
	case Long:
		return 1
	case Short:
		return -1
	default:
		return 0
	}
}

// Signal is one candidate trade produced by a strategy at a given bar. It is
// consumed immediately by the risk manager and runner; nothing persists it.
// All strategies share this one structure.
type Signal struct {
	Time        time.Time
	Symbol      string
	StrategyID  string
	Direction   Direction
	Confidence  float64 // 0..100
	EntryPrice  float64
	StopPrice   float64
	TargetPrice float64
	SizeHint    int
	Reason      string
}

// Validate checks the signal at the strategy/runner boundary so malformed
// signals are rejected before they can open a position.
func (s *Signal) Validate() error {
	if s.StrategyID == "" {
		return fmt.Errorf("signal missing strategy id")
	}
	if s.EntryPrice <= 0 {
		return fmt.Errorf("signal %s: entry price %.4f must be positive", s.StrategyID, s.EntryPrice)
	}
	if s.Confidence < 0 || s.Confidence > 100 {
		return fmt.Errorf("signal %s: confidence %.1f outside [0,100]", s.StrategyID, s.Confidence)
	}
	switch s.Direction {
	case Long:
		if s.StopPrice >= s.EntryPrice {
			return fmt.Errorf("signal %s: long stop %.4f not below entry %.4f", s.StrategyID, s.StopPrice, s.EntryPrice)
		}
		if s.TargetPrice <= s.EntryPrice {
			return fmt.Errorf("signal %s: long target %.4f not above entry %.4f", s.StrategyID, s.TargetPrice, s.EntryPrice)
		}
	case Short:
		if s.StopPrice <= s.EntryPrice {
			return fmt.Errorf("signal %s: short stop %.4f not above entry %.4f", s.StrategyID, s.StopPrice, s.EntryPrice)
		}
		if s.TargetPrice >= s.EntryPrice {
			return fmt.Errorf("signal %s: short target %.4f not below entry %.4f", s.StrategyID, s.TargetPrice, s.EntryPrice)
		}
	default:
		return fmt.Errorf("signal %s: direction %s cannot be simulated", s.StrategyID, s.Direction)
	}
	return nil
}

// Strategy is the contract every trading strategy implements. Generate takes
// the instrument symbol explicitly; strategies never read ambient state.
type Strategy interface {
	// ID returns the stable identifier used in config, routing and reports.
	ID() string

	// Regimes lists the market regimes this strategy is suited for. The
	// router uses it to pick candidates; it is not enforced internally.
	Regimes() []regime.Label

	// Generate inspects the trailing window and regime context and returns a
	// signal, or nil when no setup is present.
	Generate(symbol string, window []types.OHLCV, ctx regime.Context) (*Signal, error)
}

const baseConfidence = 50.0

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// volumeRatio compares the latest bar's volume to its trailing average.
// Index series without real volume report a neutral 1.0 so volume gates
// pass through rather than vetoing every signal.
func volumeRatio(data []types.OHLCV, period int) float64 {
	if len(data) < period+1 {
		return 1.0
	}
	sum := 0.0
	for _, d := range data[len(data)-period-1 : len(data)-1] {
		sum += d.Volume
	}
	avg := sum / float64(period)
	if avg <= 0 {
		return 1.0
	}
	return data[len(data)-1].Volume / avg
}
