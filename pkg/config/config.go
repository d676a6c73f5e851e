// Package config loads and validates the backtest configuration bag from
// YAML. Validation fails fast and names the offending key so a bad config
// never reaches the simulation.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default values applied for keys the file leaves unset.
const (
	DefaultWarmupBars        = 50
	DefaultMaxOpenPositions  = 5
	DefaultMaxPerSymbol      = 3
	DefaultMaxDailyLossPct   = 0.03
	DefaultMaxPortfolioDelta = 2.0
	DefaultKellyFractionCap  = 0.25
	DefaultVIXHigh           = 20.0
	DefaultVIXLow            = 12.0
	DefaultVIXFallback       = 15.0
)

// Config is the full configuration bag for one run.
type Config struct {
	AccountCapital  float64 `yaml:"account_capital"`
	MaxRiskPerTrade float64 `yaml:"max_risk_per_trade"`
	CommissionRate  float64 `yaml:"commission_rate"`
	SlippageRate    float64 `yaml:"slippage_rate"`
	WarmupBars      int     `yaml:"warmup_bars"`

	Symbols []string `yaml:"symbols"`

	Data       DataConfig                `yaml:"data"`
	Exit       ExitConfig                `yaml:"exit"`
	Risk       RiskConfig                `yaml:"risk"`
	Regime     RegimeConfig              `yaml:"regime"`
	Strategies map[string]StrategyConfig `yaml:"strategies"`
}

// DataConfig points the loader at the bar and VIX files.
type DataConfig struct {
	Root    string `yaml:"root"`     // directory holding <symbol>.csv
	VIXFile string `yaml:"vix_file"` // optional date-aligned volatility index CSV
	Period  string `yaml:"period"`   // optional trailing window, e.g. "180d"
}

// ExitConfig mirrors the exit-engine parameters.
type ExitConfig struct {
	TrailingPct              float64        `yaml:"trailing_pct"`
	TrailingATRMult          float64        `yaml:"trailing_atr_mult"`
	PartialLevels            []PartialLevel `yaml:"partial_levels"`
	MaxHoldingBars           int            `yaml:"max_holding_bars"`
	VolatilityExitPercentile float64        `yaml:"volatility_exit_percentile"`
}

// PartialLevel is one profit level with the fraction of original size to book.
type PartialLevel struct {
	Pct      float64 `yaml:"pct"`
	Fraction float64 `yaml:"fraction"`
}

// RiskConfig holds the portfolio gates and Kelly cap.
type RiskConfig struct {
	MaxOpenPositions  int     `yaml:"max_open_positions"`
	MaxPerSymbol      int     `yaml:"max_per_symbol"`
	MaxDailyLossPct   float64 `yaml:"max_daily_loss_pct"`
	MaxPortfolioDelta float64 `yaml:"max_portfolio_delta"`
	KellyFractionCap  float64 `yaml:"kelly_fraction_cap"`
}

// RegimeConfig holds the volatility-index thresholds.
type RegimeConfig struct {
	VIXHigh     float64 `yaml:"vix_high"`
	VIXLow      float64 `yaml:"vix_low"`
	VIXFallback float64 `yaml:"vix_fallback"`
}

// StrategyConfig enables one strategy and carries its flat parameter bag.
type StrategyConfig struct {
	Enabled bool               `yaml:"enabled"`
	Params  map[string]float64 `yaml:"params"`
}

// Load reads, defaults and validates a config file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.WarmupBars == 0 {
		c.WarmupBars = DefaultWarmupBars
	}
	if c.Risk.MaxOpenPositions == 0 {
		c.Risk.MaxOpenPositions = DefaultMaxOpenPositions
	}
	if c.Risk.MaxPerSymbol == 0 {
		c.Risk.MaxPerSymbol = DefaultMaxPerSymbol
	}
	if c.Risk.MaxDailyLossPct == 0 {
		c.Risk.MaxDailyLossPct = DefaultMaxDailyLossPct
	}
	if c.Risk.MaxPortfolioDelta == 0 {
		c.Risk.MaxPortfolioDelta = DefaultMaxPortfolioDelta
	}
	if c.Risk.KellyFractionCap == 0 {
		c.Risk.KellyFractionCap = DefaultKellyFractionCap
	}
	if c.Regime.VIXHigh == 0 {
		c.Regime.VIXHigh = DefaultVIXHigh
	}
	if c.Regime.VIXLow == 0 {
		c.Regime.VIXLow = DefaultVIXLow
	}
	if c.Regime.VIXFallback == 0 {
		c.Regime.VIXFallback = DefaultVIXFallback
	}
}

// Validate checks every required key and value range, naming the key in the
// error message.
func (c *Config) Validate() error {
	if c.AccountCapital <= 0 {
		return fmt.Errorf("account_capital must be positive, got %.2f", c.AccountCapital)
	}
	if c.MaxRiskPerTrade <= 0 || c.MaxRiskPerTrade >= 1 {
		return fmt.Errorf("max_risk_per_trade must be in (0,1), got %.4f", c.MaxRiskPerTrade)
	}
	if c.CommissionRate < 0 {
		return fmt.Errorf("commission_rate must not be negative, got %.4f", c.CommissionRate)
	}
	if c.SlippageRate < 0 {
		return fmt.Errorf("slippage_rate must not be negative, got %.4f", c.SlippageRate)
	}
	if c.WarmupBars < 1 {
		return fmt.Errorf("warmup_bars must be at least 1, got %d", c.WarmupBars)
	}
	if len(c.Symbols) == 0 {
		return fmt.Errorf("symbols must list at least one instrument")
	}
	if c.Data.Root == "" {
		return fmt.Errorf("data.root must point at the bar CSV directory")
	}
	if c.Regime.VIXHigh <= c.Regime.VIXLow {
		return fmt.Errorf("regime.vix_high (%.1f) must exceed regime.vix_low (%.1f)", c.Regime.VIXHigh, c.Regime.VIXLow)
	}

	totalFraction := 0.0
	for i, lvl := range c.Exit.PartialLevels {
		if lvl.Pct <= 0 {
			return fmt.Errorf("exit.partial_levels[%d].pct must be positive, got %.4f", i, lvl.Pct)
		}
		if lvl.Fraction <= 0 || lvl.Fraction > 1 {
			return fmt.Errorf("exit.partial_levels[%d].fraction must be in (0,1], got %.4f", i, lvl.Fraction)
		}
		totalFraction += lvl.Fraction
	}
	if totalFraction > 1 {
		return fmt.Errorf("exit.partial_levels fractions sum to %.4f, must not exceed 1", totalFraction)
	}

	if c.Risk.KellyFractionCap <= 0 || c.Risk.KellyFractionCap > 1 {
		return fmt.Errorf("risk.kelly_fraction_cap must be in (0,1], got %.4f", c.Risk.KellyFractionCap)
	}
	return nil
}

// EnabledStrategies returns the identifiers of enabled strategy blocks.
func (c *Config) EnabledStrategies() []string {
	var ids []string
	for id, sc := range c.Strategies {
		if sc.Enabled {
			ids = append(ids, id)
		}
	}
	return ids
}
