package risk

// Limits holds the portfolio-level risk limits a manager enforces.
type Limits struct {
	AccountCapital    float64
	MaxRiskPerTrade   float64 // fraction of capital risked between entry and stop
	MaxOpenPositions  int
	MaxPerSymbol      int
	MaxDailyLossPct   float64 // fraction of capital; daily cutoff
	MaxPortfolioDelta float64 // |signed notional| / capital bound
	KellyFractionCap  float64
}

// DefaultLimits returns conservative limits suitable for index backtests.
func DefaultLimits(capital float64) Limits {
	return Limits{
		AccountCapital:    capital,
		MaxRiskPerTrade:   0.01,
		MaxOpenPositions:  5,
		MaxPerSymbol:      3,
		MaxDailyLossPct:   0.03,
		MaxPortfolioDelta: 2.0,
		KellyFractionCap:  0.25,
	}
}

// PortfolioState is the runner's snapshot of open exposure at decision time.
type PortfolioState struct {
	OpenPositions int
	SymbolCount   int     // open positions in the signal's symbol
	DailyPnL      float64 // realized P&L for the current calendar day
	NetNotional   float64 // signed sum of direction × entry × size
}

// outcomeStats tracks realized results per strategy for Kelly estimation.
type outcomeStats struct {
	wins    int
	losses  int
	winSum  float64 // sum of winning returns (fractions)
	lossSum float64 // sum of absolute losing returns
}
