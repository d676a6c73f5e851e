package backtest

import (
	"math"
	"sort"
)

const tradingDaysPerYear = 252

// Summary is the aggregate view over a completed trade list. It is derived
// and recomputable at any time; the trade list stays the source of truth.
type Summary struct {
	TotalTrades      int
	WinRate          float64
	TotalPnL         float64
	GrossProfit      float64
	GrossLoss        float64 // positive magnitude
	ProfitFactor     float64
	AnnualizedReturn float64
	SharpeRatio      float64
	CalmarRatio      float64
	MaxDrawdown      float64 // <= 0, fraction of peak equity
	PerStrategy      map[string]StrategySummary
}

// StrategySummary is the per-strategy breakdown. Its Sharpe comes from
// trade-level returns since daily P&L is not tracked per strategy.
type StrategySummary struct {
	TotalTrades  int
	WinRate      float64
	TotalPnL     float64
	GrossProfit  float64
	GrossLoss    float64
	ProfitFactor float64
	SharpeRatio  float64
}

// Aggregate reduces trades and the daily P&L series into a summary. It is a
// pure function: calling it twice over the same input yields identical
// values. Zero trades produce a zero-valued summary with the same schema, and
// every ratio guards its denominator with the documented sentinel instead of
// NaN.
func Aggregate(trades []Trade, dailyPnL map[string]float64, capital float64) Summary {
	s := Summary{PerStrategy: make(map[string]StrategySummary)}
	s.TotalTrades = len(trades)

	wins := 0
	for _, t := range trades {
		s.TotalPnL += t.NetPnL
		if t.NetPnL > 0 {
			wins++
			s.GrossProfit += t.NetPnL
		} else {
			s.GrossLoss += -t.NetPnL
		}
	}
	if s.TotalTrades > 0 {
		s.WinRate = float64(wins) / float64(s.TotalTrades)
	}
	s.ProfitFactor = profitFactor(s.TotalTrades, s.GrossProfit, s.GrossLoss)

	equity, returns := equityCurve(dailyPnL, capital)
	s.AnnualizedReturn = annualizedReturn(equity, len(returns))
	s.SharpeRatio = sharpe(s.AnnualizedReturn, returns)
	s.MaxDrawdown = maxDrawdown(equity)
	if s.MaxDrawdown != 0 {
		s.CalmarRatio = s.AnnualizedReturn / math.Abs(s.MaxDrawdown)
	}

	for id, sub := range splitByStrategy(trades) {
		s.PerStrategy[id] = sub
	}
	return s
}

func profitFactor(trades int, grossProfit, grossLoss float64) float64 {
	switch {
	case trades == 0:
		return 0
	case grossLoss == 0 && grossProfit > 0:
		return math.Inf(1)
	case grossLoss == 0:
		return 0
	default:
		return grossProfit / grossLoss
	}
}

// equityCurve walks the daily P&L in date order and returns the equity series
// (starting at capital) alongside the daily return series.
func equityCurve(dailyPnL map[string]float64, capital float64) ([]float64, []float64) {
	days := make([]string, 0, len(dailyPnL))
	for d := range dailyPnL {
		days = append(days, d)
	}
	sort.Strings(days)

	equity := make([]float64, 0, len(days)+1)
	equity = append(equity, capital)
	returns := make([]float64, 0, len(days))
	for _, d := range days {
		prev := equity[len(equity)-1]
		next := prev + dailyPnL[d]
		equity = append(equity, next)
		if prev > 0 {
			returns = append(returns, dailyPnL[d]/prev)
		} else {
			returns = append(returns, 0)
		}
	}
	return equity, returns
}

func annualizedReturn(equity []float64, days int) float64 {
	if days == 0 || len(equity) < 2 {
		return 0
	}
	start, end := equity[0], equity[len(equity)-1]
	if start <= 0 || end <= 0 {
		return 0
	}
	return math.Pow(end/start, tradingDaysPerYear/float64(days)) - 1
}

func sharpe(annualized float64, returns []float64) float64 {
	vol := stddev(returns)
	if vol == 0 {
		return 0
	}
	return annualized / (vol * math.Sqrt(tradingDaysPerYear))
}

func maxDrawdown(equity []float64) float64 {
	worst := 0.0
	peak := math.Inf(-1)
	for _, eq := range equity {
		if eq > peak {
			peak = eq
		}
		if peak > 0 {
			if dd := (eq - peak) / peak; dd < worst {
				worst = dd
			}
		}
	}
	return worst
}

func splitByStrategy(trades []Trade) map[string]StrategySummary {
	byID := make(map[string][]Trade)
	for _, t := range trades {
		byID[t.StrategyID] = append(byID[t.StrategyID], t)
	}

	out := make(map[string]StrategySummary, len(byID))
	for id, list := range byID {
		sub := StrategySummary{TotalTrades: len(list)}
		wins := 0
		returns := make([]float64, 0, len(list))
		for _, t := range list {
			sub.TotalPnL += t.NetPnL
			if t.NetPnL > 0 {
				wins++
				sub.GrossProfit += t.NetPnL
			} else {
				sub.GrossLoss += -t.NetPnL
			}
			if notional := t.EntryPrice * float64(t.Size); notional > 0 {
				returns = append(returns, t.NetPnL/notional)
			}
		}
		sub.WinRate = float64(wins) / float64(len(list))
		sub.ProfitFactor = profitFactor(len(list), sub.GrossProfit, sub.GrossLoss)
		if vol := stddev(returns); vol > 0 {
			sub.SharpeRatio = meanOf(returns) / vol
		}
		out[id] = sub
	}
	return out
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := meanOf(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}
