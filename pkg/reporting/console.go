package reporting

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/tradeforge/index-backtest/internal/backtest"
)

// DefaultConsoleReporter renders the run summary and per-strategy breakdown
// as terminal tables.
type DefaultConsoleReporter struct {
	out io.Writer
}

// NewDefaultConsoleReporter creates a console reporter writing to stdout.
func NewDefaultConsoleReporter() *DefaultConsoleReporter {
	return &DefaultConsoleReporter{out: os.Stdout}
}

// NewConsoleReporter creates a console reporter writing to w.
func NewConsoleReporter(w io.Writer) *DefaultConsoleReporter {
	return &DefaultConsoleReporter{out: w}
}

// OutputResults prints the aggregate summary, the per-strategy breakdown and
// any skipped symbols.
func (r *DefaultConsoleReporter) OutputResults(result *backtest.BatchResult) {
	r.renderSummary(result.Summary)
	if len(result.Summary.PerStrategy) > 0 {
		r.renderStrategies(result.Summary.PerStrategy)
	}
	if len(result.Skipped) > 0 {
		fmt.Fprintf(r.out, "⚠️  Skipped symbols: %v\n", result.Skipped)
	}
}

func (r *DefaultConsoleReporter) renderSummary(s backtest.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle("BACKTEST RESULTS")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"🔄 Total Trades", fmt.Sprintf("%d", s.TotalTrades)},
		{"✅ Win Rate", fmt.Sprintf("%.1f%%", s.WinRate*100)},
		{"💰 Total PnL", fmt.Sprintf("$%.2f", s.TotalPnL)},
		{"📈 Gross Profit", fmt.Sprintf("$%.2f", s.GrossProfit)},
		{"📉 Gross Loss", fmt.Sprintf("$%.2f", s.GrossLoss)},
		{"💹 Profit Factor", formatRatio(s.ProfitFactor)},
	})

	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"📈 Annualized Return", fmt.Sprintf("%.2f%%", s.AnnualizedReturn*100)},
		{"📊 Sharpe Ratio", fmt.Sprintf("%.2f", s.SharpeRatio)},
		{"📊 Calmar Ratio", fmt.Sprintf("%.2f", s.CalmarRatio)},
		{"📉 Max Drawdown", fmt.Sprintf("%.2f%%", s.MaxDrawdown*100)},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 20, Align: text.AlignLeft},
		{Number: 2, WidthMin: 14, Align: text.AlignRight},
	})
	t.Render()
}

func (r *DefaultConsoleReporter) renderStrategies(byID map[string]backtest.StrategySummary) {
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle("PER-STRATEGY BREAKDOWN")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Strategy", "Trades", "Win Rate", "Net PnL", "Profit Factor", "Sharpe"})

	for _, id := range ids {
		sub := byID[id]
		t.AppendRow(table.Row{
			id,
			sub.TotalTrades,
			fmt.Sprintf("%.1f%%", sub.WinRate*100),
			fmt.Sprintf("$%.2f", sub.TotalPnL),
			formatRatio(sub.ProfitFactor),
			fmt.Sprintf("%.2f", sub.SharpeRatio),
		})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	t.Render()
}

// formatRatio keeps an infinite profit factor readable.
func formatRatio(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.2f", v)
}
