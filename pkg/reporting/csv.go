package reporting

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tradeforge/index-backtest/internal/backtest"
)

const tradeTimeFormat = "2006-01-02"

// DefaultCSVReporter writes the trade ledger as CSV.
type DefaultCSVReporter struct{}

// NewDefaultCSVReporter creates a new CSV reporter
func NewDefaultCSVReporter() *DefaultCSVReporter {
	return &DefaultCSVReporter{}
}

// WriteTradesCSV writes one row per closed tranche plus a trailing summary
// row. An .xlsx path delegates to the Excel writer.
func (r *DefaultCSVReporter) WriteTradesCSV(result *backtest.BatchResult, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return WriteTradesXLSX(result, path)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{
		"Position_ID",
		"Symbol",
		"Strategy",
		"Direction",
		"Entry_Time",
		"Exit_Time",
		"Entry_Price",
		"Exit_Price",
		"Size",
		"Exit_Reason",
		"Gross_PnL",
		"Costs",
		"Net_PnL",
		"Holding_Bars",
		"Win_Loss",
	}); err != nil {
		return err
	}

	for _, t := range result.Trades {
		winLoss := "W"
		if t.NetPnL < 0 {
			winLoss = "L"
		}

		row := []string{
			t.PositionID,
			t.Symbol,
			t.StrategyID,
			t.Direction.String(),
			t.EntryTime.Format(tradeTimeFormat),
			t.ExitTime.Format(tradeTimeFormat),
			fmt.Sprintf("%.2f", t.EntryPrice),
			fmt.Sprintf("%.2f", t.ExitPrice),
			strconv.Itoa(t.Size),
			string(t.ExitReason),
			fmt.Sprintf("%.2f", t.GrossPnL),
			fmt.Sprintf("%.2f", t.Costs),
			fmt.Sprintf("%.2f", t.NetPnL),
			strconv.Itoa(t.HoldingBars),
			winLoss,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	summary := fmt.Sprintf("SUMMARY: total_pnl=$%.2f; win_rate=%.1f%%; profit_factor=%s; total_trades=%d",
		result.Summary.TotalPnL, result.Summary.WinRate*100,
		formatRatio(result.Summary.ProfitFactor), result.Summary.TotalTrades)

	summaryRow := make([]string, 15)
	summaryRow[14] = summary
	return w.Write(summaryRow)
}

// Package-level convenience function
func WriteTradesCSV(result *backtest.BatchResult, path string) error {
	reporter := NewDefaultCSVReporter()
	return reporter.WriteTradesCSV(result, path)
}
