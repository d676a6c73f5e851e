package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/tradeforge/index-backtest/internal/backtest"
)

// DefaultExcelReporter writes the run summary and trade ledger as a workbook.
type DefaultExcelReporter struct{}

// NewDefaultExcelReporter creates a new Excel reporter
func NewDefaultExcelReporter() *DefaultExcelReporter {
	return &DefaultExcelReporter{}
}

// WriteTradesXLSX writes a workbook with a Summary sheet and a Trades sheet.
func (r *DefaultExcelReporter) WriteTradesXLSX(result *backtest.BatchResult, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const summarySheet = "Summary"
	const tradesSheet = "Trades"

	fx.SetSheetName(fx.GetSheetName(0), summarySheet)
	fx.NewSheet(tradesSheet)

	styles, err := r.createExcelStyles(fx)
	if err != nil {
		return err
	}

	if err := r.writeSummarySheet(fx, summarySheet, result, styles); err != nil {
		return err
	}
	if err := r.writeTradesSheet(fx, tradesSheet, result, styles); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

func (r *DefaultExcelReporter) createExcelStyles(fx *excelize.File) (ExcelStyles, error) {
	var styles ExcelStyles
	var err error

	styles.HeaderStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:   true,
			Size:   11,
			Color:  "FFFFFF",
			Family: "Calibri",
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"2F4F4F"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return styles, err
	}

	styles.CurrencyStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt: 7,
		Alignment: &excelize.Alignment{
			Horizontal: "right",
		},
	})
	if err != nil {
		return styles, err
	}

	styles.PercentStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt: 10,
		Alignment: &excelize.Alignment{
			Horizontal: "right",
		},
	})
	if err != nil {
		return styles, err
	}

	styles.WinStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "006400"},
	})
	if err != nil {
		return styles, err
	}

	styles.LossStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "8B0000"},
	})
	if err != nil {
		return styles, err
	}

	styles.SummaryStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"F0F0F0"},
			Pattern: 1,
		},
	})
	return styles, err
}

func (r *DefaultExcelReporter) writeSummarySheet(fx *excelize.File, sheet string, result *backtest.BatchResult, styles ExcelStyles) error {
	s := result.Summary

	rows := []struct {
		label string
		value interface{}
		style int
	}{
		{"Total Trades", s.TotalTrades, 0},
		{"Win Rate", s.WinRate, styles.PercentStyle},
		{"Total PnL", s.TotalPnL, styles.CurrencyStyle},
		{"Gross Profit", s.GrossProfit, styles.CurrencyStyle},
		{"Gross Loss", s.GrossLoss, styles.CurrencyStyle},
		{"Profit Factor", formatRatio(s.ProfitFactor), 0},
		{"Annualized Return", s.AnnualizedReturn, styles.PercentStyle},
		{"Sharpe Ratio", s.SharpeRatio, 0},
		{"Calmar Ratio", s.CalmarRatio, 0},
		{"Max Drawdown", s.MaxDrawdown, styles.PercentStyle},
	}

	fx.SetCellValue(sheet, "A1", "Metric")
	fx.SetCellValue(sheet, "B1", "Value")
	fx.SetCellStyle(sheet, "A1", "B1", styles.HeaderStyle)

	for i, row := range rows {
		cellA, _ := excelize.CoordinatesToCellName(1, i+2)
		cellB, _ := excelize.CoordinatesToCellName(2, i+2)
		fx.SetCellValue(sheet, cellA, row.label)
		fx.SetCellValue(sheet, cellB, row.value)
		if row.style != 0 {
			fx.SetCellStyle(sheet, cellB, cellB, row.style)
		}
	}

	// Per-strategy block below the aggregate metrics.
	startRow := len(rows) + 4
	header := []string{"Strategy", "Trades", "Win Rate", "Net PnL", "Profit Factor", "Sharpe"}
	for col, h := range header {
		cell, _ := excelize.CoordinatesToCellName(col+1, startRow)
		fx.SetCellValue(sheet, cell, h)
		fx.SetCellStyle(sheet, cell, cell, styles.HeaderStyle)
	}

	ids := make([]string, 0, len(s.PerStrategy))
	for id := range s.PerStrategy {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for i, id := range ids {
		sub := s.PerStrategy[id]
		values := []interface{}{id, sub.TotalTrades, sub.WinRate, sub.TotalPnL, formatRatio(sub.ProfitFactor), sub.SharpeRatio}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, startRow+1+i)
			fx.SetCellValue(sheet, cell, v)
		}
	}

	fx.SetColWidth(sheet, "A", "A", 22)
	fx.SetColWidth(sheet, "B", "F", 14)
	return nil
}

func (r *DefaultExcelReporter) writeTradesSheet(fx *excelize.File, sheet string, result *backtest.BatchResult, styles ExcelStyles) error {
	header := []string{
		"Position ID", "Symbol", "Strategy", "Direction",
		"Entry Time", "Exit Time", "Entry Price", "Exit Price",
		"Size", "Exit Reason", "Gross PnL", "Costs", "Net PnL", "Holding Bars",
	}
	for col, h := range header {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		fx.SetCellValue(sheet, cell, h)
		fx.SetCellStyle(sheet, cell, cell, styles.HeaderStyle)
	}

	for i, t := range result.Trades {
		row := i + 2
		values := []interface{}{
			t.PositionID,
			t.Symbol,
			t.StrategyID,
			t.Direction.String(),
			t.EntryTime.Format(tradeTimeFormat),
			t.ExitTime.Format(tradeTimeFormat),
			t.EntryPrice,
			t.ExitPrice,
			t.Size,
			string(t.ExitReason),
			t.GrossPnL,
			t.Costs,
			t.NetPnL,
			t.HoldingBars,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			fx.SetCellValue(sheet, cell, v)
		}

		pnlCell, _ := excelize.CoordinatesToCellName(13, row)
		if t.NetPnL >= 0 {
			fx.SetCellStyle(sheet, pnlCell, pnlCell, styles.WinStyle)
		} else {
			fx.SetCellStyle(sheet, pnlCell, pnlCell, styles.LossStyle)
		}
	}

	fx.SetColWidth(sheet, "A", "A", 28)
	fx.SetColWidth(sheet, "B", "N", 13)
	return nil
}

// Package-level convenience function
func WriteTradesXLSX(result *backtest.BatchResult, path string) error {
	reporter := NewDefaultExcelReporter()
	return reporter.WriteTradesXLSX(result, path)
}
