package reporting

import (
	"github.com/tradeforge/index-backtest/internal/backtest"
)

// ConsoleReporter defines interface for console output
type ConsoleReporter interface {
	OutputResults(result *backtest.BatchResult)
}

// FileReporter defines interface for file output
type FileReporter interface {
	WriteTradesCSV(result *backtest.BatchResult, path string) error
	WriteTradesXLSX(result *backtest.BatchResult, path string) error
}

// Reporter combines all reporting interfaces
type Reporter interface {
	ConsoleReporter
	FileReporter
}

// ExcelStyles holds Excel formatting styles
type ExcelStyles struct {
	HeaderStyle   int
	CurrencyStyle int
	PercentStyle  int
	WinStyle      int
	LossStyle     int
	SummaryStyle  int
}
