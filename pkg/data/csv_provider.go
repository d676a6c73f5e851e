package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/tradeforge/index-backtest/pkg/types"
)

// Expected CSV layout: date,open,high,low,close,volume with a header row.
const (
	csvDateFormat = "2006-01-02"
	csvMinColumns = 6
)

// CSVProvider loads daily bars from <root>/<symbol>.csv. A missing file
// falls back to deterministic synthetic data so exploratory runs work
// without a data download.
type CSVProvider struct {
	root string
}

// NewCSVProvider creates a provider rooted at the given directory.
func NewCSVProvider(root string) *CSVProvider {
	return &CSVProvider{root: root}
}

// Load reads and validates the symbol's full series.
func (p *CSVProvider) Load(symbol string) ([]types.OHLCV, error) {
	path := filepath.Join(p.root, symbol+".csv")
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Sample(symbol, 252), nil
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	bars, err := parseBars(file)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := ValidateSeries(bars); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}
	return bars, nil
}

func parseBars(r io.Reader) ([]types.OHLCV, error) {
	reader := csv.NewReader(r)
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var bars []types.OHLCV
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		line++
		if len(record) < csvMinColumns {
			return nil, fmt.Errorf("line %d: expected %d columns, got %d", line, csvMinColumns, len(record))
		}

		timestamp, err := time.Parse(csvDateFormat, record[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad date %q: %w", line, record[0], err)
		}
		fields := make([]float64, 5)
		for i := 1; i <= 5; i++ {
			v, err := strconv.ParseFloat(record[i], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %d: %w", line, i, err)
			}
			fields[i-1] = v
		}

		bars = append(bars, types.OHLCV{
			Timestamp: timestamp,
			Open:      fields[0],
			High:      fields[1],
			Low:       fields[2],
			Close:     fields[3],
			Volume:    fields[4],
		})
	}
	return bars, nil
}

// LoadVIX reads a date,close volatility-index CSV and aligns it to the bar
// series by calendar date. Dates absent from the file read 0 so the engine
// applies its fallback.
func LoadVIX(path string, bars []types.OHLCV) ([]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	byDate := make(map[string]float64)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) < 2 {
			continue
		}
		v, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, fmt.Errorf("bad vix value %q: %w", record[1], err)
		}
		byDate[record[0]] = v
	}

	aligned := make([]float64, len(bars))
	for i, bar := range bars {
		aligned[i] = byDate[bar.Timestamp.Format(csvDateFormat)]
	}
	return aligned, nil
}
