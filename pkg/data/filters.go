package data

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tradeforge/index-backtest/pkg/types"
)

// FilterByPeriod trims the series to the trailing period, measured back from
// the latest bar.
func FilterByPeriod(data []types.OHLCV, period time.Duration) []types.OHLCV {
	if period <= 0 || len(data) == 0 {
		return data
	}

	cutoff := data[len(data)-1].Timestamp.Add(-period)
	for i, bar := range data {
		if !bar.Timestamp.Before(cutoff) {
			return data[i:]
		}
	}
	return data
}

// FilterByDateRange keeps bars within [start, end] inclusive.
func FilterByDateRange(data []types.OHLCV, start, end time.Time) []types.OHLCV {
	var filtered []types.OHLCV
	for _, bar := range data {
		if !bar.Timestamp.Before(start) && !bar.Timestamp.After(end) {
			filtered = append(filtered, bar)
		}
	}
	return filtered
}

// ParseTrailingPeriod converts flag values like "180d", "26w" or "12m" to a
// duration. Months count as 30 days.
func ParseTrailingPeriod(s string) (time.Duration, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if len(s) < 2 {
		return 0, fmt.Errorf("period %q too short, want e.g. 180d", s)
	}

	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("period %q: count must be a positive integer", s)
	}

	day := 24 * time.Hour
	switch s[len(s)-1] {
	case 'd':
		return time.Duration(n) * day, nil
	case 'w':
		return time.Duration(n) * 7 * day, nil
	case 'm':
		return time.Duration(n) * 30 * day, nil
	default:
		return 0, fmt.Errorf("period %q: unit must be d, w or m", s)
	}
}
