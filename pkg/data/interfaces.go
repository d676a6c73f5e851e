// Package data loads, validates and filters the historical bar series the
// simulation consumes. Providers guarantee ascending, deduplicated bars;
// violations surface as errors so the batch can skip the instrument.
package data

import (
	"context"
	"fmt"
	"time"

	"github.com/tradeforge/index-backtest/pkg/types"
)

// Provider supplies historical bars for one instrument.
type Provider interface {
	// GetHistory returns ascending, deduplicated bars for the symbol over
	// [start, end] at the given interval.
	GetHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]types.OHLCV, error)
}

// ValidateSeries enforces the series invariants: strictly ascending unique
// timestamps and low/high bracketing open/close.
func ValidateSeries(data []types.OHLCV) error {
	for i, bar := range data {
		if bar.Open <= 0 || bar.High <= 0 || bar.Low <= 0 || bar.Close <= 0 {
			return fmt.Errorf("bar %d: prices must be positive", i)
		}
		if bar.High < bar.Low {
			return fmt.Errorf("bar %d: high %.4f below low %.4f", i, bar.High, bar.Low)
		}
		if bar.Low > bar.Open || bar.Low > bar.Close || bar.High < bar.Open || bar.High < bar.Close {
			return fmt.Errorf("bar %d: low/high do not bracket open/close", i)
		}
		if i > 0 {
			if bar.Timestamp.Equal(data[i-1].Timestamp) {
				return fmt.Errorf("bar %d: duplicate timestamp %s", i, bar.Timestamp.Format(time.RFC3339))
			}
			if bar.Timestamp.Before(data[i-1].Timestamp) {
				return fmt.Errorf("bar %d: timestamps not ascending", i)
			}
		}
	}
	return nil
}
