package data

import (
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/tradeforge/index-backtest/pkg/types"
)

// Sample generates n daily bars of synthetic but plausible index data. The
// random source is seeded from the symbol so repeated runs are identical.
func Sample(symbol string, n int) []types.OHLCV {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	bars := make([]types.OHLCV, n)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	price := 10000 + rng.Float64()*15000

	for i := range bars {
		drift := price * 0.0002
		shock := (rng.Float64() - 0.5) * price * 0.02
		next := price + drift + shock
		if next < price*0.5 {
			next = price * 0.5
		}

		high := price
		low := price
		if next > high {
			high = next
		}
		if next < low {
			low = next
		}
		high *= 1 + rng.Float64()*0.005
		low *= 1 - rng.Float64()*0.005

		bars[i] = types.OHLCV{
			Timestamp: start.AddDate(0, 0, i),
			Open:      price,
			High:      high,
			Low:       low,
			Close:     next,
			Volume:    200000 + rng.Float64()*800000,
		}
		price = next
	}
	return bars
}
