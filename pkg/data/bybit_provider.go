package data

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	"github.com/tradeforge/index-backtest/pkg/types"
)

// BybitProvider fetches klines from the Bybit v5 market API. It exists for
// pulling fresh history into the CSV cache; the simulation itself never
// performs network I/O.
type BybitProvider struct {
	client   *bybit_api.Client
	category string
}

// NewBybitProvider creates a provider against the mainnet API. Public kline
// endpoints work with empty credentials.
func NewBybitProvider(apiKey, apiSecret string) *BybitProvider {
	return &BybitProvider{
		client:   bybit_api.NewBybitHttpClient(apiKey, apiSecret, bybit_api.WithBaseURL(bybit_api.MAINNET)),
		category: "linear",
	}
}

// GetHistory implements Provider over the kline endpoint. Bybit returns bars
// newest-first; the result is re-sorted ascending and validated.
func (p *BybitProvider) GetHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]types.OHLCV, error) {
	params := map[string]interface{}{
		"category": p.category,
		"symbol":   symbol,
		"interval": interval,
		"start":    start.UnixMilli(),
		"end":      end.UnixMilli(),
		"limit":    1000,
	}

	result, err := p.client.NewUtaBybitServiceWithParams(params).GetMarketKline(ctx)
	if err != nil {
		return nil, fmt.Errorf("get klines for %s: %w", symbol, err)
	}

	bars, err := parseKlineResponse(result)
	if err != nil {
		return nil, fmt.Errorf("parse klines for %s: %w", symbol, err)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	if err := ValidateSeries(bars); err != nil {
		return nil, fmt.Errorf("klines for %s: %w", symbol, err)
	}
	return bars, nil
}

func parseKlineResponse(response interface{}) ([]types.OHLCV, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected response type %T", response)
	}
	if serverResp.RetCode != 0 {
		return nil, fmt.Errorf("api error %d: %s", serverResp.RetCode, serverResp.RetMsg)
	}

	raw, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	var klines struct {
		List [][]string `json:"list"`
	}
	if err := json.Unmarshal(raw, &klines); err != nil {
		return nil, fmt.Errorf("unmarshal klines: %w", err)
	}

	var bars []types.OHLCV
	for _, item := range klines.List {
		// Kline rows: [startTime, open, high, low, close, volume, turnover]
		if len(item) < 6 {
			continue
		}
		ms, err := strconv.ParseInt(item[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad kline timestamp %q: %w", item[0], err)
		}
		fields := make([]float64, 5)
		for i := 1; i <= 5; i++ {
			v, err := strconv.ParseFloat(item[i], 64)
			if err != nil {
				return nil, fmt.Errorf("bad kline field %q: %w", item[i], err)
			}
			fields[i-1] = v
		}
		bars = append(bars, types.OHLCV{
			Timestamp: time.UnixMilli(ms).UTC(),
			Open:      fields[0],
			High:      fields[1],
			Low:       fields[2],
			Close:     fields[3],
			Volume:    fields[4],
		})
	}
	return bars, nil
}
