package types

import "time"

// OHLCV is one bar of historical market data for a single instrument.
type OHLCV struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Closes extracts the close series from a bar slice.
func Closes(data []OHLCV) []float64 {
	out := make([]float64, len(data))
	for i, d := range data {
		out[i] = d.Close
	}
	return out
}

// Volumes extracts the volume series from a bar slice.
func Volumes(data []OHLCV) []float64 {
	out := make([]float64, len(data))
	for i, d := range data {
		out[i] = d.Volume
	}
	return out
}
