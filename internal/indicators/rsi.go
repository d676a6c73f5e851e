package indicators

// RSI computes the Wilder-style Relative Strength Index over closes.
//
// Unlike the other indicators, undefined entries are filled with the neutral
// value 50 instead of NaN: strategies compare RSI against entry thresholds and
// a NaN would silently disable every comparison. A window with zero total loss
// reads 100, zero total gain reads 0, and everything is clamped to [0, 100].
func RSI(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = 50
	}
	if period <= 0 || len(values) < period+1 {
		return out
	}

	gains := make([]float64, len(values))
	losses := make([]float64, len(values))
	for i := 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}

	for i := period; i < len(values); i++ {
		avgGain := mean(gains[i-period+1 : i+1])
		avgLoss := mean(losses[i-period+1 : i+1])
		var rsi float64
		switch {
		case avgLoss == 0 && avgGain == 0:
			rsi = 50
		case avgLoss == 0:
			rsi = 100
		default:
			rs := avgGain / avgLoss
			rsi = 100 - (100 / (1 + rs))
		}
		if rsi < 0 {
			rsi = 0
		}
		if rsi > 100 {
			rsi = 100
		}
		out[i] = rsi
	}
	return out
}
