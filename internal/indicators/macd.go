package indicators

// MACD computes the moving average convergence/divergence line, its signal
// line and the histogram (line - signal). Entries are NaN until the slow EMA
// (for the line) and additionally the signal EMA (for signal and histogram)
// have a full window.
func MACD(values []float64, fast, slow, signal int) (line, signalLine, histogram []float64) {
	line = nanSlice(len(values))
	signalLine = nanSlice(len(values))
	histogram = nanSlice(len(values))
	if fast <= 0 || slow <= 0 || signal <= 0 || fast >= slow || len(values) < slow {
		return line, signalLine, histogram
	}

	emaFast := EMA(values, fast)
	emaSlow := EMA(values, slow)
	for i := slow - 1; i < len(values); i++ {
		line[i] = emaFast[i] - emaSlow[i]
	}

	defined := line[slow-1:]
	sig := EMA(defined, signal)
	for i, v := range sig {
		signalLine[slow-1+i] = v
	}
	for i := range values {
		histogram[i] = line[i] - signalLine[i]
	}
	return line, signalLine, histogram
}
