package indicators

// Bollinger computes the middle band (SMA), upper band and lower band
// (middle ± k standard deviations). Entries before a full window are NaN in
// all three series.
func Bollinger(values []float64, period int, k float64) (middle, upper, lower []float64) {
	middle = SMA(values, period)
	upper = nanSlice(len(values))
	lower = nanSlice(len(values))
	if period <= 0 || len(values) < period {
		return middle, upper, lower
	}
	for i := period - 1; i < len(values); i++ {
		sd := stddev(values[i-period+1 : i+1])
		upper[i] = middle[i] + k*sd
		lower[i] = middle[i] - k*sd
	}
	return middle, upper, lower
}
