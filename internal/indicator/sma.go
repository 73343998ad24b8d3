package indicator

// CalculateSMA returns the arithmetic mean of the last period closes.
// Indices below period-1 are NaN.
func CalculateSMA(closes []float64, period int) []float64 {
	sma := nanSeries(len(closes))
	if period <= 0 || len(closes) < period {
		return sma
	}
	for i := period - 1; i < len(closes); i++ {
		// summed per window, not rolled
		var sum float64
		for j := 0; j < period; j++ {
			sum += closes[i-j]
		}
		sma[i] = sum / float64(period)
	}
	return sma
}
