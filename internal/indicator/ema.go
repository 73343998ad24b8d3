package indicator

// CalculateEMA seeds with the SMA of the first period closes at index
// period-1 and then applies ema[i] = (close[i]-ema[i-1])*k + ema[i-1]
// with k = 2/(period+1).
func CalculateEMA(closes []float64, period int) []float64 {
	ema := nanSeries(len(closes))
	if period <= 0 || len(closes) < period {
		return ema
	}

	multiplier := 2 / float64(period+1)

	var sum float64
	for i := 0; i < period; i++ {
		sum += closes[i]
	}
	ema[period-1] = sum / float64(period)

	for i := period; i < len(closes); i++ {
		ema[i] = (closes[i]-ema[i-1])*multiplier + ema[i-1]
	}
	return ema
}
