package indicator

// CalculateRSI returns Wilder's relative strength index. The first value sits
// at index period, seeded by the plain mean of the first period deltas; each
// later bar smooths with avg = (avg*(period-1) + new) / period. A zero average
// loss yields 100.
func CalculateRSI(closes []float64, period int) []float64 {
	rsi := nanSeries(len(closes))
	if period <= 0 || len(closes) < period+1 {
		return rsi
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		gain, loss := delta(closes[i] - closes[i-1])
		avgGain += gain
		avgLoss += loss
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	rsi[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		gain, loss := delta(closes[i] - closes[i-1])
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		rsi[i] = rsiValue(avgGain, avgLoss)
	}
	return rsi
}

func delta(change float64) (gain, loss float64) {
	switch {
	case change > 0:
		return change, 0
	case change < 0:
		return 0, -change
	}
	return 0, 0
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}
