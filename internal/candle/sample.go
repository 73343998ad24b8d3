package candle

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"
)

// SampleParams describes a synthetic random-walk series.
type SampleParams struct {
	Symbol     string
	Bars       int
	StartPrice float64
	Volatility float64
	Start      time.Time
	// Continuous keeps weekend bars (crypto); otherwise Saturdays and
	// Sundays are skipped like an equity calendar.
	Continuous bool
}

var sampleStart = time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)

// SamplePreset returns the parameters of one of the built-in sample assets.
func SamplePreset(symbol string) (SampleParams, error) {
	switch strings.ToUpper(symbol) {
	case "SPY":
		return SampleParams{Symbol: "SPY", Bars: 1200, StartPrice: 320, Volatility: 0.018, Start: sampleStart}, nil
	case "BTC":
		return SampleParams{Symbol: "BTC", Bars: 1100, StartPrice: 7500, Volatility: 0.045, Start: sampleStart, Continuous: true}, nil
	case "AAPL":
		return SampleParams{Symbol: "AAPL", Bars: 1200, StartPrice: 75, Volatility: 0.025, Start: sampleStart}, nil
	default:
		return SampleParams{}, fmt.Errorf("unknown sample asset: %s", symbol)
	}
}

// GenerateSample builds a daily series by walking the price with a slight
// upward drift. Bars counts calendar days, so equity calendars produce
// fewer candles than Bars.
func GenerateSample(p SampleParams, rng *rand.Rand) Series {
	candles := make([]Candle, 0, p.Bars)
	price := p.StartPrice
	day := p.Start.UTC()

	for i := 0; i < p.Bars; i++ {
		if !p.Continuous && (day.Weekday() == time.Saturday || day.Weekday() == time.Sunday) {
			day = day.AddDate(0, 0, 1)
			continue
		}

		change := (rng.Float64() - 0.48) * p.Volatility
		open := price
		closePrice := price * (1 + change)
		high := math.Max(open, closePrice) * (1 + rng.Float64()*0.01)
		low := math.Min(open, closePrice) * (1 - rng.Float64()*0.01)
		volume := math.Floor(50000000 + rng.Float64()*100000000)

		candles = append(candles, Candle{
			Time:   day.Unix(),
			Open:   round2(open),
			High:   round2(high),
			Low:    round2(low),
			Close:  round2(closePrice),
			Volume: volume,
		})

		price = closePrice
		day = day.AddDate(0, 0, 1)
	}

	return NewSeries(p.Symbol, "1d", candles)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
