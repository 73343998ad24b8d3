// Package indicator computes technical indicator series over candle closes.
// Every series is aligned index-for-index with its input; positions before
// the warm-up point hold NaN.
package indicator

import (
	"fmt"
	"math"
)

// Kind names an indicator family.
type Kind string

const (
	SMA Kind = "SMA"
	EMA Kind = "EMA"
	RSI Kind = "RSI"
)

// Indicator is the interface for all technical indicators.
type Indicator interface {
	Name() string
	Calculate(closes []float64, period int) []float64
}

type calculator struct {
	name string
	fn   func([]float64, int) []float64
}

func (c calculator) Name() string { return c.name }

func (c calculator) Calculate(closes []float64, period int) []float64 { return c.fn(closes, period) }

var registry = map[Kind]Indicator{
	SMA: calculator{name: string(SMA), fn: CalculateSMA},
	EMA: calculator{name: string(EMA), fn: CalculateEMA},
	RSI: calculator{name: string(RSI), fn: CalculateRSI},
}

// Lookup returns the indicator registered for kind.
func Lookup(kind Kind) (Indicator, error) {
	ind, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("unknown indicator kind: %q", kind)
	}
	return ind, nil
}

// Compute calculates the series for kind without touching any cache.
func Compute(kind Kind, period int, closes []float64) ([]float64, error) {
	ind, err := Lookup(kind)
	if err != nil {
		return nil, err
	}
	return ind.Calculate(closes, period), nil
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
