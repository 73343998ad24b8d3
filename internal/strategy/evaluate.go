package strategy

import (
	"math"

	"github.com/amirphl/strategy-lab/internal/candle"
	"github.com/amirphl/strategy-lab/internal/indicator"
)

// Evaluate reports whether the rule's condition holds at bar index. Missing
// history, NaN operands, unknown indicators and out-of-range indices all
// evaluate to false.
func Evaluate(r Rule, s candle.Series, index int, cache *indicator.Cache) bool {
	return r.Condition.Holds(s, index, cache)
}

// Holds evaluates the condition at bar index.
func (c Condition) Holds(s candle.Series, index int, cache *indicator.Cache) bool {
	if index < 0 || index >= s.Len() {
		return false
	}

	first, err := cache.Get(c.Indicator, c.Period, s)
	if err != nil {
		return false
	}
	v1 := first[index]
	if math.IsNaN(v1) {
		return false
	}

	second, err := c.targetSeries(s, cache)
	if err != nil {
		return false
	}
	v2 := c.targetAt(s, second, index)
	if math.IsNaN(v2) {
		return false
	}

	if c.Operator.Crossing() {
		if index < 1 {
			return false
		}
		p1 := first[index-1]
		p2 := c.targetAt(s, second, index-1)
		if math.IsNaN(p1) || math.IsNaN(p2) {
			return false
		}
		if c.Operator == CrossesAbove {
			return p1 <= p2 && v1 > v2
		}
		return p1 >= p2 && v1 < v2
	}

	switch c.Operator {
	case GreaterThan:
		return v1 > v2
	case LessThan:
		return v1 < v2
	case GreaterOrEqual:
		return v1 >= v2
	case LessOrEqual:
		return v1 <= v2
	default:
		return false
	}
}

// targetSeries returns the cached series of an indicator target, or nil for
// price and literal targets.
func (c Condition) targetSeries(s candle.Series, cache *indicator.Cache) ([]float64, error) {
	kind, ok := c.Target.Indicator()
	if !ok {
		return nil, nil
	}
	return cache.Get(kind, c.TargetPeriod, s)
}

func (c Condition) targetAt(s candle.Series, series []float64, index int) float64 {
	switch {
	case c.Target == OperandPrice:
		return s.Candles[index].Close
	case series != nil:
		return series[index]
	default:
		return c.Threshold
	}
}
