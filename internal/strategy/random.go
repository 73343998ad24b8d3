package strategy

import (
	"math/rand"

	"github.com/amirphl/strategy-lab/internal/indicator"
	"github.com/amirphl/strategy-lab/internal/strategy/signal"
)

// Range is an inclusive integer parameter range.
type Range struct {
	Min int
	Max int
}

// Clamp limits v to the range.
func (r Range) Clamp(v int) int {
	return min(r.Max, max(r.Min, v))
}

// PeriodRanges bound the period of every indicator a rule may use.
var PeriodRanges = map[indicator.Kind]Range{
	indicator.SMA: {Min: 5, Max: 200},
	indicator.EMA: {Min: 5, Max: 200},
	indicator.RSI: {Min: 7, Max: 28},
}

// Generation and mutation constants.
var (
	// TargetPeriodRange bounds a mutated second-operand period.
	TargetPeriodRange = Range{Min: 5, Max: 200}
	// RSIThresholdRange bounds freshly generated RSI thresholds.
	RSIThresholdRange = Range{Min: 20, Max: 80}
	// RSIThresholdMutationRange bounds mutated RSI thresholds.
	RSIThresholdMutationRange = Range{Min: 10, Max: 90}
)

// GeneratedOperators are the operators random rules and operator mutation
// draw from. >= and <= are valid but never generated.
var GeneratedOperators = []Operator{GreaterThan, LessThan, CrossesAbove, CrossesBelow}

var (
	generatedIndicators = []indicator.Kind{indicator.SMA, indicator.EMA, indicator.RSI}
	movingAverages      = []Operand{OperandSMA, OperandEMA}
	maTargets           = []Operand{OperandSMA, OperandEMA, OperandPrice, OperandValue}
)

// RandInt returns a uniform integer in [lo, hi].
func RandInt(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return rng.Intn(hi-lo+1) + lo
}

// RandFloat returns a uniform float in [lo, hi).
func RandFloat(rng *rand.Rand, lo, hi float64) float64 {
	return rng.Float64()*(hi-lo) + lo
}

func choice[T any](rng *rand.Rand, items []T) T {
	return items[rng.Intn(len(items))]
}

// RandomRule draws a rule. RSI rules mostly compare against a literal
// threshold; moving-average rules compare against another average, the
// close, or a literal near 1.
func RandomRule(rng *rand.Rand) Rule {
	kind := choice(rng, generatedIndicators)
	period := randPeriod(rng, kind)
	op := choice(rng, GeneratedOperators)

	cond := Condition{Indicator: kind, Period: period, Operator: op}

	if kind == indicator.RSI {
		if rng.Float64() < 0.7 {
			cond.Target = OperandValue
			cond.Threshold = float64(RandInt(rng, RSIThresholdRange.Min, RSIThresholdRange.Max))
		} else {
			cond.Target = choice(rng, movingAverages)
			cond.TargetPeriod = randPeriod(rng, indicator.Kind(cond.Target))
		}
	} else {
		cond.Target = choice(rng, maTargets)
		switch cond.Target {
		case OperandPrice:
		case OperandValue:
			cond.Threshold = RandFloat(rng, 0.9, 1.1)
		default:
			cond.TargetPeriod = randPeriod(rng, indicator.Kind(cond.Target))
		}
	}

	return Rule{
		Condition: cond,
		Action:    choice(rng, signal.Actions),
		Weight:    RandFloat(rng, 0.3, 1.0),
	}
}

func randPeriod(rng *rand.Rand, kind indicator.Kind) int {
	r := PeriodRanges[kind]
	return RandInt(rng, r.Min, r.Max)
}

// NewRandom builds a strategy of minRules..maxRules random rules and makes
// sure it holds at least one BUY and one SELL rule. A missing action is
// appended while there is room under MaxRules; otherwise it overwrites the
// last rule the other required action does not depend on.
func NewRandom(rng *rand.Rand, minRules, maxRules int) Strategy {
	n := RandInt(rng, minRules, maxRules)
	rules := make(Strategy, 0, n+2)
	for i := 0; i < n; i++ {
		rules = append(rules, RandomRule(rng))
	}

	rules = backfill(rng, rules, signal.Buy, signal.Sell)
	rules = backfill(rng, rules, signal.Sell, signal.Buy)
	return rules
}

func backfill(rng *rand.Rand, rules Strategy, need, keep signal.Action) Strategy {
	if rules.Has(need) {
		return rules
	}
	r := RandomRule(rng)
	r.Action = need
	if len(rules) < MaxRules {
		return append(rules, r)
	}
	keepCount := 0
	for _, existing := range rules {
		if existing.Action == keep {
			keepCount++
		}
	}
	for i := len(rules) - 1; i >= 0; i-- {
		if rules[i].Action == keep && keepCount == 1 {
			continue
		}
		rules[i] = r
		return rules
	}
	return rules
}
