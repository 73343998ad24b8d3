package evolution

import (
	"math/rand"

	"github.com/amirphl/strategy-lab/internal/indicator"
	"github.com/amirphl/strategy-lab/internal/strategy"
)

// Mutation step sizes.
const (
	PeriodStep    = 10
	ThresholdStep = 10
	WeightStep    = 0.2
	MinWeight     = 0.1
	MaxWeight     = 1.0
)

// Tournament draws size random contestants (with replacement) and returns
// the fittest. On equal fitness the earlier draw wins.
func Tournament(pop []Individual, size int, rng *rand.Rand) Individual {
	best := pop[rng.Intn(len(pop))]
	for i := 1; i < size; i++ {
		c := pop[rng.Intn(len(pop))]
		if c.Fitness > best.Fitness {
			best = c
		}
	}
	return best
}

// SinglePointCrossover joins the head of p1 with the tail of p2 at
// independently drawn cut points. Short children get a random rule; long
// ones are truncated to strategy.MaxRules.
func SinglePointCrossover(p1, p2 strategy.Strategy, rng *rand.Rand) strategy.Strategy {
	c1 := strategy.RandInt(rng, 0, len(p1)-1)
	c2 := strategy.RandInt(rng, 0, len(p2)-1)

	child := make(strategy.Strategy, 0, c1+len(p2)-c2+1)
	child = append(child, p1[:c1]...)
	child = append(child, p2[c2:]...)

	if len(child) < strategy.MinRules {
		child = append(child, strategy.RandomRule(rng))
	}
	if len(child) > strategy.MaxRules {
		child = child[:strategy.MaxRules]
	}
	return child
}

// UniformCrossover picks each position from p1 or p2 with equal odds,
// skipping the position when the chosen parent is too short. Children with
// fewer than strategy.MinRules rules get two random rules.
func UniformCrossover(p1, p2 strategy.Strategy, rng *rand.Rand) strategy.Strategy {
	n := max(len(p1), len(p2))
	child := make(strategy.Strategy, 0, n)
	for i := 0; i < n; i++ {
		if rng.Float64() < 0.5 {
			if i < len(p1) {
				child = append(child, p1[i])
			}
		} else if i < len(p2) {
			child = append(child, p2[i])
		}
	}

	if len(child) < strategy.MinRules {
		child = append(child, strategy.RandomRule(rng), strategy.RandomRule(rng))
	}
	return child
}

// Mutate returns a mutated copy of s. Each rule mutates with probability
// rate; then, with probability rate, one rule is added (below MaxRules) or
// a random one removed (above MinRules). Removal may drop the last BUY or
// SELL rule; the result is not back-filled.
func Mutate(s strategy.Strategy, rate float64, rng *rand.Rand) strategy.Strategy {
	out := s.Clone()
	for i := range out {
		if rng.Float64() < rate {
			out[i] = MutateRule(out[i], rng)
		}
	}

	if rng.Float64() < rate {
		if rng.Float64() < 0.5 && len(out) < strategy.MaxRules {
			out = append(out, strategy.RandomRule(rng))
		} else if len(out) > strategy.MinRules {
			i := strategy.RandInt(rng, 0, len(out)-1)
			out = append(out[:i], out[i+1:]...)
		}
	}
	return out
}

// MutateRule returns a copy of r with one of five genes changed: the first
// period, the second period, the threshold, the weight or the operator.
// Genes a rule does not use (no second indicator, no literal threshold)
// leave it unchanged.
func MutateRule(r strategy.Rule, rng *rand.Rand) strategy.Rule {
	c := &r.Condition
	switch strategy.RandInt(rng, 1, 5) {
	case 1:
		if bounds, ok := strategy.PeriodRanges[c.Indicator]; ok {
			c.Period = bounds.Clamp(c.Period + strategy.RandInt(rng, -PeriodStep, PeriodStep))
		}
	case 2:
		if _, ok := c.Target.Indicator(); ok {
			c.TargetPeriod = strategy.TargetPeriodRange.Clamp(c.TargetPeriod + strategy.RandInt(rng, -PeriodStep, PeriodStep))
		}
	case 3:
		if c.Target == strategy.OperandValue {
			if c.Indicator == indicator.RSI {
				bounds := strategy.RSIThresholdMutationRange
				next := c.Threshold + float64(strategy.RandInt(rng, -ThresholdStep, ThresholdStep))
				c.Threshold = min(float64(bounds.Max), max(float64(bounds.Min), next))
			} else {
				c.Threshold *= strategy.RandFloat(rng, 0.95, 1.05)
			}
		}
	case 4:
		r.Weight = min(MaxWeight, max(MinWeight, r.Weight+strategy.RandFloat(rng, -WeightStep, WeightStep)))
	case 5:
		c.Operator = strategy.GeneratedOperators[rng.Intn(len(strategy.GeneratedOperators))]
	}
	return r
}

// Breed produces one child from two parents: crossover with probability
// crossoverRate (single-point or uniform, equally likely), otherwise a copy
// of p1, then mutation.
func Breed(p1, p2 strategy.Strategy, cfg Config, rng *rand.Rand) strategy.Strategy {
	var child strategy.Strategy
	if rng.Float64() < cfg.CrossoverRate {
		if rng.Float64() < 0.5 {
			child = SinglePointCrossover(p1, p2, rng)
		} else {
			child = UniformCrossover(p1, p2, rng)
		}
	} else {
		child = p1.Clone()
	}
	return Mutate(child, cfg.MutationRate, rng)
}
