package evolution

import (
	"math/rand"
	"slices"

	"github.com/amirphl/strategy-lab/internal/backtest"
	"github.com/amirphl/strategy-lab/internal/strategy"
	"github.com/google/uuid"
)

// Individual is one candidate strategy with the score of its latest
// evaluation.
type Individual struct {
	ID         string            `json:"id"`
	Strategy   strategy.Strategy `json:"chromosome"`
	Fitness    float64           `json:"fitness"`
	Metrics    backtest.Metrics  `json:"metrics"`
	Generation int               `json:"generation"`
}

// Clone returns a copy that shares no rules with ind.
func (ind Individual) Clone() Individual {
	ind.Strategy = ind.Strategy.Clone()
	return ind
}

// GenerationStats summarizes one evaluated generation.
type GenerationStats struct {
	Generation     int     `json:"generation"`
	BestFitness    float64 `json:"best_fitness"`
	AverageFitness float64 `json:"average_fitness"`
	WorstFitness   float64 `json:"worst_fitness"`
	Diversity      float64 `json:"diversity"`
}

// newID draws a UUID from rng so seeded runs get identical identifiers.
func newID(rng *rand.Rand) string {
	id, err := uuid.NewRandomFromReader(rng)
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// SortByFitness orders pop by descending fitness. Equal scores keep their
// relative order.
func SortByFitness(pop []Individual) {
	slices.SortStableFunc(pop, func(a, b Individual) int {
		switch {
		case a.Fitness > b.Fitness:
			return -1
		case a.Fitness < b.Fitness:
			return 1
		}
		return 0
	})
}

// Top returns clones of the n fittest individuals, best first.
func Top(pop []Individual, n int) []Individual {
	sorted := make([]Individual, len(pop))
	for i, ind := range pop {
		sorted[i] = ind.Clone()
	}
	SortByFitness(sorted)
	if n >= 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// Diversity is the number of distinct rule signatures across pop divided by
// the population size. Populations of fewer than two score 0.
func Diversity(pop []Individual) float64 {
	if len(pop) < 2 {
		return 0
	}
	seen := make(map[string]struct{})
	for _, ind := range pop {
		for _, r := range ind.Strategy {
			seen[r.Signature()] = struct{}{}
		}
	}
	return float64(len(seen)) / float64(len(pop))
}

// Summarize computes the statistics of an evaluated population.
func Summarize(pop []Individual, generation int) GenerationStats {
	stats := GenerationStats{Generation: generation, Diversity: Diversity(pop)}
	if len(pop) == 0 {
		return stats
	}
	stats.BestFitness, stats.WorstFitness = pop[0].Fitness, pop[0].Fitness
	sum := 0.0
	for _, ind := range pop {
		stats.BestFitness = max(stats.BestFitness, ind.Fitness)
		stats.WorstFitness = min(stats.WorstFitness, ind.Fitness)
		sum += ind.Fitness
	}
	stats.AverageFitness = sum / float64(len(pop))
	return stats
}
