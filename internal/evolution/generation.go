package evolution

import (
	"math/rand"

	"github.com/amirphl/strategy-lab/internal/backtest"
	"github.com/amirphl/strategy-lab/internal/candle"
	"github.com/amirphl/strategy-lab/internal/indicator"
	"github.com/amirphl/strategy-lab/internal/strategy"
	"golang.org/x/sync/errgroup"
)

// RandomPopulation creates cfg.PopulationSize unevaluated individuals of
// generation 0.
func RandomPopulation(cfg Config, rng *rand.Rand) []Individual {
	pop := make([]Individual, cfg.PopulationSize)
	for i := range pop {
		pop[i] = Individual{
			ID:       newID(rng),
			Strategy: strategy.NewRandom(rng, cfg.MinRules, cfg.MaxRules),
		}
	}
	return pop
}

// Evaluate backtests every individual against series and returns scored
// copies sorted by descending fitness. The cache is cleared first; it is
// shared by all individuals of the pass. With cfg.Workers > 1 individuals
// are evaluated concurrently; the result does not depend on the worker
// count.
func Evaluate(pop []Individual, series candle.Series, cfg Config, cache *indicator.Cache) []Individual {
	cache.Clear()
	series = series.Fingerprinted()

	out := make([]Individual, len(pop))
	if cfg.Workers < 2 {
		for i, ind := range pop {
			out[i] = score(ind, series, cfg, cache)
		}
	} else {
		var eg errgroup.Group
		eg.SetLimit(cfg.Workers)
		for i, ind := range pop {
			eg.Go(func() error {
				out[i] = score(ind, series, cfg, cache)
				return nil
			})
		}
		_ = eg.Wait()
	}

	SortByFitness(out)
	return out
}

func score(ind Individual, series candle.Series, cfg Config, cache *indicator.Cache) Individual {
	res := backtest.Run(ind.Strategy, series, cfg.Backtest, cache)
	ind = ind.Clone()
	ind.Metrics = res.Metrics
	ind.Fitness = Fitness(cfg.Fitness, res.Metrics)
	return ind
}

// NextGeneration builds generation+1 from an evaluated population. It does
// not touch evaluated. The returned stats describe the input generation.
//
// The top EliteCount individuals are copied with fresh identifiers; the rest
// are bred from tournament-selected parents. Children are unevaluated.
func NextGeneration(evaluated []Individual, cfg Config, rng *rand.Rand, generation int) ([]Individual, GenerationStats) {
	ranked := make([]Individual, len(evaluated))
	copy(ranked, evaluated)
	SortByFitness(ranked)

	stats := Summarize(ranked, generation)
	if len(ranked) == 0 {
		return nil, stats
	}

	next := make([]Individual, 0, cfg.PopulationSize)
	for i := 0; i < cfg.EliteCount() && i < len(ranked); i++ {
		elite := ranked[i].Clone()
		elite.ID = newID(rng)
		elite.Generation = generation + 1
		next = append(next, elite)
	}

	for len(next) < cfg.PopulationSize {
		p1 := Tournament(ranked, cfg.TournamentSize, rng)
		p2 := Tournament(ranked, cfg.TournamentSize, rng)
		next = append(next, Individual{
			ID:         newID(rng),
			Strategy:   Breed(p1.Strategy, p2.Strategy, cfg, rng),
			Generation: generation + 1,
		})
	}
	return next, stats
}
