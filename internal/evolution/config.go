// Package evolution evolves populations of rule-based strategies: fitness
// evaluation through the backtester, tournament selection, crossover,
// mutation and elitism, driven one generation at a time.
package evolution

import (
	"fmt"

	"github.com/amirphl/strategy-lab/internal/backtest"
	"github.com/amirphl/strategy-lab/internal/strategy"
)

// Config is the read-only input of a run.
type Config struct {
	PopulationSize int       `yaml:"population_size"`
	MutationRate   float64   `yaml:"mutation_rate"`
	CrossoverRate  float64   `yaml:"crossover_rate"`
	ElitismRate    float64   `yaml:"elitism_rate"`
	TournamentSize int       `yaml:"tournament_size"`
	MinRules       int       `yaml:"min_rules_per_chromosome"`
	MaxRules       int       `yaml:"max_rules_per_chromosome"`
	Fitness        Objective `yaml:"fitness_function"`

	// Seed feeds every random choice of the run. Zero picks a time-based seed.
	Seed int64 `yaml:"seed"`
	// Workers bounds parallel fitness evaluation. Values below 2 evaluate
	// sequentially.
	Workers int `yaml:"workers"`

	Backtest backtest.Options `yaml:"-"`
}

// DefaultConfig returns the defaults of the interactive simulator.
func DefaultConfig() Config {
	return Config{
		PopulationSize: 50,
		MutationRate:   0.05,
		CrossoverRate:  0.8,
		ElitismRate:    0.1,
		TournamentSize: 3,
		MinRules:       2,
		MaxRules:       5,
		Fitness:        ObjectiveProfit,
		Workers:        1,
		Backtest:       backtest.DefaultOptions(),
	}
}

// EliteCount is floor(PopulationSize * ElitismRate).
func (c Config) EliteCount() int {
	return int(float64(c.PopulationSize) * c.ElitismRate)
}

// Validate rejects configurations the engine cannot run.
func (c Config) Validate() error {
	if c.PopulationSize < 1 {
		return fmt.Errorf("population size must be positive, got %d", c.PopulationSize)
	}
	for name, rate := range map[string]float64{
		"mutation rate":  c.MutationRate,
		"crossover rate": c.CrossoverRate,
		"elitism rate":   c.ElitismRate,
	} {
		if rate < 0 || rate > 1 {
			return fmt.Errorf("%s must be in [0, 1], got %v", name, rate)
		}
	}
	if c.TournamentSize < 1 || c.TournamentSize > c.PopulationSize {
		return fmt.Errorf("tournament size must be in [1, %d], got %d", c.PopulationSize, c.TournamentSize)
	}
	if c.MinRules < 1 || c.MaxRules > strategy.MaxRules || c.MinRules > c.MaxRules {
		return fmt.Errorf("rules per chromosome must satisfy 1 <= min <= max <= %d, got %d..%d",
			strategy.MaxRules, c.MinRules, c.MaxRules)
	}
	if !c.Fitness.Valid() {
		return fmt.Errorf("unknown fitness function %q (want one of %s)", c.Fitness, ObjectiveNames(", "))
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.Backtest.InitialCapital <= 0 {
		return fmt.Errorf("initial capital must be positive, got %v", c.Backtest.InitialCapital)
	}
	if c.Backtest.CommissionRate < 0 {
		return fmt.Errorf("commission rate must not be negative, got %v", c.Backtest.CommissionRate)
	}
	return nil
}
