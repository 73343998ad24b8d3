// Package config
package config

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/amirphl/strategy-lab/internal/backtest"
	"github.com/amirphl/strategy-lab/internal/evolution"
	"github.com/amirphl/strategy-lab/internal/tfutils"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

/*
YAML config example:
population_size: 80
mutation_rate: 0.05
crossover_rate: 0.8
elitism_rate: 0.1
tournament_size: 3
min_rules_per_chromosome: 2
max_rules_per_chromosome: 5
fitness_function: "sharpe"
seed: 42
workers: 4
generations: 100
tick_interval: "200ms"
initial_capital: 10000
commission_rate: 0.001
source: "postgres"
symbol: "BTCUSDT"
timeframe: "1h"
from: "2023-01-01"
to: "2024-01-01"
output_dir: "results"
*/

const dateLayout = "2006-01-02"

// Series sources.
const (
	SourceSample   = "sample"
	SourcePostgres = "postgres"
	SourceWallex   = "wallex"
)

type Config struct {
	evolution.Config `yaml:",inline"`

	Generations    int           `yaml:"generations"`
	TickInterval   time.Duration `yaml:"tick_interval"`
	InitialCapital float64       `yaml:"initial_capital"`
	CommissionRate float64       `yaml:"commission_rate"`
	WarmupPeriod   int           `yaml:"warmup_period"`

	Source    string `yaml:"source"`
	Symbol    string `yaml:"symbol"`
	Timeframe string `yaml:"timeframe"`
	From      string `yaml:"from"`
	To        string `yaml:"to"`

	SampleBars       int     `yaml:"sample_bars"`
	SampleStartPrice float64 `yaml:"sample_start_price"`
	SampleVolatility float64 `yaml:"sample_volatility"`

	DBConnStr    string `yaml:"db_conn_str"`
	DBMaxOpen    int    `yaml:"db_max_open"`
	DBMaxIdle    int    `yaml:"db_max_idle"`
	WallexAPIKey string `yaml:"wallex_api_key"`
	// SaveFetched stores candles downloaded from wallex into postgres.
	SaveFetched bool `yaml:"save_fetched"`

	OutputDir string `yaml:"output_dir"`
	// ReplayFile, when set, backtests the strategy saved in that
	// best_strategy.json instead of evolving.
	ReplayFile string `yaml:"replay_file"`
}

// Default returns the simulator defaults on the BTC sample series.
func Default() Config {
	opts := backtest.DefaultOptions()
	return Config{
		Config:         evolution.DefaultConfig(),
		Generations:    50,
		TickInterval:   evolution.SpeedNormal,
		InitialCapital: opts.InitialCapital,
		CommissionRate: opts.CommissionRate,
		WarmupPeriod:   opts.WarmupPeriod,
		Source:         SourceSample,
		Symbol:         "BTC",
		Timeframe:      "1d",
		DBMaxOpen:      10,
		DBMaxIdle:      5,
		OutputDir:      "results",
	}
}

// GA returns the engine configuration with the backtest options filled in.
func (c Config) GA() evolution.Config {
	ga := c.Config
	ga.Backtest = backtest.Options{
		InitialCapital: c.InitialCapital,
		CommissionRate: c.CommissionRate,
		WarmupPeriod:   c.WarmupPeriod,
	}
	return ga
}

// Range parses From and To. An empty To means now.
func (c Config) Range() (time.Time, time.Time, error) {
	from, err := time.Parse(dateLayout, c.From)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid from date %q: %w", c.From, err)
	}
	to := time.Now().UTC()
	if c.To != "" {
		if to, err = time.Parse(dateLayout, c.To); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to date %q: %w", c.To, err)
		}
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("from %s must be before to %s", c.From, c.To)
	}
	return from, to, nil
}

func (c Config) Validate() error {
	if err := c.GA().Validate(); err != nil {
		return err
	}
	if c.Generations < 0 {
		return fmt.Errorf("generations must not be negative, got %d", c.Generations)
	}
	if c.WarmupPeriod < 0 {
		return fmt.Errorf("warmup period must not be negative, got %d", c.WarmupPeriod)
	}
	if c.Symbol == "" {
		return errors.New("symbol is required")
	}

	switch c.Source {
	case SourceSample:
		if c.SampleBars < 0 || c.SampleStartPrice < 0 || c.SampleVolatility < 0 {
			return errors.New("sample parameters must not be negative")
		}
		return nil
	case SourcePostgres, SourceWallex:
	default:
		return fmt.Errorf("unknown source %q", c.Source)
	}

	if !tfutils.IsValidTimeframe(c.Timeframe) {
		return fmt.Errorf("unsupported timeframe %q", c.Timeframe)
	}
	if _, _, err := c.Range(); err != nil {
		return err
	}
	if c.Source == SourcePostgres || c.SaveFetched {
		if c.DBConnStr == "" {
			return errors.New("db_conn_str (DB_CONN_STR) is required for postgres")
		}
	}
	return nil
}

// Load builds the configuration from .env, the command line and an
// optional YAML file. File values override flags.
func Load(args []string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Load | ignoring .env: %v", err)
	}

	cfg := Default()
	cfg.DBConnStr = os.Getenv("DB_CONN_STR")
	cfg.WallexAPIKey = os.Getenv("WALLEX_API_KEY")

	fs := flag.NewFlagSet("strategy-lab", flag.ContinueOnError)
	fs.IntVar(&cfg.PopulationSize, "population", cfg.PopulationSize, "Population size")
	fs.Float64Var(&cfg.MutationRate, "mutation-rate", cfg.MutationRate, "Per-rule mutation probability")
	fs.Float64Var(&cfg.CrossoverRate, "crossover-rate", cfg.CrossoverRate, "Crossover probability")
	fs.Float64Var(&cfg.ElitismRate, "elitism-rate", cfg.ElitismRate, "Share of the population copied unchanged")
	fs.IntVar(&cfg.TournamentSize, "tournament-size", cfg.TournamentSize, "Tournament size")
	fs.IntVar(&cfg.MinRules, "min-rules", cfg.MinRules, "Minimum rules per strategy")
	fs.IntVar(&cfg.MaxRules, "max-rules", cfg.MaxRules, "Maximum rules per strategy")
	fitness := fs.String("fitness", string(cfg.Fitness), "Fitness: "+evolution.ObjectiveNames(" or "))
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed (0 picks one from the clock)")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "Parallel fitness evaluations")
	fs.IntVar(&cfg.Generations, "generations", cfg.Generations, "Generations to run (0 runs until interrupted)")
	fs.DurationVar(&cfg.TickInterval, "tick", cfg.TickInterval, "Delay between generations (e.g., 200ms)")
	fs.Float64Var(&cfg.InitialCapital, "capital", cfg.InitialCapital, "Initial capital")
	fs.Float64Var(&cfg.CommissionRate, "commission", cfg.CommissionRate, "Commission rate (e.g., 0.001 for 0.1%)")
	fs.IntVar(&cfg.WarmupPeriod, "warmup", cfg.WarmupPeriod, "Bars skipped before trading")
	fs.StringVar(&cfg.Source, "source", cfg.Source, "Series source: sample or postgres or wallex")
	fs.StringVar(&cfg.Symbol, "symbol", cfg.Symbol, "Symbol (sample presets: SPY, BTC, AAPL)")
	fs.StringVar(&cfg.Timeframe, "timeframe", cfg.Timeframe, "Candle timeframe")
	fs.StringVar(&cfg.From, "from", time.Now().AddDate(-1, 0, 0).Format(dateLayout), "Start date (YYYY-MM-DD)")
	fs.StringVar(&cfg.To, "to", "", "End date (YYYY-MM-DD), empty for now")
	fs.IntVar(&cfg.SampleBars, "sample-bars", 0, "Override the sample bar count")
	fs.BoolVar(&cfg.SaveFetched, "save", false, "Store wallex candles in postgres")
	fs.StringVar(&cfg.OutputDir, "output", cfg.OutputDir, "Directory for the replay report")
	fs.StringVar(&cfg.ReplayFile, "replay", "", "Replay a saved best_strategy.json instead of evolving")
	configFile := fs.String("config", "", "Path to YAML config file")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.Fitness = evolution.Objective(*fitness)

	if *configFile != "" {
		data, err := os.ReadFile(*configFile)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// MustLoadConfig loads the process configuration or exits.
func MustLoadConfig() Config {
	cfg, err := Load(os.Args[1:])
	if err != nil {
		log.Fatalf("MustLoadConfig | %v", err)
	}
	return cfg
}
