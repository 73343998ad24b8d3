package evolution

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/amirphl/strategy-lab/internal/backtest"
	"github.com/amirphl/strategy-lab/internal/candle"
	"github.com/amirphl/strategy-lab/internal/indicator"
	"github.com/amirphl/strategy-lab/internal/utils"
)

var (
	ErrNotInitialized     = errors.New("evolution: engine not initialized")
	ErrEvolveInProgress   = errors.New("evolution: a generation is already being evolved")
	ErrEmptySeries        = errors.New("evolution: empty price series")
	ErrIndividualNotFound = errors.New("evolution: individual not found")
	ErrNotIdle            = errors.New("evolution: configuration can only change while idle")
)

// LeaderboardSize is how many individuals the leaderboard shows by default.
const LeaderboardSize = 10

// State is the engine's lifecycle position.
type State int

const (
	Idle State = iota
	Initialized
	Evolving
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Initialized:
		return "initialized"
	case Evolving:
		return "evolving"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Engine owns a population and its history. It is safe for concurrent use;
// at most one Evolve runs at a time and readers always see a complete
// generation.
type Engine struct {
	logger *log.Logger

	// evolving guards against overlapping Evolve calls.
	evolving atomic.Bool

	mu         sync.RWMutex
	cfg        Config
	state      State
	rng        *rand.Rand
	cache      *indicator.Cache
	series     candle.Series
	population []Individual
	history    []GenerationStats
	generation int
	// epoch changes on every Initialize and Reset so an Evolve that raced
	// with them drops its result.
	epoch uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the per-generation logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithCache shares an indicator cache with the engine.
func WithCache(c *indicator.Cache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

// New returns an idle engine.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("New | invalid config: %w", err)
	}
	e := &Engine{cfg: cfg}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = utils.GetLogger()
	}
	if e.cache == nil {
		e.cache = indicator.NewCache()
	}
	return e, nil
}

// SetConfig replaces the configuration. Only allowed while idle.
func (e *Engine) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("SetConfig | invalid config: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Idle || e.evolving.Load() {
		return ErrNotIdle
	}
	e.cfg = cfg
	return nil
}

// Config returns the active configuration.
func (e *Engine) Config() Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// Initialize seeds the random source, creates and evaluates a random
// population against series and records the generation-0 statistics.
// Calling it again starts a fresh run.
func (e *Engine) Initialize(series candle.Series) error {
	if series.Len() == 0 {
		return ErrEmptySeries
	}
	if !e.evolving.CompareAndSwap(false, true) {
		return ErrEvolveInProgress
	}
	defer e.evolving.Store(false)

	e.mu.Lock()
	defer e.mu.Unlock()

	seed := e.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	e.rng = rand.New(rand.NewSource(seed))
	series = series.Fingerprinted()
	e.series = series

	pop := Evaluate(RandomPopulation(e.cfg, e.rng), series, e.cfg, e.cache)
	stats := Summarize(pop, 0)

	e.population = pop
	e.history = []GenerationStats{stats}
	e.generation = 0
	e.state = Initialized
	e.epoch++

	e.logger.Printf("Initialize | seed=%d population=%d bars=%d objective=%s",
		seed, len(pop), series.Len(), e.cfg.Fitness)
	e.logStats(stats)
	return nil
}

// Evolve advances the population by one generation: the next generation is
// bred from the current one, evaluated against the series, and published
// together with its statistics. A call made while another is running
// returns ErrEvolveInProgress. ctx is checked before the step starts; a
// started step always completes.
func (e *Engine) Evolve(ctx context.Context) (GenerationStats, error) {
	if err := ctx.Err(); err != nil {
		return GenerationStats{}, err
	}
	if !e.evolving.CompareAndSwap(false, true) {
		return GenerationStats{}, ErrEvolveInProgress
	}
	defer e.evolving.Store(false)

	e.mu.RLock()
	if e.state == Idle {
		e.mu.RUnlock()
		return GenerationStats{}, ErrNotInitialized
	}
	cfg, rng, series, generation, epoch := e.cfg, e.rng, e.series, e.generation, e.epoch
	current := e.population
	e.mu.RUnlock()

	next, _ := NextGeneration(current, cfg, rng, generation)
	evaluated := Evaluate(next, series, cfg, e.cache)
	stats := Summarize(evaluated, generation+1)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.epoch != epoch {
		return GenerationStats{}, ErrNotInitialized
	}
	e.population = evaluated
	e.generation = generation + 1
	e.history = append(e.history, stats)

	e.logStats(stats)
	return stats, nil
}

// Reset discards the population and history and returns to Idle. The
// configuration is kept.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.population = nil
	e.history = nil
	e.generation = 0
	e.series = candle.Series{}
	e.state = Idle
	e.epoch++
	e.cache.Clear()
}

// State reports where the engine is in its lifecycle.
func (e *Engine) State() State {
	if e.evolving.Load() {
		return Evolving
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Generation returns the number of the current generation.
func (e *Engine) Generation() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.generation
}

// Population returns a snapshot of the current generation, best first.
func (e *Engine) Population() []Individual {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Top(e.population, -1)
}

// Leaderboard returns the n fittest individuals, best first.
func (e *Engine) Leaderboard(n int) []Individual {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Top(e.population, n)
}

// Best returns the fittest individual of the current generation.
func (e *Engine) Best() (Individual, error) {
	top := e.Leaderboard(1)
	if len(top) == 0 {
		return Individual{}, ErrNotInitialized
	}
	return top[0], nil
}

// History returns the statistics of every generation so far. Entry N
// describes population N as evaluated, so the entry for a bred generation
// holds the children's scores, not those of the parents they came from.
func (e *Engine) History() []GenerationStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]GenerationStats, len(e.history))
	copy(out, e.history)
	return out
}

// Lookup finds an individual of the current generation by identifier.
func (e *Engine) Lookup(id string) (Individual, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, ind := range e.population {
		if ind.ID == id {
			return ind.Clone(), nil
		}
	}
	return Individual{}, fmt.Errorf("Lookup | %s: %w", id, ErrIndividualNotFound)
}

// Replay runs the full backtest of an individual for display: trades,
// signals and the equity curve.
func (e *Engine) Replay(id string) (backtest.Result, error) {
	ind, err := e.Lookup(id)
	if err != nil {
		return backtest.Result{}, err
	}
	e.mu.RLock()
	series, opts := e.series, e.cfg.Backtest
	e.mu.RUnlock()
	return backtest.Run(ind.Strategy, series, opts, nil), nil
}

func (e *Engine) logStats(s GenerationStats) {
	e.logger.Printf("Evolve | gen=%d best=%.2f avg=%.2f worst=%.2f diversity=%.2f",
		s.Generation, s.BestFitness, s.AverageFitness, s.WorstFitness, s.Diversity)
}
