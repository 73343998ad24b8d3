package evolution

import (
	"context"
	"testing"
	"time"

	"github.com/amirphl/strategy-lab/internal/candle"
	"github.com/amirphl/strategy-lab/internal/strategy"
	"github.com/amirphl/strategy-lab/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := New(cfg, WithLogger(utils.Discard()))
	require.NoError(t, err)
	return e
}

func evolveN(t *testing.T, e *Engine, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := e.Evolve(context.Background())
		require.NoError(t, err)
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.TournamentSize = cfg.PopulationSize + 1
	_, err := New(cfg, WithLogger(utils.Discard()))
	assert.Error(t, err)
}

func TestEngine_Lifecycle(t *testing.T) {
	series := testSeries(t, 300)
	e := newTestEngine(t, testConfig())
	ctx := context.Background()

	assert.Equal(t, Idle, e.State())
	_, err := e.Evolve(ctx)
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = e.Best()
	assert.ErrorIs(t, err, ErrNotInitialized)

	assert.ErrorIs(t, e.Initialize(candle.Series{}), ErrEmptySeries)
	assert.Equal(t, Idle, e.State())

	require.NoError(t, e.Initialize(series))
	assert.Equal(t, Initialized, e.State())
	assert.Equal(t, 0, e.Generation())
	assert.Len(t, e.Population(), 12)
	require.Len(t, e.History(), 1)
	assert.Equal(t, 0, e.History()[0].Generation)

	stats, err := e.Evolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Generation)
	assert.Equal(t, 1, e.Generation())
	assert.Equal(t, Initialized, e.State())
	require.Len(t, e.History(), 2)
	assert.Equal(t, stats, e.History()[1])
	for _, ind := range e.Population() {
		assert.Equal(t, 1, ind.Generation)
	}

	assert.ErrorIs(t, e.SetConfig(testConfig()), ErrNotIdle)

	e.Reset()
	assert.Equal(t, Idle, e.State())
	assert.Empty(t, e.Population())
	assert.Empty(t, e.History())
	assert.Equal(t, 0, e.Generation())

	cfg := testConfig()
	cfg.Fitness = ObjectiveSharpe
	require.NoError(t, e.SetConfig(cfg))
	assert.Equal(t, ObjectiveSharpe, e.Config().Fitness)
}

func TestEngine_EvolveCancelledContext(t *testing.T) {
	e := newTestEngine(t, testConfig())
	require.NoError(t, e.Initialize(testSeries(t, 200)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Evolve(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, e.Generation())
}

func TestEngine_RejectsOverlappingEvolve(t *testing.T) {
	e := newTestEngine(t, testConfig())
	require.NoError(t, e.Initialize(testSeries(t, 200)))

	// simulate a generation still in flight
	e.evolving.Store(true)
	_, err := e.Evolve(context.Background())
	assert.ErrorIs(t, err, ErrEvolveInProgress)
	assert.ErrorIs(t, e.Initialize(testSeries(t, 200)), ErrEvolveInProgress)
	assert.Equal(t, Evolving, e.State())
	e.evolving.Store(false)

	assert.Equal(t, 0, e.Generation())
	assert.Len(t, e.History(), 1)
}

func TestEngine_SeededRunsAreReproducible(t *testing.T) {
	series := testSeries(t, 300)

	run := func(workers int) *Engine {
		cfg := testConfig()
		cfg.Workers = workers
		e := newTestEngine(t, cfg)
		require.NoError(t, e.Initialize(series))
		evolveN(t, e, 3)
		return e
	}

	a, b, parallel := run(1), run(1), run(4)

	assert.Equal(t, a.History(), b.History())
	assert.Equal(t, a.Population(), b.Population())
	assert.Equal(t, a.History(), parallel.History())
	assert.Equal(t, a.Population(), parallel.Population())
}

func TestEngine_BestFitnessNeverDecreases(t *testing.T) {
	cfg := testConfig()
	cfg.PopulationSize = 20
	cfg.ElitismRate = 0.1
	cfg.MutationRate = 0.3
	e := newTestEngine(t, cfg)
	require.NoError(t, e.Initialize(testSeries(t, 400)))
	evolveN(t, e, 6)

	history := e.History()
	require.Len(t, history, 7)
	for i := 1; i < len(history); i++ {
		assert.GreaterOrEqual(t, history[i].BestFitness, history[i-1].BestFitness, "generation %d", i)
	}
}

func TestNextGeneration_CarriesElites(t *testing.T) {
	cfg := testConfig()
	cfg.PopulationSize = 10
	cfg.ElitismRate = 0.2

	series := testSeries(t, 300)
	rng := newRNG(3)
	evaluated := Evaluate(RandomPopulation(cfg, rng), series, cfg, newCache())
	before := make([]Individual, len(evaluated))
	for i, ind := range evaluated {
		before[i] = ind.Clone()
	}

	next, stats := NextGeneration(evaluated, cfg, rng, 4)

	require.Len(t, next, 10)
	assert.Equal(t, before, evaluated, "input population is not modified")
	assert.Equal(t, 4, stats.Generation)
	assert.Equal(t, evaluated[0].Fitness, stats.BestFitness)

	ids := make(map[string]bool)
	for _, ind := range evaluated {
		ids[ind.ID] = true
	}
	for i, ind := range next {
		assert.Equal(t, 5, ind.Generation)
		assert.False(t, ids[ind.ID], "individual %d reuses an identifier", i)
		assert.GreaterOrEqual(t, len(ind.Strategy), strategy.MinRules)
		assert.LessOrEqual(t, len(ind.Strategy), strategy.MaxRules)
	}
	assert.Equal(t, evaluated[0].Strategy, next[0].Strategy)
	assert.Equal(t, evaluated[1].Strategy, next[1].Strategy)
}

func TestEngine_LeaderboardLookupReplay(t *testing.T) {
	cfg := testConfig()
	cfg.PopulationSize = 15
	e := newTestEngine(t, cfg)
	require.NoError(t, e.Initialize(testSeries(t, 300)))
	evolveN(t, e, 1)

	board := e.Leaderboard(LeaderboardSize)
	require.Len(t, board, LeaderboardSize)
	for i := 1; i < len(board); i++ {
		assert.GreaterOrEqual(t, board[i-1].Fitness, board[i].Fitness)
	}

	best, err := e.Best()
	require.NoError(t, err)
	assert.Equal(t, board[0], best)

	// snapshots do not alias engine state
	best.Strategy[0].Weight = -1
	again, err := e.Lookup(best.ID)
	require.NoError(t, err)
	assert.NotEqual(t, -1.0, again.Strategy[0].Weight)

	res, err := e.Replay(best.ID)
	require.NoError(t, err)
	assert.Equal(t, again.Metrics, res.Metrics)
	assert.Equal(t, again.Fitness, Fitness(cfg.Fitness, res.Metrics))

	_, err = e.Lookup("missing")
	assert.ErrorIs(t, err, ErrIndividualNotFound)
	_, err = e.Replay("missing")
	assert.ErrorIs(t, err, ErrIndividualNotFound)
}

func TestRunner_StopsAtTargetGeneration(t *testing.T) {
	e := newTestEngine(t, testConfig())
	r := NewRunner(e, testSeries(t, 200), time.Millisecond, utils.Discard())
	r.Generations = 3

	var seen []int
	r.OnGeneration = func(s GenerationStats) { seen = append(seen, s.Generation) }

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, r.Run(ctx))

	assert.Equal(t, 3, e.Generation())
	assert.Equal(t, []int{1, 2, 3}, seen)
	assert.Len(t, e.History(), 4)
}

func TestRunner_PausedDoesNotEvolve(t *testing.T) {
	e := newTestEngine(t, testConfig())
	r := NewRunner(e, testSeries(t, 200), time.Millisecond, utils.Discard())
	r.Pause()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := r.Run(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, Initialized, e.State(), "run initializes even while paused")
	assert.Equal(t, 0, e.Generation())
}

func TestRunner_ResetAndSpeed(t *testing.T) {
	e := newTestEngine(t, testConfig())
	r := NewRunner(e, testSeries(t, 200), 0, nil)
	assert.Equal(t, SpeedNormal, r.Interval())

	r.SetSpeed(SpeedTurbo)
	assert.Equal(t, SpeedTurbo, r.Interval())
	r.SetSpeed(0)
	assert.Equal(t, SpeedTurbo, r.Interval())

	require.NoError(t, e.Initialize(testSeries(t, 200)))
	r.Reset()
	assert.True(t, r.Paused())
	assert.Equal(t, Idle, e.State())

	r.Resume()
	assert.False(t, r.Paused())
}
