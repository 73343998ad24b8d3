package evolution

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/amirphl/strategy-lab/internal/candle"
)

// Tick intervals offered by the simulator.
const (
	SpeedSlow   = 1000 * time.Millisecond
	SpeedNormal = 500 * time.Millisecond
	SpeedFast   = 200 * time.Millisecond
	SpeedTurbo  = 50 * time.Millisecond
)

// Runner drives an Engine on a timer: one Evolve per tick. It initializes
// the engine on first use and stops on context cancellation or once the
// target generation is reached. Ticks that arrive while a generation is
// still being evolved are dropped.
type Runner struct {
	engine *Engine
	series candle.Series
	logger *log.Logger
	// Generations stops the run once the engine reaches this generation.
	// Zero runs until the context is cancelled.
	Generations int
	// OnGeneration, when set, is called after every completed generation.
	OnGeneration func(GenerationStats)

	mu       sync.Mutex
	interval time.Duration
	paused   bool
	speedCh  chan time.Duration
}

// NewRunner returns a runner ticking every interval.
func NewRunner(e *Engine, series candle.Series, interval time.Duration, logger *log.Logger) *Runner {
	if interval <= 0 {
		interval = SpeedNormal
	}
	if logger == nil {
		logger = e.logger
	}
	return &Runner{
		engine:   e,
		series:   series,
		logger:   logger,
		interval: interval,
		speedCh:  make(chan time.Duration, 1),
	}
}

// Run blocks until ctx is done or the target generation is reached.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.ensureInitialized(); err != nil {
		return err
	}
	if r.done() {
		return nil
	}

	r.mu.Lock()
	ticker := time.NewTicker(r.interval)
	r.mu.Unlock()
	defer ticker.Stop()

	r.logger.Printf("Run | started, interval=%s target=%d", r.Interval(), r.Generations)
	for {
		select {
		case <-ctx.Done():
			r.logger.Printf("Run | stopped at generation %d", r.engine.Generation())
			return ctx.Err()
		case d := <-r.speedCh:
			ticker.Reset(d)
		case <-ticker.C:
			if r.Paused() {
				continue
			}
			if err := r.ensureInitialized(); err != nil {
				return err
			}
			stats, err := r.engine.Evolve(ctx)
			switch {
			case errors.Is(err, ErrEvolveInProgress), errors.Is(err, ErrNotInitialized):
				continue
			case err != nil:
				return err
			}
			if r.OnGeneration != nil {
				r.OnGeneration(stats)
			}
			if r.done() {
				r.logger.Printf("Run | reached generation %d", stats.Generation)
				return nil
			}
		}
	}
}

func (r *Runner) ensureInitialized() error {
	if r.engine.State() != Idle {
		return nil
	}
	return r.engine.Initialize(r.series)
}

func (r *Runner) done() bool {
	return r.Generations > 0 && r.engine.Generation() >= r.Generations
}

// Pause stops further generations without touching the engine.
func (r *Runner) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = true
}

// Resume undoes Pause.
func (r *Runner) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = false
}

// Paused reports whether the runner is paused.
func (r *Runner) Paused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused
}

// Reset pauses the runner and resets the engine. The next tick after Resume
// starts a fresh run.
func (r *Runner) Reset() {
	r.Pause()
	r.engine.Reset()
}

// Interval returns the current tick interval.
func (r *Runner) Interval() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.interval
}

// SetSpeed changes the tick interval, also while running.
func (r *Runner) SetSpeed(d time.Duration) {
	if d <= 0 {
		return
	}
	r.mu.Lock()
	r.interval = d
	r.mu.Unlock()

	// keep only the latest request
	select {
	case <-r.speedCh:
	default:
	}
	select {
	case r.speedCh <- d:
	default:
	}
}
