package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/amirphl/strategy-lab/internal/backtest"
	"github.com/amirphl/strategy-lab/internal/config"
	"github.com/amirphl/strategy-lab/internal/evolution"
	"github.com/amirphl/strategy-lab/internal/utils"
)

func main() {
	cfg := config.MustLoadConfig()
	logger := utils.GetLogger()
	log.Printf("Starting Strategy Lab: source=%s symbol=%s population=%d fitness=%s",
		cfg.Source, cfg.Symbol, cfg.PopulationSize, cfg.Fitness)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	series, err := loadSeries(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to load series: %v", err)
	}
	log.Printf("Loaded %d candles for %s %s", series.Len(), series.Symbol, series.Timeframe)

	if cfg.ReplayFile != "" {
		if err := replaySaved(cfg, series); err != nil {
			log.Fatalf("Replay failed: %v", err)
		}
		return
	}

	engine, err := evolution.New(cfg.GA(), evolution.WithLogger(logger))
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	runner := evolution.NewRunner(engine, series, cfg.TickInterval, logger)
	runner.Generations = cfg.Generations
	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Evolution failed: %v", err)
	}

	if engine.State() == evolution.Idle {
		return
	}
	printLeaderboard(engine.Leaderboard(evolution.LeaderboardSize))

	best, err := engine.Best()
	if err != nil {
		log.Fatalf("No best strategy: %v", err)
	}
	if err := saveBest(cfg.OutputDir, engine, best); err != nil {
		log.Fatalf("Failed to save results: %v", err)
	}
	log.Println("Shutdown complete")
}

func printLeaderboard(top []evolution.Individual) {
	log.Println("Leaderboard:")
	for i, ind := range top {
		m := ind.Metrics
		log.Printf("  %2d. fitness=%.2f return=%.2f%% sharpe=%.2f dd=%.2f%% trades=%d gen=%d",
			i+1, ind.Fitness, m.TotalReturn, m.SharpeRatio, m.MaxDrawdown, m.TotalTrades, ind.Generation)
		log.Printf("      %s", ind.Strategy)
	}
}

// saveBest replays the best individual and writes its report plus the
// strategy itself as JSON.
func saveBest(dir string, engine *evolution.Engine, best evolution.Individual) error {
	result, err := engine.Replay(best.ID)
	if err != nil {
		return err
	}
	backtest.PrintResults(utils.GetLogger(), best.ID, result)
	if err := backtest.SaveCSV(dir, "best", result); err != nil {
		return err
	}

	data, err := json.MarshalIndent(savedRun{Best: best, History: engine.History()}, "", "  ")
	if err != nil {
		return fmt.Errorf("saveBest | marshal: %w", err)
	}
	path := filepath.Join(dir, "best_strategy.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("saveBest | write %s: %w", path, err)
	}
	log.Printf("saveBest | Saved best strategy to %s", path)
	return nil
}
