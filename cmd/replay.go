package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/amirphl/strategy-lab/internal/backtest"
	"github.com/amirphl/strategy-lab/internal/candle"
	"github.com/amirphl/strategy-lab/internal/config"
	"github.com/amirphl/strategy-lab/internal/evolution"
	"github.com/amirphl/strategy-lab/internal/utils"
)

// savedRun is the layout of best_strategy.json.
type savedRun struct {
	Best    evolution.Individual        `json:"best"`
	History []evolution.GenerationStats `json:"history"`
}

func loadSaved(path string) (savedRun, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return savedRun{}, fmt.Errorf("loadSaved | read: %w", err)
	}
	var run savedRun
	if err := json.Unmarshal(data, &run); err != nil {
		return savedRun{}, fmt.Errorf("loadSaved | parse %s: %w", path, err)
	}
	if err := run.Best.Strategy.Validate(); err != nil {
		return savedRun{}, fmt.Errorf("loadSaved | %s: %w", path, err)
	}
	return run, nil
}

// replaySaved backtests a saved strategy against series and writes the
// report with the "replay" prefix.
func replaySaved(cfg config.Config, series candle.Series) error {
	run, err := loadSaved(cfg.ReplayFile)
	if err != nil {
		return err
	}
	result := backtest.Run(run.Best.Strategy, series, cfg.GA().Backtest, nil)
	backtest.PrintResults(utils.GetLogger(), "replay "+run.Best.ID, result)
	return backtest.SaveCSV(cfg.OutputDir, "replay", result)
}
