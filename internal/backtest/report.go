package backtest

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// PrintResults logs a summary of the backtest and the first trades.
func PrintResults(logger *log.Logger, name string, results Result) {
	m := results.Metrics
	logger.Printf("Backtest Results (%s):\n", name)
	logger.Printf("  Trades=%d, WinRate=%.2f%%, Return=%.2f%%, FinalCapital=%.2f\n",
		m.TotalTrades, m.WinRate, m.TotalReturn, results.FinalCapital)
	logger.Printf("  MaxDrawdown=%.2f%%, Sharpe=%.2f, ProfitFactor=%.2f\n",
		m.MaxDrawdown, m.SharpeRatio, m.ProfitFactor)
	logger.Printf("  AvgWin=%.2f%%, AvgLoss=%.2f%%, Signals=%d\n",
		m.AverageWin, m.AverageLoss, len(results.Signals))

	logger.Println("Trade Log Summary (First 10 trades):")
	maxTrades := 10
	for i, t := range results.Trades {
		if i >= maxTrades {
			logger.Printf("  ... and %d more trades\n", len(results.Trades)-maxTrades)
			break
		}
		logger.Printf("  Trade %d: %s Entry=%.2f at %s, Exit=%.2f at %s, PnL=%.2f (%.2f%%)\n",
			i+1, t.Side, t.Entry, formatTime(t.EntryTime),
			t.Exit, formatTime(t.ExitTime), t.PnL, t.PnLPercent)
	}
}

// SaveCSV writes trades, signals and the equity curve of a replayed
// strategy into dir, prefixing every file name with prefix.
func SaveCSV(dir, prefix string, results Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("SaveCSV | create output dir: %w", err)
	}

	tradeRows := [][]string{{"Trade#", "Side", "Entry", "EntryTime", "Exit", "ExitTime", "PnL", "PnLPercent"}}
	for i, t := range results.Trades {
		tradeRows = append(tradeRows, []string{
			strconv.Itoa(i + 1),
			t.Side.String(),
			fmt.Sprintf("%.4f", t.Entry),
			formatTime(t.EntryTime),
			fmt.Sprintf("%.4f", t.Exit),
			formatTime(t.ExitTime),
			fmt.Sprintf("%.4f", t.PnL),
			fmt.Sprintf("%.4f", t.PnLPercent),
		})
	}

	signalRows := [][]string{{"Time", "Type", "Price", "RuleIndex"}}
	for _, s := range results.Signals {
		signalRows = append(signalRows, []string{
			s.Timestamp().Format(time.RFC3339),
			string(s.Action),
			fmt.Sprintf("%.4f", s.Price),
			strconv.Itoa(s.RuleIndex),
		})
	}

	equityRows := [][]string{{"Time", "Equity", "MaxDrawdown"}}
	for i, eq := range results.EquityCurve {
		dd := 0.0
		if i < len(results.DrawdownCurve) {
			dd = results.DrawdownCurve[i]
		}
		equityRows = append(equityRows, []string{
			formatTime(eq.Time),
			fmt.Sprintf("%.4f", eq.Value),
			fmt.Sprintf("%.4f", dd),
		})
	}

	files := []struct {
		name string
		rows [][]string
	}{
		{prefix + "_trades.csv", tradeRows},
		{prefix + "_signals.csv", signalRows},
		{prefix + "_equity.csv", equityRows},
	}
	for _, f := range files {
		if err := saveCSV(filepath.Join(dir, f.name), f.rows); err != nil {
			return err
		}
	}
	return nil
}

// saveCSV saves data to a CSV file
func saveCSV(filename string, rows [][]string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("saveCSV | create %s: %w", filename, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("saveCSV | write %s: %w", filename, err)
	}

	log.Printf("saveCSV | Saved results to %s", filename)
	return nil
}

func formatTime(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(time.RFC3339)
}
