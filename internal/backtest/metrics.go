package backtest

import (
	"encoding/json"
	"math"
)

// TradingDaysPerYear annualizes the per-bar Sharpe ratio.
const TradingDaysPerYear = 252

// Metrics summarizes a finished backtest. Percentages are in 0..100 units.
type Metrics struct {
	TotalReturn  float64 `json:"total_return"`
	SharpeRatio  float64 `json:"sharpe_ratio"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	WinRate      float64 `json:"win_rate"`
	TotalTrades  int     `json:"total_trades"`
	ProfitFactor float64 `json:"profit_factor"`
	AverageWin   float64 `json:"average_win"`
	AverageLoss  float64 `json:"average_loss"`
}

// infiniteProfitFactor is how +Inf is written to JSON, which has no
// infinity literal.
const infiniteProfitFactor = "+Inf"

// MarshalJSON writes an infinite profit factor as "+Inf".
func (m Metrics) MarshalJSON() ([]byte, error) {
	type plain Metrics
	out := struct {
		plain
		ProfitFactor any `json:"profit_factor"`
	}{plain: plain(m), ProfitFactor: m.ProfitFactor}
	if math.IsInf(m.ProfitFactor, 1) {
		out.ProfitFactor = infiniteProfitFactor
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the output of MarshalJSON.
func (m *Metrics) UnmarshalJSON(data []byte) error {
	type plain Metrics
	aux := struct {
		*plain
		ProfitFactor json.RawMessage `json:"profit_factor"`
	}{plain: (*plain)(m)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	switch string(aux.ProfitFactor) {
	case "", "null":
		return nil
	case `"` + infiniteProfitFactor + `"`:
		m.ProfitFactor = math.Inf(1)
		return nil
	}
	return json.Unmarshal(aux.ProfitFactor, &m.ProfitFactor)
}

// CalculateMetrics reduces trades and the equity curve. A trade with
// PnL <= 0 counts as a loss. Division by zero resolves to fixed values:
// profit factor +Inf (no losses but some profit) or 0, Sharpe 0.
func CalculateMetrics(trades []Trade, initialCapital, finalCapital float64, equity []EquityPoint, maxDrawdown float64) Metrics {
	m := Metrics{
		TotalTrades: len(trades),
		MaxDrawdown: maxDrawdown,
	}
	if initialCapital != 0 {
		m.TotalReturn = (finalCapital - initialCapital) / initialCapital * 100
	}

	var (
		wins, losses           int
		grossProfit, grossLoss float64
		winPct, lossPct        float64
	)
	for _, t := range trades {
		if t.PnL > 0 {
			wins++
			grossProfit += t.PnL
			winPct += t.PnLPercent
		} else {
			losses++
			grossLoss += t.PnL
			lossPct += math.Abs(t.PnLPercent)
		}
	}
	grossLoss = math.Abs(grossLoss)

	if len(trades) > 0 {
		m.WinRate = float64(wins) / float64(len(trades)) * 100
	}
	switch {
	case grossLoss > 0:
		m.ProfitFactor = grossProfit / grossLoss
	case grossProfit > 0:
		m.ProfitFactor = math.Inf(1)
	}
	if wins > 0 {
		m.AverageWin = winPct / float64(wins)
	}
	if losses > 0 {
		m.AverageLoss = lossPct / float64(losses)
	}

	m.SharpeRatio = SharpeRatio(equity)
	return m
}

// SharpeRatio is mean/stddev of per-bar fractional equity changes, scaled by
// sqrt(252). The standard deviation is the population one.
func SharpeRatio(equity []EquityPoint) float64 {
	if len(equity) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		returns = append(returns, (equity[i].Value-equity[i-1].Value)/equity[i-1].Value)
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))

	std := math.Sqrt(variance)
	if !(std > 0) {
		return 0
	}
	return mean / std * math.Sqrt(TradingDaysPerYear)
}
