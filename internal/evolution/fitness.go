package evolution

import (
	"slices"
	"strings"

	"github.com/amirphl/strategy-lab/internal/backtest"
)

// Objective selects how backtest metrics become a fitness score.
type Objective string

const (
	ObjectiveProfit   Objective = "profit"
	ObjectiveSharpe   Objective = "sharpe"
	ObjectiveDrawdown Objective = "drawdown"
	ObjectiveWinRate  Objective = "winrate"
)

// Objectives lists every supported objective.
var Objectives = []Objective{ObjectiveProfit, ObjectiveSharpe, ObjectiveDrawdown, ObjectiveWinRate}

// ObjectiveNames joins the supported objectives with sep.
func ObjectiveNames(sep string) string {
	names := make([]string, len(Objectives))
	for i, o := range Objectives {
		names[i] = string(o)
	}
	return strings.Join(names, sep)
}

// Valid reports whether o is a supported objective.
func (o Objective) Valid() bool {
	return slices.Contains(Objectives, o)
}

// Scores given to strategies that trade too rarely for their metrics to mean
// anything.
const (
	NoTradePenalty = -100.0
	SharpePenalty  = -10.0
)

// Fitness scores m under objective o. Unknown objectives score the total
// return.
func Fitness(o Objective, m backtest.Metrics) float64 {
	switch o {
	case ObjectiveProfit:
		if m.TotalTrades > 0 {
			return m.TotalReturn
		}
		return NoTradePenalty
	case ObjectiveSharpe:
		if m.TotalTrades > 3 {
			return m.SharpeRatio
		}
		return SharpePenalty
	case ObjectiveDrawdown:
		if m.TotalTrades > 3 {
			return m.TotalReturn - 2*m.MaxDrawdown
		}
		return NoTradePenalty
	case ObjectiveWinRate:
		if m.TotalTrades > 5 {
			return m.WinRate + 0.5*m.TotalReturn
		}
		return NoTradePenalty
	default:
		return m.TotalReturn
	}
}
