package backtest

import (
	"github.com/amirphl/strategy-lab/internal/candle"
	"github.com/amirphl/strategy-lab/internal/indicator"
	"github.com/amirphl/strategy-lab/internal/strategy"
	"github.com/amirphl/strategy-lab/internal/strategy/signal"
)

// VoteThreshold is the total weight an action needs before it can win.
const VoteThreshold = 0.3

// Votes accumulates rule weights per action. A rule only ever adds to its
// own action.
type Votes struct {
	Buy   float64
	Sell  float64
	Close float64
}

// Tally evaluates every rule at index and sums the weights of those that hold.
func Tally(strat strategy.Strategy, series candle.Series, index int, cache *indicator.Cache) Votes {
	var v Votes
	for _, r := range strat {
		if !strategy.Evaluate(r, series, index, cache) {
			continue
		}
		switch r.Action {
		case signal.Buy:
			v.Buy += r.Weight
		case signal.Sell:
			v.Sell += r.Weight
		case signal.Close:
			v.Close += r.Weight
		}
	}
	return v
}

// Winner applies the decision policy: CLOSE if above threshold and not
// outvoted, then BUY or SELL if above threshold and strictly ahead of the
// other. Anything else, including a BUY/SELL tie, is no action.
func (v Votes) Winner() (signal.Action, bool) {
	switch {
	case v.Close > VoteThreshold && v.Close >= v.Buy && v.Close >= v.Sell:
		return signal.Close, true
	case v.Buy > VoteThreshold && v.Buy > v.Sell:
		return signal.Buy, true
	case v.Sell > VoteThreshold && v.Sell > v.Buy:
		return signal.Sell, true
	}
	return "", false
}

// Decide returns the action the strategy takes at index, if any.
func Decide(strat strategy.Strategy, series candle.Series, index int, cache *indicator.Cache) (signal.Action, bool) {
	return Tally(strat, series, index, cache).Winner()
}
