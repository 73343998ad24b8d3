// Package backtest
package backtest

import (
	"github.com/amirphl/strategy-lab/internal/candle"
	"github.com/amirphl/strategy-lab/internal/indicator"
	"github.com/amirphl/strategy-lab/internal/strategy"
	"github.com/amirphl/strategy-lab/internal/strategy/position"
	"github.com/amirphl/strategy-lab/internal/strategy/signal"
)

const (
	DefaultInitialCapital = 10000.0
	DefaultCommissionRate = 0.001
	// DefaultWarmupPeriod bars are skipped so indicators can settle.
	DefaultWarmupPeriod = 50
)

// Options tune a backtest run.
type Options struct {
	InitialCapital float64
	CommissionRate float64
	WarmupPeriod   int
}

// DefaultOptions returns 10000 capital, 0.1% commission and a 50 bar warm-up.
func DefaultOptions() Options {
	return Options{
		InitialCapital: DefaultInitialCapital,
		CommissionRate: DefaultCommissionRate,
		WarmupPeriod:   DefaultWarmupPeriod,
	}
}

// Trade is a closed round trip.
type Trade struct {
	EntryTime  int64         `json:"entry_time"`
	Entry      float64       `json:"entry"`
	ExitTime   int64         `json:"exit_time"`
	Exit       float64       `json:"exit"`
	Side       position.Side `json:"side"`
	PnL        float64       `json:"pnl"`
	PnLPercent float64       `json:"pnl_percent"`
}

// EquityPoint is the account value after processing one bar.
type EquityPoint struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
}

// Result holds the results of a backtest
type Result struct {
	Trades      []Trade         `json:"trades"`
	Signals     []signal.Signal `json:"signals"`
	EquityCurve []EquityPoint   `json:"equity_curve"`
	// DrawdownCurve is the running maximum drawdown (percent) after each
	// equity point.
	DrawdownCurve []float64 `json:"drawdown_curve"`
	FinalCapital  float64   `json:"final_capital"`
	Metrics       Metrics   `json:"metrics"`
}

type openPosition struct {
	side       position.Side
	entryPrice float64
	entryTime  int64
}

// Run simulates the strategy over the series. It is deterministic: the same
// strategy, series and options always produce the same result. A nil cache
// gets a private one.
func Run(strat strategy.Strategy, series candle.Series, opts Options, cache *indicator.Cache) Result {
	if cache == nil {
		cache = indicator.NewCache()
	}
	series = series.Fingerprinted()

	var (
		trades  []Trade
		signals []signal.Signal
		equity  []EquityPoint
		ddCurve []float64
		pos     openPosition
		capital = opts.InitialCapital
		dd      = NewDrawdownTracker(opts.InitialCapital)
	)

	closePosition := func(price float64, at int64, commission bool) {
		trade := realize(pos, price, at, capital)
		trades = append(trades, trade)
		fee := 0.0
		if commission {
			fee = capital * opts.CommissionRate
		}
		capital = capital + trade.PnL - fee
		pos = openPosition{}
	}

	openNew := func(side position.Side, price float64, at int64) {
		pos = openPosition{side: side, entryPrice: price, entryTime: at}
		capital -= capital * opts.CommissionRate
	}

	for i := max(opts.WarmupPeriod, 0); i < series.Len(); i++ {
		bar := series.Candles[i]
		price, at := bar.Close, bar.Time

		action, ok := Decide(strat, series, i, cache)
		switch {
		case !ok:
		case action == signal.Buy && pos.side != position.Long:
			if pos.side == position.Short {
				closePosition(price, at, true)
				signals = append(signals, signal.Signal{Time: at, Action: signal.Close, Price: price, RuleIndex: signal.FlipRuleIndex})
			}
			openNew(position.Long, price, at)
			signals = append(signals, signal.Signal{Time: at, Action: signal.Buy, Price: price, RuleIndex: signal.VoteRuleIndex})
		case action == signal.Sell && pos.side != position.Short:
			if pos.side == position.Long {
				closePosition(price, at, true)
			}
			openNew(position.Short, price, at)
			signals = append(signals, signal.Signal{Time: at, Action: signal.Sell, Price: price, RuleIndex: signal.VoteRuleIndex})
		case action == signal.Close && pos.side != position.Flat:
			closePosition(price, at, true)
			signals = append(signals, signal.Signal{Time: at, Action: signal.Close, Price: price, RuleIndex: signal.VoteRuleIndex})
		}

		value := markToMarket(pos, capital, price)
		equity = append(equity, EquityPoint{Time: at, Value: value})
		ddCurve = append(ddCurve, dd.Update(value))
	}

	// forced close at the last bar, without commission
	if pos.side != position.Flat {
		last := series.Candles[series.Len()-1]
		closePosition(last.Close, last.Time, false)
	}

	return Result{
		Trades:        trades,
		Signals:       signals,
		EquityCurve:   equity,
		DrawdownCurve: ddCurve,
		FinalCapital:  capital,
		Metrics:       CalculateMetrics(trades, opts.InitialCapital, capital, equity, dd.Max()),
	}
}

// realize books the round trip of pos against the current capital.
func realize(pos openPosition, price float64, at int64, capital float64) Trade {
	move := price - pos.entryPrice
	if pos.side == position.Short {
		move = -move
	}
	return Trade{
		EntryTime:  pos.entryTime,
		Entry:      pos.entryPrice,
		ExitTime:   at,
		Exit:       price,
		Side:       pos.side,
		PnL:        move * (capital / pos.entryPrice),
		PnLPercent: move / pos.entryPrice * 100,
	}
}

// markToMarket values the account at price. Shorts use the linear
// approximation capital * (2 - price/entry).
func markToMarket(pos openPosition, capital, price float64) float64 {
	switch pos.side {
	case position.Long:
		return capital * (price / pos.entryPrice)
	case position.Short:
		return capital * (2 - price/pos.entryPrice)
	default:
		return capital
	}
}
