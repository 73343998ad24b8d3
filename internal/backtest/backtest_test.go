package backtest

import (
	"math"
	"math/rand"
	"testing"

	"github.com/amirphl/strategy-lab/internal/candle"
	"github.com/amirphl/strategy-lab/internal/indicator"
	"github.com/amirphl/strategy-lab/internal/strategy"
	"github.com/amirphl/strategy-lab/internal/strategy/position"
	"github.com/amirphl/strategy-lab/internal/strategy/signal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createSeries(closes ...float64) candle.Series {
	candles := make([]candle.Candle, len(closes))
	for i, c := range closes {
		candles[i] = candle.Candle{Time: int64(1700000000 + i*86400), Open: c, High: c, Low: c, Close: c, Volume: 1}
	}
	return candle.NewSeries("TEST", "1d", candles)
}

// rule compares the close (SMA of period 1) against a literal.
func rule(op strategy.Operator, level float64, action signal.Action, weight float64) strategy.Rule {
	return strategy.Rule{
		Condition: strategy.Condition{Indicator: indicator.SMA, Period: 1, Operator: op, Target: strategy.OperandValue, Threshold: level},
		Action:    action,
		Weight:    weight,
	}
}

func noWarmup() Options {
	opts := DefaultOptions()
	opts.WarmupPeriod = 0
	return opts
}

func TestRun_RisingSeriesSingleLong(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	series := createSeries(closes...)

	strat := strategy.Strategy{
		{Condition: strategy.Condition{Indicator: indicator.SMA, Period: 5, Operator: strategy.LessThan, Target: strategy.OperandPrice}, Action: signal.Buy, Weight: 1},
		{Condition: strategy.Condition{Indicator: indicator.SMA, Period: 5, Operator: strategy.GreaterThan, Target: strategy.OperandPrice}, Action: signal.Sell, Weight: 1},
	}

	res := Run(strat, series, DefaultOptions(), indicator.NewCache())

	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	assert.Equal(t, position.Long, tr.Side)
	assert.Equal(t, 150.0, tr.Entry)
	assert.Equal(t, series.Candles[50].Time, tr.EntryTime)
	assert.Equal(t, 159.0, tr.Exit, "forced close at the last bar's close")
	assert.Equal(t, series.Candles[59].Time, tr.ExitTime)

	require.Len(t, res.Signals, 1)
	assert.Equal(t, signal.Buy, res.Signals[0].Action)

	// commission on open only; the forced close is free
	want := ((1-DefaultCommissionRate)*159.0/150.0 - 1) * 100
	assert.InDelta(t, want, res.Metrics.TotalReturn, 1e-9)
	assert.Len(t, res.EquityCurve, 10)
	assert.Equal(t, 1, res.Metrics.TotalTrades)
	assert.Equal(t, 100.0, res.Metrics.WinRate)
	assert.True(t, math.IsInf(res.Metrics.ProfitFactor, 1))
}

func TestRun_NoRuleHolds(t *testing.T) {
	series := createSeries(10, 11, 12, 13, 12, 11)
	strat := strategy.Strategy{
		rule(strategy.GreaterThan, 1000, signal.Buy, 1),
		rule(strategy.LessThan, 0, signal.Sell, 1),
	}

	res := Run(strat, series, noWarmup(), nil)

	assert.Empty(t, res.Trades)
	assert.Empty(t, res.Signals)
	require.Len(t, res.EquityCurve, series.Len())
	for _, p := range res.EquityCurve {
		assert.Equal(t, DefaultInitialCapital, p.Value)
	}
	assert.Zero(t, res.Metrics.TotalReturn)
	assert.Zero(t, res.Metrics.SharpeRatio)
	assert.Zero(t, res.Metrics.WinRate)
	assert.Zero(t, res.Metrics.ProfitFactor)
	assert.Zero(t, res.Metrics.MaxDrawdown)
}

func TestRun_SeriesShorterThanWarmup(t *testing.T) {
	series := createSeries(1, 2, 3)
	strat := strategy.Strategy{rule(strategy.GreaterThan, 0, signal.Buy, 1)}

	res := Run(strat, series, DefaultOptions(), nil)

	assert.Empty(t, res.Trades)
	assert.Empty(t, res.EquityCurve)
	assert.Equal(t, DefaultInitialCapital, res.FinalCapital)
}

func TestRun_BuyFlipsShort(t *testing.T) {
	series := createSeries(90, 95, 110, 120)
	strat := strategy.Strategy{
		rule(strategy.LessThan, 100, signal.Sell, 1),
		rule(strategy.GreaterThan, 100, signal.Buy, 1),
	}
	opts := noWarmup()

	res := Run(strat, series, opts, nil)

	require.Len(t, res.Signals, 3)
	assert.Equal(t, signal.Sell, res.Signals[0].Action)
	assert.Equal(t, signal.Close, res.Signals[1].Action)
	assert.Equal(t, signal.FlipRuleIndex, res.Signals[1].RuleIndex)
	assert.Equal(t, 110.0, res.Signals[1].Price)
	assert.Equal(t, signal.Buy, res.Signals[2].Action)
	assert.Equal(t, signal.VoteRuleIndex, res.Signals[2].RuleIndex)

	require.Len(t, res.Trades, 2)
	short, long := res.Trades[0], res.Trades[1]
	assert.Equal(t, position.Short, short.Side)
	assert.Equal(t, position.Long, long.Side)

	capital := opts.InitialCapital
	capital -= capital * opts.CommissionRate // open short at 90
	shortPnL := (90.0 - 110.0) * (capital / 90.0)
	assert.InDelta(t, shortPnL, short.PnL, 1e-9)
	assert.InDelta(t, (90.0-110.0)/90.0*100, short.PnLPercent, 1e-9)
	capital = capital + shortPnL - capital*opts.CommissionRate
	capital -= capital * opts.CommissionRate // open long at 110
	longPnL := (120.0 - 110.0) * (capital / 110.0)
	assert.InDelta(t, longPnL, long.PnL, 1e-9)
	capital += longPnL

	assert.InDelta(t, capital, res.FinalCapital, 1e-9)
	assert.Equal(t, 50.0, res.Metrics.WinRate)
}

func TestRun_SellFlipsLongWithoutCloseSignal(t *testing.T) {
	series := createSeries(110, 90, 95)
	strat := strategy.Strategy{
		rule(strategy.LessThan, 100, signal.Sell, 1),
		rule(strategy.GreaterThan, 100, signal.Buy, 1),
	}

	res := Run(strat, series, noWarmup(), nil)

	require.Len(t, res.Signals, 2)
	assert.Equal(t, signal.Buy, res.Signals[0].Action)
	assert.Equal(t, signal.Sell, res.Signals[1].Action)
	require.Len(t, res.Trades, 2)
	assert.Equal(t, position.Long, res.Trades[0].Side)
	assert.Equal(t, position.Short, res.Trades[1].Side)
	assert.Equal(t, 95.0, res.Trades[1].Exit)
}

func TestRun_CloseLiquidates(t *testing.T) {
	series := createSeries(110, 120, 130, 125)
	strat := strategy.Strategy{
		rule(strategy.GreaterThan, 100, signal.Buy, 0.5),
		rule(strategy.GreaterThan, 125, signal.Close, 0.9),
	}
	opts := noWarmup()

	res := Run(strat, series, opts, nil)

	require.Len(t, res.Trades, 2, "long closed at 130, reopened at 125 and force-closed")
	assert.Equal(t, 130.0, res.Trades[0].Exit)
	assert.Equal(t, 125.0, res.Trades[1].Entry)
	assert.Equal(t, 125.0, res.Trades[1].Exit)

	actions := make([]signal.Action, len(res.Signals))
	for i, s := range res.Signals {
		actions[i] = s.Action
	}
	assert.Equal(t, []signal.Action{signal.Buy, signal.Close, signal.Buy}, actions)

	// flat after the close: equity equals capital on that bar
	closeBar := res.EquityCurve[2]
	capital := opts.InitialCapital * (1 - opts.CommissionRate)
	capital = capital + (130.0-110.0)*(capital/110.0) - capital*opts.CommissionRate
	assert.InDelta(t, capital, closeBar.Value, 1e-9)
}

func TestRun_EquityCurveShortApproximation(t *testing.T) {
	series := createSeries(100, 80, 120)
	strat := strategy.Strategy{rule(strategy.GreaterOrEqual, 100, signal.Sell, 1)}
	opts := noWarmup()

	res := Run(strat, series, opts, nil)

	capital := opts.InitialCapital * (1 - opts.CommissionRate)
	require.Len(t, res.EquityCurve, 3)
	assert.InDelta(t, capital, res.EquityCurve[0].Value, 1e-9)
	assert.InDelta(t, capital*(2-80.0/100.0), res.EquityCurve[1].Value, 1e-9)
	// a second SELL while already short is ignored
	assert.InDelta(t, capital*(2-120.0/100.0), res.EquityCurve[2].Value, 1e-9)
	assert.Len(t, res.Signals, 1)
}

func randomFixture(seed int64) (candle.Series, []strategy.Strategy) {
	rng := rand.New(rand.NewSource(seed))
	p, _ := candle.SamplePreset("BTC")
	p.Bars = 400
	series := candle.GenerateSample(p, rng)

	strats := make([]strategy.Strategy, 20)
	for i := range strats {
		strats[i] = strategy.NewRandom(rng, 2, 7)
	}
	return series, strats
}

func TestRun_Deterministic(t *testing.T) {
	series, strats := randomFixture(11)

	for i, strat := range strats {
		a := Run(strat, series, DefaultOptions(), indicator.NewCache())
		b := Run(strat, series, DefaultOptions(), indicator.NewCache())
		assert.Equal(t, a.Trades, b.Trades, "strategy %d", i)
		assert.Equal(t, a.Signals, b.Signals, "strategy %d", i)
		assert.Equal(t, a.EquityCurve, b.EquityCurve, "strategy %d", i)
		assert.Equal(t, a.Metrics, b.Metrics, "strategy %d", i)

		// a warm shared cache must not change the outcome
		shared := indicator.NewCache()
		Run(strat, series, DefaultOptions(), shared)
		c := Run(strat, series, DefaultOptions(), shared)
		assert.Equal(t, a.Metrics, c.Metrics, "strategy %d", i)
	}
}

func TestRun_DrawdownInvariant(t *testing.T) {
	series, strats := randomFixture(23)

	for i, strat := range strats {
		res := Run(strat, series, DefaultOptions(), nil)
		require.Len(t, res.DrawdownCurve, len(res.EquityCurve))

		peak := DefaultInitialCapital
		deepest := 0.0
		for j, p := range res.EquityCurve {
			peak = math.Max(peak, p.Value)
			deepest = math.Max(deepest, (peak-p.Value)/peak*100)
			assert.InDelta(t, deepest, res.DrawdownCurve[j], 1e-9, "strategy %d bar %d", i, j)
			if j > 0 {
				assert.GreaterOrEqual(t, res.DrawdownCurve[j], res.DrawdownCurve[j-1])
			}
		}
		assert.InDelta(t, deepest, res.Metrics.MaxDrawdown, 1e-9)
	}
}

func TestRun_LiteralSeriesMatchesNewSeries(t *testing.T) {
	built := createSeries(100, 102, 98, 105, 95, 110, 90, 115)
	literal := candle.Series{Candles: built.Candles}
	strat := strategy.Strategy{
		rule(strategy.GreaterThan, 100, signal.Buy, 1),
		rule(strategy.LessThan, 100, signal.Sell, 1),
	}

	cache := indicator.NewCache()
	got := Run(strat, literal, noWarmup(), cache)
	want := Run(strat, built, noWarmup(), indicator.NewCache())
	assert.Equal(t, want, got)

	// one SMA(1) series, computed once and then served from the cache
	hits, misses := cache.Stats()
	assert.Equal(t, uint64(1), misses)
	assert.Equal(t, uint64(2*built.Len()-1), hits)
}
