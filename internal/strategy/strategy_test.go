package strategy

import (
	"math/rand"
	"testing"

	"github.com/amirphl/strategy-lab/internal/indicator"
	"github.com/amirphl/strategy-lab/internal/strategy/signal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomRule_Ranges(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 2000; i++ {
		r := RandomRule(rng)
		c := r.Condition

		pr, ok := PeriodRanges[c.Indicator]
		require.True(t, ok, "unexpected indicator %s", c.Indicator)
		assert.GreaterOrEqual(t, c.Period, pr.Min)
		assert.LessOrEqual(t, c.Period, pr.Max)

		assert.Contains(t, GeneratedOperators, c.Operator)
		assert.True(t, r.Action.Valid())
		assert.GreaterOrEqual(t, r.Weight, 0.3)
		assert.Less(t, r.Weight, 1.0)

		switch c.Target {
		case OperandValue:
			if c.Indicator == indicator.RSI {
				assert.GreaterOrEqual(t, c.Threshold, 20.0)
				assert.LessOrEqual(t, c.Threshold, 80.0)
				assert.Equal(t, float64(int(c.Threshold)), c.Threshold)
			} else {
				assert.GreaterOrEqual(t, c.Threshold, 0.9)
				assert.Less(t, c.Threshold, 1.1)
			}
			assert.Zero(t, c.TargetPeriod)
		case OperandPrice:
			assert.NotEqual(t, indicator.RSI, c.Indicator, "RSI rules never compare against price")
			assert.Zero(t, c.TargetPeriod)
		case OperandSMA, OperandEMA:
			assert.GreaterOrEqual(t, c.TargetPeriod, 5)
			assert.LessOrEqual(t, c.TargetPeriod, 200)
		default:
			t.Fatalf("unexpected target %s", c.Target)
		}
	}
}

func TestNewRandom_HasBuyAndSell(t *testing.T) {
	rng := rand.New(rand.NewSource(99))

	for _, bounds := range [][2]int{{2, 5}, {2, 7}, {7, 7}, {1, 1}} {
		for i := 0; i < 500; i++ {
			s := NewRandom(rng, bounds[0], bounds[1])
			assert.True(t, s.Has(signal.Buy), "bounds %v: %s", bounds, s)
			assert.True(t, s.Has(signal.Sell), "bounds %v: %s", bounds, s)
			assert.GreaterOrEqual(t, len(s), MinRules)
			assert.LessOrEqual(t, len(s), min(bounds[1]+2, MaxRules))
		}
	}
}

func TestBackfill_FullStrategyKeepsOtherAction(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	rules := make(Strategy, MaxRules)
	for i := range rules {
		rules[i] = Rule{Action: signal.Close, Weight: 1}
	}
	rules[MaxRules-1].Action = signal.Sell

	out := backfill(rng, rules, signal.Buy, signal.Sell)
	require.Len(t, out, MaxRules)
	assert.True(t, out.Has(signal.Buy))
	assert.True(t, out.Has(signal.Sell), "the only SELL rule must survive")
}

func TestStrategy_Clone(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	orig := NewRandom(rng, 3, 3)
	clone := orig.Clone()
	require.Equal(t, orig, clone)

	clone[0].Weight = 0.01
	clone[0].Condition.Period = 999
	assert.NotEqual(t, orig[0].Weight, clone[0].Weight)
	assert.NotEqual(t, orig[0].Condition.Period, clone[0].Condition.Period)

	assert.Nil(t, Strategy(nil).Clone())
}

func TestRule_StringAndSignature(t *testing.T) {
	r := Rule{
		Condition: Condition{Indicator: indicator.SMA, Period: 20, Operator: CrossesAbove, Target: OperandEMA, TargetPeriod: 50},
		Action:    signal.Buy,
		Weight:    0.75,
	}
	assert.Equal(t, "SMA(20) crosses_above EMA(50) -> BUY (w=0.75)", r.String())
	assert.Equal(t, "SMA_20_BUY", r.Signature())

	r.Condition.Target = OperandPrice
	assert.Equal(t, "SMA(20) crosses_above price", r.Condition.String())

	r.Condition = Condition{Indicator: indicator.RSI, Period: 14, Operator: LessThan, Target: OperandValue, Threshold: 30}
	assert.Equal(t, "RSI(14) < 30", r.Condition.String())
}

func TestOperator(t *testing.T) {
	assert.True(t, CrossesAbove.Crossing())
	assert.True(t, CrossesBelow.Crossing())
	assert.False(t, GreaterOrEqual.Crossing())
	assert.True(t, LessOrEqual.Valid())
	assert.False(t, Operator("==").Valid())
}

func TestRange_Clamp(t *testing.T) {
	r := Range{Min: 5, Max: 200}
	assert.Equal(t, 5, r.Clamp(-3))
	assert.Equal(t, 200, r.Clamp(250))
	assert.Equal(t, 42, r.Clamp(42))
}

func TestStrategy_Validate(t *testing.T) {
	valid := Rule{
		Condition: Condition{Indicator: indicator.RSI, Period: 14, Operator: CrossesBelow, Target: OperandSMA, TargetPeriod: 20},
		Action:    signal.Buy,
		Weight:    0.5,
	}
	tests := []struct {
		name    string
		mutate  func(*Rule)
		wantErr bool
	}{
		{"valid", func(*Rule) {}, false},
		{"literal target", func(r *Rule) { r.Condition.Target, r.Condition.TargetPeriod = OperandValue, 0 }, false},
		{"unknown indicator", func(r *Rule) { r.Condition.Indicator = "MACD" }, true},
		{"zero period", func(r *Rule) { r.Condition.Period = 0 }, true},
		{"unknown operator", func(r *Rule) { r.Condition.Operator = "==" }, true},
		{"unknown operand", func(r *Rule) { r.Condition.Target = "volume" }, true},
		{"missing second period", func(r *Rule) { r.Condition.TargetPeriod = 0 }, true},
		{"unknown action", func(r *Rule) { r.Action = "HOLD" }, true},
		{"zero weight", func(r *Rule) { r.Weight = 0 }, true},
		{"weight above one", func(r *Rule) { r.Weight = 1.5 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			err := Strategy{r}.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	assert.Error(t, Strategy{}.Validate())
	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 50; i++ {
		assert.NoError(t, NewRandom(rng, MinRules, MaxRules).Validate())
	}
}
