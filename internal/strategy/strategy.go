// Package strategy models evolvable rule sets: conditions over indicator
// series, weighted rules voting for an action, and strategies (chromosomes)
// made of rules.
package strategy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/amirphl/strategy-lab/internal/indicator"
	"github.com/amirphl/strategy-lab/internal/strategy/signal"
)

// Rule count bounds every strategy must respect after crossover and mutation.
const (
	MinRules = 2
	MaxRules = 7
)

// Operator compares the two operands of a condition.
type Operator string

const (
	GreaterThan    Operator = ">"
	LessThan       Operator = "<"
	GreaterOrEqual Operator = ">="
	LessOrEqual    Operator = "<="
	CrossesAbove   Operator = "crosses_above"
	CrossesBelow   Operator = "crosses_below"
)

// Crossing reports whether op needs the previous bar as well.
func (op Operator) Crossing() bool {
	return op == CrossesAbove || op == CrossesBelow
}

// Valid reports whether op is a known operator.
func (op Operator) Valid() bool {
	switch op {
	case GreaterThan, LessThan, GreaterOrEqual, LessOrEqual, CrossesAbove, CrossesBelow:
		return true
	}
	return false
}

// Operand is the second side of a condition: another indicator, the bar's
// close, or a literal threshold.
type Operand string

const (
	OperandSMA   Operand = Operand(indicator.SMA)
	OperandEMA   Operand = Operand(indicator.EMA)
	OperandRSI   Operand = Operand(indicator.RSI)
	OperandPrice Operand = "price"
	OperandValue Operand = "value"
)

// Indicator returns the indicator kind behind o, if any.
func (o Operand) Indicator() (indicator.Kind, bool) {
	switch o {
	case OperandSMA, OperandEMA, OperandRSI:
		return indicator.Kind(o), true
	}
	return "", false
}

// Condition is "Indicator(Period) Operator Target".
type Condition struct {
	Indicator    indicator.Kind `json:"indicator1" yaml:"indicator1"`
	Period       int            `json:"period1" yaml:"period1"`
	Operator     Operator       `json:"operator" yaml:"operator"`
	Target       Operand        `json:"indicator2" yaml:"indicator2"`
	TargetPeriod int            `json:"period2,omitempty" yaml:"period2,omitempty"`
	Threshold    float64        `json:"threshold,omitempty" yaml:"threshold,omitempty"`
}

func (c Condition) String() string {
	var rhs string
	switch c.Target {
	case OperandPrice:
		rhs = "price"
	case OperandValue:
		rhs = fmt.Sprintf("%.4g", c.Threshold)
	default:
		rhs = fmt.Sprintf("%s(%d)", c.Target, c.TargetPeriod)
	}
	return fmt.Sprintf("%s(%d) %s %s", c.Indicator, c.Period, c.Operator, rhs)
}

// Rule is a gene: a condition, the action it votes for and its weight in
// (0, 1]. Rules are values; mutating one means building a new one.
type Rule struct {
	Condition Condition     `json:"condition" yaml:"condition"`
	Action    signal.Action `json:"action" yaml:"action"`
	Weight    float64       `json:"weight" yaml:"weight"`
}

func (r Rule) String() string {
	return fmt.Sprintf("%s -> %s (w=%.2f)", r.Condition, r.Action, r.Weight)
}

// Signature identifies the rule for diversity accounting.
func (r Rule) Signature() string {
	return fmt.Sprintf("%s_%d_%s", r.Condition.Indicator, r.Condition.Period, r.Action)
}

// Strategy is an ordered chromosome of rules. Duplicates are allowed.
type Strategy []Rule

// Clone returns an independent copy. Rule holds only values, so copying the
// slice is a deep copy.
func (s Strategy) Clone() Strategy {
	if s == nil {
		return nil
	}
	out := make(Strategy, len(s))
	copy(out, s)
	return out
}

// Has reports whether any rule votes for action.
func (s Strategy) Has(action signal.Action) bool {
	for _, r := range s {
		if r.Action == action {
			return true
		}
	}
	return false
}

// Validate checks a strategy that did not come from the generator, such as
// one read back from disk.
func (s Strategy) Validate() error {
	if len(s) == 0 || len(s) > MaxRules {
		return fmt.Errorf("strategy must have 1..%d rules, got %d", MaxRules, len(s))
	}
	for i, r := range s {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("rule %d: %w", i+1, err)
		}
	}
	return nil
}

func (r Rule) Validate() error {
	c := r.Condition
	if _, err := indicator.Lookup(c.Indicator); err != nil {
		return err
	}
	if c.Period < 1 {
		return fmt.Errorf("period must be positive, got %d", c.Period)
	}
	if !c.Operator.Valid() {
		return fmt.Errorf("unknown operator %q", c.Operator)
	}
	switch c.Target {
	case OperandPrice, OperandValue:
	default:
		if _, ok := c.Target.Indicator(); !ok {
			return fmt.Errorf("unknown operand %q", c.Target)
		}
		if c.TargetPeriod < 1 {
			return fmt.Errorf("second period must be positive, got %d", c.TargetPeriod)
		}
	}
	if !r.Action.Valid() {
		return fmt.Errorf("unknown action %q", r.Action)
	}
	if r.Weight <= 0 || r.Weight > 1 {
		return errors.New("weight must be in (0, 1]")
	}
	return nil
}

func (s Strategy) String() string {
	parts := make([]string, len(s))
	for i, r := range s {
		parts[i] = fmt.Sprintf("#%d %s", i+1, r)
	}
	return strings.Join(parts, "; ")
}
