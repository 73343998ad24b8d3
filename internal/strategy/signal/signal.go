package signal

import "time"

// Action is what a rule votes for and what a signal records.
type Action string

const (
	Buy   Action = "BUY"
	Sell  Action = "SELL"
	Close Action = "CLOSE"
)

// Actions lists every action in vote order.
var Actions = []Action{Buy, Sell, Close}

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	return a == Buy || a == Sell || a == Close
}

// RuleIndex values carried by signals.
const (
	// VoteRuleIndex marks a signal produced by the weighted vote.
	VoteRuleIndex = 0
	// FlipRuleIndex marks the CLOSE emitted when a BUY flips an open short.
	FlipRuleIndex = -1
)

type Signal struct {
	Time      int64   `json:"time"`
	Action    Action  `json:"type"`
	Price     float64 `json:"price"`
	RuleIndex int     `json:"rule_index"`
}

// Timestamp returns the signal time as UTC.
func (s Signal) Timestamp() time.Time {
	return time.Unix(s.Time, 0).UTC()
}
