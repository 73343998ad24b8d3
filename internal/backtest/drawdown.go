package backtest

// DrawdownTracker follows the running equity peak and the deepest
// percentage decline seen from any peak so far.
type DrawdownTracker struct {
	peak float64
	max  float64
}

// NewDrawdownTracker starts with the initial capital as the first peak.
func NewDrawdownTracker(initial float64) *DrawdownTracker {
	return &DrawdownTracker{peak: initial}
}

// Update records one equity value and returns the running maximum drawdown
// in percent. The returned value never decreases.
func (d *DrawdownTracker) Update(equity float64) float64 {
	if equity > d.peak {
		d.peak = equity
	}
	if d.peak > 0 {
		if dd := (d.peak - equity) / d.peak * 100; dd > d.max {
			d.max = dd
		}
	}
	return d.max
}

// Max returns the deepest drawdown observed.
func (d *DrawdownTracker) Max() float64 { return d.max }

// Peak returns the highest equity observed.
func (d *DrawdownTracker) Peak() float64 { return d.peak }
