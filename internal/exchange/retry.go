package exchange

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/amirphl/strategy-lab/internal/utils"
)

// RetryPolicy is exponential backoff with jitter.
type RetryPolicy struct {
	Attempts      int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	// JitterRange spreads each delay by ±JitterRange of itself.
	JitterRange float64
}

// DefaultRetryPolicy is three attempts starting at two seconds.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:      3,
		BaseDelay:     2 * time.Second,
		MaxDelay:      5 * time.Minute,
		BackoffFactor: 2.0,
		JitterRange:   0.1,
	}
}

// Delay returns the wait before retry number attempt (zero based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	delay := float64(p.BaseDelay) * math.Pow(p.BackoffFactor, float64(attempt))
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}

	delay += delay * p.JitterRange * (2*rand.Float64() - 1)
	if delay < 0 {
		delay = float64(p.BaseDelay)
	}
	return time.Duration(delay)
}

// retry calls fn until it succeeds, the attempts run out or ctx is done.
func retry(ctx context.Context, p RetryPolicy, name string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < p.Attempts; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt == p.Attempts-1 {
			break
		}
		delay := p.Delay(attempt)
		utils.GetLogger().Printf("Exchange | %s retry attempt %d/%d failed: %v. Backing off for %v",
			name, attempt+1, p.Attempts, lastErr, delay)

		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("all %d attempts failed: %w", p.Attempts, lastErr)
}
