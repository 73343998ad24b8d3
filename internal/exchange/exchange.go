// Package exchange downloads historical price series from exchanges.
package exchange

import (
	"context"
	"time"

	"github.com/amirphl/strategy-lab/internal/db"
)

// CandleSource is anything that can supply OHLCV history.
type CandleSource interface {
	Name() string
	// FetchCandles returns bars in [start, end) ordered by time.
	FetchCandles(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]db.Candle, error)
}
