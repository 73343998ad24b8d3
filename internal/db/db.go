// Package db
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/strategy-lab/internal/candle"
)

// Candle is a stored OHLCV row.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Symbol    string
	Timeframe string
	Source    string
}

// Validate checks if a row can be stored.
func (c Candle) Validate() error {
	if c.Symbol == "" {
		return errors.New("candle symbol is empty")
	}
	if c.Timeframe == "" {
		return errors.New("candle timeframe is empty")
	}
	bar := c.ToCandle()
	return bar.Validate()
}

// ToCandle drops the row metadata.
func (c Candle) ToCandle() candle.Candle {
	return candle.Candle{
		Time:   c.Timestamp.Unix(),
		Open:   c.Open,
		High:   c.High,
		Low:    c.Low,
		Close:  c.Close,
		Volume: c.Volume,
	}
}

// FromCandle builds a row for bar.
func FromCandle(bar candle.Candle, symbol, timeframe, source string) Candle {
	return Candle{
		Timestamp: bar.Timestamp(),
		Open:      bar.Open,
		High:      bar.High,
		Low:       bar.Low,
		Close:     bar.Close,
		Volume:    bar.Volume,
		Symbol:    symbol,
		Timeframe: timeframe,
		Source:    source,
	}
}

// CandleStorage reads and writes OHLCV rows.
type CandleStorage interface {
	SaveCandles(ctx context.Context, candles []Candle) error
	// GetCandles returns rows in [start, end) ordered by time. An empty
	// source matches every source.
	GetCandles(ctx context.Context, symbol, timeframe, source string, start, end time.Time) ([]Candle, error)
}

// Storage is the interface for all persistent storage.
type Storage interface {
	GetDB() *sql.DB
	CandleStorage
}

// LoadSeries reads a price series from storage.
func LoadSeries(ctx context.Context, s CandleStorage, symbol, timeframe, source string, start, end time.Time) (candle.Series, error) {
	rows, err := s.GetCandles(ctx, symbol, timeframe, source, start, end)
	if err != nil {
		return candle.Series{}, fmt.Errorf("LoadSeries | %s %s: %w", symbol, timeframe, err)
	}
	bars := make([]candle.Candle, len(rows))
	for i, r := range rows {
		bars[i] = r.ToCandle()
	}
	return candle.NewSeries(symbol, timeframe, bars), nil
}
