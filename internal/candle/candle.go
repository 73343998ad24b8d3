// Package candle
package candle

import (
	"encoding/binary"
	"errors"
	"math"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Candle is a single OHLCV bar. Time is a unix timestamp in seconds.
type Candle struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Timestamp returns the bar time as UTC.
func (c Candle) Timestamp() time.Time {
	return time.Unix(c.Time, 0).UTC()
}

// Validate checks if a candle has valid data
func (c *Candle) Validate() error {
	if c.Time <= 0 {
		return errors.New("candle timestamp is zero")
	}
	if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
		return errors.New("candle prices must be positive")
	}
	if c.High < c.Low {
		return errors.New("candle high cannot be less than low")
	}
	if c.Open < c.Low || c.Open > c.High {
		return errors.New("candle open price must be between high and low")
	}
	if c.Close < c.Low || c.Close > c.High {
		return errors.New("candle close price must be between high and low")
	}
	if c.Volume < 0 {
		return errors.New("candle volume cannot be negative")
	}
	return nil
}

// Series is an ordered, time-ascending run of candles for one instrument.
// Ordering is the loader's job; nothing here re-checks it.
type Series struct {
	Symbol    string
	Timeframe string
	Candles   []Candle

	fingerprint uint64
}

// NewSeries wraps candles and computes the content fingerprint used to key
// cached indicator values.
func NewSeries(symbol, timeframe string, candles []Candle) Series {
	return Series{
		Symbol:      symbol,
		Timeframe:   timeframe,
		Candles:     candles,
		fingerprint: Fingerprint(candles),
	}
}

// Len returns the number of bars.
func (s Series) Len() int { return len(s.Candles) }

// Closes extracts the close prices.
func (s Series) Closes() []float64 {
	closes := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		closes[i] = c.Close
	}
	return closes
}

// Fingerprinted returns s with its fingerprint stored. Entry points that
// accept a Series call it once so later cache lookups never re-hash bars.
func (s Series) Fingerprinted() Series {
	if s.fingerprint == 0 && len(s.Candles) > 0 {
		s.fingerprint = Fingerprint(s.Candles)
	}
	return s
}

// Fingerprint returns the content token of the series. A Series that was
// neither built by NewSeries nor passed through Fingerprinted hashes every
// bar on each call.
func (s Series) Fingerprint() uint64 {
	if s.fingerprint != 0 || len(s.Candles) == 0 {
		return s.fingerprint
	}
	return Fingerprint(s.Candles)
}

// Fingerprint hashes bar times and closes. Indicators only read closes, so
// two series that agree on both produce identical indicator values.
func Fingerprint(candles []Candle) uint64 {
	if len(candles) == 0 {
		return 0
	}
	d := xxhash.New()
	var buf [16]byte
	for _, c := range candles {
		binary.LittleEndian.PutUint64(buf[:8], uint64(c.Time))
		binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(c.Close))
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}
