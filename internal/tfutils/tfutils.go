// Package tfutils maps timeframe labels such as "15m" or "1d" to durations.
package tfutils

import (
	"fmt"
	"slices"
	"time"
)

var durations = map[string]time.Duration{
	"1m":  time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"4h":  4 * time.Hour,
	"1d":  24 * time.Hour,
}

// ParseTimeframe converts a timeframe label to its bar duration.
func ParseTimeframe(timeframe string) (time.Duration, error) {
	d, ok := durations[timeframe]
	if !ok {
		return 0, fmt.Errorf("unsupported timeframe: %s", timeframe)
	}
	return d, nil
}

// GetTimeframeDuration is ParseTimeframe without the error; unknown labels
// give 0.
func GetTimeframeDuration(timeframe string) time.Duration {
	return durations[timeframe]
}

// TimeframeMinutes returns the bar length in minutes, 0 if unknown.
func TimeframeMinutes(timeframe string) int {
	return int(durations[timeframe] / time.Minute)
}

// GetSupportedTimeframes lists every label, shortest first.
func GetSupportedTimeframes() []string {
	return []string{"1m", "5m", "15m", "30m", "1h", "4h", "1d"}
}

func IsValidTimeframe(timeframe string) bool {
	return slices.Contains(GetSupportedTimeframes(), timeframe)
}

// BarsBetween is the number of whole bars of timeframe in [start, end).
func BarsBetween(timeframe string, start, end time.Time) int {
	d := durations[timeframe]
	if d == 0 || !end.After(start) {
		return 0
	}
	return int(end.Sub(start) / d)
}
