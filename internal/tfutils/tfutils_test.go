package tfutils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeframe(t *testing.T) {
	tests := []struct {
		tf      string
		want    time.Duration
		minutes int
	}{
		{"1m", time.Minute, 1},
		{"15m", 15 * time.Minute, 15},
		{"1h", time.Hour, 60},
		{"4h", 4 * time.Hour, 240},
		{"1d", 24 * time.Hour, 1440},
	}
	for _, tt := range tests {
		t.Run(tt.tf, func(t *testing.T) {
			d, err := ParseTimeframe(tt.tf)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d)
			assert.Equal(t, tt.want, GetTimeframeDuration(tt.tf))
			assert.Equal(t, tt.minutes, TimeframeMinutes(tt.tf))
			assert.True(t, IsValidTimeframe(tt.tf))
		})
	}
}

func TestParseTimeframe_Unknown(t *testing.T) {
	_, err := ParseTimeframe("2w")
	assert.Error(t, err)
	assert.Zero(t, TimeframeMinutes("2w"))
	assert.False(t, IsValidTimeframe("2w"))
}

func TestBarsBetween(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 24, BarsBetween("1h", start, start.Add(24*time.Hour)))
	assert.Equal(t, 0, BarsBetween("1h", start, start))
	assert.Equal(t, 0, BarsBetween("bad", start, start.Add(time.Hour)))
}
