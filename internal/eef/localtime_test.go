package eef

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLongitude(t *testing.T) {
	tests := []struct {
		name string
		lon  float64
		want float64
	}{
		{"greenwich", 0, 0},
		{"east", 75.5, 75.5},
		{"west", -75.5, -75.5},
		{"antimeridian", 180, 180},
		{"lower edge", -180, -180},
		{"east of 180", 190, -170},
		{"full circle", 360, 0},
		{"too far west", -181, 0},
		{"too far east", 361, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeLongitude(tt.lon))
		})
	}
}

func TestLocalTimesInitialValue(t *testing.T) {
	midnight := UnixSeconds(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	noon := UnixSeconds(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	tests := []struct {
		name  string
		start float64
		lon   float64
		want  float64
	}{
		{"midnight greenwich", midnight, 0, 0},
		{"noon greenwich", noon, 0, 12},
		{"noon 90E", noon, 90, 18},
		{"midnight 75W wraps", midnight, -75, 19},
		{"noon 190 is 170W", noon, 190, 12 - 170.0/15},
		{"bad longitude falls back", noon, 400, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lt := LocalTimes(tt.start, 1, 300, tt.lon)
			require.Len(t, lt, 1)
			assert.InDelta(t, tt.want, lt[0], 1e-9)
		})
	}
}

func TestLocalTimesWrapAtMidnight(t *testing.T) {
	start := UnixSeconds(time.Date(2024, 3, 1, 23, 0, 0, 0, time.UTC))
	lt := LocalTimes(start, 5, 1800, 0)

	// 24.0 itself is kept; only values above 24 wrap.
	assert.Equal(t, []float64{23, 23.5, 24, 0.5, 1}, lt)
}

func TestLocalTimesWrapsOncePerSample(t *testing.T) {
	start := UnixSeconds(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	lt := LocalTimes(start, 6, 30*3600, 0)
	assert.Equal(t, []float64{0, 6, 12, 18, 24, 30}, lt)
}

func TestLocalTimesBeforeEpoch(t *testing.T) {
	start := UnixSeconds(time.Date(1965, 7, 4, 6, 0, 0, 0, time.UTC))
	lt := LocalTimes(start, 1, 300, -150)
	assert.InDelta(t, 20.0, lt[0], 1e-9)
}

func TestLongitudeComplementsGiveSameGain(t *testing.T) {
	start := UnixSeconds(time.Date(2015, 3, 17, 4, 10, 0, 0, time.UTC))
	east := ResolveGain(nil, start, 576, 300, 190)
	west := ResolveGain(nil, start, 576, 300, -170)
	assert.Equal(t, east, west)
}

func TestGainStaysWithinTable(t *testing.T) {
	table := DefaultTable()
	lo, hi := table.Bounds()
	r := rand.New(rand.NewSource(3))

	for i := 0; i < 200; i++ {
		start := r.Float64() * 2e9
		lon := r.Float64()*900 - 450
		for _, g := range ResolveGain(table, start, 300, 300, lon) {
			require.GreaterOrEqual(t, g, lo)
			require.LessOrEqual(t, g, hi)
		}
	}
}
