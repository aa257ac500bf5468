package eef

import "math"

const (
	secondsPerDay  = 86400
	secondsPerHour = 3600
	degreesPerHour = 15
)

// NormalizeLongitude maps a longitude in degrees into [-180, 180].
// Values below -180 or above 360 are not rejected; they become 0.
func NormalizeLongitude(lon float64) float64 {
	if lon < -180 || lon > 360 || math.IsNaN(lon) {
		return 0
	}
	if lon > 180 {
		return lon - 360
	}
	return lon
}

// LocalTimes returns the local time in hours of n samples spaced
// spacing seconds apart, the first at start (Unix seconds), for a
// station at longitude lon (degrees).
//
// Each sample wraps at most once: a running value above 24 loses 24
// before it is recorded, then advances by one spacing.
func LocalTimes(start float64, n int, spacing, lon float64) []float64 {
	lon = NormalizeLongitude(lon)

	ut := math.Mod(start, secondsPerDay)
	if ut < 0 {
		ut += secondsPerDay
	}
	lt := ut/secondsPerHour + lon/degreesPerHour
	if lt < 0 {
		lt += 24
	}

	step := spacing / secondsPerHour
	out := make([]float64, n)
	for i := range out {
		if lt > 24 {
			lt -= 24
		}
		out[i] = lt
		lt += step
	}
	return out
}

// ResolveGain interpolates t at the local time of each sample. A nil
// table selects DefaultTable.
func ResolveGain(t *LocalTimeTable, start float64, n int, spacing, lon float64) []float64 {
	if t == nil {
		t = DefaultTable()
	}
	return t.Gain(LocalTimes(start, n, spacing, lon))
}
