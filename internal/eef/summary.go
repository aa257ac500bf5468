package eef

import (
	"log/slog"

	"gonum.org/v1/gonum/floats"
)

// Range is the extent of one series. Empty series report N == 0.
type Range struct {
	N        int
	Min, Max float64
}

func rangeOf(s []float64) Range {
	if len(s) == 0 {
		return Range{}
	}
	return Range{N: len(s), Min: floats.Min(s), Max: floats.Max(s)}
}

// LogValue implements slog.LogValuer.
func (r Range) LogValue() slog.Value {
	if r.N == 0 {
		return slog.GroupValue(slog.Int("n", 0))
	}
	return slog.GroupValue(
		slog.Int("n", r.N),
		slog.Float64("min", r.Min),
		slog.Float64("max", r.Max),
	)
}

// Summary describes the intermediate series of one run.
type Summary struct {
	IEFEy      Range
	IEFEz      Range
	FilteredEy Range
	FilteredEz Range
	Gain       Range
	EEF        Range
}

// Summarize computes the range of every series in r.
func Summarize(r *Result) Summary {
	return Summary{
		IEFEy:      rangeOf(r.IEFEy),
		IEFEz:      rangeOf(r.IEFEz),
		FilteredEy: rangeOf(r.FilteredEy),
		FilteredEz: rangeOf(r.FilteredEz),
		Gain:       rangeOf(r.Gain),
		EEF:        rangeOf(r.EEF),
	}
}

func (s Summary) log(logger *slog.Logger) {
	logger.Info("eef processing summary",
		"ief_ey_mV_m", s.IEFEy,
		"ief_ez_mV_m", s.IEFEz,
		"filtered_ey_mV_m", s.FilteredEy,
		"filtered_ez_mV_m", s.FilteredEz,
		"lt_gain", s.Gain,
		"eef_mV_m", s.EEF,
	)
}
