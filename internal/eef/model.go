// Package eef models the prompt penetration of the interplanetary electric
// field (IEF) to the equatorial ionosphere.
//
// Solar-wind speed and the By/Bz components of the interplanetary magnetic
// field are turned into the two IEF components, each component is passed
// through a fixed transfer function, and the sum is weighted by a gain that
// depends on the local time of the station:
//
//	IEF_Ey = -V * Bz / 1000   (km/s * nT -> mV/m)
//	IEF_Ez = -V * By / 1000
//	EEF    = gain(LT) * (H_y * IEF_Ey + H_z * IEF_Ez)
//
// The local time is evaluated at the sample time plus a propagation delay
// (17 minutes by default).
//
// Every call is independent: filter state is allocated per call and the
// package holds no mutable state, so Run is safe for concurrent use.
package eef

import (
	"fmt"
	"log/slog"
	"time"

	"gonum.org/v1/gonum/floats"
)

// DefaultDelay is the propagation delay from the solar-wind reference
// point to the ionosphere.
const DefaultDelay = 17 * time.Minute

// Input holds the three solar-wind series. All must have the same length.
type Input struct {
	Speed []float64 // Bulk speed, km/s
	By    []float64 // IMF By, nT
	Bz    []float64 // IMF Bz, nT
}

// Len returns the length of the speed series.
func (in Input) Len() int { return len(in.Speed) }

func (in Input) validate() error {
	n := len(in.Speed)
	if len(in.By) != n || len(in.Bz) != n {
		return fmt.Errorf("speed=%d by=%d bz=%d: %w", n, len(in.By), len(in.Bz), ErrLengthMismatch)
	}
	return nil
}

// Config controls a model run. Use DefaultConfig as the starting point;
// the zero value disables both gain and delay.
type Config struct {
	Cadence    time.Duration
	Longitude  *float64  // Degrees east; required when ApplyGain is set
	Start      time.Time // Instant of the first sample; required when ApplyGain is set
	ApplyGain  bool
	ApplyDelay bool
	Delay      time.Duration
	Verbose    bool

	Table  *LocalTimeTable // nil selects DefaultTable
	Logger *slog.Logger    // nil selects slog.Default
}

// DefaultConfig returns the standard configuration. Longitude and Start
// still have to be supplied before gain can be applied.
func DefaultConfig() Config {
	return Config{
		Cadence:    StandardCadence,
		ApplyGain:  true,
		ApplyDelay: true,
		Delay:      DefaultDelay,
	}
}

// WithLongitude returns a copy of c with the longitude set.
func (c Config) WithLongitude(lon float64) Config {
	c.Longitude = &lon
	return c
}

// Validate reports configuration errors. It does not check the cadence
// against StandardCadence; that only produces a warning in Run.
func (c Config) Validate() error {
	if c.Cadence <= 0 {
		return fmt.Errorf("cadence %v: %w", c.Cadence, ErrInvalidCadence)
	}
	if c.ApplyGain {
		if c.Longitude == nil {
			return ErrMissingLongitude
		}
		if c.Start.IsZero() {
			return ErrMissingStart
		}
	}
	return nil
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// shiftedStart is the instant used for the gain lookup and the output
// time axis.
func (c Config) shiftedStart() time.Time {
	start := c.Start.UTC()
	if c.ApplyDelay && c.Delay > 0 {
		start = start.Add(c.Delay)
	}
	return start
}

// Result is the output of one run. Every non-empty series has the input
// length.
type Result struct {
	EEF        []float64 // Equatorial electric field, mV/m
	IEFEy      []float64 // mV/m
	IEFEz      []float64 // mV/m
	FilteredEy []float64
	FilteredEz []float64

	// Gain is empty when gain is disabled.
	Gain []float64

	// Times is empty when no start instant was configured.
	Times []time.Time
}

// Len returns the number of output samples.
func (r *Result) Len() int { return len(r.EEF) }

// Run converts the solar-wind input into the equatorial electric field.
// Input and configuration are validated before any work is done; on
// error no partial result is returned.
func Run(in Input, cfg Config) (*Result, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.logger()
	if cfg.Cadence != StandardCadence {
		logger.Warn("cadence differs from the calibrated transfer functions; accuracy is not guaranteed",
			"cadence", cfg.Cadence, "calibrated", StandardCadence)
	}

	n := in.Len()
	res := &Result{
		IEFEy: make([]float64, n),
		IEFEz: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		res.IEFEy[i] = -in.Speed[i] * in.Bz[i] / 1000
		res.IEFEz[i] = -in.Speed[i] * in.By[i] / 1000
	}

	res.FilteredEy = Filter(eyTransfer, res.IEFEy)
	res.FilteredEz = Filter(ezTransfer, res.IEFEz)

	res.EEF = make([]float64, n)
	floats.AddTo(res.EEF, res.FilteredEy, res.FilteredEz)

	if !cfg.Start.IsZero() {
		res.Times = timeAxis(cfg.shiftedStart(), n, cfg.Cadence)
	}

	if cfg.ApplyGain {
		start := UnixSeconds(cfg.shiftedStart())
		res.Gain = ResolveGain(cfg.Table, start, n, cfg.Cadence.Seconds(), *cfg.Longitude)
		floats.Mul(res.EEF, res.Gain)
	}

	if cfg.Verbose {
		Summarize(res).log(logger)
	}
	return res, nil
}

func timeAxis(start time.Time, n int, step time.Duration) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.Add(time.Duration(i) * step)
	}
	return out
}
