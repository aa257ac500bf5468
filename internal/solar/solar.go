// Package solar holds solar-wind input records and equatorial field output
// records, in row form for ClickHouse/Parquet and in column form for the
// model.
package solar

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/KI7MT/ki7mt-eef/internal/eef"
)

// SchemaVersion is the current solar-wind / EEF schema version.
const SchemaVersion = 1

// ErrIrregularCadence is returned when timestamps are not evenly spaced.
var ErrIrregularCadence = errors.New("timestamps are not evenly spaced")

// WindSample is one cleaned solar-wind record (GSM frame, bow-shock nose).
type WindSample struct {
	Time  time.Time `ch:"time"`  // Sample time UTC
	Speed float64   `ch:"speed"` // Bulk speed km/s
	By    float64   `ch:"by"`    // IMF By nT
	Bz    float64   `ch:"bz"`    // IMF Bz nT
}

// FieldSample is one model output record.
type FieldSample struct {
	Time      time.Time `ch:"time"`      // Shifted sample time UTC
	Longitude float32   `ch:"longitude"` // Station longitude, degrees east
	IEFEy     float64   `ch:"ief_ey"`    // mV/m
	IEFEz     float64   `ch:"ief_ez"`    // mV/m
	Gain      float64   `ch:"gain"`      // NaN when gain was disabled
	EEF       float64   `ch:"eef"`       // mV/m
}

// Series is the column form of a run of WindSamples.
type Series struct {
	Times []time.Time
	Speed []float64
	By    []float64
	Bz    []float64
}

// NewSeries converts rows to columns. Rows are used in the order given.
func NewSeries(rows []WindSample) *Series {
	s := &Series{
		Times: make([]time.Time, len(rows)),
		Speed: make([]float64, len(rows)),
		By:    make([]float64, len(rows)),
		Bz:    make([]float64, len(rows)),
	}
	for i, r := range rows {
		s.Times[i] = r.Time.UTC()
		s.Speed[i] = r.Speed
		s.By[i] = r.By
		s.Bz[i] = r.Bz
	}
	return s
}

// Append adds one sample to the end of the series.
func (s *Series) Append(r WindSample) {
	s.Times = append(s.Times, r.Time.UTC())
	s.Speed = append(s.Speed, r.Speed)
	s.By = append(s.By, r.By)
	s.Bz = append(s.Bz, r.Bz)
}

// Len returns the number of samples.
func (s *Series) Len() int { return len(s.Times) }

// Start returns the first timestamp, or the zero time for an empty series.
func (s *Series) Start() time.Time {
	if len(s.Times) == 0 {
		return time.Time{}
	}
	return s.Times[0]
}

// Cadence returns the spacing of the first two samples, 0 if there are fewer.
func (s *Series) Cadence() time.Duration {
	if len(s.Times) < 2 {
		return 0
	}
	return s.Times[1].Sub(s.Times[0])
}

// CheckRegular verifies that the timestamps increase by a constant step.
func (s *Series) CheckRegular() error {
	step := s.Cadence()
	if len(s.Times) >= 2 && step <= 0 {
		return fmt.Errorf("non-increasing time at index 1 (%s): %w", s.Times[1].Format(time.RFC3339), ErrIrregularCadence)
	}
	for i := 2; i < len(s.Times); i++ {
		if d := s.Times[i].Sub(s.Times[i-1]); d != step {
			return fmt.Errorf("step %v at index %d (%s), want %v: %w",
				d, i, s.Times[i].Format(time.RFC3339), step, ErrIrregularCadence)
		}
	}
	return nil
}

// Input returns the model input view of the series. The slices are shared.
func (s *Series) Input() eef.Input {
	return eef.Input{Speed: s.Speed, By: s.By, Bz: s.Bz}
}

// FieldRows flattens a model result into output rows for one longitude.
// The result must carry timestamps.
func FieldRows(res *eef.Result, lon float64) ([]FieldSample, error) {
	if len(res.Times) != res.Len() {
		return nil, fmt.Errorf("result has %d timestamps for %d samples", len(res.Times), res.Len())
	}
	rows := make([]FieldSample, res.Len())
	for i := range rows {
		gain := math.NaN()
		if len(res.Gain) > 0 {
			gain = res.Gain[i]
		}
		rows[i] = FieldSample{
			Time:      res.Times[i],
			Longitude: float32(lon),
			IEFEy:     res.IEFEy[i],
			IEFEz:     res.IEFEz[i],
			Gain:      gain,
			EEF:       res.EEF[i],
		}
	}
	return rows, nil
}
