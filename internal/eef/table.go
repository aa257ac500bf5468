package eef

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
)

// Local-time gain samples every 10 minutes from 23:55 of the previous day
// (-5 min) to 00:05 of the next (24 h + 5 min). The first and last two
// entries repeat across midnight so queries in [0, 24] never leave the
// table.
var localTimeGains = [...]float64{
	-0.559, -0.548, -0.541, -0.533, -0.523, -0.512, -0.499, -0.485,
	-0.470, -0.454, -0.436, -0.417, -0.397, -0.375, -0.353, -0.329,
	-0.304, -0.279, -0.252, -0.225, -0.196, -0.167, -0.137, -0.107,
	-0.075, -0.044, -0.011, 0.021, 0.055, 0.088, 0.122, 0.155,
	0.189, 0.223, 0.257, 0.291, 0.325, 0.359, 0.392, 0.425,
	0.458, 0.490, 0.522, 0.553, 0.583, 0.613, 0.642, 0.670,
	0.698, 0.724, 0.749, 0.774, 0.797, 0.820, 0.841, 0.861,
	0.880, 0.897, 0.913, 0.928, 0.942, 0.954, 0.965, 0.974,
	0.982, 0.989, 0.994, 0.997, 0.999, 1.000, 0.999, 0.997,
	0.993, 0.988, 0.981, 0.973, 0.963, 0.952, 0.939, 0.925,
	0.910, 0.894, 0.876, 0.857, 0.837, 0.815, 0.793, 0.769,
	0.744, 0.719, 0.692, 0.665, 0.636, 0.607, 0.577, 0.547,
	0.515, 0.484, 0.451, 0.419, 0.386, 0.353, 0.322, 0.292,
	0.265, 0.244, 0.232, 0.231, 0.242, 0.265, 0.297, 0.329,
	0.352, 0.356, 0.334, 0.284, 0.209, 0.116, 0.016, -0.083,
	-0.174, -0.253, -0.319, -0.375, -0.423, -0.464, -0.499, -0.530,
	-0.555, -0.577, -0.593, -0.605, -0.612, -0.615, -0.615, -0.612,
	-0.608, -0.603, -0.597, -0.591, -0.585, -0.578, -0.572, -0.566,
	-0.559, -0.548,
}

const (
	tableStartMinutes = -5
	tableStepMinutes  = 10
)

// LocalTimeTable maps local time in hours to a dimensionless gain.
// It is immutable once built and safe for concurrent use.
type LocalTimeTable struct {
	hours []float64
	gains []float64
	pl    interp.PiecewiseLinear
}

// NewLocalTimeTable builds a table from hours and gains of equal length.
// Hours must be strictly increasing. The slices are copied.
func NewLocalTimeTable(hours, gains []float64) (*LocalTimeTable, error) {
	if len(hours) != len(gains) {
		return nil, fmt.Errorf("%d hours for %d gains: %w", len(hours), len(gains), ErrEmptyTable)
	}
	if len(hours) < 2 {
		return nil, ErrEmptyTable
	}
	for i := 1; i < len(hours); i++ {
		if !(hours[i] > hours[i-1]) {
			return nil, fmt.Errorf("hour %g at index %d: %w", hours[i], i, ErrTableOrder)
		}
	}

	t := &LocalTimeTable{
		hours: append([]float64(nil), hours...),
		gains: append([]float64(nil), gains...),
	}
	if err := t.pl.Fit(t.hours, t.gains); err != nil {
		return nil, fmt.Errorf("fit local-time table: %w", err)
	}
	return t, nil
}

var defaultTable = sync.OnceValue(func() *LocalTimeTable {
	hours := make([]float64, len(localTimeGains))
	for i := range hours {
		hours[i] = float64(tableStartMinutes+i*tableStepMinutes) / 60
	}
	t, err := NewLocalTimeTable(hours, localTimeGains[:])
	if err != nil {
		panic(err)
	}
	return t
})

// DefaultTable returns the built-in local-time gain table.
func DefaultTable() *LocalTimeTable {
	return defaultTable()
}

// Span returns the first and last hour covered by the table.
func (t *LocalTimeTable) Span() (first, last float64) {
	return t.hours[0], t.hours[len(t.hours)-1]
}

// Bounds returns the smallest and largest gain in the table.
func (t *LocalTimeTable) Bounds() (lo, hi float64) {
	return floats.Min(t.gains), floats.Max(t.gains)
}

// Len returns the number of table entries.
func (t *LocalTimeTable) Len() int { return len(t.hours) }

// At interpolates the gain at local time lt (hours).
func (t *LocalTimeTable) At(lt float64) float64 {
	return t.pl.Predict(lt)
}

// Gain interpolates one gain per local-time value.
func (t *LocalTimeTable) Gain(lt []float64) []float64 {
	out := make([]float64, len(lt))
	for i, v := range lt {
		out[i] = t.pl.Predict(v)
	}
	return out
}
