package eef

import "time"

// StandardCadence is the sample spacing the transfer functions were
// calibrated for. Other cadences run with the same coefficients.
const StandardCadence = 5 * time.Minute

// Transfer functions from the interplanetary field components to the
// equatorial zonal field, fitted on 5-minute data. Both include a pure
// sample delay in B and a near-unit zero that models shielding.
var (
	eyTransfer = Coefficients{
		B: []float64{0, 0, 0.03, -0.029504144},
		A: []float64{1, -1.7247603, 0.73671398},
	}
	ezTransfer = Coefficients{
		B: []float64{0, 0.009, -0.0089377165},
		A: []float64{1, -1.834094, 0.83845826},
	}
)

// EyTransfer returns the coefficients applied to the dawn-dusk IEF component.
func EyTransfer() Coefficients { return eyTransfer.clone() }

// EzTransfer returns the coefficients applied to the north-south IEF component.
func EzTransfer() Coefficients { return ezTransfer.clone() }

func (c Coefficients) clone() Coefficients {
	return Coefficients{
		B: append([]float64(nil), c.B...),
		A: append([]float64(nil), c.A...),
	}
}
