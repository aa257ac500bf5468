package eef

// Coefficients is one fixed transfer function in direct form.
// A includes its leading term; the recursion assumes A[0] == 1.
type Coefficients struct {
	B []float64 // Feed-forward
	A []float64 // Feedback, A[0] is the unity term
}

// normalise returns a copy scaled so that A[0] == 1.
func (c Coefficients) normalise() Coefficients {
	if len(c.A) == 0 || c.A[0] == 1 || c.A[0] == 0 {
		return c
	}
	out := Coefficients{
		B: make([]float64, len(c.B)),
		A: make([]float64, len(c.A)),
	}
	for i := range c.B {
		out.B[i] = c.B[i] / c.A[0]
	}
	for i := range c.A {
		out.A[i] = c.A[i] / c.A[0]
	}
	out.A[0] = 1
	return out
}

// Filter runs x through the recursive filter described by c, starting from
// zero state, and returns one output sample per input sample.
//
// The whole series must be passed in one call. Filtering pieces of a
// series and joining the outputs is not equivalent because the state
// carries across samples.
func Filter(c Coefficients, x []float64) []float64 {
	c = c.normalise()

	n := len(c.B)
	if len(c.A) > n {
		n = len(c.A)
	}
	y := make([]float64, len(x))
	if n == 0 {
		return y
	}

	// Transposed direct form: state[0] holds the next output once the
	// current input has been added in.
	state := make([]float64, n)
	for j, xj := range x {
		copy(state, state[1:])
		state[n-1] = 0

		for k, bk := range c.B {
			state[k] += xj * bk
		}
		for k := 1; k < len(c.A); k++ {
			state[k] -= state[0] * c.A[k]
		}
		y[j] = state[0]
	}
	return y
}
