package timestep

import "math"

// State is a point in the configuration space of a system: the full state Y
// of a first-order system or the positions X of a second-order one.
type State []float64

// StateDelta lives in the tangent space of a State: dY, velocities,
// accelerations and their increments. Its length may differ from the
// length of the State it increments.
type StateDelta []float64

// Vector holds multipliers, residuals and constraint violations.
type Vector []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	return finite(s)
}

// resize returns s if it already has length n, a zeroed State otherwise.
func (s State) resize(n int) State {
	if len(s) == n {
		return s
	}
	return make(State, n)
}

func (d StateDelta) Clone() StateDelta {
	c := make(StateDelta, len(d))
	copy(c, d)
	return c
}

func (d StateDelta) resize(n int) StateDelta {
	if len(d) == n {
		return d
	}
	return make(StateDelta, n)
}

// Add returns d + o.
func (d StateDelta) Add(o StateDelta) StateDelta {
	mustLen("delta operand", len(o), len(d))
	result := make(StateDelta, len(d))
	for i := range d {
		result[i] = d[i] + o[i]
	}
	return result
}

// Scale returns d * c.
func (d StateDelta) Scale(c float64) StateDelta {
	result := make(StateDelta, len(d))
	for i := range d {
		result[i] = d[i] * c
	}
	return result
}

// AddScaled performs d += o * c in place.
func (d StateDelta) AddScaled(o StateDelta, c float64) {
	mustLen("delta operand", len(o), len(d))
	for i := range d {
		d[i] += o[i] * c
	}
}

func (d StateDelta) NormInf() float64 {
	return normInf(d)
}

func (v Vector) Reset() {
	for i := range v {
		v[i] = 0
	}
}

// Scale performs v *= c in place.
func (v Vector) Scale(c float64) {
	for i := range v {
		v[i] *= c
	}
}

// AddScaled performs v += o * c in place.
func (v Vector) AddScaled(o Vector, c float64) {
	mustLen("vector operand", len(o), len(v))
	for i := range v {
		v[i] += o[i] * c
	}
}

func (v Vector) NormInf() float64 {
	return normInf(v)
}

// EuclideanIncrement sets dst = x + dx componentwise. Systems whose
// positions live in a flat space can use it as their increment; dst may
// alias x.
func EuclideanIncrement(dst, x State, dx StateDelta) {
	mustLen("increment destination", len(dst), len(x))
	mustLen("increment delta", len(dx), len(x))
	for i := range x {
		dst[i] = x[i] + dx[i]
	}
}

func normInf(x []float64) float64 {
	m := 0.0
	for _, v := range x {
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	return m
}

func finite(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
