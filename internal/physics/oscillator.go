package physics

import (
	"github.com/san-kum/dynstep/internal/kkt"
	"github.com/san-kum/dynstep/internal/timestep"
)

// Oscillator is a single mass on a linear spring with viscous damping and a
// constant applied force:
//
//	m·x'' = F − k·x − c·x'
//
// It can be integrated either as a first-order system with Y = [x, v] or as a
// second-order one.
type Oscillator struct {
	Mass      float64
	Stiffness float64
	Damping   float64
	Force     float64

	x, v, t float64
}

func NewOscillator() *Oscillator {
	return &Oscillator{
		Mass:      1.0,
		Stiffness: 1.0,
		x:         1.0,
	}
}

func (o *Oscillator) force(x, v float64) float64 {
	return o.Force - o.Stiffness*x - o.Damping*v
}

func (o *Oscillator) Energy() float64 {
	return 0.5*o.Mass*o.v*o.v + 0.5*o.Stiffness*o.x*o.x - o.Force*o.x
}

func (o *Oscillator) Snapshot() []float64 { return []float64{o.x, o.v} }

func (o *Oscillator) Labels() []string { return []string{"x", "v"} }

func (o *Oscillator) Constraints() int { return 0 }

func (o *Oscillator) CoordsY() int  { return 2 }
func (o *Oscillator) CoordsDy() int { return 2 }

func (o *Oscillator) StateGather(y timestep.State) float64 {
	y[0], y[1] = o.x, o.v
	return o.t
}

func (o *Oscillator) StateScatter(y timestep.State, t float64) {
	o.x, o.v, o.t = y[0], y[1], t
}

func (o *Oscillator) StateIncrement(dst, y timestep.State, dy timestep.StateDelta) {
	timestep.EuclideanIncrement(dst, y, dy)
}

func (o *Oscillator) StateSolve(dy timestep.StateDelta, l timestep.Vector, y timestep.State, t, dt float64, forceScatter bool) {
	if forceScatter {
		o.StateScatter(y, t)
	}
	dy[0] = o.v * dt
	dy[1] = o.force(o.x, o.v) / o.Mass * dt
}

func (o *Oscillator) CoordsX() int { return 1 }
func (o *Oscillator) CoordsV() int { return 1 }
func (o *Oscillator) CoordsA() int { return 1 }

func (o *Oscillator) StateGatherII(x timestep.State, v timestep.StateDelta) float64 {
	x[0], v[0] = o.x, o.v
	return o.t
}

func (o *Oscillator) StateScatterII(x timestep.State, v timestep.StateDelta, t float64) {
	o.x, o.v, o.t = x[0], v[0], t
}

func (o *Oscillator) StateIncrementX(dst, x timestep.State, dx timestep.StateDelta) {
	timestep.EuclideanIncrement(dst, x, dx)
}

func (o *Oscillator) StateSolveA(dv timestep.StateDelta, l timestep.Vector, x timestep.State, v timestep.StateDelta, t, dt float64, forceScatter bool) {
	if forceScatter {
		o.StateScatterII(x, v, t)
	}
	dv[0] = o.force(o.x, o.v) / o.Mass * dt
}

func (o *Oscillator) StateSolveCorrection(dv timestep.StateDelta, dl timestep.Vector, r, qc timestep.Vector, cM, cD, cK float64, x timestep.State, v timestep.StateDelta, t float64, forceScatter bool) {
	if forceScatter {
		o.StateScatterII(x, v, t)
	}
	solveKKT(1, 0, func(s *kkt.Solver) {
		s.AddH(0, 0, cM*o.Mass-cD*o.Damping-cK*o.Stiffness)
	}, dv, dl, r, qc)
}

func (o *Oscillator) LoadResidualF(r timestep.Vector, c float64) {
	r[0] += c * o.force(o.x, o.v)
}

func (o *Oscillator) LoadResidualMv(r timestep.Vector, w timestep.StateDelta, c float64) {
	r[0] += c * o.Mass * w[0]
}

func (o *Oscillator) LoadResidualCqL(r timestep.Vector, l timestep.Vector, c float64) {}

func (o *Oscillator) LoadConstraintC(qc timestep.Vector, c float64) {}

func (o *Oscillator) GetParams() map[string]float64 {
	return map[string]float64{
		"mass":      o.Mass,
		"stiffness": o.Stiffness,
		"damping":   o.Damping,
		"force":     o.Force,
	}
}

func (o *Oscillator) SetParam(name string, value float64) error {
	switch name {
	case "mass":
		if err := positive(name, value); err != nil {
			return err
		}
		o.Mass = value
	case "stiffness":
		o.Stiffness = value
	case "damping":
		o.Damping = value
	case "force":
		o.Force = value
	default:
		return unknownParam(name)
	}
	return nil
}
