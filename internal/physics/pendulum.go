package physics

import (
	"math"

	"github.com/san-kum/dynstep/internal/kkt"
	"github.com/san-kum/dynstep/internal/timestep"
)

// Pendulum is a point mass in the plane held at distance Length from the
// origin by a rigid massless rod. Coordinates are Cartesian, so the rod is
// one holonomic constraint
//
//	C(p) = (|p|² − L²) / 2,  Cq = pᵀ
//
// and its tension is the Lagrange multiplier λ, entering the equations of
// motion as m·a = f + Cqᵀ·λ. Gravity acts along −y.
type Pendulum struct {
	Mass    float64
	Length  float64
	Gravity float64
	Damping float64

	p, v [2]float64
	t    float64

	// multiplier last loaded into a residual, for the geometric stiffness
	lambda float64
}

func NewPendulum() *Pendulum {
	return &Pendulum{
		Mass:    1.0,
		Length:  1.0,
		Gravity: 9.81,
		p:       [2]float64{1.0, 0},
	}
}

func (p *Pendulum) force() [2]float64 {
	return [2]float64{
		-p.Damping * p.v[0],
		-p.Mass*p.Gravity - p.Damping*p.v[1],
	}
}

func (p *Pendulum) Energy() float64 {
	return 0.5*p.Mass*(p.v[0]*p.v[0]+p.v[1]*p.v[1]) + p.Mass*p.Gravity*p.p[1]
}

// ConstraintViolation is the distance of the mass from the rod's circle.
func (p *Pendulum) ConstraintViolation() float64 {
	return math.Hypot(p.p[0], p.p[1]) - p.Length
}

// Angle from the downward vertical.
func (p *Pendulum) Angle() float64 {
	return math.Atan2(p.p[0], -p.p[1])
}

func (p *Pendulum) Snapshot() []float64 {
	return []float64{p.p[0], p.p[1], p.v[0], p.v[1]}
}

func (p *Pendulum) Labels() []string { return []string{"x", "y", "vx", "vy"} }

func (p *Pendulum) CoordsX() int     { return 2 }
func (p *Pendulum) CoordsV() int     { return 2 }
func (p *Pendulum) CoordsA() int     { return 2 }
func (p *Pendulum) Constraints() int { return 1 }

func (p *Pendulum) StateGatherII(x timestep.State, v timestep.StateDelta) float64 {
	copy(x, p.p[:])
	copy(v, p.v[:])
	return p.t
}

func (p *Pendulum) StateScatterII(x timestep.State, v timestep.StateDelta, t float64) {
	copy(p.p[:], x)
	copy(p.v[:], v)
	p.t = t
}

func (p *Pendulum) StateIncrementX(dst, x timestep.State, dx timestep.StateDelta) {
	timestep.EuclideanIncrement(dst, x, dx)
}

// StateSolveA solves the acceleration-level saddle point
//
//	[ M  pᵀ ] [ dv ]   [  f·dt    ]
//	[ p  0  ] [ y  ] = [ −|v|²·dt ]
//
// which keeps d²C/dt² = p·a + |v|² at zero, and reports λ = −y/dt.
func (p *Pendulum) StateSolveA(dv timestep.StateDelta, l timestep.Vector, x timestep.State, v timestep.StateDelta, t, dt float64, forceScatter bool) {
	if forceScatter {
		p.StateScatterII(x, v, t)
	}
	f := p.force()
	r := []float64{f[0] * dt, f[1] * dt}
	qc := []float64{(p.v[0]*p.v[0] + p.v[1]*p.v[1]) * dt}
	y := make([]float64, 1)

	solveKKT(2, 1, func(s *kkt.Solver) {
		s.AddH(0, 0, p.Mass)
		s.AddH(1, 1, p.Mass)
		s.AddCq(0, 0, p.p[0])
		s.AddCq(0, 1, p.p[1])
	}, dv, y, r, qc)

	if len(l) > 0 {
		l[0] = -y[0] / dt
	}
}

// StateSolveCorrection uses ∂f/∂v = −c·I and, from the rod tension, the
// geometric stiffness ∂(Cqᵀλ)/∂p = λ·I with the last loaded multiplier.
func (p *Pendulum) StateSolveCorrection(dv timestep.StateDelta, dl timestep.Vector, r, qc timestep.Vector, cM, cD, cK float64, x timestep.State, v timestep.StateDelta, t float64, forceScatter bool) {
	if forceScatter {
		p.StateScatterII(x, v, t)
	}
	h := cM*p.Mass - cD*p.Damping + cK*p.lambda
	solveKKT(2, 1, func(s *kkt.Solver) {
		s.AddH(0, 0, h)
		s.AddH(1, 1, h)
		s.AddCq(0, 0, p.p[0])
		s.AddCq(0, 1, p.p[1])
	}, dv, dl, r, qc)
}

func (p *Pendulum) LoadResidualF(r timestep.Vector, c float64) {
	f := p.force()
	r[0] += c * f[0]
	r[1] += c * f[1]
}

func (p *Pendulum) LoadResidualMv(r timestep.Vector, w timestep.StateDelta, c float64) {
	r[0] += c * p.Mass * w[0]
	r[1] += c * p.Mass * w[1]
}

func (p *Pendulum) LoadResidualCqL(r timestep.Vector, l timestep.Vector, c float64) {
	p.lambda = l[0]
	r[0] += c * p.p[0] * l[0]
	r[1] += c * p.p[1] * l[0]
}

func (p *Pendulum) LoadConstraintC(qc timestep.Vector, c float64) {
	qc[0] += c * 0.5 * (p.p[0]*p.p[0] + p.p[1]*p.p[1] - p.Length*p.Length)
}

func (p *Pendulum) GetParams() map[string]float64 {
	return map[string]float64{
		"mass":    p.Mass,
		"length":  p.Length,
		"gravity": p.Gravity,
		"damping": p.Damping,
	}
}

func (p *Pendulum) SetParam(name string, value float64) error {
	switch name {
	case "mass":
		if err := positive(name, value); err != nil {
			return err
		}
		p.Mass = value
	case "length":
		if err := positive(name, value); err != nil {
			return err
		}
		p.Length = value
		if p.t == 0 {
			th := p.Angle()
			p.p = [2]float64{value * math.Sin(th), -value * math.Cos(th)}
			p.v = [2]float64{}
		}
	case "gravity":
		p.Gravity = value
	case "damping":
		p.Damping = value
	default:
		return unknownParam(name)
	}
	return nil
}
