package physics

import (
	"math"

	"github.com/san-kum/dynstep/internal/kkt"
	"github.com/san-kum/dynstep/internal/timestep"
)

// DoublePendulum is two point masses in the plane: the first on a rod of
// length L1 from the origin, the second on a rod of length L2 from the first.
// With d = p2 − p1 the constraints are
//
//	C1 = (|p1|² − L1²) / 2
//	C2 = (|d|² − L2²) / 2
//
// and the state is x = [p1, p2], v = [v1, v2].
type DoublePendulum struct {
	M1, M2  float64
	L1, L2  float64
	Gravity float64
	Damping float64

	p, v [4]float64
	t    float64

	lambda [2]float64
}

func NewDoublePendulum() *DoublePendulum {
	d := &DoublePendulum{
		M1: 1, M2: 1,
		L1: 1, L2: 1,
		Gravity: 9.81,
	}
	d.Place(math.Pi/2, math.Pi/2)
	return d
}

// Place puts both masses at rest with the rods at the given angles from the
// downward vertical.
func (d *DoublePendulum) Place(theta1, theta2 float64) {
	d.p[0] = d.L1 * math.Sin(theta1)
	d.p[1] = -d.L1 * math.Cos(theta1)
	d.p[2] = d.p[0] + d.L2*math.Sin(theta2)
	d.p[3] = d.p[1] - d.L2*math.Cos(theta2)
	d.v = [4]float64{}
}

func (d *DoublePendulum) mass(i int) float64 {
	if i < 2 {
		return d.M1
	}
	return d.M2
}

func (d *DoublePendulum) force() [4]float64 {
	return [4]float64{
		-d.Damping * d.v[0],
		-d.M1*d.Gravity - d.Damping*d.v[1],
		-d.Damping * d.v[2],
		-d.M2*d.Gravity - d.Damping*d.v[3],
	}
}

func (d *DoublePendulum) link() (dx, dy float64) {
	return d.p[2] - d.p[0], d.p[3] - d.p[1]
}

// assembleCq writes the 2x4 constraint Jacobian.
func (d *DoublePendulum) assembleCq(s *kkt.Solver) {
	dx, dy := d.link()
	s.AddCq(0, 0, d.p[0])
	s.AddCq(0, 1, d.p[1])
	s.AddCq(1, 0, -dx)
	s.AddCq(1, 1, -dy)
	s.AddCq(1, 2, dx)
	s.AddCq(1, 3, dy)
}

func (d *DoublePendulum) Energy() float64 {
	kin := 0.5*d.M1*(d.v[0]*d.v[0]+d.v[1]*d.v[1]) + 0.5*d.M2*(d.v[2]*d.v[2]+d.v[3]*d.v[3])
	return kin + d.Gravity*(d.M1*d.p[1]+d.M2*d.p[3])
}

// ConstraintViolation is the larger of the two rod length errors.
func (d *DoublePendulum) ConstraintViolation() float64 {
	dx, dy := d.link()
	e1 := math.Hypot(d.p[0], d.p[1]) - d.L1
	e2 := math.Hypot(dx, dy) - d.L2
	if math.Abs(e2) > math.Abs(e1) {
		return e2
	}
	return e1
}

// Angles from the downward vertical.
func (d *DoublePendulum) Angles() (float64, float64) {
	dx, dy := d.link()
	return math.Atan2(d.p[0], -d.p[1]), math.Atan2(dx, -dy)
}

func (d *DoublePendulum) Snapshot() []float64 {
	out := make([]float64, 0, 8)
	out = append(out, d.p[:]...)
	return append(out, d.v[:]...)
}

func (d *DoublePendulum) Labels() []string {
	return []string{"x1", "y1", "x2", "y2", "vx1", "vy1", "vx2", "vy2"}
}

func (d *DoublePendulum) CoordsX() int     { return 4 }
func (d *DoublePendulum) CoordsV() int     { return 4 }
func (d *DoublePendulum) CoordsA() int     { return 4 }
func (d *DoublePendulum) Constraints() int { return 2 }

func (d *DoublePendulum) StateGatherII(x timestep.State, v timestep.StateDelta) float64 {
	copy(x, d.p[:])
	copy(v, d.v[:])
	return d.t
}

func (d *DoublePendulum) StateScatterII(x timestep.State, v timestep.StateDelta, t float64) {
	copy(d.p[:], x)
	copy(d.v[:], v)
	d.t = t
}

func (d *DoublePendulum) StateIncrementX(dst, x timestep.State, dx timestep.StateDelta) {
	timestep.EuclideanIncrement(dst, x, dx)
}

func (d *DoublePendulum) StateSolveA(dv timestep.StateDelta, l timestep.Vector, x timestep.State, v timestep.StateDelta, t, dt float64, forceScatter bool) {
	if forceScatter {
		d.StateScatterII(x, v, t)
	}
	f := d.force()
	r := make([]float64, 4)
	for i := range r {
		r[i] = f[i] * dt
	}
	wx, wy := d.v[2]-d.v[0], d.v[3]-d.v[1]
	qc := []float64{
		(d.v[0]*d.v[0] + d.v[1]*d.v[1]) * dt,
		(wx*wx + wy*wy) * dt,
	}
	y := make([]float64, 2)

	solveKKT(4, 2, func(s *kkt.Solver) {
		for i := 0; i < 4; i++ {
			s.AddH(i, i, d.mass(i))
		}
		d.assembleCq(s)
	}, dv, y, r, qc)

	for i := range l {
		l[i] = -y[i] / dt
	}
}

// StateSolveCorrection adds the geometric stiffness of both rods: λ1·I on
// the first mass, and λ2 on the link in the pattern [I −I; −I I].
func (d *DoublePendulum) StateSolveCorrection(dv timestep.StateDelta, dl timestep.Vector, r, qc timestep.Vector, cM, cD, cK float64, x timestep.State, v timestep.StateDelta, t float64, forceScatter bool) {
	if forceScatter {
		d.StateScatterII(x, v, t)
	}
	l1, l2 := d.lambda[0], d.lambda[1]
	solveKKT(4, 2, func(s *kkt.Solver) {
		for i := 0; i < 4; i++ {
			h := cM*d.mass(i) - cD*d.Damping + cK*l2
			if i < 2 {
				h += cK * l1
				s.AddH(i, i+2, -cK*l2)
			} else {
				s.AddH(i, i-2, -cK*l2)
			}
			s.AddH(i, i, h)
		}
		d.assembleCq(s)
	}, dv, dl, r, qc)
}

func (d *DoublePendulum) LoadResidualF(r timestep.Vector, c float64) {
	f := d.force()
	for i := range f {
		r[i] += c * f[i]
	}
}

func (d *DoublePendulum) LoadResidualMv(r timestep.Vector, w timestep.StateDelta, c float64) {
	for i := 0; i < 4; i++ {
		r[i] += c * d.mass(i) * w[i]
	}
}

func (d *DoublePendulum) LoadResidualCqL(r timestep.Vector, l timestep.Vector, c float64) {
	d.lambda[0], d.lambda[1] = l[0], l[1]
	dx, dy := d.link()
	r[0] += c * (d.p[0]*l[0] - dx*l[1])
	r[1] += c * (d.p[1]*l[0] - dy*l[1])
	r[2] += c * dx * l[1]
	r[3] += c * dy * l[1]
}

func (d *DoublePendulum) LoadConstraintC(qc timestep.Vector, c float64) {
	dx, dy := d.link()
	qc[0] += c * 0.5 * (d.p[0]*d.p[0] + d.p[1]*d.p[1] - d.L1*d.L1)
	qc[1] += c * 0.5 * (dx*dx + dy*dy - d.L2*d.L2)
}

func (d *DoublePendulum) GetParams() map[string]float64 {
	return map[string]float64{
		"m1":      d.M1,
		"m2":      d.M2,
		"l1":      d.L1,
		"l2":      d.L2,
		"gravity": d.Gravity,
		"damping": d.Damping,
	}
}

func (d *DoublePendulum) SetParam(name string, value float64) error {
	switch name {
	case "m1", "m2", "l1", "l2":
		if err := positive(name, value); err != nil {
			return err
		}
		switch name {
		case "m1":
			d.M1 = value
		case "m2":
			d.M2 = value
		case "l1", "l2":
			// before the run starts the rods keep their angles
			a1, a2 := d.Angles()
			if name == "l1" {
				d.L1 = value
			} else {
				d.L2 = value
			}
			if d.t == 0 {
				d.Place(a1, a2)
			}
		}
	case "gravity":
		d.Gravity = value
	case "damping":
		d.Damping = value
	default:
		return unknownParam(name)
	}
	return nil
}
