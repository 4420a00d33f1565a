package timestep_test

import (
	"io"
	"log/slog"

	"github.com/san-kum/dynstep/internal/timestep"
)

// oscillator is a 1-DOF mass-spring-damper under a constant force. It is
// both a first-order system (Y = [x, v]) and a second-order one. When a
// solve is called without forceScatter it evaluates at the stored state, so
// a stepper that skips a needed scatter gets wrong answers.
type oscillator struct {
	m, k, c, f float64
	x, v, t    float64

	flags    []bool
	scatters int
}

func newOscillator(m, k, c, f, x0, v0 float64) *oscillator {
	return &oscillator{m: m, k: k, c: c, f: f, x: x0, v: v0}
}

func (o *oscillator) force() float64 { return o.f - o.k*o.x - o.c*o.v }

func (o *oscillator) energy() float64 { return 0.5*o.m*o.v*o.v + 0.5*o.k*o.x*o.x }

func (o *oscillator) CoordsY() int     { return 2 }
func (o *oscillator) CoordsDy() int    { return 2 }
func (o *oscillator) Constraints() int { return 0 }

func (o *oscillator) StateGather(y timestep.State) float64 {
	y[0], y[1] = o.x, o.v
	return o.t
}

func (o *oscillator) StateScatter(y timestep.State, t float64) {
	o.x, o.v, o.t = y[0], y[1], t
	o.scatters++
}

func (o *oscillator) StateIncrement(dst, y timestep.State, dy timestep.StateDelta) {
	timestep.EuclideanIncrement(dst, y, dy)
}

func (o *oscillator) StateSolve(dy timestep.StateDelta, l timestep.Vector, y timestep.State, t, dt float64, forceScatter bool) {
	o.flags = append(o.flags, forceScatter)
	if forceScatter {
		o.StateScatter(y, t)
	}
	dy[0] = o.v * dt
	dy[1] = o.force() / o.m * dt
}

func (o *oscillator) CoordsX() int { return 1 }
func (o *oscillator) CoordsV() int { return 1 }
func (o *oscillator) CoordsA() int { return 1 }

func (o *oscillator) StateGatherII(x timestep.State, v timestep.StateDelta) float64 {
	x[0], v[0] = o.x, o.v
	return o.t
}

func (o *oscillator) StateScatterII(x timestep.State, v timestep.StateDelta, t float64) {
	o.x, o.v, o.t = x[0], v[0], t
	o.scatters++
}

func (o *oscillator) StateIncrementX(dst, x timestep.State, dx timestep.StateDelta) {
	timestep.EuclideanIncrement(dst, x, dx)
}

func (o *oscillator) StateSolveA(dv timestep.StateDelta, l timestep.Vector, x timestep.State, v timestep.StateDelta, t, dt float64, forceScatter bool) {
	o.flags = append(o.flags, forceScatter)
	if forceScatter {
		o.StateScatterII(x, v, t)
	}
	dv[0] = o.force() / o.m * dt
}

func (o *oscillator) StateSolveCorrection(dv timestep.StateDelta, dl timestep.Vector, r, qc timestep.Vector, cM, cD, cK float64, x timestep.State, v timestep.StateDelta, t float64, forceScatter bool) {
	if forceScatter {
		o.StateScatterII(x, v, t)
	}
	h := cM*o.m + cD*(-o.c) + cK*(-o.k)
	dv[0] = r[0] / h
}

func (o *oscillator) LoadResidualF(r timestep.Vector, c float64) { r[0] += c * o.force() }

func (o *oscillator) LoadResidualMv(r timestep.Vector, w timestep.StateDelta, c float64) {
	r[0] += c * o.m * w[0]
}

func (o *oscillator) LoadResidualCqL(r timestep.Vector, l timestep.Vector, c float64) {}

func (o *oscillator) LoadConstraintC(qc timestep.Vector, c float64) {}

// tiedPair is two masses on springs to the origin, a constant force on the
// first one and a linear constraint x1 - x2 = 0 between them.
type tiedPair struct {
	m1, m2, k, f float64
	x, v         [2]float64
	t            float64
}

func (p *tiedPair) forces() (float64, float64) {
	return p.f - p.k*p.x[0], -p.k * p.x[1]
}

func (p *tiedPair) violation() float64 { return p.x[0] - p.x[1] }

func (p *tiedPair) CoordsX() int     { return 2 }
func (p *tiedPair) CoordsV() int     { return 2 }
func (p *tiedPair) CoordsA() int     { return 2 }
func (p *tiedPair) Constraints() int { return 1 }

func (p *tiedPair) StateGatherII(x timestep.State, v timestep.StateDelta) float64 {
	copy(x, p.x[:])
	copy(v, p.v[:])
	return p.t
}

func (p *tiedPair) StateScatterII(x timestep.State, v timestep.StateDelta, t float64) {
	copy(p.x[:], x)
	copy(p.v[:], v)
	p.t = t
}

func (p *tiedPair) StateIncrementX(dst, x timestep.State, dx timestep.StateDelta) {
	timestep.EuclideanIncrement(dst, x, dx)
}

func (p *tiedPair) StateSolveA(dv timestep.StateDelta, l timestep.Vector, x timestep.State, v timestep.StateDelta, t, dt float64, forceScatter bool) {
	if forceScatter {
		p.StateScatterII(x, v, t)
	}
	f1, f2 := p.forces()
	lambda := (f2/p.m2 - f1/p.m1) / (1/p.m1 + 1/p.m2)
	l[0] = lambda
	dv[0] = (f1 + lambda) / p.m1 * dt
	dv[1] = (f2 - lambda) / p.m2 * dt
}

func (p *tiedPair) StateSolveCorrection(dv timestep.StateDelta, dl timestep.Vector, r, qc timestep.Vector, cM, cD, cK float64, x timestep.State, v timestep.StateDelta, t float64, forceScatter bool) {
	if forceScatter {
		p.StateScatterII(x, v, t)
	}
	h1 := cM*p.m1 + cK*(-p.k)
	h2 := cM*p.m2 + cK*(-p.k)
	dl[0] = (r[0]/h1 - r[1]/h2 + qc[0]) / (1/h1 + 1/h2)
	dv[0] = (r[0] - dl[0]) / h1
	dv[1] = (r[1] + dl[0]) / h2
}

func (p *tiedPair) LoadResidualF(r timestep.Vector, c float64) {
	f1, f2 := p.forces()
	r[0] += c * f1
	r[1] += c * f2
}

func (p *tiedPair) LoadResidualMv(r timestep.Vector, w timestep.StateDelta, c float64) {
	r[0] += c * p.m1 * w[0]
	r[1] += c * p.m2 * w[1]
}

func (p *tiedPair) LoadResidualCqL(r timestep.Vector, l timestep.Vector, c float64) {
	r[0] += c * l[0]
	r[1] -= c * l[0]
}

func (p *tiedPair) LoadConstraintC(qc timestep.Vector, c float64) {
	qc[0] += c * p.violation()
}

// decays is n independent first-order decays dy/dt = -y whose size can be
// changed between steps.
type decays struct {
	y []float64
	t float64
}

func (d *decays) CoordsY() int     { return len(d.y) }
func (d *decays) CoordsDy() int    { return len(d.y) }
func (d *decays) Constraints() int { return 0 }

func (d *decays) StateGather(y timestep.State) float64 {
	copy(y, d.y)
	return d.t
}

func (d *decays) StateScatter(y timestep.State, t float64) {
	copy(d.y, y)
	d.t = t
}

func (d *decays) StateIncrement(dst, y timestep.State, dy timestep.StateDelta) {
	timestep.EuclideanIncrement(dst, y, dy)
}

func (d *decays) StateSolve(dy timestep.StateDelta, l timestep.Vector, y timestep.State, t, dt float64, forceScatter bool) {
	for i := range y {
		dy[i] = -y[i] * dt
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
