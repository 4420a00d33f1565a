package physics

import (
	"fmt"

	"github.com/san-kum/dynstep/internal/kkt"
	"github.com/san-kum/dynstep/internal/timestep"
)

const (
	DefaultMass      = 1.0
	DefaultStiffness = 10.0
	DefaultDamping   = 0.2
)

// SpringChain is n masses in a line joined by springs, with the outer springs
// fixed to walls at x = 0. Stiffness has n+1 entries: Stiffness[i] joins mass
// i-1 to mass i, with the walls standing in at both ends. Drive is a constant
// force on the first mass.
type SpringChain struct {
	Masses    []float64
	Stiffness []float64
	Damping   []float64
	Drive     float64

	x, v []float64
	t    float64
}

func NewSpringChain(n int) *SpringChain {
	if n < 1 {
		n = 1
	}
	c := &SpringChain{
		Masses:    make([]float64, n),
		Stiffness: make([]float64, n+1),
		Damping:   make([]float64, n),
		x:         make([]float64, n),
		v:         make([]float64, n),
	}
	for i := 0; i < n; i++ {
		c.Masses[i] = DefaultMass
		c.Stiffness[i] = DefaultStiffness
		c.Damping[i] = DefaultDamping
	}
	c.Stiffness[n] = DefaultStiffness
	c.x[0] = 1.0
	return c
}

func (c *SpringChain) N() int { return len(c.Masses) }

// neighbour returns the displacement of mass j, or 0 for the walls.
func (c *SpringChain) neighbour(j int) float64 {
	if j < 0 || j >= c.N() {
		return 0
	}
	return c.x[j]
}

func (c *SpringChain) force(i int) float64 {
	f := -c.Stiffness[i]*(c.x[i]-c.neighbour(i-1)) -
		c.Stiffness[i+1]*(c.x[i]-c.neighbour(i+1)) -
		c.Damping[i]*c.v[i]
	if i == 0 {
		f += c.Drive
	}
	return f
}

func (c *SpringChain) Energy() float64 {
	n := c.N()
	energy := 0.0
	for i := 0; i < n; i++ {
		energy += 0.5 * c.Masses[i] * c.v[i] * c.v[i]
	}
	for i := 0; i <= n; i++ {
		stretch := c.neighbour(i) - c.neighbour(i-1)
		energy += 0.5 * c.Stiffness[i] * stretch * stretch
	}
	return energy - c.Drive*c.x[0]
}

func (c *SpringChain) Snapshot() []float64 {
	out := make([]float64, 0, 2*c.N())
	out = append(out, c.x...)
	return append(out, c.v...)
}

func (c *SpringChain) Labels() []string {
	n := c.N()
	labels := make([]string, 2*n)
	for i := 0; i < n; i++ {
		labels[i] = fmt.Sprintf("x%d", i)
		labels[n+i] = fmt.Sprintf("v%d", i)
	}
	return labels
}

func (c *SpringChain) CoordsX() int     { return c.N() }
func (c *SpringChain) CoordsV() int     { return c.N() }
func (c *SpringChain) CoordsA() int     { return c.N() }
func (c *SpringChain) Constraints() int { return 0 }

func (c *SpringChain) StateGatherII(x timestep.State, v timestep.StateDelta) float64 {
	copy(x, c.x)
	copy(v, c.v)
	return c.t
}

func (c *SpringChain) StateScatterII(x timestep.State, v timestep.StateDelta, t float64) {
	copy(c.x, x)
	copy(c.v, v)
	c.t = t
}

func (c *SpringChain) StateIncrementX(dst, x timestep.State, dx timestep.StateDelta) {
	timestep.EuclideanIncrement(dst, x, dx)
}

func (c *SpringChain) StateSolveA(dv timestep.StateDelta, l timestep.Vector, x timestep.State, v timestep.StateDelta, t, dt float64, forceScatter bool) {
	if forceScatter {
		c.StateScatterII(x, v, t)
	}
	for i := range c.Masses {
		dv[i] = c.force(i) / c.Masses[i] * dt
	}
}

// StateSolveCorrection solves with the tridiagonal stiffness of the chain:
// ∂f_i/∂x_i = −(k_i + k_{i+1}) and ∂f_i/∂x_{i±1} = k of the joining spring.
func (c *SpringChain) StateSolveCorrection(dv timestep.StateDelta, dl timestep.Vector, r, qc timestep.Vector, cM, cD, cK float64, x timestep.State, v timestep.StateDelta, t float64, forceScatter bool) {
	if forceScatter {
		c.StateScatterII(x, v, t)
	}
	n := c.N()
	solveKKT(n, 0, func(s *kkt.Solver) {
		for i := 0; i < n; i++ {
			s.AddH(i, i, cM*c.Masses[i]-cD*c.Damping[i]-cK*(c.Stiffness[i]+c.Stiffness[i+1]))
			if i > 0 {
				s.AddH(i, i-1, cK*c.Stiffness[i])
			}
			if i < n-1 {
				s.AddH(i, i+1, cK*c.Stiffness[i+1])
			}
		}
	}, dv, dl, r, qc)
}

func (c *SpringChain) LoadResidualF(r timestep.Vector, cf float64) {
	for i := range c.Masses {
		r[i] += cf * c.force(i)
	}
}

func (c *SpringChain) LoadResidualMv(r timestep.Vector, w timestep.StateDelta, cf float64) {
	for i, m := range c.Masses {
		r[i] += cf * m * w[i]
	}
}

func (c *SpringChain) LoadResidualCqL(r timestep.Vector, l timestep.Vector, cf float64) {}

func (c *SpringChain) LoadConstraintC(qc timestep.Vector, cf float64) {}

func (c *SpringChain) GetParams() map[string]float64 {
	return map[string]float64{
		"masses":    float64(c.N()),
		"mass":      c.Masses[0],
		"stiffness": c.Stiffness[0],
		"damping":   c.Damping[0],
		"drive":     c.Drive,
	}
}

// SetParam sets mass, stiffness or damping uniformly along the chain.
func (c *SpringChain) SetParam(name string, value float64) error {
	switch name {
	case "mass":
		if err := positive(name, value); err != nil {
			return err
		}
		fill(c.Masses, value)
	case "stiffness":
		fill(c.Stiffness, value)
	case "damping":
		fill(c.Damping, value)
	case "drive":
		c.Drive = value
	default:
		return unknownParam(name)
	}
	return nil
}

func fill(dst []float64, v float64) {
	for i := range dst {
		dst[i] = v
	}
}
