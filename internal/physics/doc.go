// Package physics provides the mechanical systems the steppers integrate.
//
// Every model implements [timestep.IntegrableII]; the oscillator also
// implements [timestep.Integrable] directly:
//
//   - [Oscillator]: mass-spring-damper under a constant force
//   - [SpringChain]: n masses between two walls
//   - [Pendulum]: point mass on a rigid rod, one holonomic constraint
//   - [DoublePendulum]: two rods in series, two constraints
//
// Positions are Cartesian and constraints are enforced through Lagrange
// multipliers with the convention m·a = f + Cqᵀλ. Correction solves assemble
// a saddle-point matrix and hand it to package kkt.
//
// Energy is exposed by all models and constrained models report their
// largest constraint error:
//
//	p := physics.NewPendulum()
//	st := timestep.NewEulerImplicit(p)
//	for i := 0; i < 1000; i++ {
//		st.Advance(0.01)
//	}
//	fmt.Println(p.Energy(), p.ConstraintViolation())
package physics
