// Package timestep advances constrained dynamical systems in time.
//
// The package defines the contract a simulated system must satisfy and a set
// of one-step integrators built on top of it:
//
//   - [Integrable]: first-order systems, dY/dt = f(Y, t)
//   - [IntegrableII]: second-order (mechanical) systems with positions,
//     velocities and algebraic constraints
//   - [Stepper]: anything with an Advance(dt) operation
//   - [EulerExplicit], [RungeKutta4], [Heun]: first-order schemes
//   - [EulerExplicitII], [EulerSemiImplicit], [Leapfrog], [EulerImplicit]:
//     second-order schemes
//
// A stepper gathers the state from its system, evaluates derivatives through
// the system, combines them and scatters the result back. Between two calls
// to Advance the system always reflects the last scattered state.
//
// # Example
//
//	sys := physics.NewPendulum()
//	st := timestep.NewEulerImplicit(sys, timestep.WithTolerance(1e-9))
//	for i := 0; i < 1000; i++ {
//		st.Advance(0.001)
//	}
//
// # Thread Safety
//
// Steppers are NOT thread-safe. Independent steppers attached to distinct
// systems may run in parallel.
package timestep
