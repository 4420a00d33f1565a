package timestep

// EulerExplicit is the forward Euler scheme for first-order systems:
//
//	y_new = y + f(y, t)·dt
type EulerExplicit struct {
	OrderI
}

func NewEulerExplicit(sys Integrable) *EulerExplicit {
	return &EulerExplicit{OrderI: newOrderI(sys)}
}

func (e *EulerExplicit) Advance(dt float64) {
	e.gather()

	dy := make(StateDelta, e.sys.CoordsDy())
	l := make(Vector, e.sys.Constraints())

	e.sys.StateSolve(dy, l, e.y, e.t, dt, false)

	e.sys.StateIncrement(e.y, e.y, dy)
	copy(e.dydt, dy.Scale(1/dt))
	e.t += dt

	e.sys.StateScatter(e.y, e.t)
}

// EulerExplicitII is forward Euler for second-order systems; positions move
// with the old velocities:
//
//	x_new = x + v·dt
//	v_new = v + a·dt
type EulerExplicitII struct {
	OrderII
}

func NewEulerExplicitII(sys IntegrableII) *EulerExplicitII {
	return &EulerExplicitII{OrderII: newOrderII(sys)}
}

func (e *EulerExplicitII) Advance(dt float64) {
	e.gather()

	dv := make(StateDelta, e.sys.CoordsV())
	l := make(Vector, e.sys.Constraints())

	e.sys.StateSolveA(dv, l, e.x, e.v, e.t, dt, false)

	copy(e.a, dv.Scale(1/dt))
	e.sys.StateIncrementX(e.x, e.x, e.v.Scale(dt))
	e.v.AddScaled(dv, 1)
	e.t += dt

	e.scatter()
}

// EulerSemiImplicit is the symplectic Euler scheme; velocities are updated
// before positions:
//
//	v_new = v + a·dt
//	x_new = x + v_new·dt
type EulerSemiImplicit struct {
	OrderII
}

func NewEulerSemiImplicit(sys IntegrableII) *EulerSemiImplicit {
	return &EulerSemiImplicit{OrderII: newOrderII(sys)}
}

func (e *EulerSemiImplicit) Advance(dt float64) {
	e.gather()

	dv := make(StateDelta, e.sys.CoordsV())
	l := make(Vector, e.sys.Constraints())

	e.sys.StateSolveA(dv, l, e.x, e.v, e.t, dt, false)

	copy(e.a, dv.Scale(1/dt))
	e.v.AddScaled(dv, 1)
	e.sys.StateIncrementX(e.x, e.x, e.v.Scale(dt))
	e.t += dt

	e.scatter()
}
