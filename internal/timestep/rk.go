package timestep

// RungeKutta4 is the classic explicit fourth-order Runge-Kutta scheme.
type RungeKutta4 struct {
	OrderI
}

func NewRungeKutta4(sys Integrable) *RungeKutta4 {
	return &RungeKutta4{OrderI: newOrderI(sys)}
}

func (r *RungeKutta4) Advance(dt float64) {
	r.gather()

	ny, ndy, nc := r.sys.CoordsY(), r.sys.CoordsDy(), r.sys.Constraints()
	yNew := make(State, ny)
	dy1 := make(StateDelta, ndy)
	dy2 := make(StateDelta, ndy)
	dy3 := make(StateDelta, ndy)
	dy4 := make(StateDelta, ndy)
	l := make(Vector, nc)

	r.sys.StateSolve(dy1, l, r.y, r.t, dt, false)

	r.sys.StateIncrement(yNew, r.y, dy1.Scale(0.5))
	r.sys.StateSolve(dy2, l, yNew, r.t+dt*0.5, dt, true)

	r.sys.StateIncrement(yNew, r.y, dy2.Scale(0.5))
	r.sys.StateSolve(dy3, l, yNew, r.t+dt*0.5, dt, true)

	r.sys.StateIncrement(yNew, r.y, dy3)
	r.sys.StateSolve(dy4, l, yNew, r.t+dt, dt, true)

	sum := dy1.Clone()
	sum.AddScaled(dy2, 2)
	sum.AddScaled(dy3, 2)
	sum.AddScaled(dy4, 1)
	r.sys.StateIncrement(r.y, r.y, sum.Scale(1.0/6.0))
	copy(r.dydt, dy4.Scale(1/dt))
	r.t += dt

	r.sys.StateScatter(r.y, r.t)
}

// Heun is the explicit trapezoidal predictor-corrector, a second-order
// Runge-Kutta scheme.
type Heun struct {
	OrderI
}

func NewHeun(sys Integrable) *Heun {
	return &Heun{OrderI: newOrderI(sys)}
}

func (h *Heun) Advance(dt float64) {
	h.gather()

	ny, ndy, nc := h.sys.CoordsY(), h.sys.CoordsDy(), h.sys.Constraints()
	yNew := make(State, ny)
	dy1 := make(StateDelta, ndy)
	dy2 := make(StateDelta, ndy)
	l := make(Vector, nc)

	h.sys.StateSolve(dy1, l, h.y, h.t, dt, false)

	h.sys.StateIncrement(yNew, h.y, dy1)
	h.sys.StateSolve(dy2, l, yNew, h.t+dt, dt, true)

	h.sys.StateIncrement(h.y, h.y, dy1.Add(dy2).Scale(0.5))
	copy(h.dydt, dy2.Scale(1/dt))
	h.t += dt

	h.sys.StateScatter(h.y, h.t)
}
