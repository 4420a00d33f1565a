package timestep

// Leapfrog is the velocity form of the leapfrog scheme. It is symplectic and
// second-order accurate when forces depend on positions only:
//
//	x_new = x + v·dt + a_old·dt²/2
//	v_new = v + (a_old + a_new)·dt/2
//
// a_old is the acceleration cached by the previous step, so each step costs a
// single evaluation. Reordering the degrees of freedom between two steps
// invalidates the cache; that is not detected.
type Leapfrog struct {
	OrderII
	primed bool
}

func NewLeapfrog(sys IntegrableII) *Leapfrog {
	return &Leapfrog{OrderII: newOrderII(sys)}
}

func (lf *Leapfrog) Advance(dt float64) {
	if lf.setup() {
		lf.primed = false
	}
	lf.t = lf.sys.StateGatherII(lf.x, lf.v)

	dv := make(StateDelta, lf.sys.CoordsV())
	l := make(Vector, lf.sys.Constraints())

	if !lf.primed {
		lf.sys.StateSolveA(dv, l, lf.x, lf.v, lf.t, dt, false)
		copy(lf.a, dv.Scale(1/dt))
		lf.primed = true
	}
	aOld := lf.a.Clone()

	step := lf.v.Scale(dt)
	step.AddScaled(aOld, 0.5*dt*dt)
	lf.sys.StateIncrementX(lf.x, lf.x, step)

	// the trial positions differ from the gathered ones
	lf.sys.StateSolveA(dv, l, lf.x, lf.v, lf.t+dt, dt, true)
	copy(lf.a, dv.Scale(1/dt))

	lf.v.AddScaled(aOld.Add(lf.a), 0.5*dt)
	lf.t += dt

	lf.scatter()
}
