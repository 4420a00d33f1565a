package timestep

// Integrable is a first-order system dY/dt = f(Y, t), possibly subject to
// algebraic constraints.
//
// Every method may assume its containers have the lengths reported by the
// Coords/Constraints methods at the last setup.
type Integrable interface {
	// CoordsY is the length of the state Y.
	CoordsY() int
	// CoordsDy is the length of a state increment dY.
	CoordsDy() int
	// Constraints is the number of active algebraic constraints.
	Constraints() int

	// StateGather copies the current state into y and returns the current
	// time. It does not modify the system.
	StateGather(y State) float64
	// StateScatter sets the state and time, updating every quantity that
	// depends on them.
	StateScatter(y State, t float64)
	// StateIncrement sets dst = y ⊕ dy. dst may alias y.
	StateIncrement(dst, y State, dy StateDelta)

	// StateSolve computes dy = f(y, t)·dt and the multipliers l. When
	// forceScatter is false the caller guarantees the system already holds
	// (y, t).
	StateSolve(dy StateDelta, l Vector, y State, t, dt float64, forceScatter bool)
}

// IntegrableII is a second-order system M·dv/dt = f(x, v, t) + Cqᵀ·λ with
// holonomic constraints C(x) = 0.
type IntegrableII interface {
	CoordsX() int
	CoordsV() int
	CoordsA() int
	Constraints() int

	// StateGatherII copies positions and velocities and returns the time.
	StateGatherII(x State, v StateDelta) float64
	StateScatterII(x State, v StateDelta, t float64)
	// StateIncrementX sets dst = x ⊕ dx. dst may alias x.
	StateIncrementX(dst, x State, dx StateDelta)

	// StateSolveA computes the velocity increment dv = a(x, v, t)·dt and the
	// multipliers l.
	StateSolveA(dv StateDelta, l Vector, x State, v StateDelta, t, dt float64, forceScatter bool)

	// StateSolveCorrection solves the linearized saddle-point system
	//
	//	[ cM·M + cD·∂f/∂v + cK·∂f/∂x   Cqᵀ ] [ dv ]   [  r ]
	//	[ Cq                            0  ] [ dl ] = [ -qc ]
	//
	// at (x, v, t).
	StateSolveCorrection(dv StateDelta, dl Vector, r, qc Vector, cM, cD, cK float64, x State, v StateDelta, t float64, forceScatter bool)

	// LoadResidualF performs r += c·f(x, v, t) at the scattered state.
	LoadResidualF(r Vector, c float64)
	// LoadResidualMv performs r += c·M·w.
	LoadResidualMv(r Vector, w StateDelta, c float64)
	// LoadResidualCqL performs r += c·Cqᵀ·l.
	LoadResidualCqL(r Vector, l Vector, c float64)
	// LoadConstraintC performs qc += c·C(x).
	LoadConstraintC(qc Vector, c float64)
}

// FirstOrder exposes a second-order system as a first-order one with
// Y = [x; v] and dY = [dx; dv], so first-order schemes can integrate it.
func FirstOrder(sys IntegrableII) Integrable {
	return &firstOrder{sys: sys}
}

type firstOrder struct {
	sys IntegrableII
}

func (f *firstOrder) CoordsY() int     { return f.sys.CoordsX() + f.sys.CoordsV() }
func (f *firstOrder) CoordsDy() int    { return 2 * f.sys.CoordsV() }
func (f *firstOrder) Constraints() int { return f.sys.Constraints() }

func (f *firstOrder) split(y State) (State, StateDelta) {
	nx := f.sys.CoordsX()
	mustLen("Y", len(y), nx+f.sys.CoordsV())
	return y[:nx], StateDelta(y[nx:])
}

func (f *firstOrder) StateGather(y State) float64 {
	x, v := f.split(y)
	return f.sys.StateGatherII(x, v)
}

func (f *firstOrder) StateScatter(y State, t float64) {
	x, v := f.split(y)
	f.sys.StateScatterII(x, v, t)
}

func (f *firstOrder) StateIncrement(dst, y State, dy StateDelta) {
	nv := f.sys.CoordsV()
	mustLen("dY", len(dy), 2*nv)
	x, v := f.split(y)
	dx, dv := dy[:nv], dy[nv:]

	dstX, dstV := f.split(dst)
	f.sys.StateIncrementX(dstX, x, dx)
	for i := 0; i < nv; i++ {
		dstV[i] = v[i] + dv[i]
	}
}

func (f *firstOrder) StateSolve(dy StateDelta, l Vector, y State, t, dt float64, forceScatter bool) {
	nv := f.sys.CoordsV()
	mustLen("dY", len(dy), 2*nv)
	x, v := f.split(y)
	for i := 0; i < nv; i++ {
		dy[i] = v[i] * dt
	}
	f.sys.StateSolveA(dy[nv:], l, x, v, t, dt, forceScatter)
}
