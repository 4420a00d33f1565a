package timestep

import (
	"log/slog"
	"math"
)

// EulerImplicit is backward Euler for constrained second-order systems.
//
// Each step predicts (x_new, v_new) with forward Euler, then runs Newton
// iterations on
//
//	M·(v_new − v) = f(x_new, v_new, t+dt)·dt + Cqᵀ·λ·dt
//	C(x_new) = 0,  x_new = x + v_new·dt
//
// until the infinity norm of the residual drops below the tolerance or the
// iteration budget runs out. Both outcomes commit the last iterate; inspect
// LastNewton to tell them apart.
type EulerImplicit struct {
	OrderII
	Implicit
	logger *slog.Logger
	stats  NewtonStats
}

func NewEulerImplicit(sys IntegrableII, opts ...ImplicitOption) *EulerImplicit {
	o := implicitOptions{cfg: DefaultImplicit()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return &EulerImplicit{
		OrderII:  newOrderII(sys),
		Implicit: o.cfg,
		logger:   o.logger,
	}
}

// LastNewton returns the statistics of the most recent Advance.
func (e *EulerImplicit) LastNewton() NewtonStats {
	return e.stats
}

func (e *EulerImplicit) Advance(dt float64) {
	e.gather()

	nx, nv, nc := e.sys.CoordsX(), e.sys.CoordsV(), e.sys.Constraints()
	dv := make(StateDelta, nv)
	dl := make(Vector, nc)
	l := make(Vector, nc)
	xNew := make(State, nx)
	vNew := make(StateDelta, nv)
	r := make(Vector, nv)
	qc := make(Vector, nc)

	// forward Euler prediction; its multipliers are discarded
	e.sys.StateSolveA(dv, make(Vector, nc), e.x, e.v, e.t, dt, false)
	e.sys.StateIncrementX(xNew, e.x, e.v.Scale(dt))
	copy(vNew, e.v)
	vNew.AddScaled(dv, 1)

	tNew := e.t + dt
	stats := NewtonStats{Residual: math.Inf(1)}

	for i := 0; i < e.MaxIters; i++ {
		e.sys.StateScatterII(xNew, vNew, tNew)

		r.Reset()
		qc.Reset()
		e.sys.LoadResidualF(r, dt)
		e.sys.LoadResidualMv(r, e.v.Add(vNew.Scale(-1)), 1)
		e.sys.LoadResidualCqL(r, l, dt)
		e.sys.LoadConstraintC(qc, 1/dt)

		stats.Residual = math.Max(r.NormInf(), qc.NormInf())
		if stats.Residual < e.Tolerance {
			stats.Converged = true
			break
		}

		e.sys.StateSolveCorrection(dv, dl, r, qc, 1, -dt, -dt*dt, xNew, vNew, tNew, false)

		dl.Scale(-1 / dt)
		l.AddScaled(dl, 1)

		vNew.AddScaled(dv, 1)
		e.sys.StateIncrementX(xNew, e.x, vNew.Scale(dt))
		stats.Iterations++
	}

	if !stats.Converged {
		e.logger.Warn("newton iteration did not converge",
			"time", tNew,
			"iterations", stats.Iterations,
			"residual", stats.Residual,
			"tolerance", e.Tolerance)
	}
	e.stats = stats

	copy(e.a, vNew.Add(e.v.Scale(-1)).Scale(1/dt))
	copy(e.x, xNew)
	copy(e.v, vNew)
	e.t = tNew

	e.scatter()
}
