package physics

import (
	"log/slog"
	"math"

	"github.com/san-kum/dynstep/internal/kkt"
)

// solveKKT builds an n+m saddle-point matrix through assemble and solves it
// for [r; -qc]. A failed factorization fills dv and dl with NaN so that the
// caller's state validation stops the run.
func solveKKT(n, m int, assemble func(*kkt.Solver), dv, dl, r, qc []float64) {
	s, err := kkt.New(n, m)
	if err == nil {
		defer s.Destroy()
		assemble(s)
		err = s.Solve(dv, dl, r, qc)
	}
	if err != nil {
		slog.Debug("correction solve failed", "n", n, "m", m, "err", err)
		for i := range dv {
			dv[i] = math.NaN()
		}
		for i := range dl {
			dl[i] = math.NaN()
		}
	}
}
