package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/dynstep/internal/config"
	"github.com/san-kum/dynstep/internal/sim"
)

// Job wraps cfg as a batch job. Each job sets up its own experiment, so jobs
// never share a system or stepper.
func (r *Registry) Job(name string, cfg *config.Config, logger *slog.Logger) sim.Job {
	cfg = cfg.Clone()
	exp := New(cfg, logger)
	return sim.Job{
		Name: name,
		Build: func() (*sim.Runner, error) {
			if err := exp.Setup(r); err != nil {
				return nil, err
			}
			return exp.Runner(), nil
		},
		Config: exp.SimConfig(),
	}
}

// Compare runs cfg once per stepper, concurrently.
func Compare(ctx context.Context, reg *Registry, cfg *config.Config, steppers []string, logger *slog.Logger) ([]*sim.Result, error) {
	jobs := make([]sim.Job, len(steppers))
	for i, name := range steppers {
		c := cfg.Clone()
		c.Stepper = name
		jobs[i] = reg.Job(name, c, logger)
	}
	return sim.RunBatch(ctx, jobs)
}

// OrderEstimate is one row of a step-halving study. Difference is the
// max-norm distance between the final states at Dt and Dt/2; Order compares
// it with the next row and is NaN on the last.
type OrderEstimate struct {
	Dt         float64
	Difference float64
	Order      float64
}

// ObservedOrder runs cfg at dt, dt/2, ..., dt/2^levels and estimates the
// order of accuracy as log2(d_k / d_{k+1}) from the differences between
// consecutive final states, so no reference solution is needed.
func ObservedOrder(ctx context.Context, reg *Registry, cfg *config.Config, levels int, logger *slog.Logger) ([]OrderEstimate, error) {
	if levels < 2 {
		return nil, fmt.Errorf("need at least 2 halvings, got %d", levels)
	}

	jobs := make([]sim.Job, levels+1)
	for k := range jobs {
		c := cfg.Clone()
		c.Dt = cfg.Dt / math.Pow(2, float64(k))
		c.SampleEvery = 1 << 30 // only the final state is compared
		jobs[k] = reg.Job(fmt.Sprintf("dt=%g", c.Dt), c, logger)
	}

	results, err := sim.RunBatch(ctx, jobs)
	if err != nil {
		return nil, err
	}
	for i, res := range results {
		if err := res.Err(); err != nil {
			return nil, fmt.Errorf("%s: %w", jobs[i].Name, err)
		}
	}

	out := make([]OrderEstimate, levels)
	for k := range out {
		out[k] = OrderEstimate{
			Dt:         jobs[k].Config.Dt,
			Difference: maxDiff(results[k].Final(), results[k+1].Final()),
			Order:      math.NaN(),
		}
	}
	for k := 0; k+1 < len(out); k++ {
		out[k].Order = math.Log2(out[k].Difference / out[k+1].Difference)
	}
	return out, nil
}

func maxDiff(a, b []float64) float64 {
	d := 0.0
	for i := range a {
		d = math.Max(d, math.Abs(a[i]-b[i]))
	}
	return d
}
