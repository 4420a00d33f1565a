package automation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/san-kum/dynstep/internal/config"
	"github.com/san-kum/dynstep/internal/experiment"
	"github.com/san-kum/dynstep/internal/sim"
)

// Sweep varies one quantity of a base config over [Min, Max] in Steps evenly
// spaced values. Param is "dt" or the name of a system parameter.
type Sweep struct {
	Base  *config.Config
	Param string
	Min   float64
	Max   float64
	Steps int
}

type SweepResult struct {
	Value            float64
	Stable           bool
	StepsTaken       int
	EnergyDrift      float64
	NewtonIterations float64
	NewtonFailures   float64
	Final            []float64
}

func (s *Sweep) values() ([]float64, error) {
	if s.Steps < 2 {
		return nil, fmt.Errorf("automation: sweep needs at least 2 steps, got %d", s.Steps)
	}
	if s.Max <= s.Min {
		return nil, fmt.Errorf("automation: sweep range [%g, %g] is empty", s.Min, s.Max)
	}
	vals := make([]float64, s.Steps)
	step := (s.Max - s.Min) / float64(s.Steps-1)
	for i := range vals {
		vals[i] = s.Min + float64(i)*step
	}
	return vals, nil
}

func (s *Sweep) config(v float64) *config.Config {
	cfg := s.Base.Clone()
	if s.Param == "dt" {
		cfg.Dt = v
		return cfg
	}
	if cfg.Params == nil {
		cfg.Params = make(map[string]float64)
	}
	cfg.Params[s.Param] = v
	return cfg
}

// RunSweep runs every point of the sweep concurrently. A point is stable when
// its run finished and every sample stayed bounded.
func RunSweep(ctx context.Context, s *Sweep, reg *experiment.Registry, logger *slog.Logger) ([]SweepResult, error) {
	vals, err := s.values()
	if err != nil {
		return nil, err
	}

	jobs := make([]sim.Job, len(vals))
	for i, v := range vals {
		cfg := s.config(v)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("%s=%g: %w", s.Param, v, err)
		}
		jobs[i] = reg.Job(fmt.Sprintf("%s=%g", s.Param, v), cfg, logger)
	}

	results, err := sim.RunBatch(ctx, jobs)
	if err != nil {
		return nil, err
	}

	out := make([]SweepResult, len(vals))
	for i, res := range results {
		out[i] = SweepResult{
			Value:            vals[i],
			Stable:           len(res.Errors) == 0 && res.Metrics["stability"] == 1,
			StepsTaken:       res.StepsTaken,
			EnergyDrift:      res.EnergyDrift,
			NewtonIterations: res.Metrics["newton_iterations"],
			NewtonFailures:   res.Metrics["newton_failures"],
			Final:            res.Final(),
		}
	}
	return out, nil
}

// StabilityLimit is the last swept value before the first unstable point, or
// false when every point is stable or the first one is not.
func StabilityLimit(results []SweepResult) (float64, bool) {
	for i, r := range results {
		if !r.Stable {
			if i == 0 {
				return 0, false
			}
			return results[i-1].Value, true
		}
	}
	return 0, false
}
