package experiment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/san-kum/dynstep/internal/config"
	"github.com/san-kum/dynstep/internal/sim"
	"github.com/san-kum/dynstep/internal/timestep"
)

// Experiment is one configured run: a system, a stepper and a runner with
// the registry's default metrics.
type Experiment struct {
	cfg     *config.Config
	sys     System
	stepper timestep.Stepper
	runner  *sim.Runner
	logger  *slog.Logger
}

func New(cfg *config.Config, logger *slog.Logger) *Experiment {
	if logger == nil {
		logger = slog.Default()
	}
	return &Experiment{cfg: cfg, logger: logger}
}

func (e *Experiment) Setup(reg *Registry) error {
	sys, err := reg.GetSystem(e.cfg.System, e.cfg.Params)
	if err != nil {
		return err
	}
	if len(e.cfg.InitState) > 0 {
		if err := SetInitial(sys, e.cfg.InitState); err != nil {
			return err
		}
	}

	stepper, err := reg.GetStepper(e.cfg.Stepper, sys,
		timestep.WithMaxIters(e.cfg.Newton.MaxIters),
		timestep.WithTolerance(e.cfg.Newton.Tolerance),
		timestep.WithLogger(e.logger))
	if err != nil {
		return err
	}

	e.sys = sys
	e.stepper = stepper
	e.runner = sim.New(stepper, sys)
	e.runner.SetLogger(e.logger)
	for _, m := range reg.DefaultMetrics(e.cfg.System) {
		e.runner.AddMetric(m)
	}
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.runner == nil {
		return nil, fmt.Errorf("experiment not setup")
	}

	e.logger.Info("running",
		"system", e.cfg.System,
		"stepper", e.cfg.Stepper,
		"dt", e.cfg.Dt,
		"duration", e.cfg.Duration)

	return e.runner.Run(ctx, e.SimConfig())
}

func (e *Experiment) SimConfig() sim.Config {
	return sim.Config{
		Dt:            e.cfg.Dt,
		Duration:      e.cfg.Duration,
		SampleEvery:   e.cfg.SampleEvery,
		ValidateState: true,
	}
}

func (e *Experiment) Config() *config.Config { return e.cfg }

func (e *Experiment) System() System { return e.sys }

func (e *Experiment) Stepper() timestep.Stepper { return e.stepper }

// Runner returns the underlying runner for adding observers.
func (e *Experiment) Runner() *sim.Runner { return e.runner }
