package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/dynstep/internal/metrics"
	"github.com/san-kum/dynstep/internal/timestep"
)

// Runner drives a stepper over a fixed duration and records what the attached
// system looks like after each step.
type Runner struct {
	stepper   timestep.Stepper
	sys       System
	metrics   []metrics.Metric
	observers []Observer
	logger    *slog.Logger
}

func New(stepper timestep.Stepper, sys System) *Runner {
	return &Runner{
		stepper:   stepper,
		sys:       sys,
		metrics:   make([]metrics.Metric, 0),
		observers: make([]Observer, 0),
		logger:    slog.Default(),
	}
}

func (r *Runner) AddMetric(m metrics.Metric) { r.metrics = append(r.metrics, m) }
func (r *Runner) AddObserver(o Observer)     { r.observers = append(r.observers, o) }

func (r *Runner) SetLogger(l *slog.Logger) {
	if l != nil {
		r.logger = l
	}
}

func (r *Runner) Stepper() timestep.Stepper { return r.stepper }

// Run advances the stepper Duration/Dt times. A cancelled context returns the
// partial result together with ctx.Err(). A non-finite state stops the run
// early with a SimError in Result.Errors.
func (r *Runner) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	every := cfg.SampleEvery
	if every <= 0 {
		every = 1
	}

	steps := int(math.Round(cfg.Duration / cfg.Dt))
	result := &Result{
		States:  make([][]float64, 0, steps/every+2),
		Times:   make([]float64, 0, steps/every+2),
		Metrics: make(map[string]float64),
		Errors:  make([]error, 0),
	}

	for _, m := range r.metrics {
		m.Reset()
	}

	first := r.sample(0)
	r.record(result, first)
	r.observe(first)

	r.logger.Debug("run started",
		"steps", steps,
		"dt", cfg.Dt,
		"time", first.Time)

	last := first
	for i := 1; i <= steps; i++ {
		select {
		case <-ctx.Done():
			r.finish(result, first, last)
			return result, ctx.Err()
		default:
		}

		r.stepper.Advance(cfg.Dt)
		s := r.sample(i)

		if cfg.ValidateState && !timestep.State(s.State).IsValid() {
			err := SimError{Time: s.Time, Step: i, Message: "invalid state (NaN/Inf)"}
			r.logger.Error("run aborted", "err", err)
			result.Errors = append(result.Errors, err)
			break
		}

		result.StepsTaken++
		r.observe(s)
		last = s

		if i%every == 0 || i == steps {
			r.record(result, s)
		}
	}

	r.finish(result, first, last)
	return result, nil
}

func validateConfig(cfg Config) error {
	if !(cfg.Dt > 0) {
		return fmt.Errorf("%w: dt must be positive, got %f", ErrInvalidConfig, cfg.Dt)
	}
	if !(cfg.Duration > 0) {
		return fmt.Errorf("%w: duration must be positive, got %f", ErrInvalidConfig, cfg.Duration)
	}
	if cfg.Dt > cfg.Duration {
		return fmt.Errorf("%w: dt %f exceeds duration %f", ErrInvalidConfig, cfg.Dt, cfg.Duration)
	}
	return nil
}

func (r *Runner) sample(step int) metrics.Sample {
	s := metrics.Sample{
		Step:  step,
		Time:  r.stepper.Time(),
		State: r.sys.Snapshot(),
	}
	if e, ok := r.sys.(Energetic); ok {
		s.Energy = e.Energy()
		s.HasEnergy = true
	}
	if c, ok := r.sys.(Constrained); ok {
		s.Violation = c.ConstraintViolation()
		s.HasConstraints = true
	}
	if n, ok := r.stepper.(NewtonReporter); ok && step > 0 {
		stats := n.LastNewton()
		s.Newton = &stats
	}
	return s
}

func (r *Runner) record(result *Result, s metrics.Sample) {
	result.States = append(result.States, s.State)
	result.Times = append(result.Times, s.Time)
}

func (r *Runner) observe(s metrics.Sample) {
	for _, m := range r.metrics {
		m.Observe(s)
	}
	for _, obs := range r.observers {
		obs.OnStep(s)
	}
}

func (r *Runner) finish(result *Result, first, last metrics.Sample) {
	if first.HasEnergy && first.Energy != 0 {
		result.EnergyDrift = math.Abs(last.Energy-first.Energy) / math.Abs(first.Energy)
	}
	for _, m := range r.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	r.logger.Debug("run finished",
		"steps", result.StepsTaken,
		"time", last.Time,
		"energy_drift", result.EnergyDrift)
}
