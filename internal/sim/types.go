package sim

import (
	"errors"

	"github.com/san-kum/dynstep/internal/metrics"
	"github.com/san-kum/dynstep/internal/timestep"
)

// System is the recording side of an integrable system: a copy of its
// current state.
type System interface {
	Snapshot() []float64
}

type Energetic interface {
	Energy() float64
}

type Constrained interface {
	ConstraintViolation() float64
}

// NewtonReporter is implemented by steppers that run a Newton iteration.
type NewtonReporter interface {
	LastNewton() timestep.NewtonStats
}

type Observer interface {
	OnStep(s metrics.Sample)
}

// ObserverFunc adapts a function to an Observer.
type ObserverFunc func(s metrics.Sample)

func (f ObserverFunc) OnStep(s metrics.Sample) { f(s) }

type Config struct {
	Dt       float64
	Duration float64

	// SampleEvery records one state out of every n steps. The final state is
	// always recorded. Zero means every step.
	SampleEvery int

	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Dt:            0.01,
		Duration:      10.0,
		SampleEvery:   1,
		ValidateState: true,
	}
}

type Result struct {
	States      [][]float64
	Times       []float64
	Metrics     map[string]float64
	StepsTaken  int
	EnergyDrift float64
	Errors      []error
}

// Err joins the errors collected during the run.
func (r *Result) Err() error {
	return errors.Join(r.Errors...)
}

// Final returns the last recorded state.
func (r *Result) Final() []float64 {
	if len(r.States) == 0 {
		return nil
	}
	return r.States[len(r.States)-1]
}
