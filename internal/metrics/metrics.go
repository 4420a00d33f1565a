package metrics

import "github.com/san-kum/dynstep/internal/timestep"

// Sample is one observation of a run: the system state right after a step
// (or before the first one) plus whatever the system and stepper expose.
type Sample struct {
	Step  int
	Time  float64
	State []float64

	Energy    float64
	HasEnergy bool

	Violation      float64
	HasConstraints bool

	// nil unless the stepper runs a Newton iteration
	Newton *timestep.NewtonStats
}

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}
