package metrics

import "math"

// Energy is the mean total energy over all samples.
type Energy struct {
	sum float64
	n   int
}

func NewEnergy() *Energy { return &Energy{} }

func (e *Energy) Name() string { return "energy" }

func (e *Energy) Observe(s Sample) {
	if s.HasEnergy {
		e.sum += s.Energy
		e.n++
	}
}

func (e *Energy) Value() float64 {
	if e.n == 0 {
		return 0
	}
	return e.sum / float64(e.n)
}

func (e *Energy) Reset() { *e = Energy{} }

// EnergyDrift is the largest deviation from the first observed energy,
// relative to it. When the first energy is zero the drift is absolute.
type EnergyDrift struct {
	e0      float64
	started bool
	worst   float64
}

func NewEnergyDrift() *EnergyDrift { return &EnergyDrift{} }

func (d *EnergyDrift) Name() string { return "energy_drift" }

func (d *EnergyDrift) Observe(s Sample) {
	if !s.HasEnergy {
		return
	}
	if !d.started {
		d.e0, d.started = s.Energy, true
	}
	dev := math.Abs(s.Energy - d.e0)
	if d.e0 != 0 {
		dev /= math.Abs(d.e0)
	}
	if dev > d.worst {
		d.worst = dev
	}
}

func (d *EnergyDrift) Value() float64 { return d.worst }

func (d *EnergyDrift) Reset() { *d = EnergyDrift{} }
