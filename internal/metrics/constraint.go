package metrics

import "math"

// ConstraintDrift is the worst constraint violation seen.
type ConstraintDrift struct {
	name     string
	maxDrift float64
}

func NewConstraintDrift() *ConstraintDrift {
	return &ConstraintDrift{name: "constraint_drift"}
}

func (c *ConstraintDrift) Name() string { return c.name }

func (c *ConstraintDrift) Observe(s Sample) {
	if s.HasConstraints {
		c.maxDrift = math.Max(c.maxDrift, math.Abs(s.Violation))
	}
}

func (c *ConstraintDrift) Value() float64 { return c.maxDrift }

func (c *ConstraintDrift) Reset() { c.maxDrift = 0 }
