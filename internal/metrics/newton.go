package metrics

// NewtonIterations is the mean number of Newton corrections per step.
type NewtonIterations struct {
	name       string
	iterations int
	steps      int
}

func NewNewtonIterations() *NewtonIterations {
	return &NewtonIterations{name: "newton_iterations"}
}

func (n *NewtonIterations) Name() string { return n.name }

func (n *NewtonIterations) Observe(s Sample) {
	if s.Newton == nil {
		return
	}
	n.iterations += s.Newton.Iterations
	n.steps++
}

func (n *NewtonIterations) Value() float64 {
	if n.steps == 0 {
		return 0
	}
	return float64(n.iterations) / float64(n.steps)
}

func (n *NewtonIterations) Reset() {
	n.iterations = 0
	n.steps = 0
}

// NewtonFailures counts steps whose Newton iteration ran out of budget.
type NewtonFailures struct {
	name     string
	failures int
}

func NewNewtonFailures() *NewtonFailures {
	return &NewtonFailures{name: "newton_failures"}
}

func (n *NewtonFailures) Name() string { return n.name }

func (n *NewtonFailures) Observe(s Sample) {
	if s.Newton != nil && !s.Newton.Converged {
		n.failures++
	}
}

func (n *NewtonFailures) Value() float64 { return float64(n.failures) }

func (n *NewtonFailures) Reset() { n.failures = 0 }
