package timestep

import "log/slog"

const (
	DefaultMaxIters  = 20
	DefaultTolerance = 1e-10
)

// Implicit holds the Newton-Raphson settings of an implicit stepper.
type Implicit struct {
	MaxIters  int
	Tolerance float64
}

func DefaultImplicit() Implicit {
	return Implicit{
		MaxIters:  DefaultMaxIters,
		Tolerance: DefaultTolerance,
	}
}

// NewtonStats describes the Newton iteration of the last step.
type NewtonStats struct {
	// Iterations counts the corrections applied.
	Iterations int
	// Residual is the infinity norm of [R; Qc] at the last check.
	Residual  float64
	Converged bool
}

type implicitOptions struct {
	cfg    Implicit
	logger *slog.Logger
}

type ImplicitOption func(*implicitOptions)

func WithMaxIters(n int) ImplicitOption {
	return func(o *implicitOptions) { o.cfg.MaxIters = n }
}

func WithTolerance(tol float64) ImplicitOption {
	return func(o *implicitOptions) { o.cfg.Tolerance = tol }
}

// WithImplicit replaces both Newton settings at once.
func WithImplicit(cfg Implicit) ImplicitOption {
	return func(o *implicitOptions) { o.cfg = cfg }
}

func WithLogger(l *slog.Logger) ImplicitOption {
	return func(o *implicitOptions) { o.logger = l }
}
