package timestep

import "fmt"

// New builds a stepper of the given kind for a second-order system. First
// order schemes see the system through FirstOrder.
func New(kind Kind, sys IntegrableII, opts ...ImplicitOption) (Stepper, error) {
	switch kind {
	case KindEulerExplicitII:
		return NewEulerExplicitII(sys), nil
	case KindEulerSemiImplicit:
		return NewEulerSemiImplicit(sys), nil
	case KindLeapfrog:
		return NewLeapfrog(sys), nil
	case KindEulerImplicit:
		return NewEulerImplicit(sys, opts...), nil
	}
	return NewFirstOrder(kind, FirstOrder(sys))
}

// NewFirstOrder builds a stepper of the given kind for a first-order system.
func NewFirstOrder(kind Kind, sys Integrable) (Stepper, error) {
	switch kind {
	case KindEulerExplicit:
		return NewEulerExplicit(sys), nil
	case KindRungeKutta4:
		return NewRungeKutta4(sys), nil
	case KindHeun:
		return NewHeun(sys), nil
	}
	if kind.SecondOrder() {
		return nil, fmt.Errorf("timestep: %s needs a second-order system", kind)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
}
