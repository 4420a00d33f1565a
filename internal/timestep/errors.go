package timestep

import (
	"errors"
	"fmt"
)

var (
	// ErrDimensionMismatch indicates a container whose length differs from
	// the dimension reported by the attached system.
	ErrDimensionMismatch = errors.New("timestep: dimension mismatch between container and system")

	// ErrUnknownKind indicates a stepper name that does not map to a scheme.
	ErrUnknownKind = errors.New("timestep: unknown stepper kind")
)

// DimensionError reports which container had the wrong length. Steppers
// panic with it: a mismatch is a programming error, not a runtime condition.
type DimensionError struct {
	Name string
	Got  int
	Want int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%v: %s has length %d, want %d", ErrDimensionMismatch, e.Name, e.Got, e.Want)
}

func (e *DimensionError) Unwrap() error {
	return ErrDimensionMismatch
}

func mustLen(name string, got, want int) {
	if got != want {
		panic(&DimensionError{Name: name, Got: got, Want: want})
	}
}
