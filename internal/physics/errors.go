package physics

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownParam indicates a parameter name the system does not have.
	ErrUnknownParam = errors.New("physics: unknown parameter")

	// ErrParameterBounds indicates a parameter value outside its valid range.
	ErrParameterBounds = errors.New("physics: parameter out of valid bounds")
)

// ParamError reports a rejected parameter value.
type ParamError struct {
	Name  string
	Value float64
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("physics: %s must be positive, got %g", e.Name, e.Value)
}

func (e *ParamError) Unwrap() error { return ErrParameterBounds }

func positive(name string, v float64) error {
	if !(v > 0) {
		return &ParamError{Name: name, Value: v}
	}
	return nil
}

func unknownParam(name string) error {
	return fmt.Errorf("%w: %s", ErrUnknownParam, name)
}
