package experiment

import (
	"errors"
	"fmt"
	"sort"

	"github.com/san-kum/dynstep/internal/metrics"
	"github.com/san-kum/dynstep/internal/physics"
	"github.com/san-kum/dynstep/internal/timestep"
)

var (
	ErrUnknownSystem = errors.New("experiment: unknown system")
	ErrInitState     = errors.New("experiment: initial state does not match system")
)

// System is what the registry hands out: a second-order integrable system
// that can be recorded and reconfigured.
type System interface {
	timestep.IntegrableII
	Snapshot() []float64
	Labels() []string
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

type Registry struct {
	systems map[string]func(params map[string]float64) System
}

func NewRegistry() *Registry {
	r := &Registry{
		systems: make(map[string]func(map[string]float64) System),
	}

	r.systems["oscillator"] = func(map[string]float64) System { return physics.NewOscillator() }
	r.systems["pendulum"] = func(map[string]float64) System { return physics.NewPendulum() }
	r.systems["double_pendulum"] = func(map[string]float64) System { return physics.NewDoublePendulum() }
	r.systems["spring_chain"] = func(params map[string]float64) System {
		n := int(params["masses"])
		if n <= 0 {
			n = 3
		}
		return physics.NewSpringChain(n)
	}

	return r
}

// GetSystem builds a system and applies params to it. Structural params
// consumed by the constructor ("masses") are not passed to SetParam.
func (r *Registry) GetSystem(name string, params map[string]float64) (System, error) {
	fn, ok := r.systems[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSystem, name)
	}
	sys := fn(params)

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if k == "masses" && name == "spring_chain" {
			continue
		}
		if err := sys.SetParam(k, params[k]); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	return sys, nil
}

// GetStepper builds the named scheme for sys. First-order schemes use the
// system's own first-order form when it has one and FirstOrder otherwise.
func (r *Registry) GetStepper(name string, sys System, opts ...timestep.ImplicitOption) (timestep.Stepper, error) {
	kind, err := timestep.ParseKind(name)
	if err != nil {
		return nil, err
	}
	if !kind.SecondOrder() {
		if fo, ok := sys.(timestep.Integrable); ok {
			return timestep.NewFirstOrder(kind, fo)
		}
	}
	return timestep.New(kind, sys, opts...)
}

func (r *Registry) ListSystems() []string {
	names := make([]string, 0, len(r.systems))
	for name := range r.systems {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) ListSteppers() []string {
	kinds := timestep.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return names
}

func (r *Registry) DefaultMetrics(system string) []metrics.Metric {
	ms := []metrics.Metric{
		metrics.NewEnergy(),
		metrics.NewEnergyDrift(),
		metrics.NewStability(1e6),
		metrics.NewNewtonIterations(),
		metrics.NewNewtonFailures(),
	}
	switch system {
	case "pendulum", "double_pendulum":
		ms = append(ms, metrics.NewConstraintDrift())
	}
	return ms
}

// SetInitial scatters state = [x..., v...] into sys at t = 0.
func SetInitial(sys timestep.IntegrableII, state []float64) error {
	nx, nv := sys.CoordsX(), sys.CoordsV()
	if len(state) != nx+nv {
		return fmt.Errorf("%w: got %d values, want %d", ErrInitState, len(state), nx+nv)
	}
	x := make(timestep.State, nx)
	v := make(timestep.StateDelta, nv)
	copy(x, state[:nx])
	copy(v, state[nx:])
	sys.StateScatterII(x, v, 0)
	return nil
}
