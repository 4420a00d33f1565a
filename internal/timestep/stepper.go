package timestep

import (
	"fmt"
	"strings"
)

// Stepper advances an attached system by one time step per call.
//
// Advance adds exactly dt to the time, leaves the system scattered at the new
// state and time, and makes no assumption that dt is constant across calls.
type Stepper interface {
	Advance(dt float64)
	Time() float64
}

type clock struct {
	t float64
}

// Time returns the time reached by the last Advance. Before the first
// Advance it is the system time gathered at construction.
func (c *clock) Time() float64 { return c.t }

// OrderI is the base for steppers of first-order systems. It owns the state
// Y and its derivative dY/dt.
type OrderI struct {
	clock
	sys  Integrable
	y    State
	dydt StateDelta
}

func newOrderI(sys Integrable) OrderI {
	s := OrderI{sys: sys}
	s.gather()
	return s
}

// setup resizes the containers to the dimensions currently reported by the
// system.
func (s *OrderI) setup() {
	s.y = s.y.resize(s.sys.CoordsY())
	s.dydt = s.dydt.resize(s.sys.CoordsDy())
}

func (s *OrderI) gather() {
	s.setup()
	s.t = s.sys.StateGather(s.y)
}

func (s *OrderI) Integrable() Integrable { return s.sys }

// Y is the state at the current time.
func (s *OrderI) Y() State { return s.y }

// DYdt is the derivative of the state at the current time.
func (s *OrderI) DYdt() StateDelta { return s.dydt }

// OrderII is the base for steppers of second-order systems. It owns
// positions, velocities and the accelerations of the last step.
type OrderII struct {
	clock
	sys IntegrableII
	x   State
	v   StateDelta
	a   StateDelta
}

func newOrderII(sys IntegrableII) OrderII {
	s := OrderII{sys: sys}
	s.gather()
	return s
}

// setup resizes the containers and reports whether any of them changed.
func (s *OrderII) setup() bool {
	nx, nv, na := s.sys.CoordsX(), s.sys.CoordsV(), s.sys.CoordsA()
	changed := len(s.x) != nx || len(s.v) != nv || len(s.a) != na
	s.x = s.x.resize(nx)
	s.v = s.v.resize(nv)
	s.a = s.a.resize(na)
	return changed
}

func (s *OrderII) gather() {
	s.setup()
	s.t = s.sys.StateGatherII(s.x, s.v)
}

func (s *OrderII) scatter() {
	s.sys.StateScatterII(s.x, s.v, s.t)
}

func (s *OrderII) Integrable() IntegrableII { return s.sys }

func (s *OrderII) X() State { return s.x }

func (s *OrderII) V() StateDelta { return s.v }

func (s *OrderII) A() StateDelta { return s.a }

// Kind names an integration scheme.
type Kind int

const (
	KindEulerExplicit Kind = iota
	KindEulerExplicitII
	KindEulerSemiImplicit
	KindLeapfrog
	KindRungeKutta4
	KindHeun
	KindEulerImplicit
)

var kindNames = map[Kind]string{
	KindEulerExplicit:     "euler",
	KindEulerExplicitII:   "euler2",
	KindEulerSemiImplicit: "symplectic",
	KindLeapfrog:          "leapfrog",
	KindRungeKutta4:       "rk4",
	KindHeun:              "heun",
	KindEulerImplicit:     "implicit",
}

// Kinds lists every scheme in declaration order.
func Kinds() []Kind {
	return []Kind{
		KindEulerExplicit,
		KindEulerExplicitII,
		KindEulerSemiImplicit,
		KindLeapfrog,
		KindRungeKutta4,
		KindHeun,
		KindEulerImplicit,
	}
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// SecondOrder reports whether the scheme needs an IntegrableII.
func (k Kind) SecondOrder() bool {
	switch k {
	case KindEulerExplicitII, KindEulerSemiImplicit, KindLeapfrog, KindEulerImplicit:
		return true
	}
	return false
}

// Implicit reports whether the scheme runs a Newton iteration.
func (k Kind) Implicit() bool {
	return k == KindEulerImplicit
}

func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}
