package timestep_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/dynstep/internal/timestep"
)

// globalError integrates the unit harmonic oscillator ẍ = -x from
// x(0) = 1, v(0) = 0 up to t = 1 and returns the worst error against
// x = cos t, v = -sin t.
func globalError(kind timestep.Kind, dt float64) float64 {
	sys := newOscillator(1, 1, 0, 0, 1, 0)

	var st timestep.Stepper
	var err error
	if kind.SecondOrder() {
		st, err = timestep.New(kind, sys, timestep.WithLogger(discardLogger()))
	} else {
		st, err = timestep.NewFirstOrder(kind, sys)
	}
	Expect(err).NotTo(HaveOccurred())

	steps := int(math.Round(1 / dt))
	for i := 0; i < steps; i++ {
		st.Advance(dt)
	}

	return math.Max(math.Abs(sys.x-math.Cos(sys.t)), math.Abs(sys.v+math.Sin(sys.t)))
}

func observedOrder(kind timestep.Kind, dt float64) float64 {
	return math.Log2(globalError(kind, dt) / globalError(kind, dt/2))
}

var _ = Describe("order of accuracy", func() {
	DescribeTable("global error shrinks at the scheme's rate when dt is halved",
		func(kind timestep.Kind, dt, order float64) {
			Expect(observedOrder(kind, dt)).To(BeNumerically("~", order, 0.15))
		},
		Entry("euler", timestep.KindEulerExplicit, 0.01, 1.0),
		Entry("euler2", timestep.KindEulerExplicitII, 0.01, 1.0),
		Entry("symplectic", timestep.KindEulerSemiImplicit, 0.01, 1.0),
		Entry("implicit", timestep.KindEulerImplicit, 0.01, 1.0),
		Entry("heun", timestep.KindHeun, 0.01, 2.0),
		Entry("leapfrog", timestep.KindLeapfrog, 0.01, 2.0),
		Entry("rk4", timestep.KindRungeKutta4, 0.1, 4.0),
	)

	It("integrates a mechanical system with RK4 through FirstOrder", func() {
		sys := newOscillator(1, 1, 0, 0, 1, 0)
		st := timestep.NewRungeKutta4(timestep.FirstOrder(sys))
		for i := 0; i < 100; i++ {
			st.Advance(0.01)
		}
		Expect(sys.x).To(BeNumerically("~", math.Cos(1), 1e-9))
		Expect(sys.v).To(BeNumerically("~", -math.Sin(1), 1e-9))
	})
})

var _ = Describe("energy behaviour", func() {
	maxDrift := func(st timestep.Stepper, sys *oscillator, steps int, dt float64) float64 {
		e0 := sys.energy()
		drift := 0.0
		for i := 0; i < steps; i++ {
			st.Advance(dt)
			drift = math.Max(drift, math.Abs(sys.energy()-e0))
		}
		return drift
	}

	It("keeps leapfrog energy error bounded as the run gets longer", func() {
		short := newOscillator(1, 1, 0, 0, 1, 0)
		long := newOscillator(1, 1, 0, 0, 1, 0)

		shortDrift := maxDrift(timestep.NewLeapfrog(short), short, 1000, 0.1)
		longDrift := maxDrift(timestep.NewLeapfrog(long), long, 10000, 0.1)

		Expect(shortDrift).To(BeNumerically("<", 0.01))
		Expect(longDrift).To(BeNumerically("<", 1.1*shortDrift))
	})

	It("lets explicit Euler energy grow monotonically", func() {
		sys := newOscillator(1, 1, 0, 0, 1, 0)
		st := timestep.NewEulerExplicit(sys)

		prev := sys.energy()
		for i := 0; i < 100; i++ {
			st.Advance(0.1)
			Expect(sys.energy()).To(BeNumerically(">", prev))
			prev = sys.energy()
		}
	})
})
