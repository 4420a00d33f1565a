package timestep_test

import (
	"bytes"
	"log/slog"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/dynstep/internal/timestep"
)

var _ = Describe("EulerImplicit", func() {
	It("defaults to 20 iterations and a 1e-10 tolerance", func() {
		st := timestep.NewEulerImplicit(newOscillator(1, 1, 0, 0, 1, 0))
		Expect(st.MaxIters).To(Equal(20))
		Expect(st.Tolerance).To(Equal(1e-10))
	})

	It("accepts Newton settings as options", func() {
		st := timestep.NewEulerImplicit(newOscillator(1, 1, 0, 0, 1, 0),
			timestep.WithMaxIters(5),
			timestep.WithTolerance(1e-6))
		Expect(st.MaxIters).To(Equal(5))
		Expect(st.Tolerance).To(Equal(1e-6))
	})

	It("keeps iterating while only the constraint residual is large", func() {
		// no forces and no motion: the force residual is zero from the start
		sys := &tiedPair{m1: 1, m2: 1, x: [2]float64{0.1, 0}}
		st := timestep.NewEulerImplicit(sys, timestep.WithLogger(discardLogger()))
		st.Advance(0.1)

		stats := st.LastNewton()
		Expect(stats.Converged).To(BeTrue())
		Expect(stats.Iterations).To(Equal(1))
		Expect(sys.violation()).To(BeNumerically("~", 0, 1e-12))
		Expect(st.V()[0]).To(BeNumerically("~", -0.5, 1e-12))
		Expect(st.V()[1]).To(BeNumerically("~", 0.5, 1e-12))
	})

	It("converges to the closed-form backward Euler step of a linear oscillator", func() {
		sys := newOscillator(1, 1, 0, 0, 1, 0.5)
		st := timestep.NewEulerImplicit(sys)
		dt := 0.1
		st.Advance(dt)

		vWant := (0.5 - dt*1) / (1 + dt*dt)
		Expect(st.V()[0]).To(BeNumerically("~", vWant, 1e-12))
		Expect(st.X()[0]).To(BeNumerically("~", 1+vWant*dt, 1e-12))
		Expect(st.A()[0]).To(BeNumerically("~", (vWant-0.5)/dt, 1e-10))

		stats := st.LastNewton()
		Expect(stats.Converged).To(BeTrue())
		Expect(stats.Iterations).To(BeNumerically("<=", 3))
		Expect(stats.Residual).To(BeNumerically("<", st.Tolerance))
	})

	It("damps a stiff oscillator where explicit Euler blows up", func() {
		implicitSys := newOscillator(1, 1e4, 0, 0, 1, 0)
		explicitSys := newOscillator(1, 1e4, 0, 0, 1, 0)
		implicit := timestep.NewEulerImplicit(implicitSys, timestep.WithLogger(discardLogger()))
		explicit := timestep.NewEulerExplicitII(explicitSys)

		for i := 0; i < 100; i++ {
			implicit.Advance(0.05)
			explicit.Advance(0.05)
		}

		Expect(math.Abs(implicitSys.x)).To(BeNumerically("<", 1))
		Expect(math.Abs(explicitSys.x)).To(BeNumerically(">", 1e6))
	})

	Context("with a holonomic constraint", func() {
		var sys *tiedPair

		BeforeEach(func() {
			sys = &tiedPair{m1: 1, m2: 1, k: 0, f: 1}
		})

		It("moves both bodies together under a force on one of them", func() {
			st := timestep.NewEulerImplicit(sys)
			dt := 0.01
			for i := 0; i < 10; i++ {
				st.Advance(dt)
				Expect(st.LastNewton().Converged).To(BeTrue())
			}

			Expect(sys.v[0]).To(BeNumerically("~", sys.v[1], 1e-12))
			Expect(sys.v[0]).To(BeNumerically("~", 0.5*sys.t, 1e-12))
		})

		It("drives an initial violation below the tolerance in one step", func() {
			sys.x = [2]float64{0.1, 0}
			st := timestep.NewEulerImplicit(sys)
			dt := 0.01
			st.Advance(dt)

			Expect(st.LastNewton().Converged).To(BeTrue())
			Expect(math.Abs(sys.violation()) / dt).To(BeNumerically("<", st.Tolerance))
		})

		It("recovers the constraint on a spring-loaded pair", func() {
			sys.k = 50
			sys.x = [2]float64{0.2, 0.1}
			st := timestep.NewEulerImplicit(sys)
			dt := 0.02
			for i := 0; i < 20; i++ {
				st.Advance(dt)
				Expect(st.LastNewton().Converged).To(BeTrue())
				Expect(math.Abs(sys.violation()) / dt).To(BeNumerically("<", st.Tolerance))
			}
		})
	})

	Context("when the iteration budget runs out", func() {
		It("commits the last iterate and reports it", func() {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			sys := newOscillator(1, 1, 0, 0, 1, 0.5)
			st := timestep.NewEulerImplicit(sys, timestep.WithMaxIters(1), timestep.WithLogger(logger))
			st.Advance(0.1)

			stats := st.LastNewton()
			Expect(stats.Converged).To(BeFalse())
			Expect(stats.Iterations).To(Equal(1))
			Expect(st.Time()).To(Equal(0.1))
			Expect(sys.x).To(Equal(st.X()[0]))
			Expect(buf.String()).To(ContainSubstring("newton iteration did not converge"))
		})

		It("falls back to the explicit prediction with a zero budget", func() {
			sys := newOscillator(1, 1, 0, 0, 1, 0.5)
			st := timestep.NewEulerImplicit(sys, timestep.WithMaxIters(0), timestep.WithLogger(discardLogger()))
			st.Advance(0.1)

			Expect(st.LastNewton().Iterations).To(Equal(0))
			Expect(st.LastNewton().Converged).To(BeFalse())
			Expect(st.X()[0]).To(BeNumerically("~", 1.05, 1e-15))
			Expect(st.V()[0]).To(BeNumerically("~", 0.4, 1e-15))
		})
	})
})
