package timestep_test

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/dynstep/internal/timestep"
)

var _ = Describe("explicit schemes", func() {
	Context("unit mass under a constant unit force", func() {
		var sys *oscillator

		BeforeEach(func() {
			sys = newOscillator(1, 0, 0, 1, 0, 0)
		})

		It("moves positions with the old velocity in explicit Euler II", func() {
			st := timestep.NewEulerExplicitII(sys)
			st.Advance(1)

			Expect(st.A()[0]).To(Equal(1.0))
			Expect(st.V()[0]).To(Equal(1.0))
			Expect(st.X()[0]).To(Equal(0.0))
		})

		It("moves positions with the new velocity in semi-implicit Euler", func() {
			st := timestep.NewEulerSemiImplicit(sys)
			st.Advance(1)

			Expect(st.A()[0]).To(Equal(1.0))
			Expect(st.V()[0]).To(Equal(1.0))
			Expect(st.X()[0]).To(Equal(1.0))
		})

		It("leaves the system scattered at the new state", func() {
			st := timestep.NewEulerSemiImplicit(sys)
			st.Advance(0.5)

			Expect(sys.x).To(Equal(st.X()[0]))
			Expect(sys.v).To(Equal(st.V()[0]))
			Expect(sys.t).To(Equal(0.5))
		})
	})

	Context("first-order Euler", func() {
		It("applies y += dy and stores dy/dt", func() {
			sys := newOscillator(2, 0, 0, 4, 1, 3)
			st := timestep.NewEulerExplicit(sys)
			st.Advance(0.5)

			Expect(st.Y()).To(Equal(timestep.State{2.5, 4}))
			Expect(st.DYdt()).To(Equal(timestep.StateDelta{3, 2}))
		})
	})

	Context("scatter requests", func() {
		DescribeTable("only the first evaluation of a step skips the scatter",
			func(kind timestep.Kind, want []bool) {
				sys := newOscillator(1, 1, 0, 0, 1, 0)
				st, err := timestep.NewFirstOrder(kind, sys)
				Expect(err).NotTo(HaveOccurred())

				st.Advance(0.1)
				Expect(sys.flags).To(Equal(want))
			},
			Entry("euler", timestep.KindEulerExplicit, []bool{false}),
			Entry("heun", timestep.KindHeun, []bool{false, true}),
			Entry("rk4", timestep.KindRungeKutta4, []bool{false, true, true, true}),
		)

		It("primes leapfrog once and then evaluates once per step", func() {
			sys := newOscillator(1, 1, 0, 0, 1, 0)
			st := timestep.NewLeapfrog(sys)

			st.Advance(0.1)
			Expect(sys.flags).To(Equal([]bool{false, true}))

			st.Advance(0.1)
			Expect(sys.flags).To(Equal([]bool{false, true, true}))
		})
	})

	Context("time", func() {
		DescribeTable("advances by exactly dt",
			func(kind timestep.Kind) {
				sys := newOscillator(1, 1, 0.1, 0, 1, 0)
				sys.t = 0.3
				st, err := timestep.New(kind, sys, timestep.WithLogger(discardLogger()))
				Expect(err).NotTo(HaveOccurred())

				dts := []float64{0.01, 0.02, 0.005, 0.01}
				for _, dt := range dts {
					before := sys.t
					st.Advance(dt)
					Expect(st.Time()).To(Equal(before + dt))
					Expect(sys.t).To(Equal(st.Time()))
				}
			},
			Entry("euler", timestep.KindEulerExplicit),
			Entry("euler2", timestep.KindEulerExplicitII),
			Entry("symplectic", timestep.KindEulerSemiImplicit),
			Entry("leapfrog", timestep.KindLeapfrog),
			Entry("rk4", timestep.KindRungeKutta4),
			Entry("heun", timestep.KindHeun),
			Entry("implicit", timestep.KindEulerImplicit),
		)

		DescribeTable("starts from the system time",
			func(kind timestep.Kind) {
				sys := newOscillator(1, 1, 0, 0, 1, 0)
				sys.t = 2.5
				st, err := timestep.New(kind, sys, timestep.WithLogger(discardLogger()))
				Expect(err).NotTo(HaveOccurred())
				Expect(st.Time()).To(Equal(2.5))
				Expect(sys.scatters).To(BeZero())
			},
			Entry("euler", timestep.KindEulerExplicit),
			Entry("euler2", timestep.KindEulerExplicitII),
			Entry("symplectic", timestep.KindEulerSemiImplicit),
			Entry("leapfrog", timestep.KindLeapfrog),
			Entry("rk4", timestep.KindRungeKutta4),
			Entry("heun", timestep.KindHeun),
			Entry("implicit", timestep.KindEulerImplicit),
		)
	})

	Context("setup", func() {
		It("resizes the containers when the system changes dimension", func() {
			sys := &decays{y: []float64{1, 2}}
			st := timestep.NewRungeKutta4(sys)
			st.Advance(0.1)
			Expect(st.Y()).To(HaveLen(2))

			sys.y = []float64{1, 2, 3}
			st.Advance(0.1)
			Expect(st.Y()).To(HaveLen(3))
			Expect(st.DYdt()).To(HaveLen(3))
			Expect(sys.y[2]).To(BeNumerically("<", 3))
		})
	})
})

var _ = Describe("state containers", func() {
	It("panics with a DimensionError on mismatched lengths", func() {
		var recovered any
		func() {
			defer func() { recovered = recover() }()
			timestep.StateDelta{1, 2}.Add(timestep.StateDelta{1})
		}()

		err, ok := recovered.(error)
		Expect(ok).To(BeTrue())
		Expect(errors.Is(err, timestep.ErrDimensionMismatch)).To(BeTrue())

		var dimErr *timestep.DimensionError
		Expect(errors.As(err, &dimErr)).To(BeTrue())
		Expect(dimErr.Got).To(Equal(1))
		Expect(dimErr.Want).To(Equal(2))
	})

	It("computes infinity norms", func() {
		Expect(timestep.Vector{1, -4, 2}.NormInf()).To(Equal(4.0))
		Expect(timestep.Vector{}.NormInf()).To(Equal(0.0))
		Expect(timestep.StateDelta{-0.5, 0.25}.NormInf()).To(Equal(0.5))
	})

	It("scales and accumulates vectors in place", func() {
		v := timestep.Vector{1, 2}
		v.Scale(2)
		v.AddScaled(timestep.Vector{1, 1}, -1)
		Expect(v).To(Equal(timestep.Vector{1, 3}))

		v.Reset()
		Expect(v).To(Equal(timestep.Vector{0, 0}))
	})

	It("detects non-finite states", func() {
		Expect(timestep.State{1, 2}.IsValid()).To(BeTrue())
		Expect(timestep.State{1, math.Inf(1)}.IsValid()).To(BeFalse())
	})
})

var _ = Describe("FirstOrder", func() {
	It("round-trips gather and scatter through the flattened state", func() {
		sys := newOscillator(1, 1, 0, 0, 0, 0)
		flat := timestep.FirstOrder(sys)
		Expect(flat.CoordsY()).To(Equal(2))
		Expect(flat.CoordsDy()).To(Equal(2))

		flat.StateScatter(timestep.State{0.25, -1.5}, 2.0)
		y := make(timestep.State, 2)
		t := flat.StateGather(y)

		Expect(y).To(Equal(timestep.State{0.25, -1.5}))
		Expect(t).To(Equal(2.0))
	})

	It("builds dY from velocities and the acceleration solve", func() {
		sys := newOscillator(1, 2, 0, 0, 1, 3)
		flat := timestep.FirstOrder(sys)

		dy := make(timestep.StateDelta, 2)
		flat.StateSolve(dy, timestep.Vector{}, timestep.State{1, 3}, 0, 0.1, false)
		Expect(dy[0]).To(BeNumerically("~", 0.3, 1e-15))
		Expect(dy[1]).To(BeNumerically("~", -0.2, 1e-15))
	})
})

var _ = Describe("Kind", func() {
	It("parses every scheme name it prints", func() {
		for _, k := range timestep.Kinds() {
			parsed, err := timestep.ParseKind(k.String())
			Expect(err).NotTo(HaveOccurred())
			Expect(parsed).To(Equal(k))
		}
	})

	It("rejects unknown names", func() {
		_, err := timestep.ParseKind("verlet")
		Expect(err).To(MatchError(timestep.ErrUnknownKind))
	})

	It("refuses second-order schemes on first-order systems", func() {
		_, err := timestep.NewFirstOrder(timestep.KindLeapfrog, &decays{})
		Expect(err).To(HaveOccurred())
	})
})
