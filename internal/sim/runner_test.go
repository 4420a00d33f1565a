package sim_test

import (
	"context"
	"errors"
	"io"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/dynstep/internal/metrics"
	"github.com/san-kum/dynstep/internal/physics"
	"github.com/san-kum/dynstep/internal/sim"
	"github.com/san-kum/dynstep/internal/timestep"
)

type countingMetric struct {
	count int
}

func (c *countingMetric) Name() string             { return "count" }
func (c *countingMetric) Observe(s metrics.Sample) { c.count++ }
func (c *countingMetric) Value() float64           { return float64(c.count) }
func (c *countingMetric) Reset()                   { c.count = 0 }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func buildRunner(sys *physics.Oscillator, kind timestep.Kind) (*sim.Runner, error) {
	st, err := timestep.New(kind, sys, timestep.WithLogger(quietLogger()))
	if err != nil {
		return nil, err
	}
	r := sim.New(st, sys)
	r.SetLogger(quietLogger())
	return r, nil
}

func newRunner(sys *physics.Oscillator, kind timestep.Kind) *sim.Runner {
	r, err := buildRunner(sys, kind)
	Expect(err).NotTo(HaveOccurred())
	return r
}

var _ = Describe("Runner", func() {
	var (
		sys *physics.Oscillator
		cfg sim.Config
	)

	BeforeEach(func() {
		sys = physics.NewOscillator()
		cfg = sim.Config{Dt: 0.1, Duration: 1.0, ValidateState: true}
	})

	It("records the initial state and one state per step", func() {
		result, err := newRunner(sys, timestep.KindEulerSemiImplicit).Run(context.Background(), cfg)
		Expect(err).NotTo(HaveOccurred())

		Expect(result.States).To(HaveLen(11))
		Expect(result.Times).To(HaveLen(11))
		Expect(result.StepsTaken).To(Equal(10))
		Expect(result.Times[0]).To(Equal(0.0))
		Expect(result.Times[10]).To(BeNumerically("~", 1.0, 1e-12))
		Expect(result.States[0]).To(Equal([]float64{1, 0}))
		Expect(result.Final()).To(Equal(sys.Snapshot()))
		Expect(result.Err()).NotTo(HaveOccurred())
	})

	It("starts recording at the system time", func() {
		sys.StateScatterII(timestep.State{1}, timestep.StateDelta{0}, 3)

		result, err := newRunner(sys, timestep.KindLeapfrog).Run(context.Background(), cfg)
		Expect(err).NotTo(HaveOccurred())

		Expect(result.Times[0]).To(Equal(3.0))
		Expect(result.Times[10]).To(BeNumerically("~", 4.0, 1e-12))
	})

	It("observes every sample including the initial one", func() {
		r := newRunner(sys, timestep.KindRungeKutta4)
		counter := &countingMetric{}
		r.AddMetric(counter)

		var times []float64
		r.AddObserver(sim.ObserverFunc(func(s metrics.Sample) {
			times = append(times, s.Time)
		}))

		result, err := r.Run(context.Background(), cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(counter.count).To(Equal(11))
		Expect(result.Metrics).To(HaveKeyWithValue("count", 11.0))
		Expect(times).To(HaveLen(11))
	})

	It("thins the recorded states but keeps the final one", func() {
		cfg.SampleEvery = 3
		result, err := newRunner(sys, timestep.KindLeapfrog).Run(context.Background(), cfg)
		Expect(err).NotTo(HaveOccurred())

		Expect(result.States).To(HaveLen(5))
		Expect(result.Times[1]).To(BeNumerically("~", 0.3, 1e-12))
		Expect(result.Times[4]).To(BeNumerically("~", 1.0, 1e-12))
	})

	DescribeTable("rejects unusable configurations",
		func(c sim.Config) {
			_, err := newRunner(sys, timestep.KindEulerExplicit).Run(context.Background(), c)
			Expect(err).To(MatchError(sim.ErrInvalidConfig))
		},
		Entry("zero dt", sim.Config{Dt: 0, Duration: 1}),
		Entry("negative dt", sim.Config{Dt: -0.1, Duration: 1}),
		Entry("zero duration", sim.Config{Dt: 0.1, Duration: 0}),
		Entry("dt beyond duration", sim.Config{Dt: 2, Duration: 1}),
	)

	It("stops at the first non-finite state", func() {
		sys.Mass = 0
		result, err := newRunner(sys, timestep.KindEulerSemiImplicit).Run(context.Background(), cfg)
		Expect(err).NotTo(HaveOccurred())

		Expect(result.StepsTaken).To(Equal(0))
		Expect(result.States).To(HaveLen(1))
		Expect(result.Errors).To(HaveLen(1))
		Expect(errors.Is(result.Err(), sim.ErrInvalidState)).To(BeTrue())

		var simErr sim.SimError
		Expect(errors.As(result.Errors[0], &simErr)).To(BeTrue())
		Expect(simErr.Step).To(Equal(1))
	})

	It("returns the partial result when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result, err := newRunner(sys, timestep.KindHeun).Run(ctx, cfg)
		Expect(err).To(MatchError(context.Canceled))
		Expect(result.States).To(HaveLen(1))
		Expect(result.StepsTaken).To(BeZero())
	})

	It("reports energy drift against the initial energy", func() {
		result, err := newRunner(sys, timestep.KindEulerExplicit).Run(context.Background(), cfg)
		Expect(err).NotTo(HaveOccurred())

		// explicit Euler scales the oscillator's energy by 1+dt² per step
		want := 1.01*1.01*1.01*1.01*1.01*1.01*1.01*1.01*1.01*1.01 - 1
		Expect(result.EnergyDrift).To(BeNumerically("~", want, 1e-9))
	})

	It("attaches Newton statistics for the implicit scheme only", func() {
		var samples []metrics.Sample
		collect := sim.ObserverFunc(func(s metrics.Sample) { samples = append(samples, s) })

		implicit := newRunner(sys, timestep.KindEulerImplicit)
		implicit.AddObserver(collect)
		_, err := implicit.Run(context.Background(), cfg)
		Expect(err).NotTo(HaveOccurred())

		Expect(samples[0].Newton).To(BeNil())
		for _, s := range samples[1:] {
			Expect(s.Newton).NotTo(BeNil())
			Expect(s.Newton.Converged).To(BeTrue())
		}

		samples = nil
		explicit := newRunner(physics.NewOscillator(), timestep.KindEulerExplicitII)
		explicit.AddObserver(collect)
		_, err = explicit.Run(context.Background(), cfg)
		Expect(err).NotTo(HaveOccurred())
		for _, s := range samples {
			Expect(s.Newton).To(BeNil())
		}
	})

	It("tracks constraint drift of a pendulum", func() {
		p := physics.NewPendulum()
		st := timestep.NewEulerImplicit(p, timestep.WithLogger(quietLogger()))
		r := sim.New(st, p)
		r.SetLogger(quietLogger())
		r.AddMetric(metrics.NewConstraintDrift())
		r.AddMetric(metrics.NewNewtonFailures())

		result, err := r.Run(context.Background(), sim.Config{Dt: 0.01, Duration: 1})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Metrics["constraint_drift"]).To(BeNumerically("<", 1e-9))
		Expect(result.Metrics["newton_failures"]).To(BeZero())
	})
})

var _ = Describe("RunBatch", func() {
	It("runs every job and keeps job order", func() {
		kinds := []timestep.Kind{timestep.KindEulerExplicit, timestep.KindRungeKutta4, timestep.KindEulerImplicit}
		jobs := make([]sim.Job, len(kinds))
		for i, k := range kinds {
			k := k
			jobs[i] = sim.Job{
				Name:   k.String(),
				Config: sim.Config{Dt: 0.01, Duration: 0.5},
				Build: func() (*sim.Runner, error) {
					return buildRunner(physics.NewOscillator(), k)
				},
			}
		}

		results, err := sim.RunBatch(context.Background(), jobs)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(3))
		for _, r := range results {
			Expect(r.StepsTaken).To(Equal(50))
		}
	})

	It("names the job that failed", func() {
		jobs := []sim.Job{
			{
				Name:   "ok",
				Config: sim.Config{Dt: 0.1, Duration: 1},
				Build: func() (*sim.Runner, error) {
					return buildRunner(physics.NewOscillator(), timestep.KindHeun)
				},
			},
			{
				Name:   "broken",
				Config: sim.Config{Dt: 0.1, Duration: 1},
				Build:  func() (*sim.Runner, error) { return nil, errors.New("no system") },
			},
		}

		_, err := sim.RunBatch(context.Background(), jobs)
		Expect(err).To(MatchError(ContainSubstring("broken: no system")))
	})
})
