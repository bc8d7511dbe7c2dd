package experiment

import (
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/linkage/internal/analysis"
	"github.com/san-kum/linkage/internal/config"
	"github.com/san-kum/linkage/internal/initcond"
	"github.com/san-kum/linkage/internal/linkage"
	"github.com/san-kum/linkage/internal/sim"
)

func deg(rad float64) float64 { return rad * 180 / math.Pi }

// crossing narrows a sign change of component i about level inside
// [lo, hi] by bisection on the dense output.
func crossing(tr *sim.Trajectory, i int, level, lo, hi float64) float64 {
	f := func(t float64) float64 {
		x, err := tr.At(t)
		Expect(err).NotTo(HaveOccurred())
		return x[i] - level
	}
	flo := f(lo)
	for k := 0; k < 60; k++ {
		mid := (lo + hi) / 2
		fm := f(mid)
		if (fm < 0) == (flo < 0) {
			lo, flo = mid, fm
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}

// crankRange returns the extreme crank angles of tr in degrees.
func crankRange(tr *sim.Trajectory) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, q := range tr.Column(0) {
		lo = math.Min(lo, deg(q))
		hi = math.Max(hi, deg(q))
	}
	return lo, hi
}

// alignment returns the largest coupler and rocker angle, in degrees, at
// the times the crank passes 180°.
func alignment(tr *sim.Trajectory) (worst float64, passes int) {
	_, end := tr.Span()
	for _, tc := range analysis.Crossings(tr.Times, tr.Column(0), math.Pi) {
		t := crossing(tr, 0, math.Pi, math.Max(tc-0.02, 0), math.Min(tc+0.02, end))
		x, err := tr.At(t)
		Expect(err).NotTo(HaveOccurred())
		Expect(deg(x[0])).To(BeNumerically("~", 180, 1e-6))
		worst = math.Max(worst, math.Max(math.Abs(deg(x[1])), math.Abs(deg(x[2]))))
		passes++
	}
	return worst, passes
}

func maxClosure(pipe *Pipeline, tr *sim.Trajectory) float64 {
	worst := 0.0
	for _, x := range tr.States {
		worst = math.Max(worst, pipe.System.ConstraintResidual(x))
	}
	return worst
}

func runReference(ctx SpecContext, rtol, atol float64) (*Pipeline, *Result) {
	cfg := config.DefaultConfig()
	cfg.Sim.RTol, cfg.Sim.ATol = rtol, atol

	pipe, err := Build(cfg, Options{})
	Expect(err).NotTo(HaveOccurred())
	res, err := pipe.Run(ctx)
	Expect(err).NotTo(HaveOccurred())
	return pipe, res
}

var _ = Describe("Reference four-bar", Ordered, func() {
	var (
		pipe *Pipeline
		res  *Result
	)

	BeforeAll(func(ctx SpecContext) {
		pipe, res = runReference(ctx, 1e-10, 1e-10)
	}, NodeTimeout(10*time.Minute))

	It("closes the loop at the 85° seed on the elbow-up branch", func() {
		x := res.Initial
		Expect(deg(x[0])).To(BeNumerically("~", 85, 1e-12))
		Expect(deg(x[1])).To(BeNumerically("~", 31.302655, 1e-4))
		Expect(deg(x[2])).To(BeNumerically("~", -42.721654, 1e-4))
		Expect([]float64(x[3:])).To(Equal([]float64{0, 0, 0}))

		dx, dy := linkage.ClosureResidual(pipe.Config().Linkage.Lengths, x[:3])
		Expect(dx).To(BeNumerically("~", 0, 1e-6))
		Expect(dy).To(BeNumerically("~", 0, 1e-6))
		Expect(res.Closure).To(BeNumerically("<", 1e-6))
	})

	It("samples the whole span uniformly", func() {
		t0, t1 := res.Trajectory.Span()
		Expect(t0).To(Equal(0.0))
		Expect(t1).To(Equal(20.0))
		Expect(res.Trajectory.Len()).To(BeNumerically(">=", 2001))
	})

	It("swings the crank between 85° and its turning point near 402°", func() {
		lo, hi := crankRange(res.Trajectory)
		Expect(lo).To(BeNumerically("~", 85, 0.3))
		Expect(hi).To(BeNumerically("~", 402.15, 0.5))
	})

	It("straightens coupler and rocker whenever the crank points backwards", func() {
		worst, passes := alignment(res.Trajectory)
		Expect(passes).To(BeNumerically(">=", 10))
		Expect(worst).To(BeNumerically("<", 1))
	})

	It("stays on the closure manifold", func() {
		Expect(maxClosure(pipe, res.Trajectory)).To(BeNumerically("<", 1e-4))
		Expect(res.Metrics).To(HaveKeyWithValue("constraint_residual", BeNumerically("<", 1e-4)))
	})

	It("conserves energy", func() {
		Expect(res.Metrics).To(HaveKeyWithValue("energy_drift", BeNumerically("<", 5e-3)))
	})

	It("finds a period shorter than the run", func() {
		tr := res.Trajectory
		p, err := analysis.DominantPeriod(tr.Times, tr.Column(0))
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(BeNumerically(">", 1))
		Expect(p).To(BeNumerically("<", 10))
	})
})

// At the default tolerances the passes through full alignment, where the
// mass matrix is singular, let the crank range wander a few degrees.
var _ = Describe("Reference four-bar at default tolerances", Ordered, func() {
	var (
		pipe *Pipeline
		res  *Result
	)

	BeforeAll(func(ctx SpecContext) {
		pipe, res = runReference(ctx, config.DefaultRTol, config.DefaultATol)
	}, NodeTimeout(5*time.Minute))

	It("starts from the same closed configuration", func() {
		Expect(deg(res.Initial[1])).To(BeNumerically("~", 31.302655, 1e-4))
		Expect(deg(res.Initial[2])).To(BeNumerically("~", -42.721654, 1e-4))
	})

	It("keeps the crank range within a few degrees of the exact motion", func() {
		lo, hi := crankRange(res.Trajectory)
		Expect(lo).To(BeNumerically("~", 85, 4))
		Expect(hi).To(BeNumerically("~", 402, 4))
	})

	It("passes near full alignment", func() {
		worst, passes := alignment(res.Trajectory)
		Expect(passes).To(BeNumerically(">=", 10))
		Expect(worst).To(BeNumerically("<", 4))
	})

	It("bounds closure and energy drift", func() {
		Expect(maxClosure(pipe, res.Trajectory)).To(BeNumerically("<", 1e-2))
		Expect(res.Metrics).To(HaveKeyWithValue("constraint_residual", BeNumerically("<", 1e-2)))
		Expect(res.Metrics).To(HaveKeyWithValue("energy_drift", BeNumerically("<", 2e-2)))
	})
})

var _ = Describe("Unassemblable lengths", func() {
	It("reports the closure residual instead of running", func(ctx SpecContext) {
		pipe, err := Build(config.GetPreset("unassemblable"), Options{})
		Expect(err).NotTo(HaveOccurred())

		res, err := pipe.Run(ctx)
		Expect(err).To(MatchError(initcond.ErrNotConverged))
		var re *initcond.ResidualError
		Expect(err).To(BeAssignableToTypeOf(re))
		Expect(res.Raw).To(BeNil())
		Expect(res.Closure).To(BeNumerically(">", 1))
	}, NodeTimeout(time.Minute))
})

var _ = Describe("Configured runs", func() {
	It("integrates with a fixed-step method", func(ctx SpecContext) {
		cfg := config.DefaultConfig()
		cfg.Integrator = "rk4"
		cfg.Sim.Duration = 0.5

		pipe, err := Build(cfg, Options{})
		Expect(err).NotTo(HaveOccurred())
		res, err := pipe.Run(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Trajectory.Len()).To(Equal(51))
		Expect(res.Metrics["constraint_residual"]).To(BeNumerically("<", 1e-4))
	}, NodeTimeout(time.Minute))

	It("drives the crank with a torque", func(ctx SpecContext) {
		cfg := config.GetPreset("crank_rocker")
		cfg.Sim.Duration = 1

		pipe, err := Build(cfg, Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(pipe.Equations.Drive).To(BeTrue())

		res, err := pipe.Run(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Metrics["energy_drift"]).To(BeNumerically("<", 1e-4))
		Expect(res.Metrics["constraint_residual"]).To(BeNumerically("<", 1e-4))
		Expect(res.Metrics["crank_range"]).To(BeNumerically(">", math.Pi))
	}, NodeTimeout(2*time.Minute))

	It("sweeps crank angles on one branch", func(ctx SpecContext) {
		cfg := config.DefaultConfig()
		cfg.Sim.Duration = 0.3

		pipe, err := Build(cfg, Options{})
		Expect(err).NotTo(HaveOccurred())
		cranks := []float64{85, 90, 95}
		results, err := pipe.Sweep(ctx, cranks, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(3))

		for i, r := range results {
			Expect(deg(r.Initial[0])).To(BeNumerically("~", cranks[i], 1e-9))
			Expect(r.Initial[1]).To(BeNumerically(">", 0), "elbow-up coupler")
			Expect(r.Closure).To(BeNumerically("<", 1e-6))
			_, end := r.Trajectory.Span()
			Expect(end).To(BeNumerically("~", 0.3, 1e-12))
		}
	}, NodeTimeout(2*time.Minute))
})
