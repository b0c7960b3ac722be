package run_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/aquasim/internal/carbonate"
	"github.com/san-kum/aquasim/internal/chem"
	"github.com/san-kum/aquasim/internal/dosing"
	"github.com/san-kum/aquasim/internal/equil"
	"github.com/san-kum/aquasim/internal/kinetics"
	"github.com/san-kum/aquasim/internal/run"
)

// countingEngine wraps the carbonate engine so tests can assert how
// many times the oracle was actually consulted.
type countingEngine struct {
	inner equil.Engine
	calls atomic.Int64
}

func (c *countingEngine) Equilibrate(sol chem.Solution, reactants []chem.Reactant, minerals []string) (equil.Outcome, error) {
	c.calls.Add(1)
	return c.inner.Equilibrate(sol, reactants, minerals)
}

// brokenEngine fails every call the way a diverging external code
// would.
type brokenEngine struct{}

func (brokenEngine) Equilibrate(chem.Solution, []chem.Reactant, []string) (equil.Outcome, error) {
	return equil.Outcome{}, fmt.Errorf("newton iteration diverged: %w", equil.ErrConvergence)
}

// acidicWater is carbonate water with zero alkalinity: dissolved CO2
// pulls the equilibrium pH well below 7.
func acidicWater() chem.Solution {
	s := chem.NewSolution(25, 7.0)
	s.Elements[carbonate.TagC] = 2.0
	s.Elements[carbonate.TagCa] = 0.5
	s.Elements[carbonate.TagCl] = 1.0
	return s
}

// bicarbonateWater is calcite-supersaturated: alkalinity matches the
// dissolved carbon, so the pH settles near 8.3 with free carbonate.
func bicarbonateWater() chem.Solution {
	s := chem.NewSolution(25, 8.0)
	s.Elements[carbonate.TagNa] = 2.0
	s.Elements[carbonate.TagCa] = 1.0
	s.Elements[carbonate.TagC] = 2.0
	s.Elements[carbonate.TagCl] = 2.0
	return s
}

var _ = Describe("Runner", func() {
	var (
		engine *countingEngine
		runner *run.Runner
		ctx    context.Context
	)

	BeforeEach(func() {
		engine = &countingEngine{inner: carbonate.NewEngine()}
		runner = run.NewRunner(engine, kinetics.NewRegistry())
		ctx = context.Background()
	})

	Describe("dosing", func() {
		It("finds the NaOH dose that raises pH to 8.5", func() {
			out, err := runner.Dose(ctx, run.DoseRequest{
				Solution: acidicWater(),
				Reagent:  chem.Reactant{Formula: "NaOH", Unit: "mmol"},
				Target:   chem.TargetCondition{Parameter: "pH", Value: 8.5, Direction: chem.DirectionUp},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Result.Converged).To(BeTrue())
			Expect(out.Result.Status).To(Equal(dosing.StatusConverged))
			Expect(out.Result.Dose).To(BeNumerically(">", 0))
			Expect(out.Result.Achieved).To(BeNumerically("~", 8.5, 0.011))
		})

		It("returns dose zero after one oracle call when the target already holds", func() {
			sol := bicarbonateWater()
			out, err := runner.Dose(ctx, run.DoseRequest{
				Solution: sol,
				Reagent:  chem.Reactant{Formula: "CaCl2", Unit: "mmol"},
				Target:   chem.TargetCondition{Parameter: carbonate.TagCa, Value: sol.Amount(carbonate.TagCa)},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Result.Converged).To(BeTrue())
			Expect(out.Result.Dose).To(BeZero())
			Expect(out.Result.Iterations).To(HaveLen(1))
			Expect(engine.calls.Load()).To(Equal(int64(1)))
		})

		It("exhausts the iteration budget against an oracle that never answers", func() {
			broken := run.NewRunner(brokenEngine{}, nil)
			out, err := broken.Dose(ctx, run.DoseRequest{
				Solution: acidicWater(),
				Reagent:  chem.Reactant{Formula: "NaOH", Unit: "mmol"},
				Target:   chem.TargetCondition{Parameter: "pH", Value: 8.5},
				Config: dosing.Config{
					MaxIterations:    12,
					Tolerance:        0.01,
					Ceiling:          1000,
					StagnationWindow: 3,
					StagnationFactor: 0.5,
				},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Result.Converged).To(BeFalse())
			Expect(out.Result.Status).To(Equal(dosing.StatusMaxIterations))
			Expect(out.Result.Iterations).To(HaveLen(12))
			Expect(math.IsNaN(out.Result.Achieved)).To(BeTrue())
			for _, it := range out.Result.Iterations {
				Expect(it.OracleFailed).To(BeTrue())
			}
		})

		It("rejects an invalid target before touching the oracle", func() {
			_, err := runner.Dose(ctx, run.DoseRequest{
				Solution: acidicWater(),
				Reagent:  chem.Reactant{Formula: "NaOH"},
				Target:   chem.TargetCondition{Parameter: "", Value: 8.5},
			})
			var verr *chem.ValidationError
			Expect(errors.As(err, &verr)).To(BeTrue())
			Expect(engine.calls.Load()).To(BeZero())
		})
	})

	Describe("kinetics", func() {
		calcite := func(seed float64) []kinetics.MineralSpec {
			return []kinetics.MineralSpec{{
				Name:  "Calcite",
				M0:    0,
				M:     seed,
				Parms: []float64{1e-5, 0.6},
			}}
		}

		It("grows seeded calcite from a supersaturated solution", func() {
			out, err := runner.Kinetic(ctx, run.KineticRequest{
				Solution: bicarbonateWater(),
				Minerals: calcite(1e-4),
				Grid:     []float64{0, 60, 300},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Trace).To(HaveLen(3))
			Expect(out.Trace.Degraded()).To(BeFalse())

			times, moles, _ := out.Trace.Mineral("Calcite")
			Expect(times).To(Equal([]float64{0, 60, 300}))
			for i := 1; i < len(moles); i++ {
				Expect(moles[i]).To(BeNumerically(">=", moles[i-1]))
			}
			Expect(moles[2]).To(BeNumerically(">", moles[0]))

			// Growth consumes dissolved calcium.
			first := out.Trace[0].Solution.Amount(carbonate.TagCa)
			last := out.Trace[2].Solution.Amount(carbonate.TagCa)
			Expect(last).To(BeNumerically("<", first))

			// The memo sits directly in front of the engine.
			Expect(engine.calls.Load()).To(Equal(int64(out.CacheMisses)))
		})

		It("fails setup on a zero seed without consulting the oracle", func() {
			_, err := runner.Kinetic(ctx, run.KineticRequest{
				Solution: bicarbonateWater(),
				Minerals: calcite(0),
				Grid:     []float64{0, 60},
			})
			Expect(errors.Is(err, chem.ErrSetup)).To(BeTrue())
			Expect(engine.calls.Load()).To(BeZero())
		})

		It("fails setup when the engine does not know the mineral", func() {
			laws := kinetics.NewRegistry()
			laws.Register("Gypsum", kinetics.PowerLaw{})
			r := run.NewRunner(engine, laws)

			_, err := r.Kinetic(ctx, run.KineticRequest{
				Solution: bicarbonateWater(),
				Minerals: []kinetics.MineralSpec{{Name: "Gypsum", M: 1e-3, Parms: []float64{1e-5, 0.6}}},
				Grid:     []float64{0, 60},
			})
			var serr *chem.SetupError
			Expect(errors.As(err, &serr)).To(BeTrue())
			Expect(serr.Mineral).To(Equal("Gypsum"))
			Expect(engine.calls.Load()).To(Equal(int64(1)))
		})

		It("rejects a non-increasing grid before touching the oracle", func() {
			_, err := runner.Kinetic(ctx, run.KineticRequest{
				Solution: bicarbonateWater(),
				Minerals: calcite(1e-4),
				Grid:     []float64{0, 60, 60},
			})
			var verr *chem.ValidationError
			Expect(errors.As(err, &verr)).To(BeTrue())
			Expect(engine.calls.Load()).To(BeZero())
		})

		It("rejects non-finite mineral numbers before touching the oracle", func() {
			bad := []kinetics.MineralSpec{
				{Name: "Calcite", M: math.Inf(1), Parms: []float64{1e-5, 0.6}},
				{Name: "Calcite", M: 1e-4, M0: math.Inf(1), Parms: []float64{1e-5, 0.6}},
				{Name: "Calcite", M: 1e-4, Parms: []float64{1e-5, 0.6}, Tol: math.NaN()},
				{Name: "Calcite", M: 1e-4, Parms: []float64{math.Inf(-1), 0.6}},
			}
			for _, spec := range bad {
				_, err := runner.Kinetic(ctx, run.KineticRequest{
					Solution: bicarbonateWater(),
					Minerals: []kinetics.MineralSpec{spec},
					Grid:     []float64{0, 60},
				})
				var verr *chem.ValidationError
				Expect(errors.As(err, &verr)).To(BeTrue(), "spec %+v accepted", spec)
			}
			Expect(engine.calls.Load()).To(BeZero())
		})

		It("rejects a kinetic mineral doubling as an equilibrium phase", func() {
			_, err := runner.Kinetic(ctx, run.KineticRequest{
				Solution:          bicarbonateWater(),
				Minerals:          calcite(1e-4),
				Grid:              []float64{0, 60},
				EquilibriumPhases: []string{"Calcite"},
			})
			var verr *chem.ValidationError
			Expect(errors.As(err, &verr)).To(BeTrue())
		})
	})

	Describe("batch", func() {
		It("runs independent kinetic requests in parallel", func() {
			req := run.KineticRequest{
				Solution: bicarbonateWater(),
				Minerals: []kinetics.MineralSpec{{Name: "Calcite", M: 1e-4, Parms: []float64{1e-5, 0.6}}},
				Grid:     []float64{0, 60, 300},
			}
			outs, err := run.NewBatch(runner).Kinetic(ctx, []run.KineticRequest{req, req, req})
			Expect(err).NotTo(HaveOccurred())
			Expect(outs).To(HaveLen(3))
			for _, out := range outs {
				Expect(out.Trace).To(HaveLen(3))
				Expect(out.Trace.Degraded()).To(BeFalse())
			}
		})
	})
})
