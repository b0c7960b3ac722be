package dosing

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/aquasim/internal/chem"
	"github.com/san-kum/aquasim/internal/equil"
)

// Convergence statuses reported on a Result.
const (
	StatusConverged        = "converged"
	StatusMaxIterations    = "max_iterations_reached"
	StatusBracketCollapsed = "bracket_collapsed"
	StatusUnreachable      = "unreachable_target"
	StatusCanceled         = "canceled"
)

type Config struct {
	MaxIterations    int
	Tolerance        float64
	InitialGuess     float64 // mmol, 0 means use the built-in heuristic
	Ceiling          float64 // mmol, hard upper bound for bracketing
	StagnationWindow int     // iterations over which the bracket must shrink
	StagnationFactor float64 // required width ratio over the window
}

func DefaultConfig() Config {
	return Config{
		MaxIterations:    50,
		Tolerance:        0.01,
		Ceiling:          1000,
		StagnationWindow: 3,
		StagnationFactor: 0.5,
	}
}

func (c Config) validate() error {
	if c.MaxIterations <= 0 {
		return &chem.ValidationError{Field: "max_iterations", Message: "must be positive"}
	}
	if !(c.Tolerance > 0) {
		return &chem.ValidationError{Field: "tolerance", Message: "must be positive"}
	}
	if !(c.Ceiling > 0) || math.IsInf(c.Ceiling, 0) {
		return &chem.ValidationError{Field: "ceiling", Message: "must be positive and finite"}
	}
	return nil
}

// Result is the dosing response. A failed search is still a
// successful-shaped result: Status explains what happened and Dose
// carries the best trial found.
type Result struct {
	Dose       float64
	Achieved   float64
	Status     string
	Converged  bool
	Iterations Record
}

// Solver finds the reagent amount that drives a scalar condition of
// the equilibrated solution to a target value. One Solver serves one
// run; it is not safe for concurrent use.
type Solver struct {
	eval equil.Evaluator
	cfg  Config
}

func New(eval equil.Evaluator, cfg Config) *Solver {
	return &Solver{eval: eval, cfg: cfg}
}

// Solve searches for x >= 0 with condition(equilibrate(sol + x*template))
// within tolerance of target. template's Amount is ignored; its Formula
// names the reagent being dosed.
func (s *Solver) Solve(ctx context.Context, sol chem.Solution, template chem.Reactant, target chem.TargetCondition, minerals []string) (*Result, error) {
	if err := s.cfg.validate(); err != nil {
		return nil, err
	}
	if err := sol.Validate(); err != nil {
		return nil, err
	}
	if template.Formula == "" {
		return nil, &chem.ValidationError{Field: "reactant.formula", Message: "empty formula"}
	}
	if err := target.Validate(); err != nil {
		return nil, err
	}

	run := &search{
		s:        s,
		ctx:      ctx,
		sol:      sol,
		template: template,
		target:   target,
		minerals: minerals,
	}
	return run.solve(), nil
}

// search holds the mutable state of one Solve call.
type search struct {
	s        *Solver
	ctx      context.Context
	sol      chem.Solution
	template chem.Reactant
	target   chem.TargetCondition
	minerals []string
	record   Record
	widths   []float64
}

// eval runs one trial dose through the oracle. Oracle failures come
// back as NaN residuals recorded in the trace, not as errors.
func (r *search) eval(x float64, note string) Iteration {
	it := Iteration{Index: len(r.record), Dose: x, Note: note}

	reactant := r.template
	reactant.Amount = x
	out, err := r.s.eval.Evaluate(r.ctx, r.sol, []chem.Reactant{reactant}, r.minerals)
	if err != nil {
		it.OracleFailed = true
		it.Value = math.NaN()
		it.Residual = math.NaN()
		if f, ok := equil.AsFailure(err); ok {
			it.Note = f.Kind.String()
		}
	} else {
		it.Value = r.target.Extract(out.Solution)
		it.Residual = it.Value - r.target.Value
	}
	r.record = append(r.record, it)
	return it
}

func (r *search) result(status string) *Result {
	res := &Result{
		Status:     status,
		Converged:  status == StatusConverged,
		Iterations: r.record,
	}
	if best, ok := r.record.Best(); ok {
		res.Dose = best.Dose
		res.Achieved = best.Value
	} else {
		res.Achieved = math.NaN()
	}
	return res
}

func (r *search) exhausted() bool {
	return len(r.record) >= r.s.cfg.MaxIterations
}

func (r *search) canceled() bool {
	select {
	case <-r.ctx.Done():
		return true
	default:
		return false
	}
}

func (r *search) solve() *Result {
	cfg := r.s.cfg

	zero := r.eval(0, "baseline")
	if !zero.OracleFailed && abs(zero.Residual) <= cfg.Tolerance {
		// Target already satisfied: dose 0, no bracketing.
		return r.result(StatusConverged)
	}
	if !zero.OracleFailed && r.wrongSide(zero.Residual) {
		// The declared direction says dosing moves the condition away
		// from the target; no non-negative dose can bridge the gap.
		return r.result(StatusUnreachable)
	}

	lower, upper, status := r.bracket(zero)
	if status != "" {
		return r.result(status)
	}

	return r.narrow(lower, upper)
}

// wrongSide reports whether the declared direction puts the target on
// the unreachable side of the baseline: residual > 0 means the value
// must come down, which an upward-moving reagent cannot do, and vice
// versa.
func (r *search) wrongSide(residual float64) bool {
	switch r.target.Direction {
	case chem.DirectionUp:
		return residual > 0
	case chem.DirectionDown:
		return residual < 0
	default:
		return false
	}
}

// bracket expands the upper bound by doubling until the residual
// changes sign. A non-empty status means the ceiling, the iteration
// budget, or cancellation ended the search first.
func (r *search) bracket(zero Iteration) (Iteration, Iteration, string) {
	cfg := r.s.cfg

	x := math.Max(0.1, r.initialGuess())
	lower := zero
	for {
		if r.exhausted() {
			return Iteration{}, Iteration{}, StatusMaxIterations
		}
		if r.canceled() {
			return Iteration{}, Iteration{}, StatusCanceled
		}
		if x > cfg.Ceiling {
			// "Unreachable" is only a justified verdict when the oracle
			// answered at least once; an all-failure expansion keeps
			// probing at the ceiling until the budget runs out.
			if _, ok := r.record.Best(); ok {
				return Iteration{}, Iteration{}, StatusUnreachable
			}
			x = cfg.Ceiling
		}

		trial := r.eval(x, "bracket")
		if !trial.OracleFailed {
			if abs(trial.Residual) <= cfg.Tolerance {
				return trial, trial, ""
			}
			if lower.OracleFailed {
				lower = trial
			} else if sameSign(lower.Residual, trial.Residual) {
				lower = trial
			} else {
				return lower, trial, ""
			}
		}
		x *= 2
	}
}

// initialGuess scales the first trial with the distance to the target.
// For pH targets the carbonate buffer sets the scale; for species
// targets the concentration gap itself does.
func (r *search) initialGuess() float64 {
	if r.s.cfg.InitialGuess > 0 {
		return r.s.cfg.InitialGuess
	}
	gap := abs(r.target.Value - r.target.Extract(r.sol))
	if r.target.Parameter == "pH" {
		buffer := math.Max(1, r.sol.Amount("C"))
		return gap * buffer * 0.5
	}
	return gap
}

// narrow runs secant-accelerated bisection inside an established
// bracket. Oracle failures shrink the search toward the known-good
// endpoint instead of aborting.
func (r *search) narrow(lower, upper Iteration) *Result {
	cfg := r.s.cfg

	if lower.Index == upper.Index {
		// bracket() landed directly inside tolerance.
		return r.result(StatusConverged)
	}

	for {
		if r.exhausted() {
			return r.result(StatusMaxIterations)
		}
		if r.canceled() {
			return r.result(StatusCanceled)
		}

		width := abs(upper.Dose - lower.Dose)
		r.widths = append(r.widths, width)
		if width <= 1e-12*math.Max(1, abs(upper.Dose)) {
			return r.result(StatusBracketCollapsed)
		}

		x, note := r.propose(lower, upper, width)
		trial := r.eval(x, note)

		if trial.OracleFailed {
			// Undefined f(x): pull the trial toward the endpoint with the
			// smaller residual rather than giving up the search.
			good := lower
			if abs(upper.Residual) < abs(lower.Residual) {
				good = upper
			}
			next := (trial.Dose + good.Dose) / 2
			failed := r.eval(next, "failure-bisect")
			if failed.OracleFailed {
				continue
			}
			trial = failed
		}

		if abs(trial.Residual) <= cfg.Tolerance {
			return r.result(StatusConverged)
		}
		if sameSign(trial.Residual, lower.Residual) {
			lower = trial
		} else {
			upper = trial
		}
	}
}

// propose picks the next trial dose: a secant estimate when it lands
// strictly inside the bracket and the bracket is still shrinking,
// otherwise the midpoint.
func (r *search) propose(lower, upper Iteration, width float64) (float64, string) {
	mid := (lower.Dose + upper.Dose) / 2

	if r.stagnant(width) {
		return mid, "bisect-stagnation"
	}

	denom := upper.Residual - lower.Residual
	if denom == 0 || math.IsNaN(denom) {
		return mid, "bisect"
	}
	secant := lower.Dose - lower.Residual*(upper.Dose-lower.Dose)/denom

	lo, hi := math.Min(lower.Dose, upper.Dose), math.Max(lower.Dose, upper.Dose)
	if !(secant > lo && secant < hi) || math.IsNaN(secant) {
		return mid, "bisect"
	}
	return secant, "secant"
}

// stagnant reports whether the bracket failed to shrink by the
// configured factor over the stagnation window.
func (r *search) stagnant(width float64) bool {
	cfg := r.s.cfg
	n := len(r.widths)
	if n <= cfg.StagnationWindow {
		return false
	}
	then := r.widths[n-1-cfg.StagnationWindow]
	return width > then*cfg.StagnationFactor
}

func sameSign(a, b float64) bool {
	return (a > 0) == (b > 0)
}

func (res *Result) String() string {
	return fmt.Sprintf("dose=%.4f mmol achieved=%.4f status=%s iters=%d",
		res.Dose, res.Achieved, res.Status, len(res.Iterations))
}
