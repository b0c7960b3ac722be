package kinetics

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/aquasim/internal/chem"
	"github.com/san-kum/aquasim/internal/equil"
)

type Config struct {
	// SeedFloor is the minimum accepted seed mass (mmol). Seeds of zero
	// are rejected outright; positive seeds below the floor are raised
	// to it. The floor is a tuning constant, not a correctness
	// invariant, so it is configurable rather than baked in.
	SeedFloor float64

	// MaxDepth bounds recursive interval bisection per requested
	// interval; exceeding it degrades that interval, not the run.
	MaxDepth int

	// MinSubstep is the smallest sub-interval, in seconds.
	MinSubstep float64

	// DefaultTol applies to minerals whose spec leaves Tol zero.
	DefaultTol float64
}

func DefaultConfig() Config {
	return Config{
		SeedFloor:  1e-8,
		MaxDepth:   16,
		MinSubstep: 1.0,
		DefaultTol: 1e-6,
	}
}

// Integrator advances kinetic mineral masses over a caller-supplied
// time grid, re-equilibrating the solution through the oracle after
// every accepted sub-step.
type Integrator struct {
	eval equil.Evaluator
	reg  *Registry
	cfg  Config
}

func New(eval equil.Evaluator, reg *Registry, cfg Config) *Integrator {
	return &Integrator{eval: eval, reg: reg, cfg: cfg}
}

// Run validates the request, applies the initial reagent additions,
// then integrates over grid. The returned trace has exactly one entry
// per grid point. Oracle failures and exhausted subdivision budgets
// degrade individual entries; only validation, setup, cancellation or
// a failed initial equilibration fail the run itself.
//
// allowed lists equilibrium phases the oracle holds at saturation on
// every call. Kinetic minerals must not appear there: an equilibrium
// phase would consume the same supersaturation the rate law is
// integrating over.
func (g *Integrator) Run(ctx context.Context, sol chem.Solution, additions []chem.Reactant, specs []MineralSpec, grid []float64, allowed []string) (Trace, error) {
	if err := sol.Validate(); err != nil {
		return nil, err
	}
	for _, r := range additions {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}
	if err := validateGrid(grid); err != nil {
		return nil, err
	}

	minerals, err := g.setup(specs)
	if err != nil {
		return nil, err
	}

	out, err := g.eval.Evaluate(ctx, sol, additions, allowed)
	if err != nil {
		return nil, fmt.Errorf("initial equilibration: %w", err)
	}
	for _, m := range minerals {
		if !out.InDatabase(m.Name) {
			return nil, &chem.SetupError{Mineral: m.Name, Reason: "not in engine database"}
		}
	}

	r := &runState{g: g, ctx: ctx, cur: out, minerals: minerals, allowed: allowed}
	r.refreshRates()

	trace := make(Trace, 0, len(grid))
	trace = append(trace, r.entry(grid[0]))

	for i := 1; i < len(grid); i++ {
		if err := r.advance(grid[i-1], grid[i]); err != nil {
			return trace, err
		}
		r.refreshRates()
		trace = append(trace, r.entry(grid[i]))
	}
	return trace, nil
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func validateGrid(grid []float64) error {
	if len(grid) == 0 {
		return &chem.ValidationError{Field: "grid", Message: "empty time grid"}
	}
	if grid[0] < 0 {
		return &chem.ValidationError{Field: "grid", Message: "negative start time"}
	}
	for i, t := range grid {
		if !finite(t) {
			return &chem.ValidationError{Field: "grid", Message: "non-finite time"}
		}
		if i > 0 && t <= grid[i-1] {
			return &chem.ValidationError{Field: "grid", Message: "times must be strictly increasing"}
		}
	}
	return nil
}

// setup copies and checks every spec before any oracle call. All
// failures here are deterministic SetupErrors.
func (g *Integrator) setup(specs []MineralSpec) ([]*mineral, error) {
	seen := make(map[string]bool, len(specs))
	minerals := make([]*mineral, 0, len(specs))
	for _, spec := range specs {
		if spec.Name == "" {
			return nil, &chem.SetupError{Mineral: "?", Reason: "empty mineral name"}
		}
		if seen[spec.Name] {
			return nil, &chem.SetupError{Mineral: spec.Name, Reason: "duplicate mineral"}
		}
		seen[spec.Name] = true

		if !finite(spec.M) || spec.M <= 0 {
			return nil, &chem.SetupError{Mineral: spec.Name, Reason: "seed mass must be positive and finite (rate laws are undefined at zero surface area)"}
		}
		if !finite(spec.M0) || spec.M0 < 0 {
			return nil, &chem.SetupError{Mineral: spec.Name, Reason: "initial moles must be finite and non-negative"}
		}
		// A NaN tolerance is not caught by the Tol <= 0 default below and
		// would disable error control outright: errEst > NaN is never true.
		if math.IsNaN(spec.Tol) || math.IsInf(spec.Tol, 0) {
			return nil, &chem.SetupError{Mineral: spec.Name, Reason: "non-finite tolerance"}
		}
		for _, p := range spec.Parms {
			if !finite(p) {
				return nil, &chem.SetupError{Mineral: spec.Name, Reason: "non-finite rate parameter"}
			}
		}

		m := &mineral{MineralSpec: spec, status: StatusActive}
		if m.M < g.cfg.SeedFloor {
			m.M = g.cfg.SeedFloor
		}
		if m.Tol <= 0 {
			m.Tol = g.cfg.DefaultTol
		}

		law, ok := g.reg.Get(spec.Name)
		if !ok {
			m.status = StatusRateUndefined
			return nil, &chem.SetupError{Mineral: spec.Name, Reason: "no rate law registered"}
		}
		m.law = law
		minerals = append(minerals, m)
	}
	return minerals, nil
}

// span is one piece of a requested interval on the subdivision worklist.
type span struct {
	t0, t1 float64
	depth  int
}

// runState is the mutable state of one kinetic run.
type runState struct {
	g        *Integrator
	ctx      context.Context
	cur      equil.Outcome
	minerals []*mineral
	allowed  []string

	// per-interval diagnostics, reset when an entry is emitted
	notes      []string
	degraded   bool
	bisections int
}

func (r *runState) refreshRates() {
	for _, m := range r.minerals {
		if !m.active() {
			m.rate = 0
			continue
		}
		si, _ := r.cur.SI(m.Name)
		m.rate = m.law.Rate(si, m.M, m.M0, m.Parms)
	}
}

func (r *runState) entry(t float64) Entry {
	e := Entry{
		Time:     t,
		Solution: r.cur.Solution.Clone(),
		Degraded: r.degraded,
	}
	if r.bisections > 0 {
		e.Notes = append(e.Notes, fmt.Sprintf("%d interval bisections", r.bisections))
	}
	e.Notes = append(e.Notes, r.notes...)
	for _, m := range r.minerals {
		e.Minerals = append(e.Minerals, MineralPoint{
			Name:   m.Name,
			Moles:  m.M,
			Rate:   m.rate,
			Status: m.status,
		})
	}
	r.notes = nil
	r.degraded = false
	r.bisections = 0
	return e
}

// advance integrates one requested interval via an explicit worklist.
// Sub-intervals are processed left to right; a rejected sub-interval
// splits in two until the depth or step-size floor, after which it is
// force-accepted and flagged.
func (r *runState) advance(a, b float64) error {
	stack := []span{{t0: a, t1: b}}
	for len(stack) > 0 {
		select {
		case <-r.ctx.Done():
			return r.ctx.Err()
		default:
		}

		sp := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if r.attempt(sp) {
			continue
		}

		half := (sp.t1 - sp.t0) / 2
		if sp.depth < r.g.cfg.MaxDepth && half >= r.g.cfg.MinSubstep {
			r.bisections++
			mid := sp.t0 + half
			stack = append(stack,
				span{t0: mid, t1: sp.t1, depth: sp.depth + 1},
				span{t0: sp.t0, t1: mid, depth: sp.depth + 1},
			)
			continue
		}

		r.force(sp)
	}
	return nil
}

// step holds one mineral's proposed sub-step result.
type step struct {
	m      *mineral
	next   float64
	errEst float64
}

// propose runs the embedded 3rd/2nd order scheme for every active
// mineral over [sp.t0, sp.t1]. The solution, and therefore each
// saturation index, is frozen for the duration of the sub-step; only
// the surface-area term varies across stages.
func (r *runState) propose(sp span) []step {
	h := sp.t1 - sp.t0
	steps := make([]step, 0, len(r.minerals))
	for _, m := range r.minerals {
		if !m.active() {
			continue
		}
		si, _ := r.cur.SI(m.Name)
		f := func(x float64) float64 {
			return -m.law.Rate(si, math.Max(x, 0), m.M0, m.Parms)
		}

		k1 := f(m.M)
		k2 := f(m.M + h/2*k1)
		k3 := f(m.M + 3*h/4*k2)
		y3 := m.M + h*(2*k1+3*k2+4*k3)/9
		k4 := f(y3)
		y2 := m.M + h*(7*k1+6*k2+8*k3+3*k4)/24

		steps = append(steps, step{m: m, next: y3, errEst: math.Abs(y3 - y2)})
	}
	return steps
}

// attempt tries to carry a sub-step across sp in one go. It returns
// false when the local error exceeds a mineral's tolerance, a mineral
// would go negative, or re-equilibration fails; the caller then
// subdivides.
func (r *runState) attempt(sp span) bool {
	steps := r.propose(sp)
	for _, st := range steps {
		if math.IsNaN(st.next) || st.errEst > st.m.Tol || st.next < 0 {
			return false
		}
	}

	out, ok := r.reequilibrate(steps, nil)
	if !ok {
		return false
	}
	r.commit(steps, out, sp)
	return true
}

// force accepts a sub-step that could not be subdivided further.
// Negative projections clamp to zero and exhaust the mineral; every
// other defect degrades the resulting trace entry.
func (r *runState) force(sp span) {
	steps := r.propose(sp)
	for i := range steps {
		st := &steps[i]
		if math.IsNaN(st.next) {
			st.next = st.m.M
			r.degraded = true
			r.note("%s: rate not finite over [%.6g,%.6g]s, moles held", st.m.Name, sp.t0, sp.t1)
			continue
		}
		if st.next < 0 {
			st.next = 0
		}
		if st.errEst > st.m.Tol {
			r.degraded = true
			r.note("%s: local error %.3g above tolerance %.3g after maximum subdivision", st.m.Name, st.errEst, st.m.Tol)
		}
	}

	out, ok := r.reequilibrate(steps, func(msg string) {
		r.degraded = true
		r.note("re-equilibration failed at t=%.6gs: %s (solution held)", sp.t1, msg)
	})
	if !ok {
		// Mass committed below without a refreshed solution; the note
		// above tells the caller this entry is lower confidence.
		out = r.cur
	}
	r.commit(steps, out, sp)
}

// reequilibrate passes the accepted mineral deltas through the oracle
// as signed transfers and returns the refreshed outcome.
func (r *runState) reequilibrate(steps []step, onFail func(msg string)) (equil.Outcome, bool) {
	transfers := make([]chem.Reactant, 0, len(steps))
	for _, st := range steps {
		delta := st.m.M - st.next // positive when the mineral dissolved
		if delta != 0 {
			transfers = append(transfers, chem.Reactant{Formula: st.m.Name, Amount: delta, Unit: "mmol"})
		}
	}
	if len(transfers) == 0 {
		return r.cur, true
	}

	out, err := r.g.eval.Evaluate(r.ctx, r.cur.Solution, transfers, r.allowed)
	if err != nil {
		if onFail != nil {
			onFail(err.Error())
		}
		return equil.Outcome{}, false
	}
	return out, true
}

func (r *runState) commit(steps []step, out equil.Outcome, sp span) {
	for _, st := range steps {
		st.m.M = st.next
		if st.m.M == 0 {
			st.m.status = StatusExhausted
			r.note("%s exhausted at t=%.6gs", st.m.Name, sp.t1)
		}
	}
	r.cur = out
}

func (r *runState) note(format string, args ...any) {
	r.notes = append(r.notes, fmt.Sprintf(format, args...))
}
