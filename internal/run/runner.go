package run

import (
	"context"

	"github.com/san-kum/aquasim/internal/dosing"
	"github.com/san-kum/aquasim/internal/equil"
	"github.com/san-kum/aquasim/internal/kinetics"
	"github.com/san-kum/aquasim/internal/report"
)

// acquirer is implemented by engines that hold an external handle
// (a process, a connection) that must be pinned for the duration of a
// run. The in-process carbonate engine does not need it.
type acquirer interface {
	Acquire() error
	Release()
}

// Runner turns validated requests into reports. It is safe for
// concurrent use: each run gets its own adapter and memo cache, and
// the engine is only shared if the engine itself is.
type Runner struct {
	engine equil.Engine
	laws   *kinetics.Registry
}

func NewRunner(engine equil.Engine, laws *kinetics.Registry) *Runner {
	if laws == nil {
		laws = kinetics.NewRegistry()
	}
	return &Runner{engine: engine, laws: laws}
}

// DoseOutcome bundles the solver result with the aggregated report and
// the oracle cache statistics for the run.
type DoseOutcome struct {
	Result      *dosing.Result
	Report      report.DosingReport
	CacheHits   int
	CacheMisses int
}

func (r *Runner) Dose(ctx context.Context, req DoseRequest) (*DoseOutcome, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	release, err := r.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	memo := equil.NewMemo(equil.NewAdapter(r.engine, req.Timeout))
	cfg := req.Config
	if cfg == (dosing.Config{}) {
		cfg = dosing.DefaultConfig()
	}

	res, err := dosing.New(memo, cfg).Solve(ctx, req.Solution, req.Reagent, req.Target, req.Minerals)
	if err != nil {
		return nil, err
	}
	return &DoseOutcome{
		Result:      res,
		Report:      report.FromDosing(res),
		CacheHits:   memo.Hits(),
		CacheMisses: memo.Misses(),
	}, nil
}

// KineticOutcome bundles the trace with the aggregated report. The
// trace may be partial when err is non-nil (cancellation).
type KineticOutcome struct {
	Trace       kinetics.Trace
	Report      report.KineticReport
	CacheHits   int
	CacheMisses int
}

func (r *Runner) Kinetic(ctx context.Context, req KineticRequest) (*KineticOutcome, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	release, err := r.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	memo := equil.NewMemo(equil.NewAdapter(r.engine, req.Timeout))
	cfg := req.Config
	if cfg == (kinetics.Config{}) {
		cfg = kinetics.DefaultConfig()
	}

	trace, runErr := kinetics.New(memo, r.laws, cfg).Run(ctx, req.Solution, req.Additions, req.Minerals, req.Grid, req.EquilibriumPhases)
	out := &KineticOutcome{
		Trace:       trace,
		Report:      report.FromTrace(trace),
		CacheHits:   memo.Hits(),
		CacheMisses: memo.Misses(),
	}
	if runErr != nil {
		return out, runErr
	}
	return out, nil
}

func (r *Runner) acquire() (func(), error) {
	if a, ok := r.engine.(acquirer); ok {
		if err := a.Acquire(); err != nil {
			return nil, err
		}
		return a.Release, nil
	}
	return func() {}, nil
}
