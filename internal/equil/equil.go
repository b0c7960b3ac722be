package equil

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/san-kum/aquasim/internal/chem"
)

// MissingSI is the sentinel saturation index an engine reports for a
// mineral that is not present in its active database. It is not a real
// (negative) index and callers must treat it distinctly.
const MissingSI = -999.0

// Engine is the external equilibrium solver. Implementations must be
// pure: the outcome is a function of the arguments alone, with no
// session state threaded between calls.
type Engine interface {
	Equilibrate(sol chem.Solution, reactants []chem.Reactant, minerals []string) (Outcome, error)
}

// Evaluator is the boundary solvers call. The only production
// implementation is [Adapter]; tests substitute fakes.
type Evaluator interface {
	Evaluate(ctx context.Context, sol chem.Solution, reactants []chem.Reactant, minerals []string) (Outcome, error)
}

// Outcome is a successful equilibrium solve.
type Outcome struct {
	Solution          chem.Solution
	SaturationIndices map[string]float64
	Precipitated      map[string]float64 // moles removed from solution per mineral
}

// SI returns the saturation index for mineral and whether the mineral
// exists in the engine's database.
func (o Outcome) SI(mineral string) (float64, bool) {
	si, ok := o.SaturationIndices[mineral]
	if !ok || si == MissingSI {
		return MissingSI, false
	}
	return si, true
}

func (o Outcome) InDatabase(mineral string) bool {
	_, ok := o.SI(mineral)
	return ok
}

type FailureKind int

const (
	DatabaseError FailureKind = iota
	ConvergenceFailure
	NumericInstability
	UnknownSpecies
)

func (k FailureKind) String() string {
	switch k {
	case DatabaseError:
		return "database_error"
	case ConvergenceFailure:
		return "convergence_failure"
	case NumericInstability:
		return "numeric_instability"
	case UnknownSpecies:
		return "unknown_species"
	default:
		return "unknown"
	}
}

// Failure is an engine call that produced no usable outcome. Solvers
// recover from it by retrying or bisecting; the adapter never retries.
type Failure struct {
	Kind    FailureKind
	Message string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("equil: %s: %s", f.Kind, f.Message)
}

// AsFailure unwraps err into a *Failure when it is one.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// Sentinels engines may wrap to select a failure kind; anything else
// classifies as ConvergenceFailure.
var (
	ErrDatabase       = errors.New("equil: database error")
	ErrConvergence    = errors.New("equil: no convergence")
	ErrUnknownSpecies = errors.New("equil: unknown species")
	ErrUnstable       = errors.New("equil: numeric instability")
)

// Classify normalizes an arbitrary engine error into the four-kind
// taxonomy so upstream logic never branches on engine detail.
func Classify(err error) *Failure {
	if f, ok := AsFailure(err); ok {
		return f
	}
	kind := ConvergenceFailure
	switch {
	case errors.Is(err, ErrDatabase):
		kind = DatabaseError
	case errors.Is(err, ErrUnknownSpecies):
		kind = UnknownSpecies
	case errors.Is(err, ErrUnstable):
		kind = NumericInstability
	}
	return &Failure{Kind: kind, Message: err.Error()}
}

// Adapter wraps an Engine with error normalization and a per-call
// timeout. It performs no retries; retry policy belongs to callers.
type Adapter struct {
	engine  Engine
	timeout time.Duration
}

const DefaultTimeout = 30 * time.Second

func NewAdapter(engine Engine, timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Adapter{engine: engine, timeout: timeout}
}

type evalResult struct {
	out Outcome
	err error
}

func (a *Adapter) Evaluate(ctx context.Context, sol chem.Solution, reactants []chem.Reactant, minerals []string) (Outcome, error) {
	// The engine call itself cannot be interrupted, so it runs in its
	// own goroutine and is abandoned on timeout or cancellation.
	done := make(chan evalResult, 1)
	go func() {
		out, err := a.engine.Equilibrate(sol, reactants, minerals)
		done <- evalResult{out, err}
	}()

	timer := time.NewTimer(a.timeout)
	defer timer.Stop()

	select {
	case res := <-done:
		if res.err != nil {
			return Outcome{}, Classify(res.err)
		}
		if !res.out.Solution.IsValid() {
			return Outcome{}, &Failure{Kind: NumericInstability, Message: "engine returned NaN/Inf solution"}
		}
		return res.out, nil
	case <-timer.C:
		return Outcome{}, &Failure{Kind: NumericInstability, Message: "engine call timed out"}
	case <-ctx.Done():
		return Outcome{}, &Failure{Kind: NumericInstability, Message: "canceled: " + ctx.Err().Error()}
	}
}
