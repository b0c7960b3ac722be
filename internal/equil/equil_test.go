package equil

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/aquasim/internal/chem"
)

type fakeEngine struct {
	calls int
	fn    func(sol chem.Solution, reactants []chem.Reactant, minerals []string) (Outcome, error)
}

func (f *fakeEngine) Equilibrate(sol chem.Solution, reactants []chem.Reactant, minerals []string) (Outcome, error) {
	f.calls++
	return f.fn(sol, reactants, minerals)
}

func okEngine() *fakeEngine {
	return &fakeEngine{fn: func(sol chem.Solution, _ []chem.Reactant, _ []string) (Outcome, error) {
		return Outcome{
			Solution:          sol,
			SaturationIndices: map[string]float64{"Calcite": 0.3, "Gypsum": MissingSI},
		}, nil
	}}
}

func TestAdapterEvaluate(t *testing.T) {
	a := NewAdapter(okEngine(), time.Second)

	out, err := a.Evaluate(context.Background(), chem.NewSolution(25, 7), nil, []string{"Calcite"})
	require.NoError(t, err)

	si, ok := out.SI("Calcite")
	assert.True(t, ok)
	assert.InDelta(t, 0.3, si, 1e-12)
}

func TestOutcomeMissingSISentinel(t *testing.T) {
	a := NewAdapter(okEngine(), time.Second)
	out, err := a.Evaluate(context.Background(), chem.NewSolution(25, 7), nil, nil)
	require.NoError(t, err)

	// A -999 index means "not in database", not a genuine negative index.
	si, ok := out.SI("Gypsum")
	assert.False(t, ok)
	assert.Equal(t, MissingSI, si)
	assert.False(t, out.InDatabase("Gypsum"))
	assert.True(t, out.InDatabase("Calcite"))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		kind FailureKind
	}{
		{fmt.Errorf("wrapping: %w", ErrDatabase), DatabaseError},
		{fmt.Errorf("wrapping: %w", ErrUnknownSpecies), UnknownSpecies},
		{fmt.Errorf("wrapping: %w", ErrUnstable), NumericInstability},
		{errors.New("engine blew up in some internal routine"), ConvergenceFailure},
		{&Failure{Kind: DatabaseError, Message: "passthrough"}, DatabaseError},
	}

	for _, tt := range tests {
		f := Classify(tt.err)
		assert.Equal(t, tt.kind, f.Kind, "error %v", tt.err)
	}
}

func TestAdapterNormalizesEngineError(t *testing.T) {
	eng := &fakeEngine{fn: func(chem.Solution, []chem.Reactant, []string) (Outcome, error) {
		return Outcome{}, fmt.Errorf("species lookup: %w", ErrUnknownSpecies)
	}}
	a := NewAdapter(eng, time.Second)

	_, err := a.Evaluate(context.Background(), chem.NewSolution(25, 7), nil, nil)
	f, ok := AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, UnknownSpecies, f.Kind)
}

func TestAdapterTimeout(t *testing.T) {
	eng := &fakeEngine{fn: func(chem.Solution, []chem.Reactant, []string) (Outcome, error) {
		time.Sleep(500 * time.Millisecond)
		return Outcome{Solution: chem.NewSolution(25, 7)}, nil
	}}
	a := NewAdapter(eng, 20*time.Millisecond)

	_, err := a.Evaluate(context.Background(), chem.NewSolution(25, 7), nil, nil)
	f, ok := AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, NumericInstability, f.Kind)
}

func TestAdapterContextCanceled(t *testing.T) {
	eng := &fakeEngine{fn: func(chem.Solution, []chem.Reactant, []string) (Outcome, error) {
		time.Sleep(500 * time.Millisecond)
		return Outcome{Solution: chem.NewSolution(25, 7)}, nil
	}}
	a := NewAdapter(eng, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Evaluate(ctx, chem.NewSolution(25, 7), nil, nil)
	f, ok := AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, NumericInstability, f.Kind)
}

func TestMemoReusesIdenticalInputs(t *testing.T) {
	eng := okEngine()
	m := NewMemo(NewAdapter(eng, time.Second))

	sol := chem.NewSolution(25, 7)
	sol.Elements["Ca"] = 1.0
	reactants := []chem.Reactant{{Formula: "NaOH", Amount: 0.5}}
	minerals := []string{"Calcite"}

	first, err1 := m.Evaluate(context.Background(), sol, reactants, minerals)
	second, err2 := m.Evaluate(context.Background(), sol, reactants, minerals)

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, eng.calls, "second call must come from cache")
	assert.Equal(t, 1, m.Hits())
	assert.Equal(t, 1, m.Misses())
}

func TestMemoDistinguishesDose(t *testing.T) {
	eng := okEngine()
	m := NewMemo(NewAdapter(eng, time.Second))
	sol := chem.NewSolution(25, 7)

	_, _ = m.Evaluate(context.Background(), sol, []chem.Reactant{{Formula: "NaOH", Amount: 0.5}}, nil)
	_, _ = m.Evaluate(context.Background(), sol, []chem.Reactant{{Formula: "NaOH", Amount: 0.6}}, nil)

	assert.Equal(t, 2, eng.calls)
}

func TestMemoDoesNotCacheFailures(t *testing.T) {
	// Engine failures can be transient (timeouts, flaky convergence);
	// a retry of the same input must reach the engine again.
	eng := &fakeEngine{}
	eng.fn = func(sol chem.Solution, _ []chem.Reactant, _ []string) (Outcome, error) {
		if eng.calls == 1 {
			return Outcome{}, errors.New("no convergence")
		}
		return Outcome{Solution: sol, SaturationIndices: map[string]float64{"Calcite": 0.3}}, nil
	}
	m := NewMemo(NewAdapter(eng, time.Second))
	sol := chem.NewSolution(25, 7)

	_, err1 := m.Evaluate(context.Background(), sol, nil, nil)
	out, err2 := m.Evaluate(context.Background(), sol, nil, nil)

	require.Error(t, err1)
	require.NoError(t, err2)
	assert.True(t, out.InDatabase("Calcite"))
	assert.Equal(t, 2, eng.calls)
	assert.Equal(t, 0, m.Hits())
	assert.Equal(t, 2, m.Misses())

	// The success is cached from here on.
	_, err3 := m.Evaluate(context.Background(), sol, nil, nil)
	require.NoError(t, err3)
	assert.Equal(t, 2, eng.calls)
	assert.Equal(t, 1, m.Hits())
}
