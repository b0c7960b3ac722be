package equil

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/san-kum/aquasim/internal/chem"
)

// Memo caches outcomes by input within a single run. Engine calls are
// expensive but idempotent for identical inputs, so a solver probing
// the same dose twice reuses the first outcome. Only successes are
// cached: a failure can be transient (a timeout, a flaky convergence)
// and must not become permanent for that input. A Memo must not be
// shared across runs or goroutines.
type Memo struct {
	inner   Evaluator
	cache   map[string]evalResult
	hits    int
	misses  int
}

func NewMemo(inner Evaluator) *Memo {
	return &Memo{inner: inner, cache: make(map[string]evalResult)}
}

func (m *Memo) Evaluate(ctx context.Context, sol chem.Solution, reactants []chem.Reactant, minerals []string) (Outcome, error) {
	key := memoKey(sol, reactants, minerals)
	if res, ok := m.cache[key]; ok {
		m.hits++
		return res.out, res.err
	}
	m.misses++
	out, err := m.inner.Evaluate(ctx, sol, reactants, minerals)
	if err == nil {
		m.cache[key] = evalResult{out: out}
	}
	return out, err
}

// Hits reports how many evaluations were served from cache.
func (m *Memo) Hits() int { return m.hits }

// Misses reports how many evaluations went through to the engine.
func (m *Memo) Misses() int { return m.misses }

func memoKey(sol chem.Solution, reactants []chem.Reactant, minerals []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "T=%.10g pH=%.10g", sol.Temperature, sol.PH)

	tags := make([]string, 0, len(sol.Elements))
	for tag := range sol.Elements {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	for _, tag := range tags {
		fmt.Fprintf(&b, " %s=%.10g", tag, sol.Elements[tag])
	}

	for _, r := range reactants {
		fmt.Fprintf(&b, " +%s:%.10g", r.Formula, r.Amount)
	}

	sorted := make([]string, len(minerals))
	copy(sorted, minerals)
	sort.Strings(sorted)
	fmt.Fprintf(&b, " m=%s", strings.Join(sorted, ","))

	return b.String()
}
