package dosing

// Iteration is one trial evaluation during a dosing search.
type Iteration struct {
	Index        int
	Dose         float64 // mmol
	Value        float64 // achieved condition value, NaN when the oracle failed
	Residual     float64 // Value - target, NaN when the oracle failed
	OracleFailed bool
	Note         string
}

// Record is the append-only convergence trace. It is both returned to
// the caller and read by the solver's own stagnation policy.
type Record []Iteration

func (r Record) Len() int { return len(r) }

// Best returns the successful iteration with the smallest absolute
// residual, and false when every trial failed.
func (r Record) Best() (Iteration, bool) {
	best := Iteration{}
	found := false
	for _, it := range r {
		if it.OracleFailed {
			continue
		}
		if !found || abs(it.Residual) < abs(best.Residual) {
			best = it
			found = true
		}
	}
	return best, found
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
