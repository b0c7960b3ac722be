package kinetics

import "github.com/san-kum/aquasim/internal/chem"

// MineralPoint is one mineral's state at a trace entry.
type MineralPoint struct {
	Name   string
	Moles  float64 // mmol
	Rate   float64 // mmol/s, as evaluated at this time
	Status Status
}

// Entry is the state at one requested grid point. Sub-stepping done
// for stability between grid points is invisible here; Notes carries
// any bisection or failure diagnostics for the preceding interval.
type Entry struct {
	Time     float64 // seconds
	Solution chem.Solution
	Minerals []MineralPoint
	Degraded bool
	Notes    []string
}

// Trace is the append-only time series returned from a kinetic run,
// one entry per requested grid point.
type Trace []Entry

// Degraded reports whether any interval exhausted its subdivision
// budget.
func (tr Trace) Degraded() bool {
	for _, e := range tr {
		if e.Degraded {
			return true
		}
	}
	return false
}

// Mineral extracts one mineral's series from the trace.
func (tr Trace) Mineral(name string) (times, moles, rates []float64) {
	for _, e := range tr {
		for _, mp := range e.Minerals {
			if mp.Name == name {
				times = append(times, e.Time)
				moles = append(moles, mp.Moles)
				rates = append(rates, mp.Rate)
			}
		}
	}
	return times, moles, rates
}
