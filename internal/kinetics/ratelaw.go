package kinetics

import "math"

// RateLaw computes the instantaneous dissolution rate of a mineral.
// Positive rates dissolve the solid; negative rates precipitate.
// parms is the mineral-specific parameter vector carried opaquely on
// the MineralSpec; each law documents the entries it reads.
type RateLaw interface {
	Name() string
	// Rate returns mmol/s per liter for a mineral with saturation index
	// si, current moles m and initial moles m0 (both mmol).
	Rate(si, m, m0 float64, parms []float64) float64
}

// PowerLaw is the transition-state-theory form
//
//	rate = k * (m/m0)^n * (1 - omega)
//
// with omega = 10^si the saturation ratio, parms[0] = k [mmol/s] and
// parms[1] = n the surface-area exponent. When m0 is zero the area
// factor is taken as 1: a freshly nucleating phase has no meaningful
// initial surface to scale against.
type PowerLaw struct{}

func (PowerLaw) Name() string { return "tst_power" }

func (PowerLaw) Rate(si, m, m0 float64, parms []float64) float64 {
	k := 1.0
	n := 1.0
	if len(parms) > 0 {
		k = parms[0]
	}
	if len(parms) > 1 {
		n = parms[1]
	}

	area := 1.0
	if m0 > 0 {
		area = math.Pow(m/m0, n)
	}

	omega := math.Pow(10, si)
	return k * area * (1 - omega)
}

// Registry maps mineral names to rate laws. A kinetic run fails at
// setup when one of its minerals has no registered law.
type Registry struct {
	laws map[string]RateLaw
}

func NewRegistry() *Registry {
	r := &Registry{laws: make(map[string]RateLaw)}
	r.Register("Calcite", PowerLaw{})
	r.Register("Aragonite", PowerLaw{})
	return r
}

func (r *Registry) Register(mineral string, law RateLaw) {
	r.laws[mineral] = law
}

func (r *Registry) Get(mineral string) (RateLaw, bool) {
	law, ok := r.laws[mineral]
	return law, ok
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.laws))
	for name := range r.laws {
		names = append(names, name)
	}
	return names
}
