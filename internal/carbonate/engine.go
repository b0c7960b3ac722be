package carbonate

import (
	"fmt"
	"math"

	"github.com/san-kum/aquasim/internal/chem"
	"github.com/san-kum/aquasim/internal/equil"
)

// Equilibrium constants at 298.15 K and dissolution enthalpies
// [kcal/mol] for van 't Hoff temperature adjustment.
const (
	Rkcal = 1.9872041e-3 // [kcal K-1 mol-1] universal gas constant

	k1At298    = 4.467e-7  // H2CO3* = H+ + HCO3-
	k2At298    = 4.677e-11 // HCO3- = H+ + CO3--
	kwAt298    = 1.0e-14   // H2O = H+ + OH-
	kspCalcite = 3.31e-9   // CaCO3 = Ca++ + CO3--
	kspAragon  = 4.57e-9

	dH1  = 2.18
	dH2  = 3.55
	dHw  = 13.35
	dHsp = -2.30

	daviesA = 0.509
)

// temperatureAdjust scales an equilibrium constant from 298 K to T [K]
// given the reaction enthalpy over the gas constant (EperR [K]).
func temperatureAdjust(k298, EperR, T float64) float64 {
	return k298 * math.Exp(EperR*(1/298.15-1/T))
}

// Engine is a simplified carbonate-system equilibrium model. It speciates
// dissolved inorganic carbon, solves pH from the charge balance of
// conservative ions, applies a Davies activity correction, and (when a
// carbonate phase is allowed) removes mineral until saturation.
//
// It exists so the CLI and scenario tests have a working engine; any
// external solver implementing [equil.Engine] drops in instead.
type Engine struct {
	// MaxBisection bounds the internal pH and precipitation searches.
	MaxBisection int
}

func NewEngine() *Engine {
	return &Engine{MaxBisection: 200}
}

// Species tags the engine understands, all in mmol/L.
const (
	TagCa = "Ca"
	TagMg = "Mg"
	TagNa = "Na"
	TagCl = "Cl"
	TagC  = "C" // total dissolved inorganic carbon
)

var knownMinerals = map[string]bool{
	"Calcite":   true,
	"Aragonite": true,
}

func (e *Engine) Equilibrate(sol chem.Solution, reactants []chem.Reactant, minerals []string) (equil.Outcome, error) {
	if sol.Temperature <= chem.AbsoluteZeroC {
		return equil.Outcome{}, fmt.Errorf("temperature %.2f C: %w", sol.Temperature, equil.ErrUnstable)
	}

	next := sol.Clone()
	for _, r := range reactants {
		if err := applyReactant(&next, r); err != nil {
			return equil.Outcome{}, err
		}
	}
	for tag, v := range next.Elements {
		if v < 0 {
			return equil.Outcome{}, fmt.Errorf("mass balance: %s went negative: %w", tag, equil.ErrUnstable)
		}
	}

	w := newWater(next)
	if err := w.solvePH(e.MaxBisection); err != nil {
		return equil.Outcome{}, err
	}

	precipitated := make(map[string]float64)
	for _, name := range orderedAllowed(minerals) {
		removed, err := w.precipitate(name, e.MaxBisection)
		if err != nil {
			return equil.Outcome{}, err
		}
		if removed != 0 {
			precipitated[name] += removed
		}
	}

	out := equil.Outcome{
		Solution:          w.solution(next),
		SaturationIndices: w.saturationIndices(),
		Precipitated:      precipitated,
	}
	return out, nil
}

// applyReactant maps a reagent formula onto conservative element
// changes. Amounts are mmol/L and may be negative for mineral
// transfers during kinetic re-equilibration.
func applyReactant(sol *chem.Solution, r chem.Reactant) error {
	x := r.Amount
	switch r.Formula {
	case "NaOH":
		sol.Elements[TagNa] += x
	case "HCl":
		sol.Elements[TagCl] += x
	case "Na2CO3":
		sol.Elements[TagNa] += 2 * x
		sol.Elements[TagC] += x
	case "NaHCO3":
		sol.Elements[TagNa] += x
		sol.Elements[TagC] += x
	case "CO2":
		sol.Elements[TagC] += x
	case "Ca(OH)2":
		sol.Elements[TagCa] += x
	case "CaCl2":
		sol.Elements[TagCa] += x
		sol.Elements[TagCl] += 2 * x
	case "MgCl2":
		sol.Elements[TagMg] += x
		sol.Elements[TagCl] += 2 * x
	case "CaCO3", "Calcite", "Aragonite":
		sol.Elements[TagCa] += x
		sol.Elements[TagC] += x
	default:
		return fmt.Errorf("reagent %q: %w", r.Formula, equil.ErrUnknownSpecies)
	}
	return nil
}

func orderedAllowed(minerals []string) []string {
	out := make([]string, 0, len(minerals))
	// Calcite binds the solubility product before metastable phases.
	for _, name := range []string{"Calcite", "Aragonite"} {
		for _, m := range minerals {
			if m == name {
				out = append(out, name)
			}
		}
	}
	return out
}

// water holds the engine's working variables in mol/L.
type water struct {
	tempK          float64
	ca, mg, na, cl float64
	ct             float64
	h              float64 // solved hydrogen ion activity

	k1, k2, kw float64
}

func newWater(sol chem.Solution) *water {
	T := sol.Temperature + 273.15
	return &water{
		tempK: T,
		ca:    sol.Amount(TagCa) / 1000,
		mg:    sol.Amount(TagMg) / 1000,
		na:    sol.Amount(TagNa) / 1000,
		cl:    sol.Amount(TagCl) / 1000,
		ct:    sol.Amount(TagC) / 1000,
		k1:    temperatureAdjust(k1At298, dH1/Rkcal, T),
		k2:    temperatureAdjust(k2At298, dH2/Rkcal, T),
		kw:    temperatureAdjust(kwAt298, dHw/Rkcal, T),
	}
}

// alkalinity from the charge balance of conservative ions [eq/L].
func (w *water) alkalinity() float64 {
	return w.na + 2*w.ca + 2*w.mg - w.cl
}

// carbonateFractions returns the ionization fractions alpha1 (HCO3-)
// and alpha2 (CO3--) at hydrogen ion activity h.
func (w *water) carbonateFractions(h float64) (float64, float64) {
	denom := h*h + w.k1*h + w.k1*w.k2
	return w.k1 * h / denom, w.k1 * w.k2 / denom
}

// chargeResidual is zero at the equilibrium pH. Monotone decreasing
// in h, which makes the bisection below safe.
func (w *water) chargeResidual(h float64) float64 {
	a1, a2 := w.carbonateFractions(h)
	return w.ct*(a1+2*a2) + w.kw/h - h - w.alkalinity()
}

func (w *water) solvePH(maxIter int) error {
	lo, hi := 1e-16, 1.0 // pH 16 .. 0
	flo := w.chargeResidual(lo)
	fhi := w.chargeResidual(hi)
	if math.IsNaN(flo) || math.IsNaN(fhi) {
		return fmt.Errorf("pH residual is NaN: %w", equil.ErrUnstable)
	}
	if flo*fhi > 0 {
		return fmt.Errorf("pH outside 0..16: %w", equil.ErrConvergence)
	}

	for i := 0; i < maxIter; i++ {
		mid := math.Sqrt(lo * hi) // log-scale midpoint
		fm := w.chargeResidual(mid)
		if math.Abs(fm) < 1e-14 || hi/lo < 1.0000001 {
			w.h = mid
			return nil
		}
		if fm*flo < 0 {
			hi = mid
		} else {
			lo = mid
			flo = fm
		}
	}
	return fmt.Errorf("pH bisection did not converge: %w", equil.ErrConvergence)
}

// ionicStrength from the major ions [mol/L].
func (w *water) ionicStrength() float64 {
	a1, a2 := w.carbonateFractions(w.h)
	hco3 := w.ct * a1
	co3 := w.ct * a2
	oh := w.kw / w.h
	return 0.5 * (4*w.ca + 4*w.mg + w.na + w.cl + hco3 + 4*co3 + oh + w.h)
}

// gamma is the Davies activity coefficient for charge z.
func (w *water) gamma(z float64) float64 {
	I := w.ionicStrength()
	if I <= 0 {
		return 1
	}
	sqrtI := math.Sqrt(I)
	logG := -daviesA * z * z * (sqrtI/(1+sqrtI) - 0.3*I)
	return math.Pow(10, logG)
}

func (w *water) siCarbonate(ksp298 float64) float64 {
	_, a2 := w.carbonateFractions(w.h)
	co3 := w.ct * a2
	g2 := w.gamma(2)
	ksp := temperatureAdjust(ksp298, dHsp/Rkcal, w.tempK)
	iap := g2 * w.ca * g2 * co3
	if iap <= 0 {
		return math.Inf(-1)
	}
	return math.Log10(iap / ksp)
}

func (w *water) saturationIndices() map[string]float64 {
	return map[string]float64{
		"Calcite":   w.siCarbonate(kspCalcite),
		"Aragonite": w.siCarbonate(kspAragon),
	}
}

// precipitate removes mineral until its SI reaches zero and returns the
// moles removed per liter. No-op when undersaturated or unknown.
func (w *water) precipitate(name string, maxIter int) (float64, error) {
	var ksp float64
	switch name {
	case "Calcite":
		ksp = kspCalcite
	case "Aragonite":
		ksp = kspAragon
	default:
		return 0, nil
	}

	siAt := func(x float64) (float64, error) {
		trial := *w
		trial.ca -= x
		trial.ct -= x
		if err := trial.solvePH(maxIter); err != nil {
			return 0, err
		}
		return trial.siCarbonate(ksp), nil
	}

	si0, err := siAt(0)
	if err != nil {
		return 0, err
	}
	if si0 <= 0 {
		return 0, nil
	}

	lo, hi := 0.0, math.Min(w.ca, w.ct)
	for i := 0; i < maxIter; i++ {
		mid := (lo + hi) / 2
		si, err := siAt(mid)
		if err != nil {
			return 0, err
		}
		if math.Abs(si) < 1e-6 || hi-lo < 1e-15 {
			w.ca -= mid
			w.ct -= mid
			if err := w.solvePH(maxIter); err != nil {
				return 0, err
			}
			return mid, nil
		}
		if si > 0 {
			lo = mid
		} else {
			hi = mid
		}
	}
	return 0, fmt.Errorf("precipitation search for %s did not converge: %w", name, equil.ErrConvergence)
}

// solution writes the working variables back as a chem.Solution,
// preserving any tags the engine does not model.
func (w *water) solution(base chem.Solution) chem.Solution {
	out := base.Clone()
	out.Elements[TagCa] = w.ca * 1000
	out.Elements[TagMg] = w.mg * 1000
	out.Elements[TagNa] = w.na * 1000
	out.Elements[TagCl] = w.cl * 1000
	out.Elements[TagC] = w.ct * 1000
	out.PH = -math.Log10(w.h)
	return out
}
