package carbonate

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/aquasim/internal/chem"
	"github.com/san-kum/aquasim/internal/equil"
)

func TestPureWaterPH(t *testing.T) {
	eng := NewEngine()
	out, err := eng.Equilibrate(chem.NewSolution(25, 7), nil, nil)
	if err != nil {
		t.Fatalf("equilibrate failed: %v", err)
	}
	if math.Abs(out.Solution.PH-7.0) > 0.05 {
		t.Errorf("pure water pH = %.3f, want ~7", out.Solution.PH)
	}
}

func TestNaOHRaisesPH(t *testing.T) {
	eng := NewEngine()
	sol := chem.NewSolution(25, 7)
	sol.Elements[TagC] = 2.0 // carbonate buffered water

	base, err := eng.Equilibrate(sol, nil, nil)
	if err != nil {
		t.Fatalf("base equilibrate failed: %v", err)
	}

	dosed, err := eng.Equilibrate(sol, []chem.Reactant{{Formula: "NaOH", Amount: 1.0}}, nil)
	if err != nil {
		t.Fatalf("dosed equilibrate failed: %v", err)
	}

	if dosed.Solution.PH <= base.Solution.PH {
		t.Errorf("NaOH did not raise pH: %.3f -> %.3f", base.Solution.PH, dosed.Solution.PH)
	}
}

func TestHClLowersPH(t *testing.T) {
	eng := NewEngine()
	sol := chem.NewSolution(25, 7)
	sol.Elements[TagC] = 2.0
	sol.Elements[TagNa] = 2.0

	base, _ := eng.Equilibrate(sol, nil, nil)
	dosed, err := eng.Equilibrate(sol, []chem.Reactant{{Formula: "HCl", Amount: 1.0}}, nil)
	if err != nil {
		t.Fatalf("dosed equilibrate failed: %v", err)
	}

	if dosed.Solution.PH >= base.Solution.PH {
		t.Errorf("HCl did not lower pH: %.3f -> %.3f", base.Solution.PH, dosed.Solution.PH)
	}
}

func TestCalciteSISupersaturated(t *testing.T) {
	eng := NewEngine()
	sol := chem.NewSolution(25, 7)
	sol.Elements[TagCa] = 4.0
	sol.Elements[TagC] = 8.0
	sol.Elements[TagNa] = 4.0 // alkalinity to push pH up

	out, err := eng.Equilibrate(sol, nil, nil)
	if err != nil {
		t.Fatalf("equilibrate failed: %v", err)
	}

	si, ok := out.SI("Calcite")
	if !ok {
		t.Fatal("Calcite missing from SI map")
	}
	if si <= 0 {
		t.Errorf("hard alkaline water should be supersaturated, SI = %.3f", si)
	}

	// Aragonite is more soluble, so its index sits below calcite's.
	siA, _ := out.SI("Aragonite")
	if siA >= si {
		t.Errorf("aragonite SI %.3f >= calcite SI %.3f", siA, si)
	}
}

func TestPrecipitationReachesSaturation(t *testing.T) {
	eng := NewEngine()
	sol := chem.NewSolution(25, 7)
	sol.Elements[TagCa] = 4.0
	sol.Elements[TagC] = 8.0
	sol.Elements[TagNa] = 4.0

	out, err := eng.Equilibrate(sol, nil, []string{"Calcite"})
	if err != nil {
		t.Fatalf("equilibrate failed: %v", err)
	}

	removed := out.Precipitated["Calcite"]
	if removed <= 0 {
		t.Fatal("expected calcite removal from supersaturated water")
	}

	si, _ := out.SI("Calcite")
	if math.Abs(si) > 1e-3 {
		t.Errorf("post-precipitation SI = %.5f, want ~0", si)
	}

	if out.Solution.Amount(TagCa) >= 4.0 {
		t.Error("calcium not reduced by precipitation")
	}
}

func TestUnknownReagent(t *testing.T) {
	eng := NewEngine()
	_, err := eng.Equilibrate(chem.NewSolution(25, 7), []chem.Reactant{{Formula: "Unobtainium", Amount: 1}}, nil)
	if !errors.Is(err, equil.ErrUnknownSpecies) {
		t.Errorf("expected ErrUnknownSpecies, got %v", err)
	}
}

func TestNegativeMassBalance(t *testing.T) {
	eng := NewEngine()
	sol := chem.NewSolution(25, 7)
	sol.Elements[TagCa] = 0.001

	// A mineral transfer removing more calcium than the water holds.
	_, err := eng.Equilibrate(sol, []chem.Reactant{{Formula: "CaCO3", Amount: -1.0}}, nil)
	if !errors.Is(err, equil.ErrUnstable) {
		t.Errorf("expected ErrUnstable, got %v", err)
	}
}

func TestTemperatureAdjust(t *testing.T) {
	// Kw grows with temperature (endothermic dissociation).
	kwCold := temperatureAdjust(kwAt298, dHw/Rkcal, 278.15)
	kwHot := temperatureAdjust(kwAt298, dHw/Rkcal, 318.15)
	if !(kwCold < kwAt298 && kwAt298 < kwHot) {
		t.Errorf("Kw ordering wrong: %g, %g, %g", kwCold, kwAt298, kwHot)
	}
}

func TestEquilibrateIsPure(t *testing.T) {
	eng := NewEngine()
	sol := chem.NewSolution(25, 7)
	sol.Elements[TagC] = 2.0

	first, err1 := eng.Equilibrate(sol, []chem.Reactant{{Formula: "NaOH", Amount: 0.5}}, []string{"Calcite"})
	second, err2 := eng.Equilibrate(sol, []chem.Reactant{{Formula: "NaOH", Amount: 0.5}}, []string{"Calcite"})

	if err1 != nil || err2 != nil {
		t.Fatalf("equilibrate failed: %v %v", err1, err2)
	}
	if first.Solution.PH != second.Solution.PH {
		t.Error("identical inputs produced different pH")
	}
	if sol.Amount(TagNa) != 0 {
		t.Error("engine mutated the input solution")
	}
}
