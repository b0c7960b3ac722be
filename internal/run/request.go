package run

import (
	"fmt"
	"math"
	"time"

	"github.com/san-kum/aquasim/internal/chem"
	"github.com/san-kum/aquasim/internal/dosing"
	"github.com/san-kum/aquasim/internal/kinetics"
)

// DoseRequest describes one dosing run: find how much of Reagent must
// be added to Solution so that Target is met, with Minerals allowed to
// precipitate along the way.
type DoseRequest struct {
	Solution chem.Solution
	Reagent  chem.Reactant // Amount is ignored; the solver owns the dose
	Target   chem.TargetCondition
	Minerals []string

	Config  dosing.Config // zero value means dosing.DefaultConfig()
	Timeout time.Duration // per oracle call, 0 means equil.DefaultTimeout
}

func (r DoseRequest) Validate() error {
	if err := r.Solution.Validate(); err != nil {
		return err
	}
	if r.Reagent.Formula == "" {
		return &chem.ValidationError{Field: "reagent.formula", Message: "empty formula"}
	}
	if err := r.Target.Validate(); err != nil {
		return err
	}
	if r.Timeout < 0 {
		return &chem.ValidationError{Field: "timeout", Message: "negative"}
	}
	return nil
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// KineticRequest describes one kinetic precipitation run over the
// requested output grid.
type KineticRequest struct {
	Solution  chem.Solution
	Additions []chem.Reactant // applied once, before t=0
	Minerals  []kinetics.MineralSpec
	Grid      []float64 // seconds, strictly increasing, first >= 0

	// EquilibriumPhases are minerals held at equilibrium by the oracle
	// on every call, in addition to the kinetic minerals above. A
	// mineral must not appear in both lists: the kinetic pathway owns
	// its mass, and an equilibrium phase would consume the same
	// supersaturation instantly.
	EquilibriumPhases []string

	Config  kinetics.Config // zero value means kinetics.DefaultConfig()
	Timeout time.Duration   // per oracle call, 0 means equil.DefaultTimeout
}

func (r KineticRequest) Validate() error {
	if err := r.Solution.Validate(); err != nil {
		return err
	}
	for i, a := range r.Additions {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("addition %d: %w", i, err)
		}
	}
	if len(r.Minerals) == 0 {
		return &chem.ValidationError{Field: "minerals", Message: "empty"}
	}
	for _, m := range r.Minerals {
		if m.Name == "" {
			return &chem.ValidationError{Field: "minerals", Message: "unnamed mineral"}
		}
		if !finite(m.M) || !finite(m.M0) {
			return &chem.ValidationError{Field: "minerals." + m.Name, Message: "non-finite mass"}
		}
		if math.IsNaN(m.Tol) || math.IsInf(m.Tol, 0) {
			return &chem.ValidationError{Field: "minerals." + m.Name, Message: "non-finite tolerance"}
		}
		for _, p := range m.Parms {
			if !finite(p) {
				return &chem.ValidationError{Field: "minerals." + m.Name, Message: "non-finite rate parameter"}
			}
		}
	}
	if len(r.Grid) == 0 {
		return &chem.ValidationError{Field: "grid", Message: "empty"}
	}
	for _, p := range r.EquilibriumPhases {
		for _, m := range r.Minerals {
			if m.Name == p {
				return &chem.ValidationError{Field: "equilibrium_phases", Message: p + " is already a kinetic mineral"}
			}
		}
	}
	if r.Timeout < 0 {
		return &chem.ValidationError{Field: "timeout", Message: "negative"}
	}
	return nil
}
