package chem

import "math"

const AbsoluteZeroC = -273.15

// Solution is a snapshot of water chemistry at one point in time.
// Solvers treat it as a value: every step produces a new instance.
type Solution struct {
	Temperature float64            // degrees C
	PH          float64
	Elements    map[string]float64 // species tag -> mmol/L
}

func NewSolution(tempC, pH float64) Solution {
	return Solution{
		Temperature: tempC,
		PH:          pH,
		Elements:    make(map[string]float64),
	}
}

func (s Solution) Clone() Solution {
	c := s
	c.Elements = make(map[string]float64, len(s.Elements))
	for k, v := range s.Elements {
		c.Elements[k] = v
	}
	return c
}

// Amount returns the concentration for tag, zero when absent.
func (s Solution) Amount(tag string) float64 {
	return s.Elements[tag]
}

// With returns a copy with delta added to the tagged concentration.
func (s Solution) With(tag string, delta float64) Solution {
	c := s.Clone()
	c.Elements[tag] += delta
	return c
}

func (s Solution) IsValid() bool {
	if math.IsNaN(s.PH) || math.IsInf(s.PH, 0) {
		return false
	}
	if math.IsNaN(s.Temperature) || math.IsInf(s.Temperature, 0) {
		return false
	}
	for _, v := range s.Elements {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Validate checks caller-supplied invariants before any engine call.
func (s Solution) Validate() error {
	if !s.IsValid() {
		return &ValidationError{Field: "solution", Message: "NaN or Inf value"}
	}
	if s.Temperature <= AbsoluteZeroC {
		return &ValidationError{Field: "temperature", Message: "below absolute zero"}
	}
	for tag, v := range s.Elements {
		if v < 0 {
			return &ValidationError{Field: "elements." + tag, Message: "negative concentration"}
		}
	}
	return nil
}

// Reactant is one reagent addition. Caller amounts are mmol and
// non-negative; mineral transfers produced internally during
// re-equilibration may be signed (negative means removal).
type Reactant struct {
	Formula string
	Amount  float64
	Unit    string
}

func (r Reactant) Validate() error {
	if r.Formula == "" {
		return &ValidationError{Field: "reactant.formula", Message: "empty formula"}
	}
	if math.IsNaN(r.Amount) || math.IsInf(r.Amount, 0) {
		return &ValidationError{Field: "reactant.amount", Message: "not finite"}
	}
	if r.Amount < 0 {
		return &ValidationError{Field: "reactant.amount", Message: "negative amount"}
	}
	return nil
}

// Direction declares which way the condition moves as dose increases.
// When explicit (up or down), a target on the opposite side of the
// baseline is unreachable by non-negative dosing and the solver fails
// fast instead of bracketing to the ceiling. Auto asserts nothing.
type Direction int

const (
	DirectionAuto Direction = iota
	DirectionUp
	DirectionDown
)

// TargetCondition names the scalar a dosing run drives to a value.
// Parameter is "pH" or a species tag present in the solution.
type TargetCondition struct {
	Parameter string
	Value     float64
	Direction Direction
}

func (t TargetCondition) Validate() error {
	if t.Parameter == "" {
		return &ValidationError{Field: "target.parameter", Message: "empty parameter"}
	}
	if math.IsNaN(t.Value) || math.IsInf(t.Value, 0) {
		return &ValidationError{Field: "target.value", Message: "not finite"}
	}
	if t.Parameter != "pH" && t.Value < 0 {
		return &ValidationError{Field: "target.value", Message: "negative concentration target"}
	}
	return nil
}

// Extract reads the target parameter off a solution.
func (t TargetCondition) Extract(s Solution) float64 {
	if t.Parameter == "pH" {
		return s.PH
	}
	return s.Amount(t.Parameter)
}
