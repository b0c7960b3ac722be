package chem

import (
	"math"
	"testing"
)

func TestSolutionClone(t *testing.T) {
	s := NewSolution(25, 7.0)
	s.Elements["Ca"] = 1.5

	c := s.Clone()
	c.Elements["Ca"] = 9.0

	if s.Elements["Ca"] != 1.5 {
		t.Errorf("clone mutated original: got %f", s.Elements["Ca"])
	}
}

func TestSolutionWith(t *testing.T) {
	s := NewSolution(25, 7.0)
	s.Elements["Na"] = 2.0

	out := s.With("Na", 0.5)
	if out.Amount("Na") != 2.5 {
		t.Errorf("expected 2.5, got %f", out.Amount("Na"))
	}
	if s.Amount("Na") != 2.0 {
		t.Error("With mutated the receiver")
	}
}

func TestSolutionValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Solution)
		wantErr bool
	}{
		{"ok", func(s *Solution) {}, false},
		{"nan pH", func(s *Solution) { s.PH = math.NaN() }, true},
		{"inf element", func(s *Solution) { s.Elements["Cl"] = math.Inf(1) }, true},
		{"negative element", func(s *Solution) { s.Elements["Cl"] = -1 }, true},
		{"below absolute zero", func(s *Solution) { s.Temperature = -300 }, true},
	}

	for _, tt := range tests {
		s := NewSolution(25, 7.0)
		tt.mutate(&s)
		err := s.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: Validate() = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestReactantValidate(t *testing.T) {
	if err := (Reactant{Formula: "NaOH", Amount: 1.0}).Validate(); err != nil {
		t.Errorf("valid reactant rejected: %v", err)
	}
	if err := (Reactant{Formula: "", Amount: 1.0}).Validate(); err == nil {
		t.Error("empty formula accepted")
	}
	if err := (Reactant{Formula: "NaOH", Amount: -0.1}).Validate(); err == nil {
		t.Error("negative amount accepted")
	}
	if err := (Reactant{Formula: "NaOH", Amount: math.NaN()}).Validate(); err == nil {
		t.Error("NaN amount accepted")
	}
}

func TestTargetConditionExtract(t *testing.T) {
	s := NewSolution(25, 8.2)
	s.Elements["Ca"] = 0.8

	if got := (TargetCondition{Parameter: "pH"}).Extract(s); got != 8.2 {
		t.Errorf("pH extract = %f", got)
	}
	if got := (TargetCondition{Parameter: "Ca"}).Extract(s); got != 0.8 {
		t.Errorf("Ca extract = %f", got)
	}
	if got := (TargetCondition{Parameter: "Mg"}).Extract(s); got != 0 {
		t.Errorf("absent tag extract = %f, want 0", got)
	}
}

func TestTargetConditionValidate(t *testing.T) {
	if err := (TargetCondition{Parameter: "pH", Value: 8.5}).Validate(); err != nil {
		t.Errorf("valid target rejected: %v", err)
	}
	if err := (TargetCondition{Parameter: "Ca", Value: -1}).Validate(); err == nil {
		t.Error("negative concentration target accepted")
	}
	if err := (TargetCondition{Parameter: "pH", Value: math.Inf(1)}).Validate(); err == nil {
		t.Error("non-finite target accepted")
	}
}
