package chem

import (
	"errors"
	"fmt"
)

// Domain errors shared across solver packages.
var (
	// ErrInvalidSolution indicates a solution with NaN/Inf or out-of-range values.
	ErrInvalidSolution = errors.New("chem: invalid solution")

	// ErrUnreachableTarget indicates no dose within the ceiling brackets the target.
	ErrUnreachableTarget = errors.New("chem: target unreachable within dose ceiling")

	// ErrSetup indicates an invalid mineral spec detected before stepping.
	ErrSetup = errors.New("chem: invalid kinetic setup")

	// ErrIntegration indicates a kinetic interval exhausted its subdivision budget.
	ErrIntegration = errors.New("chem: interval not accepted after maximum subdivision")
)

// ValidationError reports malformed caller input. It is deterministic:
// callers must not retry it.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// SetupError reports an invalid kinetic mineral spec. The whole run fails
// before any time stepping.
type SetupError struct {
	Mineral string
	Reason  string
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("setup: mineral %s: %s", e.Mineral, e.Reason)
}

func (e *SetupError) Unwrap() error { return ErrSetup }
