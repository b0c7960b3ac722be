// Package equil defines the boundary to the external equilibrium
// chemistry engine.
//
// The engine is treated as a pure, possibly expensive function: given a
// solution, reagent additions and a list of allowed solid phases it
// returns a new solution, saturation indices and precipitated amounts.
// [Adapter] wraps any [Engine] with defensive error translation (every
// engine-specific error becomes a [Failure] with one of four kinds) and
// a per-call timeout. [Memo] adds within-run caching.
//
// There is deliberately no retry logic here: retry and bisection policy
// belongs to the dosing and kinetics solvers that call Evaluate.
package equil
