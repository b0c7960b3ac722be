// Package carbonate is the built-in equilibrium engine: a simplified
// carbonate-system model good enough to exercise the dosing and
// kinetics solvers end to end.
//
// It speciates dissolved inorganic carbon with temperature-adjusted
// K1/K2/Kw, solves pH from the conservative-ion charge balance, applies
// a Davies activity correction, and precipitates calcite or aragonite
// to saturation when the phase is allowed.
//
// Production deployments substitute a full geochemical solver behind
// the same [equil.Engine] contract.
package carbonate
