// Package chem provides the core value types shared by all solvers:
//
//   - [Solution]: water composition, pH and temperature at a point in time
//   - [Reactant]: a single reagent addition
//   - [TargetCondition]: the scalar a dosing run drives to a value
//
// Solutions are treated as values. Nothing in this package or its
// consumers mutates a Solution in place; every solver step produces a
// new instance, which is what makes retries and re-equilibration safe.
package chem
