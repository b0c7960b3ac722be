// Package kinetics advances mineral masses through time using rate
// laws, re-equilibrating the solution through the oracle after every
// accepted sub-step.
//
// The integrator takes a caller-supplied time grid and guarantees one
// trace entry per grid point. Between grid points it sub-steps with an
// embedded 3rd/2nd order explicit scheme; sub-intervals whose local
// error is too large, whose moles would go negative, or whose
// re-equilibration fails are bisected on an explicit worklist. A
// sub-interval that exhausts the subdivision budget is force-accepted
// and its grid entry flagged degraded; the run itself keeps going.
//
// Minerals move Active -> Exhausted when their moles reach zero, and a
// mineral with no registered rate law fails the run at setup, before
// any oracle call.
package kinetics
