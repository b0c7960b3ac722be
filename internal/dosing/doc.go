// Package dosing inverts the forward chemistry: given a reagent and a
// target condition, it searches for the dose whose equilibrated result
// meets the target.
//
// The search is bracket-and-bisect with secant acceleration. Oracle
// failures at a trial dose are treated as "f(x) undefined" and the
// search bisects toward the known-good side instead of aborting; only
// the iteration budget, a collapsed bracket, or an unbracketable
// target end it early, and even then the best dose found is returned
// with an explicit status.
package dosing
