// Package run turns validated dosing and kinetic requests into
// reports. It owns the per-run wiring: one adapter and one memo cache
// per request, an engine handle pinned for the duration, and parallel
// batches of independent runs.
package run
