// Package tui is the terminal live view for kinetic runs: an
// interval-at-a-time integration loop rendered with bubbletea.
package tui
