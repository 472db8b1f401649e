// Package swap implements the identity-swap engine: one loop per chat group
// that, on a randomized cadence, ranks recent speakers, draws a target
// weighted toward the most active, and runs the poke / card-swap sequence
// against the remote group-management API.
package swap
