// Package storage persists the per-group swap schedule: a flat mapping from
// group id to the unix timestamp of the next eligible run.
//
// It currently supports:
//   - "file": a human-readable JSON document, overwritten whole per save
//   - "sqlite": an embedded SQLite database file
package storage
