package storage

import "errors"

var ErrClosed = errors.New("schedule store closed")

// Schedule maps group id -> next eligible run, unix seconds.
//
// Fractional seconds are preserved; the on-disk document keeps timestamps as
// plain JSON numbers so operators can read and edit it.
type Schedule map[string]float64

// Config configures the schedule store.
//
// Driver values:
//   - "file" (or empty): flat JSON document
//   - "sqlite": SQLite database file
type Config struct {
	Driver string
	Path   string
}
