package storage

import (
	"context"
	"errors"
	"strings"

	logx "mimicbot/pkg/logx"
)

// Store is the schedule persistence API used by the swap engine.
//
// Load never fails: a missing or corrupt backing store degrades to an empty
// schedule (logged) so a bad disk state can't take the loops down. A group
// without an entry is treated as due immediately by the caller.
//
// SetNext performs the read-modify-write for one group under the store's own
// lock; all loop goroutines share one Store instance, which serializes
// concurrent schedule writes from different group loops.
type Store interface {
	Load(ctx context.Context) Schedule
	Save(ctx context.Context, s Schedule) error
	SetNext(ctx context.Context, groupID string, nextRun float64) error
	Close() error
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown schedule store driver: " + driver)
	}
}
