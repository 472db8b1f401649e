package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	logx "mimicbot/pkg/logx"
)

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("store.path is required for sqlite driver")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")
	_, _ = db.Exec("PRAGMA busy_timeout = 5000")

	if _, err := db.Exec(
		`CREATE TABLE IF NOT EXISTS schedule (
			group_id TEXT PRIMARY KEY,
			next_run REAL NOT NULL
		)`,
	); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &sqliteStore{db: db, log: log}, nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Load(ctx context.Context) Schedule {
	out := Schedule{}
	rows, err := s.db.QueryContext(ctx, `SELECT group_id, next_run FROM schedule`)
	if err != nil {
		s.log.Warn("schedule load failed; starting empty", logx.Err(err))
		return out
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var next float64
		if err := rows.Scan(&id, &next); err != nil {
			s.log.Warn("schedule row scan failed; skipping", logx.Err(err))
			continue
		}
		out[id] = next
	}
	if err := rows.Err(); err != nil {
		s.log.Warn("schedule load incomplete", logx.Err(err))
	}
	return out
}

// Save replaces the whole schedule in one transaction, matching the file
// driver's whole-document overwrite semantics.
func (s *sqliteStore) Save(ctx context.Context, sched Schedule) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM schedule`); err != nil {
		_ = tx.Rollback()
		return err
	}
	for id, next := range sched {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schedule(group_id, next_run) VALUES(?,?)`, id, next,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) SetNext(ctx context.Context, groupID string, nextRun float64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO schedule(group_id, next_run) VALUES(?,?)
		 ON CONFLICT(group_id) DO UPDATE SET next_run=excluded.next_run`,
		groupID, nextRun,
	)
	return err
}
