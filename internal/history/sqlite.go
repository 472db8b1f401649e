package history

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Reasonable pooling for SQLite; it's a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// runMigrations executes SQL files in alphabetical order within the
// migrations folder. Each file runs in a single transaction.
func runMigrations(ctx context.Context, db *sql.DB) error {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		sqlBytes, err := fs.ReadFile(migrationsFS, "migrations/"+e.Name())
		if err != nil {
			return err
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, string(sqlBytes)); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepo) Record(ctx context.Context, m Message) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO messages(chat_id, user_id, sent_at, is_bot, is_command)
		 VALUES(?,?,?,?,?)`,
		m.ChatID, m.UserID, m.SentAt.Unix(), boolInt(m.IsBot), boolInt(m.IsCommand),
	)
	return err
}

func (r *SQLiteRepo) QueryRange(ctx context.Context, chatID string, from, to time.Time, f Filter) ([]Message, error) {
	q := `SELECT user_id, sent_at, is_bot, is_command
	      FROM messages
	      WHERE chat_id = ? AND sent_at >= ? AND sent_at < ?`
	args := []any{chatID, from.Unix(), to.Unix()}
	if f.ExcludeBot {
		q += ` AND is_bot = 0`
	}
	if f.ExcludeCommands {
		q += ` AND is_command = 0`
	}
	q += ` ORDER BY sent_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var (
			userID       string
			sentAt       int64
			isBot, isCmd int
		)
		if err := rows.Scan(&userID, &sentAt, &isBot, &isCmd); err != nil {
			return nil, err
		}
		out = append(out, Message{
			ChatID:    chatID,
			UserID:    userID,
			SentAt:    time.Unix(sentAt, 0),
			IsBot:     isBot != 0,
			IsCommand: isCmd != 0,
		})
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE sent_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
