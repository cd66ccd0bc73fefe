package session

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rcliao/frontdesk/internal/model"
)

// SQLiteStore keeps each session as one row holding the JSON turn array
// and a version used for compare-and-swap writes.
type SQLiteStore struct {
	db    *sql.DB
	locks keyLocks
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// one writer at a time; avoids SQLITE_BUSY on read-to-write upgrades
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		key         TEXT PRIMARY KEY,
		turns       TEXT NOT NULL,
		version     INTEGER NOT NULL DEFAULT 1,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Load(ctx context.Context, key string) ([]model.SessionTurn, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT turns FROM sessions WHERE key = ?`, key).Scan(&data)
	if err == sql.ErrNoRows {
		return []model.SessionTurn{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return decodeTurns(key, []byte(data))
}

func (s *SQLiteStore) Append(ctx context.Context, key string, turn model.SessionTurn) error {
	unlock := s.locks.lock(key)
	defer unlock()

	for attempt := 0; attempt < maxRetries; attempt++ {
		ok, err := s.tryAppend(ctx, key, turn)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return fmt.Errorf("append %s: %w", key, ErrConflict)
}

// tryAppend reads the current row and writes it back only if its version
// is unchanged. It reports false when another writer won.
func (s *SQLiteStore) tryAppend(ctx context.Context, key string, turn model.SessionTurn) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var current string
	var version int64
	err = tx.QueryRowContext(ctx, `SELECT turns, version FROM sessions WHERE key = ?`, key).Scan(&current, &version)
	exists := err == nil
	if err != nil && err != sql.ErrNoRows {
		return false, fmt.Errorf("read session: %w", err)
	}

	data, err := appendTo(key, []byte(current), turn)
	if err != nil {
		return false, err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	var res sql.Result
	if exists {
		res, err = tx.ExecContext(ctx,
			`UPDATE sessions SET turns = ?, version = version + 1, updated_at = ? WHERE key = ? AND version = ?`,
			string(data), now, key, version)
	} else {
		res, err = tx.ExecContext(ctx,
			`INSERT INTO sessions (key, turns, version, created_at, updated_at) VALUES (?, ?, 1, ?, ?)
			 ON CONFLICT(key) DO NOTHING`,
			key, string(data), now, now)
	}
	if err != nil {
		return false, fmt.Errorf("write session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	return true, tx.Commit()
}

func (s *SQLiteStore) Reset(ctx context.Context, key string) error {
	unlock := s.locks.lock(key)
	defer unlock()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (key, turns, version, created_at, updated_at) VALUES (?, '[]', 1, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET turns = '[]', version = version + 1, updated_at = excluded.updated_at`,
		key, now, now)
	if err != nil {
		return fmt.Errorf("reset session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM sessions ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
