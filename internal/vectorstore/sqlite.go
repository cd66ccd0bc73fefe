package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rcliao/frontdesk/internal/model"
)

// SQLiteLoader keeps stores as ordered rows in a SQLite database.
type SQLiteLoader struct {
	db *sql.DB
}

// NewSQLiteLoader opens or creates a SQLite database at the given path.
func NewSQLiteLoader(dbPath string) (*SQLiteLoader, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	l := &SQLiteLoader{db: db}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return l, nil
}

func (l *SQLiteLoader) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS vector_stores (
		name        TEXT PRIMARY KEY,
		dims        INTEGER NOT NULL,
		count       INTEGER NOT NULL,
		imported_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS embedding_records (
		store   TEXT NOT NULL,
		seq     INTEGER NOT NULL,
		text    TEXT NOT NULL,
		vector  TEXT NOT NULL,
		PRIMARY KEY (store, seq)
	);
	`
	_, err := l.db.Exec(schema)
	return err
}

func (l *SQLiteLoader) Load(ctx context.Context, name string) ([]model.EmbeddingRecord, error) {
	var count int
	err := l.db.QueryRowContext(ctx, `SELECT count FROM vector_stores WHERE name = ?`, name).Scan(&count)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrStoreNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup store: %w", err)
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT text, vector FROM embedding_records WHERE store = ? ORDER BY seq`, name)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := make([]model.EmbeddingRecord, 0, count)
	for rows.Next() {
		var r model.EmbeddingRecord
		var vec string
		if err := rows.Scan(&r.Text, &vec); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if err := json.Unmarshal([]byte(vec), &r.Vector); err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrStoreCorrupt, len(records), err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(records) != count {
		return nil, fmt.Errorf("%w: %d rows, header says %d", ErrStoreCorrupt, len(records), count)
	}
	if err := validate(records); err != nil {
		return nil, err
	}
	return records, nil
}

func (l *SQLiteLoader) Import(ctx context.Context, name string, records []model.EmbeddingRecord) error {
	if err := validate(records); err != nil {
		return err
	}
	dims := 0
	if len(records) > 0 {
		dims = len(records[0].Vector)
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM embedding_records WHERE store = ?`, name); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO embedding_records (store, seq, text, vector) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, r := range records {
		vec, err := json.Marshal(r.Vector)
		if err != nil {
			return fmt.Errorf("encode vector %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, name, i, r.Text, string(vec)); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO vector_stores (name, dims, count, imported_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET dims = excluded.dims, count = excluded.count, imported_at = excluded.imported_at`,
		name, dims, len(records), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upsert store header: %w", err)
	}
	return tx.Commit()
}

// Names lists imported stores.
func (l *SQLiteLoader) Names(ctx context.Context) ([]string, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT name FROM vector_stores ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (l *SQLiteLoader) Close() error {
	return l.db.Close()
}
