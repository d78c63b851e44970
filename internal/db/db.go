// Package db opens the photo catalog's SQLite file and brings its schema
// up to date from the embedded migrations.
package db

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	_ "modernc.org/sqlite"

	"github.com/SRHS-SPAM/srh-photo/internal/logging"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// schemaTable records which migration files have been applied.
const schemaTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	name       TEXT PRIMARY KEY,
	applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
)`

// DB wraps the catalog connection. SQLite serialises writers, so the pool
// is pinned to a single connection.
type DB struct {
	conn   *sql.DB
	logger *slog.Logger
}

// New opens or creates the catalog at path and applies pending migrations.
func New(path string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create catalog dir: %w", err)
	}

	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	conn.SetMaxOpenConns(1)

	d := &DB{conn: conn, logger: logger}
	if err := d.upgrade(); err != nil {
		conn.Close()
		return nil, err
	}
	return d, nil
}

// Conn exposes the pool to repositories.
func (d *DB) Conn() *sql.DB { return d.conn }

func (d *DB) Close() error { return d.conn.Close() }

// Applied lists the migration files recorded in the catalog, oldest first.
func (d *DB) Applied() ([]string, error) {
	rows, err := d.conn.Query("SELECT name FROM schema_migrations ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (d *DB) upgrade() error {
	if _, err := d.conn.Exec(schemaTable); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	applied, err := d.Applied()
	if err != nil {
		return err
	}
	done := make(map[string]bool, len(applied))
	for _, name := range applied {
		done[name] = true
	}

	files, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(files)
	for _, file := range files {
		name := filepath.Base(file)
		if done[name] {
			continue
		}
		if err := d.apply(file, name); err != nil {
			return err
		}
		d.logger.Info("catalog migrated", "migration", name)
	}
	return nil
}

// apply runs one migration and its bookkeeping row atomically.
func (d *DB) apply(file, name string) error {
	body, err := migrationsFS.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", name, err)
	}
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(string(body)); err != nil {
		return fmt.Errorf("migration %s: %w", name, err)
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (name) VALUES (?)", name); err != nil {
		return fmt.Errorf("record migration %s: %w", name, err)
	}
	return tx.Commit()
}
