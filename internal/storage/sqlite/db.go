// Package sqlite is the SQLite session backend: one stockwise.db file with a
// kv table, schema managed by the embedded migrations.
package sqlite

import (
	"cmp"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/stockwise/internal/storage/migrations"
	_ "github.com/mattn/go-sqlite3"
)

// DB is a SQLite handle that knows how to migrate itself
type DB struct {
	*sql.DB
}

// migration is one embedded *.sql file
type migration struct {
	version int
	file    string
}

// connParams are the go-sqlite3 DSN options every connection gets
var connParams = url.Values{
	"_journal_mode": {"WAL"},
	"_foreign_keys": {"ON"},
	"_busy_timeout": {"5000"},
}

// Open opens (creating if needed) the database file at dbPath.
func Open(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?"+connParams.Encode())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Fail here rather than on first query
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", dbPath, err)
	}

	// One writer at a time
	db.SetMaxOpenConns(1)

	return &DB{DB: db}, nil
}

// Migrate brings the schema up to the newest embedded migration. Each
// migration runs in its own transaction together with its version row.
func (db *DB) Migrate() error {
	// Bootstrap the version table
	const bootstrap = `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`
	if _, err := db.Exec(bootstrap); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	current, err := db.Version()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	todo, err := migrationsAfter(current)
	if err != nil {
		return err
	}
	for _, m := range todo {
		if err := db.run(m); err != nil {
			return err
		}
		slog.Info("sqlite migration applied", "file", m.file, "version", m.version)
	}
	return nil
}

// Version is the highest applied migration, 0 on a fresh file.
func (db *DB) Version() (int, error) {
	var v sql.NullInt64
	if err := db.QueryRow(`SELECT MAX(version) FROM schema_migrations`).Scan(&v); err != nil {
		return 0, err
	}
	return int(v.Int64), nil
}

func (db *DB) run(m migration) error {
	script, err := fs.ReadFile(migrations.FS, m.file)
	if err != nil {
		return fmt.Errorf("read %s: %w", m.file, err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin %s: %w", m.file, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(string(script)); err != nil {
		return fmt.Errorf("run %s: %w", m.file, err)
	}
	if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, m.version); err != nil {
		return fmt.Errorf("record %s: %w", m.file, err)
	}
	return tx.Commit()
}

// migrationsAfter lists embedded migrations newer than version, oldest first
func migrationsAfter(version int) ([]migration, error) {
	files, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}

	var out []migration
	for _, f := range files {
		v, err := parseVersion(f)
		if err != nil {
			slog.Warn("ignoring migration file", "file", f, "error", err)
			continue
		}
		if v > version {
			out = append(out, migration{version: v, file: f})
		}
	}
	slices.SortFunc(out, func(a, b migration) int { return cmp.Compare(a.version, b.version) })
	return out, nil
}

// parseVersion takes the number in front of the first underscore:
// "001_kv.sql" is version 1.
func parseVersion(file string) (int, error) {
	prefix, _, ok := strings.Cut(path.Base(file), "_")
	if !ok {
		return 0, fmt.Errorf("migration %s has no version prefix", file)
	}
	v, err := strconv.Atoi(prefix)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("migration %s: bad version %q", file, prefix)
	}
	return v, nil
}
