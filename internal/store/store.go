package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Store struct {
	db *sql.DB
}

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) DB() *sql.DB {
	return s.db
}

// migrationFile pairs a migration's numeric version (its filename prefix,
// e.g. "0003" in "0003_embeddings.sql") with its embedded filename.
type migrationFile struct {
	version int
	name    string
}

// migrate brings the database forward to the code's schema version using
// the single-row schema_version table of §4.1/§6.2. version(db) > version
// (code) is a hard error rather than something migrate() can fix — running
// an older binary against a newer database is refused outright.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		id      INTEGER PRIMARY KEY CHECK (id = 0),
		version INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	files := make([]migrationFile, 0, len(names))
	codeVersion := 0
	for _, name := range names {
		v, err := migrationVersion(name)
		if err != nil {
			return fmt.Errorf("migration filename %s: %w", name, err)
		}
		files = append(files, migrationFile{version: v, name: name})
		if v > codeVersion {
			codeVersion = v
		}
	}

	dbVersion, err := s.schemaVersion(context.Background())
	if err != nil {
		return err
	}
	if dbVersion > codeVersion {
		return fmt.Errorf("database schema version %d is newer than this binary supports (%d) — refusing to run against a newer schema", dbVersion, codeVersion)
	}

	for _, mf := range files {
		if mf.version <= dbVersion {
			continue
		}
		content, err := migrationsFS.ReadFile("migrations/" + mf.name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", mf.name, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx for %s: %w", mf.name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", mf.name, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_version (id, version) VALUES (0, ?)
			ON CONFLICT(id) DO UPDATE SET version = excluded.version`, mf.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record schema version %d: %w", mf.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", mf.name, err)
		}
		dbVersion = mf.version
	}
	return nil
}

// SchemaVersion reports the database's current schema version, for the
// doctor health check.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	return s.schemaVersion(ctx)
}

func (s *Store) schemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, `SELECT version FROM schema_version WHERE id = 0`).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

// migrationVersion parses the numeric prefix of a "NNNN_name.sql" filename.
func migrationVersion(filename string) (int, error) {
	prefix, _, ok := strings.Cut(filename, "_")
	if !ok {
		return 0, fmt.Errorf("expected NNNN_name.sql, got %q", filename)
	}
	v, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, fmt.Errorf("expected numeric version prefix in %q: %w", filename, err)
	}
	return v, nil
}
