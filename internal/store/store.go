package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// MemoryPath opens a private in-memory database. The store pins a single
// connection so the database lives until Close.
const MemoryPath = ":memory:"

// migration upgrades the presale tables by one user_version step.
type migration struct {
	version int
	name    string
	stmt    string
}

// migrations run in order on databases whose user_version is below their
// version. schema.sql already carries the final shape for new files, so
// every statement must be a no-op on a fresh database.
var migrations = []migration{
	{1, "effects by journal entry", `CREATE INDEX IF NOT EXISTS idx_effects_journal ON effects(journal_id, idx)`},
	{2, "journal by operation", `CREATE INDEX IF NOT EXISTS idx_journal_op ON journal(op, seq)`},
}

// currentSchemaVersion is the user_version of a fully migrated store.
var currentSchemaVersion = migrations[len(migrations)-1].version

// Store holds the presale host state: program slots, the genesis snapshot
// replay starts from, and the invocation journal with its transfer effects.
//
// All writes go through one connection, so a Commit never interleaves with
// another invocation's slot updates.
type Store struct {
	db *sql.DB
}

// Open creates or opens the store at path, applying pragmas, the schema and
// pending migrations. Opening an existing store is a no-op beyond the
// migrations.
//
// File stores run in WAL mode with NORMAL sync. MemoryPath stores keep
// SQLite's memory journal.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}

	// One connection: a single writer, and in-memory databases live as long
	// as their connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(db, path == MemoryPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("open store %s: apply schema: %w", path, err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}

	return &Store{db: db}, nil
}

// Close releases the connection. Closing a zero Store is a no-op.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the connection for inspection tooling and tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

func applyPragmas(db *sql.DB, memory bool) error {
	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	if !memory {
		pragmas = append(pragmas,
			"PRAGMA journal_mode = WAL",
			"PRAGMA synchronous = NORMAL",
		)
	}

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// migrate applies each pending migration together with its user_version
// bump in one transaction.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		if _, err := tx.Exec(m.stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		// PRAGMA does not take bind parameters.
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): set user_version: %w", m.version, m.name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		version = m.version
	}
	return nil
}

// pragma reads the current value of a pragma as text.
func (s *Store) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return value, nil
}
