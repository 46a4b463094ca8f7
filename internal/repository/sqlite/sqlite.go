// Package sqlite implements repository.UserRepository on SQLite.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means you need a C compiler installed and
// cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code.
//
// The pattern is always:
//  1. sql.Open(driverName, dataSourceName) → creates a pool
//  2. db.QueryRowContext / db.ExecContext  → runs queries
//  3. row.Scan(&field1, &field2)           → reads results into Go variables
package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/sakif/profilesync/internal/repository"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn *sql.DB
}

// Options controls how New prepares the database.
type Options struct {
	// AutoMigrate runs both migration phases. When false only the phase 1
	// table is created, and a database missing the profile columns reports
	// schema drift instead of being fixed silently.
	AutoMigrate bool
}

// New opens the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/profilesync.db" → file-based database (persistent)
//   - ":memory:"            → in-memory database (tests)
func New(dbPath string, opts Options) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every connection to ":memory:" is a separate database, so the pool
	// must never open a second one.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(opts.AutoMigrate); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// dsn builds the data source name for dbPath.
//
// PRAGMAs are per connection, and database/sql opens connections on demand.
// modernc runs every _pragma parameter on each new connection, so all of
// them get:
//   - journal_mode(WAL): readers don't block the writer
//   - busy_timeout(5000): a writer waits up to 5s for the lock instead of
//     failing with SQLITE_BUSY
func dsn(dbPath string) string {
	if dbPath == ":memory:" {
		return dbPath
	}
	return "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate runs the database migrations.
//
// CREATE TABLE IF NOT EXISTS is safe to repeat, and the profile columns are
// added one at a time through addColumnIfNotExists so an older database
// created before they existed is brought up to date.
func (db *DB) migrate(profileColumns bool) error {
	// Phase 1: identity columns, mirrored from the provider.
	// identity_id and username are UNIQUE — the store enforces both.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id          TEXT PRIMARY KEY,
			identity_id TEXT NOT NULL UNIQUE,
			email       TEXT NOT NULL,
			username    TEXT NOT NULL UNIQUE,
			first_name  TEXT,
			last_name   TEXT,
			avatar_url  TEXT,
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	if !profileColumns {
		return nil
	}

	// Phase 2: profile columns, edited by the user.
	for _, col := range repository.ProfileColumns {
		if err := db.addColumnIfNotExists("users", col.Name, col.Definition); err != nil {
			return fmt.Errorf("adding %s to users: %w", col.Name, err)
		}
	}

	return nil
}

// addColumnIfNotExists adds a column to a table only if it doesn't already exist.
// Makes ALTER TABLE migrations idempotent — safe to run multiple times.
func (db *DB) addColumnIfNotExists(table, column, definition string) error {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil // column already exists
	}
	_, err = db.conn.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}
