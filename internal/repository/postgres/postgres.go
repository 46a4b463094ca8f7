// Package postgres implements repository.UserRepository on PostgreSQL
// through sqlx and the lib/pq driver.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/sakif/profilesync/internal/repository"
)

// Config holds connection settings.
type Config struct {
	DSN      string
	MaxConns int
	Timeout  time.Duration
	// AutoMigrate creates the table and adds missing profile columns on
	// startup. Leave it off when the schema is managed by hand.
	AutoMigrate bool
}

// DB wraps an sqlx connection pool.
type DB struct {
	conn *sqlx.DB
}

// New opens a pool, verifies it with a ping, and optionally migrates.
func New(ctx context.Context, cfg Config) (*DB, error) {
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	conn, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: opening database: %w", err)
	}
	conn.SetMaxOpenConns(cfg.MaxConns)
	conn.SetMaxIdleConns(cfg.MaxConns)
	conn.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("postgres: pinging database: %w", err)
	}

	db := &DB{conn: conn}

	if cfg.AutoMigrate {
		if err := db.EnsureSchema(ctx); err != nil {
			conn.Close()
			return nil, fmt.Errorf("postgres: running migrations: %w", err)
		}
	}

	return db, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// EnsureSchema creates the users table if missing and adds the profile
// columns. Every statement is idempotent.
func (db *DB) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS users (
  id          TEXT PRIMARY KEY,
  identity_id TEXT NOT NULL UNIQUE,
  email       TEXT NOT NULL,
  username    TEXT NOT NULL UNIQUE,
  first_name  TEXT,
  last_name   TEXT,
  avatar_url  TEXT,
  created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`
	if _, err := db.conn.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	if _, err := db.conn.ExecContext(ctx, repository.ProfileColumnsSQL); err != nil {
		return fmt.Errorf("adding profile columns: %w", err)
	}

	return nil
}
