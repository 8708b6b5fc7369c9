// Package db opens the libSQL/SQLite database that backs the sqlite state
// backend and applies its schema.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	// Registers "libsql" for libsql://, https:// and wss:// URLs; file: URLs
	// are handed to modernc.org/sqlite.
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// driverName is replaced in tests to exercise open failures.
var driverName = "libsql"

// ErrEmptyURL is returned by Connect for an empty database URL.
var ErrEmptyURL = errors.New("db: database URL must not be empty")

// IsLocal reports whether dbURL names a local SQLite file.
func IsLocal(dbURL string) bool {
	return strings.HasPrefix(dbURL, "file:")
}

// Connect opens dbURL and pings it. Local files get a single connection so
// concurrent conversations never hit SQLITE_BUSY.
//
//	file:vla-state.db
//	libsql://vla.turso.io?authToken=...
func Connect(ctx context.Context, dbURL string) (*sql.DB, error) {
	if dbURL == "" {
		return nil, ErrEmptyURL
	}
	conn, err := sql.Open(driverName, dbURL)
	if err != nil {
		return nil, fmt.Errorf("db: open: %w", err)
	}
	if IsLocal(dbURL) {
		conn.SetMaxOpenConns(1)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("db: ping: %w", err)
	}
	return conn, nil
}

// Migrate runs stmts in one transaction. Statements should be idempotent
// (CREATE ... IF NOT EXISTS).
func Migrate(ctx context.Context, conn *sql.DB, stmts ...string) error {
	if conn == nil {
		return errors.New("db: nil connection")
	}
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db: begin migration: %w", err)
	}
	for i, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("db: migration %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("db: commit migration: %w", err)
	}
	return nil
}
