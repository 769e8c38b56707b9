// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package store implements the usage event store: the SQLite handle, schema
// migrations and the queries that read and append usage events.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	"github.com/pressly/goose/v3"

	_ "github.com/mattn/go-sqlite3" // cgo SQLite driver, registered as "sqlite3"
	_ "modernc.org/sqlite"          // pure Go SQLite driver, registered as "sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Supported database/sql driver names.
const (
	DriverSQLite     = "sqlite"  // modernc.org/sqlite
	DriverSQLiteCGO  = "sqlite3" // github.com/mattn/go-sqlite3
	busyTimeoutMilli = 5000
)

// DBConfig holds database configuration options.
type DBConfig struct {
	// Driver is the database/sql driver name, DriverSQLite or DriverSQLiteCGO.
	Driver string
	// MaxOpenConns is the maximum number of open connections to the database.
	// SQLite in WAL mode allows many readers and a single writer.
	MaxOpenConns int
	// MaxIdleConns is the maximum number of connections in the idle connection pool.
	MaxIdleConns int
	// ConnMaxLifetime is the maximum amount of time a connection may be reused.
	ConnMaxLifetime time.Duration
	// ConnMaxIdleTime is the maximum amount of time a connection may be idle.
	ConnMaxIdleTime time.Duration
}

// DefaultDBConfig returns sensible defaults for SQLite.
func DefaultDBConfig() DBConfig {
	return DBConfig{
		Driver:          DriverSQLite,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
	}
}

// NewDB opens a SQLite database with the default pure Go driver.
func NewDB(path string) (*sql.DB, error) {
	return NewDBWithConfig(path, DefaultDBConfig())
}

// NewDBWithConfig opens a SQLite database connection with custom configuration.
func NewDBWithConfig(path string, cfg DBConfig) (*sql.DB, error) {
	dsn, err := buildDSN(cfg.Driver, path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Database-wide settings. Per-connection settings (busy timeout) live in the DSN.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", pragma, err)
		}
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

// buildDSN adds the busy timeout to the path in the syntax of each driver so
// that every pooled connection waits for the writer lock instead of failing.
func buildDSN(driver, path string) (string, error) {
	switch driver {
	case DriverSQLite:
		return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", path, busyTimeoutMilli), nil
	case DriverSQLiteCGO:
		return fmt.Sprintf("file:%s?_busy_timeout=%d", path, busyTimeoutMilli), nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Migrate runs all pending goose migrations and then reconciles the optional
// usage columns. Running it repeatedly is a no-op.
func Migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	if _, err := EnsureUsageColumns(context.Background(), db); err != nil {
		return fmt.Errorf("reconciling usage columns: %w", err)
	}

	return nil
}

// usageOptionalColumns are the columns added after the first release of the
// usage table. They are all nullable TEXT.
var usageOptionalColumns = []string{"tone", "original", "rephrased"}

// EnsureUsageColumns adds any optional usage column missing from an existing
// table. It only ever issues ADD COLUMN, so existing rows are untouched.
// It returns the names of the columns it added.
func EnsureUsageColumns(ctx context.Context, db *sql.DB) ([]string, error) {
	existing, err := tableColumns(ctx, db, "usage")
	if err != nil {
		return nil, err
	}

	var added []string
	for _, col := range usageOptionalColumns {
		if existing[col] {
			continue
		}
		// Column names come from the fixed list above, never from input.
		if _, err := db.ExecContext(ctx, "ALTER TABLE usage ADD COLUMN "+col+" TEXT"); err != nil {
			return added, fmt.Errorf("adding column %s: %w", col, err)
		}
		added = append(added, col)
	}

	return added, nil
}

// tableColumns returns the set of column names of a table.
func tableColumns(ctx context.Context, db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, fmt.Errorf("reading %s columns: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning %s column: %w", table, err)
		}
		cols[strings.ToLower(name)] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s does not exist", table)
	}
	return cols, nil
}
