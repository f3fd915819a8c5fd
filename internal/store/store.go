// Package store provides the relational store layer for tallysync.
//
// Two backends are supported through one database/sql code path: embedded
// SQLite (the default, WAL mode for concurrent reads) and Postgres via the
// pgx stdlib adapter, which is what a hosted Supabase target speaks. Queries
// are written with ? placeholders and rebound per dialect.
//
// Every write is an upsert on a natural key (the export GUID for masters and
// vouchers, (voucher_id, seq) for entries), so a whole run can be repeated
// safely: unchanged rows are detected and reported as no-ops.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// ErrConnectivity marks store errors that are fatal to a run but safe to
// retry as a whole: the store is unreachable or the connection died.
var ErrConnectivity = errors.New("store connectivity failure")

// Dialect selects the SQL flavor for a store backend.
type Dialect int

const (
	// DialectSQLite is the embedded default.
	DialectSQLite Dialect = iota
	// DialectPostgres is the hosted target (Supabase and friends).
	DialectPostgres
)

// rebind rewrites ? placeholders to the dialect's native form.
func (d Dialect) rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// changed builds a null-safe "row actually changed" predicate over the given
// columns for an ON CONFLICT DO UPDATE ... WHERE clause.
func (d Dialect) changed(cols ...string) string {
	op := "IS NOT"
	if d == DialectPostgres {
		op = "IS DISTINCT FROM"
	}
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprintf("%s %s excluded.%s", c, op, c)
	}
	return strings.Join(parts, " OR ")
}

// DB wraps the relational store connection.
type DB struct {
	conn    *sql.DB
	dialect Dialect
	tables  Tables
	logger  *log.Logger
}

// Open connects to the store. driver is "sqlite" (dsn is a file path) or
// "postgres" (dsn is a pgx connection string). The caller must Close.
func Open(driver, dsn string, tables Tables, logger *log.Logger) (*DB, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[store] ", log.LstdFlags)
	}

	var (
		conn    *sql.DB
		dialect Dialect
		err     error
	)
	switch driver {
	case "sqlite", "sqlite3", "":
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		conn, err = sql.Open("sqlite3", "file:"+dsn)
		dialect = DialectSQLite
	case "postgres", "pgx":
		conn, err = sql.Open("pgx", dsn)
		dialect = DialectPostgres
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: ping: %v", ErrConnectivity, err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{conn: conn, dialect: dialect, tables: tables, logger: logger}

	if dialect == DialectSQLite {
		for _, pragma := range []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA busy_timeout=5000",
			"PRAGMA foreign_keys=ON",
		} {
			if _, err := conn.Exec(pragma); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("failed to apply %s: %w", pragma, err)
			}
		}
	}

	return db, nil
}

// RawDB returns the underlying sql.DB connection.
func (db *DB) RawDB() *sql.DB {
	return db.conn
}

// Dialect returns the store's SQL dialect.
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// Tables returns the configured table names.
func (db *DB) Tables() Tables {
	return db.tables
}

// Close closes the store connection. On SQLite it checkpoints the WAL first.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	if db.dialect == DialectSQLite {
		if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			db.logger.Printf("Warning: failed to checkpoint WAL: %v", err)
		}
	}
	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	db.conn = nil
	return nil
}

// Classify wraps err as ErrConnectivity when it indicates the store went
// away (dead connection, network failure, canceled context), leaving
// per-record data errors untouched.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConnectivity) {
		return err
	}
	var netErr net.Error
	if errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrConnectivity, err)
	}
	return err
}
