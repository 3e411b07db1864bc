// Package store implements relational persistence for submissions, cases,
// evidence, case events, attachment metadata, and intelligence history.
//
// The driver is selected from DATABASE_URL: postgres:// DSNs use lib/pq,
// anything else is treated as a sqlite path or file: DSN (modernc).
// Queries are written with ? placeholders and rebound to $n for postgres.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/Sourpat/AutoComply-AI-sub000/pkg/fault"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries holds every entity accessor; it runs against either the pool or
// an open transaction.
type queries struct {
	q      dbtx
	driver string
}

// Store is the persistent relational store.
type Store struct {
	queries
	db *sql.DB
}

// Tx exposes the same accessors inside a transaction. Multi-table
// mutations (case update + event emission, history append + event
// emission) must go through WithTx so they commit atomically.
type Tx struct {
	queries
}

// Open connects to the database named by databaseURL and applies schema
// migrations. Migration is idempotent and never seeds data.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	driver := "sqlite"
	dsn := databaseURL
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		driver = "postgres"
	}
	if dsn == "" {
		dsn = "file:autocomply.db"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, "open database", err)
	}
	if driver == "sqlite" {
		// Single writer; avoids SQLITE_BUSY under concurrent handlers.
		db.SetMaxOpenConns(1)
	}

	s := &Store{queries: queries{q: db, driver: driver}, db: db}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// DB exposes the underlying pool for health checks and tests.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// WithTx runs fn inside a transaction, committing on nil and rolling back
// on error or panic.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fault.Wrap(fault.KindInternal, "begin transaction", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&Tx{queries{q: tx, driver: s.driver}}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fault.Wrap(fault.KindInternal, "commit transaction", err)
	}
	return nil
}

// rebind converts ? placeholders to $n for postgres.
func (q *queries) rebind(query string) string {
	if q.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (q *queries) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return q.q.ExecContext(ctx, q.rebind(query), args...)
}

func (q *queries) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return q.q.QueryContext(ctx, q.rebind(query), args...)
}

func (q *queries) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return q.q.QueryRowContext(ctx, q.rebind(query), args...)
}

// mapWriteErr classifies constraint violations as Conflict.
func mapWriteErr(op string, err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unique") || strings.Contains(msg, "constraint") || strings.Contains(msg, "duplicate key") {
		return fault.Wrap(fault.KindConflict, op, err)
	}
	return fault.Wrap(fault.KindInternal, op, err)
}

// Timestamps are stored as RFC 3339 UTC text in both drivers.

func encodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func encodeTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return encodeTime(*t)
}

func decodeTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Time{}
}

func decodeTimePtr(value sql.NullString) *time.Time {
	if !value.Valid || value.String == "" {
		return nil
	}
	t := decodeTime(value.String)
	return &t
}

func encodeJSON(v any) any {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return string(b)
}

func decodeJSONMap(value sql.NullString) map[string]any {
	if !value.Valid || value.String == "" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(value.String), &m); err != nil {
		return nil
	}
	return m
}

func decodeJSONStrings(value sql.NullString) []string {
	if !value.Valid || value.String == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(value.String), &out); err != nil {
		return nil
	}
	return out
}
