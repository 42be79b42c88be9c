// Package sqlstore implements storage.Provider queries over database/sql. The SQLite and
// PostgreSQL backends differ only in their Dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Dialect captures the differences between SQL backends
type Dialect struct {
	Name string
	// NumberedParams rewrites ? placeholders as $1, $2, ...
	NumberedParams bool
	// TimeAsText stores timestamps as fixed-width UTC text instead of native timestamps
	TimeAsText bool
	// IsUniqueViolation reports whether err came from a unique constraint
	IsUniqueViolation func(error) bool
}

// Store runs queries against db using dialect d
type Store struct {
	db *sql.DB
	d  Dialect
}

// New wraps an open database handle
func New(db *sql.DB, d Dialect) *Store {
	return &Store{db: db, d: d}
}

// DB returns the underlying database connection
func (s *Store) DB() *sql.DB {
	return s.db
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// rebind converts ? placeholders into the dialect's parameter style
func (s *Store) rebind(query string) string {
	if !s.d.NumberedParams {
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

func (s *Store) exec(ctx context.Context, x execer, query string, args ...interface{}) (int64, error) {
	res, err := x.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		if s.d.IsUniqueViolation != nil && s.d.IsUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %v", errConflict, err)
		}
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) queryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return s.db.QueryRowContext(ctx, s.rebind(query), args...)
}

func (s *Store) query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.rebind(query), args...)
}

// withTx runs fn in a transaction, rolling back on error
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// textTimeFormat is fixed width so lexical order matches chronological order
const textTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func (s *Store) timeArg(t time.Time) interface{} {
	if s.d.TimeAsText {
		return t.UTC().Format(textTimeFormat)
	}
	return t.UTC()
}

func (s *Store) nullTimeArg(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return s.timeArg(*t)
}

// timestamp scans native timestamps and the text encodings SQLite hands back
type timestamp struct {
	Time  time.Time
	Valid bool
}

var textTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05",
}

func (ts *timestamp) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*ts = timestamp{}
		return nil
	case time.Time:
		*ts = timestamp{Time: v.UTC(), Valid: true}
		return nil
	case string:
		return ts.parse(v)
	case []byte:
		return ts.parse(string(v))
	default:
		return fmt.Errorf("cannot scan %T into timestamp", src)
	}
}

func (ts *timestamp) parse(s string) error {
	for _, layout := range textTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*ts = timestamp{Time: t.UTC(), Valid: true}
			return nil
		}
	}
	return fmt.Errorf("failed to parse timestamp %q", s)
}

func (ts timestamp) ptr() *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}
