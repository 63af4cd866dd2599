package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// Lock selects the row-locking mode of a lookup.  It is passed explicitly
// to every query that may feed a subsequent write.
type Lock int

const (
	// LockNone runs a plain consistent read.
	LockNone Lock = iota
	// LockForUpdate appends FOR UPDATE; only meaningful inside a transaction.
	LockForUpdate
)

func (l Lock) clause() string {
	if l == LockForUpdate {
		return " FOR UPDATE"
	}
	return ""
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// placeholders returns n comma-separated "?" markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// idArgs converts ids into query arguments.
func idArgs(ids []uint64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

// requireAffected turns a zero-row write into ErrNotFound.
func requireAffected(res sql.Result) error {
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
