package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Transactor runs a function inside a database transaction.  Services
// depend on this interface instead of *sql.DB so that every compound
// operation commits or rolls back as a unit.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// SQLTransactor is the *sql.DB backed Transactor.
type SQLTransactor struct{ db *sql.DB }

func NewTransactor(db *sql.DB) *SQLTransactor { return &SQLTransactor{db: db} }

// WithinTx begins a transaction, calls fn and commits when fn returns nil.
// Any error (or panic) from fn rolls the transaction back.
func (t *SQLTransactor) WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		_ = tx.Rollback()
		if p := recover(); p != nil {
			panic(p)
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}
