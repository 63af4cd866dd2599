// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios without inspecting driver errors.
package repository

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a row addressed by id or natural key does
// not exist or is soft-deleted.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert or update violates a unique key.
var ErrDuplicate = errors.New("duplicate key")

// ErrLockConflict is returned when InnoDB aborts a statement because of a
// deadlock or a lock wait timeout.  The transaction is rolled back and the
// request may be retried.
var ErrLockConflict = errors.New("lock conflict")

const (
	mysqlLockWaitTimeout = 1205 // ER_LOCK_WAIT_TIMEOUT
	mysqlDuplicateEntry  = 1062 // ER_DUP_ENTRY
	mysqlDeadlock        = 1213 // ER_LOCK_DEADLOCK
)

// isDuplicateKey reports whether err is a MySQL unique-key violation.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// mapErr converts driver errors into package sentinels.
func mapErr(err error) error {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return err
	}
	switch me.Number {
	case mysqlDuplicateEntry:
		return ErrDuplicate
	case mysqlDeadlock, mysqlLockWaitTimeout:
		return fmt.Errorf("%w: %s", ErrLockConflict, me.Message)
	}
	return err
}
