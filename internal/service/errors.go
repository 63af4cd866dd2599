package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/iliyamo/workout-tracker/internal/database"
	"github.com/iliyamo/workout-tracker/internal/repository"
)

// Service-level sentinels.  Handlers map them to HTTP statuses with
// errors.Is; model.ErrValidation covers malformed input.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
)

// ErrInvalidCredentials is returned by SignIn for an unknown email or a
// wrong password.  Both cases share one error.
var ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)

func notFound(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
}

func conflict(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConflict}, args...)...)
}

// withinTx runs fn in a transaction of t.  An InnoDB deadlock or lock wait
// timeout rolls the whole call back and is reported as ErrConflict.
func withinTx(ctx context.Context, t database.Transactor, fn func(tx *sql.Tx) error) error {
	err := t.WithinTx(ctx, fn)
	if errors.Is(err, repository.ErrLockConflict) {
		return conflict("concurrent write on the same rows, retry the request")
	}
	return err
}

func joinIDs(ids []uint64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(id, 10)
	}
	return strings.Join(parts, ",")
}

// dedupeIDs drops zero and repeated ids, keeping first-seen order.
func dedupeIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// missingIDs returns the ids of want that are not in got.
func missingIDs(want []uint64, got map[uint64]struct{}) []uint64 {
	var out []uint64
	for _, id := range want {
		if _, ok := got[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
