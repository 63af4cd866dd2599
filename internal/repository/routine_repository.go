package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/workout-tracker/internal/model"
)

const routineColumns = "id, owner_user_id, name, created_at, updated_at, deleted_at"

// RoutineRepo provides access to the `routines` table.  The slots of a
// routine live in `routine_exercises` and are handled by
// RoutineExerciseRepo.
type RoutineRepo struct {
	db *sql.DB
}

func NewRoutineRepo(db *sql.DB) *RoutineRepo { return &RoutineRepo{db: db} }

// FindByOwnerAndNameTx looks up a live routine by its per-owner unique
// name.  With LockForUpdate the (owner, name) index range is locked even
// when no row matches, which serializes concurrent creators of the same
// name.  Returns ErrNotFound when no live routine has that name.
func (r *RoutineRepo) FindByOwnerAndNameTx(ctx context.Context, tx *sql.Tx, ownerID uint64, name string, lock Lock) (*model.Routine, error) {
	q := "SELECT " + routineColumns + " FROM routines WHERE owner_user_id = ? AND name = ? AND deleted_at IS NULL LIMIT 1" + lock.clause()
	return scanRoutine(tx.QueryRowContext(ctx, q, ownerID, name))
}

// CreateTx inserts a routine and returns its id.
func (r *RoutineRepo) CreateTx(ctx context.Context, tx *sql.Tx, ownerID uint64, name string) (uint64, error) {
	res, err := tx.ExecContext(ctx, "INSERT INTO routines (owner_user_id, name) VALUES (?, ?)", ownerID, name)
	if err != nil {
		return 0, mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByIDAndOwnerTx fetches a live routine only if it belongs to ownerID.
func (r *RoutineRepo) GetByIDAndOwnerTx(ctx context.Context, tx *sql.Tx, id, ownerID uint64, lock Lock) (*model.Routine, error) {
	q := "SELECT " + routineColumns + " FROM routines WHERE id = ? AND owner_user_id = ? AND deleted_at IS NULL" + lock.clause()
	return scanRoutine(tx.QueryRowContext(ctx, q, id, ownerID))
}

// GetByIDAndOwner is the non-transactional variant of GetByIDAndOwnerTx.
func (r *RoutineRepo) GetByIDAndOwner(ctx context.Context, id, ownerID uint64) (*model.Routine, error) {
	q := "SELECT " + routineColumns + " FROM routines WHERE id = ? AND owner_user_id = ? AND deleted_at IS NULL"
	return scanRoutine(r.db.QueryRowContext(ctx, q, id, ownerID))
}

// FindByIDsAndOwnerTx returns the live routines among ids that belong to
// ownerID.  Callers compare the result length with len(ids) to detect
// foreign or missing ids.
func (r *RoutineRepo) FindByIDsAndOwnerTx(ctx context.Context, tx *sql.Tx, ids []uint64, ownerID uint64, lock Lock) ([]model.Routine, error) {
	if len(ids) == 0 {
		return []model.Routine{}, nil
	}
	q := "SELECT " + routineColumns + " FROM routines WHERE owner_user_id = ? AND deleted_at IS NULL AND id IN (" +
		placeholders(len(ids)) + ") ORDER BY id" + lock.clause()
	args := append([]any{ownerID}, idArgs(ids)...)
	return r.list(ctx, tx, q, args...)
}

// ListByOwner returns the live routines of an owner ordered by id.
func (r *RoutineRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Routine, error) {
	q := "SELECT " + routineColumns + " FROM routines WHERE owner_user_id = ? AND deleted_at IS NULL ORDER BY id"
	return r.list(ctx, r.db, q, ownerID)
}

// TouchTx bumps updated_at after the slots of a routine were replaced.
func (r *RoutineRepo) TouchTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx, "UPDATE routines SET updated_at = UTC_TIMESTAMP() WHERE id = ?", id)
	return mapErr(err)
}

// SoftDeleteTx stamps deleted_at on the given routines.
func (r *RoutineRepo) SoftDeleteTx(ctx context.Context, tx *sql.Tx, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	q := "UPDATE routines SET deleted_at = UTC_TIMESTAMP() WHERE deleted_at IS NULL AND id IN (" + placeholders(len(ids)) + ")"
	_, err := tx.ExecContext(ctx, q, idArgs(ids)...)
	return mapErr(err)
}

func (r *RoutineRepo) list(ctx context.Context, q queryer, query string, args ...any) ([]model.Routine, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	out := []model.Routine{}
	for rows.Next() {
		var (
			rt        model.Routine
			deletedAt sql.NullTime
		)
		if err := rows.Scan(&rt.ID, &rt.OwnerUserID, &rt.Name, &rt.CreatedAt, &rt.UpdatedAt, &deletedAt); err != nil {
			return nil, err
		}
		rt.DeletedAt = timePtr(deletedAt)
		out = append(out, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func scanRoutine(row *sql.Row) (*model.Routine, error) {
	var (
		rt        model.Routine
		deletedAt sql.NullTime
	)
	if err := row.Scan(&rt.ID, &rt.OwnerUserID, &rt.Name, &rt.CreatedAt, &rt.UpdatedAt, &deletedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, mapErr(err)
	}
	rt.DeletedAt = timePtr(deletedAt)
	return &rt, nil
}
