package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/workout-tracker/internal/model"
)

const exerciseColumns = "id, body_part, exercise_name, created_at, updated_at, deleted_at"

// ExerciseRepo encapsulates all queries against the shared `exercises`
// catalog.  Writes always run inside a caller-owned transaction.
type ExerciseRepo struct {
	db *sql.DB
}

func NewExerciseRepo(db *sql.DB) *ExerciseRepo { return &ExerciseRepo{db: db} }

// FindByKeysTx returns the exercises matching any of keys in one batched
// query.  With includeDeleted the soft-deleted rows are returned too, so
// that a caller holding LockForUpdate can revive them instead of
// inserting a duplicate natural key.
func (r *ExerciseRepo) FindByKeysTx(ctx context.Context, tx *sql.Tx, keys []model.ExerciseKey, includeDeleted bool, lock Lock) ([]model.Exercise, error) {
	if len(keys) == 0 {
		return []model.Exercise{}, nil
	}
	var b strings.Builder
	b.WriteString("SELECT " + exerciseColumns + " FROM exercises WHERE (body_part, exercise_name) IN (")
	args := make([]any, 0, len(keys)*2)
	for i, k := range keys {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?, ?)")
		args = append(args, string(k.BodyPart), k.ExerciseName)
	}
	b.WriteString(")")
	if !includeDeleted {
		b.WriteString(" AND deleted_at IS NULL")
	}
	b.WriteString(" ORDER BY id")
	b.WriteString(lock.clause())
	return r.query(ctx, tx, b.String(), args...)
}

// InsertManyTx bulk-inserts the given keys.  A unique-key violation is
// reported as ErrDuplicate.
func (r *ExerciseRepo) InsertManyTx(ctx context.Context, tx *sql.Tx, keys []model.ExerciseKey) error {
	if len(keys) == 0 {
		return nil
	}
	query := "INSERT INTO exercises (body_part, exercise_name) VALUES "
	args := make([]any, 0, len(keys)*2)
	for i, k := range keys {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, string(k.BodyPart), k.ExerciseName)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return mapErr(err)
}

// RestoreTx clears deleted_at on the given ids.
func (r *ExerciseRepo) RestoreTx(ctx context.Context, tx *sql.Tx, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	q := "UPDATE exercises SET deleted_at = NULL WHERE id IN (" + placeholders(len(ids)) + ")"
	_, err := tx.ExecContext(ctx, q, idArgs(ids)...)
	return mapErr(err)
}

// SoftDeleteTx stamps deleted_at on the given ids.
func (r *ExerciseRepo) SoftDeleteTx(ctx context.Context, tx *sql.Tx, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	q := "UPDATE exercises SET deleted_at = UTC_TIMESTAMP() WHERE deleted_at IS NULL AND id IN (" + placeholders(len(ids)) + ")"
	_, err := tx.ExecContext(ctx, q, idArgs(ids)...)
	return mapErr(err)
}

// RenameTx changes the exercise name of a live exercise.
func (r *ExerciseRepo) RenameTx(ctx context.Context, tx *sql.Tx, id uint64, newName string) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE exercises SET exercise_name = ? WHERE id = ? AND deleted_at IS NULL",
		newName, id)
	if err != nil {
		return mapErr(err)
	}
	return requireAffected(res)
}

// ListByBodyPart returns live exercises of one body part ordered by name.
func (r *ExerciseRepo) ListByBodyPart(ctx context.Context, bodyPart model.BodyPart) ([]model.Exercise, error) {
	return r.query(ctx, r.db,
		"SELECT "+exerciseColumns+" FROM exercises WHERE body_part = ? AND deleted_at IS NULL ORDER BY exercise_name",
		string(bodyPart))
}

// ListAll returns the whole catalog ordered by body part then name.
// Soft-deleted rows are only included when includeDeleted is set.
func (r *ExerciseRepo) ListAll(ctx context.Context, includeDeleted bool) ([]model.Exercise, error) {
	q := "SELECT " + exerciseColumns + " FROM exercises"
	if !includeDeleted {
		q += " WHERE deleted_at IS NULL"
	}
	q += " ORDER BY body_part, exercise_name"
	return r.query(ctx, r.db, q)
}

func (r *ExerciseRepo) query(ctx context.Context, q queryer, query string, args ...any) ([]model.Exercise, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	out := []model.Exercise{}
	for rows.Next() {
		var (
			e         model.Exercise
			bodyPart  string
			deletedAt sql.NullTime
		)
		if err := rows.Scan(&e.ID, &bodyPart, &e.ExerciseName, &e.CreatedAt, &e.UpdatedAt, &deletedAt); err != nil {
			return nil, err
		}
		e.BodyPart = model.BodyPart(bodyPart)
		e.DeletedAt = timePtr(deletedAt)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}
