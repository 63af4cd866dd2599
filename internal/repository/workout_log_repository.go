package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/workout-tracker/internal/model"
)

const workoutLogColumns = `id, user_id, exercise_id, body_part, exercise_name, user_nick_name,
	set_count, weight, repeat_count, created_at, updated_at, deleted_at`

// WorkoutLogRepo provides access to the `workout_logs` table.  Logs carry
// denormalized copies of the exercise name, body part and user nickname;
// the Rename*Tx methods keep those copies in sync.
type WorkoutLogRepo struct {
	db *sql.DB
}

func NewWorkoutLogRepo(db *sql.DB) *WorkoutLogRepo { return &WorkoutLogRepo{db: db} }

// InsertTx inserts one log and returns its id.  CreatedAt is used when
// set, otherwise the database default applies.
func (r *WorkoutLogRepo) InsertTx(ctx context.Context, tx *sql.Tx, l model.WorkoutLog) (uint64, error) {
	var createdAt any
	if !l.CreatedAt.IsZero() {
		createdAt = l.CreatedAt.UTC()
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO workout_logs
		(user_id, exercise_id, body_part, exercise_name, user_nick_name, set_count, weight, repeat_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, COALESCE(?, UTC_TIMESTAMP()))`,
		l.UserID, l.ExerciseID, string(l.BodyPart), l.ExerciseName, l.UserNickName,
		l.SetCount, l.Weight, l.RepeatCount, createdAt)
	if err != nil {
		return 0, mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// FindByIDsAndUserTx returns the live logs among ids that belong to userID.
func (r *WorkoutLogRepo) FindByIDsAndUserTx(ctx context.Context, tx *sql.Tx, ids []uint64, userID uint64, lock Lock) ([]model.WorkoutLog, error) {
	if len(ids) == 0 {
		return []model.WorkoutLog{}, nil
	}
	q := "SELECT " + workoutLogColumns + " FROM workout_logs WHERE user_id = ? AND deleted_at IS NULL AND id IN (" +
		placeholders(len(ids)) + ") ORDER BY id" + lock.clause()
	return r.list(ctx, tx, q, append([]any{userID}, idArgs(ids)...)...)
}

// UpdateNumbersTx overwrites set count, weight and repeat count of one log.
func (r *WorkoutLogRepo) UpdateNumbersTx(ctx context.Context, tx *sql.Tx, p model.WorkoutLogPatch) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE workout_logs SET set_count = ?, weight = ?, repeat_count = ? WHERE id = ? AND deleted_at IS NULL",
		p.SetCount, p.Weight, p.RepeatCount, p.ID)
	if err != nil {
		return mapErr(err)
	}
	return requireAffected(res)
}

// SoftDeleteTx stamps deleted_at on the given logs.
func (r *WorkoutLogRepo) SoftDeleteTx(ctx context.Context, tx *sql.Tx, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	q := "UPDATE workout_logs SET deleted_at = UTC_TIMESTAMP() WHERE deleted_at IS NULL AND id IN (" + placeholders(len(ids)) + ")"
	_, err := tx.ExecContext(ctx, q, idArgs(ids)...)
	return mapErr(err)
}

// ListByUserBetween returns the live logs of a user created in [from, to)
// in chronological order.
func (r *WorkoutLogRepo) ListByUserBetween(ctx context.Context, userID uint64, from, to time.Time) ([]model.WorkoutLog, error) {
	q := "SELECT " + workoutLogColumns + ` FROM workout_logs
		WHERE user_id = ? AND deleted_at IS NULL AND created_at >= ? AND created_at < ?
		ORDER BY created_at, id`
	return r.list(ctx, r.db, q, userID, from.UTC(), to.UTC())
}

// ListByUser returns every live log of a user in chronological order.
func (r *WorkoutLogRepo) ListByUser(ctx context.Context, userID uint64) ([]model.WorkoutLog, error) {
	q := "SELECT " + workoutLogColumns + " FROM workout_logs WHERE user_id = ? AND deleted_at IS NULL ORDER BY created_at, id"
	return r.list(ctx, r.db, q, userID)
}

// ListForRenewalTx returns every live log of every live user, ordered so
// that the derivation of best sets is deterministic.
func (r *WorkoutLogRepo) ListForRenewalTx(ctx context.Context, tx *sql.Tx) ([]model.WorkoutLog, error) {
	q := `SELECT wl.id, wl.user_id, wl.exercise_id, wl.body_part, wl.exercise_name, wl.user_nick_name,
		wl.set_count, wl.weight, wl.repeat_count, wl.created_at, wl.updated_at, wl.deleted_at
		FROM workout_logs wl
		JOIN users u ON u.id = wl.user_id AND u.deleted_at IS NULL
		WHERE wl.deleted_at IS NULL
		ORDER BY wl.user_id, wl.body_part, wl.exercise_name, wl.created_at, wl.id`
	return r.list(ctx, tx, q)
}

// RenameExerciseTx rewrites the denormalized exercise name of every log
// that references exerciseID, deleted ones included.
func (r *WorkoutLogRepo) RenameExerciseTx(ctx context.Context, tx *sql.Tx, exerciseID uint64, newName string) error {
	_, err := tx.ExecContext(ctx, "UPDATE workout_logs SET exercise_name = ? WHERE exercise_id = ?", newName, exerciseID)
	return mapErr(err)
}

// RenameNickNameTx rewrites the denormalized nickname on a user's logs.
func (r *WorkoutLogRepo) RenameNickNameTx(ctx context.Context, tx *sql.Tx, userID uint64, nickName string) error {
	_, err := tx.ExecContext(ctx, "UPDATE workout_logs SET user_nick_name = ? WHERE user_id = ?", nickName, userID)
	return mapErr(err)
}

func (r *WorkoutLogRepo) list(ctx context.Context, q queryer, query string, args ...any) ([]model.WorkoutLog, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	out := []model.WorkoutLog{}
	for rows.Next() {
		var (
			l         model.WorkoutLog
			bodyPart  string
			deletedAt sql.NullTime
		)
		if err := rows.Scan(&l.ID, &l.UserID, &l.ExerciseID, &bodyPart, &l.ExerciseName, &l.UserNickName,
			&l.SetCount, &l.Weight, &l.RepeatCount, &l.CreatedAt, &l.UpdatedAt, &deletedAt); err != nil {
			return nil, err
		}
		l.BodyPart = model.BodyPart(bodyPart)
		l.DeletedAt = timePtr(deletedAt)
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}
