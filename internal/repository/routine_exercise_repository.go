package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/workout-tracker/internal/model"
)

// RoutineExerciseRepo manages the ordered slots of routines.  Slots are
// never edited in place: a changed routine gets its old slots soft-deleted
// and a fresh set inserted.
type RoutineExerciseRepo struct {
	db *sql.DB
}

func NewRoutineExerciseRepo(db *sql.DB) *RoutineExerciseRepo { return &RoutineExerciseRepo{db: db} }

// SlotRecord is the insert form of a routine_exercises row.
type SlotRecord struct {
	ExerciseID uint64
	Order      int
}

const slotSelect = `SELECT re.id, re.routine_id, re.exercise_id, re.sort_order, e.body_part, e.exercise_name
	FROM routine_exercises re
	JOIN exercises e ON e.id = re.exercise_id
	WHERE re.deleted_at IS NULL AND re.routine_id IN (`

// ListByRoutinesTx returns the live slots of the given routines ordered by
// routine then position.
func (r *RoutineExerciseRepo) ListByRoutinesTx(ctx context.Context, tx *sql.Tx, routineIDs []uint64) ([]model.RoutineExercise, error) {
	return r.list(ctx, tx, routineIDs)
}

// ListByRoutines is the non-transactional variant of ListByRoutinesTx.
func (r *RoutineExerciseRepo) ListByRoutines(ctx context.Context, routineIDs []uint64) ([]model.RoutineExercise, error) {
	return r.list(ctx, r.db, routineIDs)
}

// InsertManyTx inserts one slot per record for routineID.
func (r *RoutineExerciseRepo) InsertManyTx(ctx context.Context, tx *sql.Tx, routineID uint64, slots []SlotRecord) error {
	if len(slots) == 0 {
		return nil
	}
	query := "INSERT INTO routine_exercises (routine_id, exercise_id, sort_order) VALUES "
	args := make([]any, 0, len(slots)*3)
	for i, s := range slots {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, routineID, s.ExerciseID, s.Order)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return mapErr(err)
}

// SoftDeleteByRoutinesTx soft-deletes every live slot of the routines.
func (r *RoutineExerciseRepo) SoftDeleteByRoutinesTx(ctx context.Context, tx *sql.Tx, routineIDs []uint64) error {
	if len(routineIDs) == 0 {
		return nil
	}
	q := "UPDATE routine_exercises SET deleted_at = UTC_TIMESTAMP() WHERE deleted_at IS NULL AND routine_id IN (" +
		placeholders(len(routineIDs)) + ")"
	_, err := tx.ExecContext(ctx, q, idArgs(routineIDs)...)
	return mapErr(err)
}

func (r *RoutineExerciseRepo) list(ctx context.Context, q queryer, routineIDs []uint64) ([]model.RoutineExercise, error) {
	if len(routineIDs) == 0 {
		return []model.RoutineExercise{}, nil
	}
	query := slotSelect + placeholders(len(routineIDs)) + ") ORDER BY re.routine_id, re.sort_order"
	rows, err := q.QueryContext(ctx, query, idArgs(routineIDs)...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	out := []model.RoutineExercise{}
	for rows.Next() {
		var (
			re       model.RoutineExercise
			bodyPart string
		)
		if err := rows.Scan(&re.ID, &re.RoutineID, &re.ExerciseID, &re.Order, &bodyPart, &re.ExerciseName); err != nil {
			return nil, err
		}
		re.BodyPart = model.BodyPart(bodyPart)
		out = append(out, re)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}
