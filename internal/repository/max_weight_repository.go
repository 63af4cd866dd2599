package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/workout-tracker/internal/model"
)

// MaxWeightRepo manages the derived `max_weight_per_exercise` table.  The
// table is only ever replaced wholesale by a renewal.
type MaxWeightRepo struct {
	db *sql.DB
}

func NewMaxWeightRepo(db *sql.DB) *MaxWeightRepo { return &MaxWeightRepo{db: db} }

// DeleteAllTx empties the table.  DELETE is used instead of TRUNCATE
// because TRUNCATE commits implicitly in MySQL.
func (r *MaxWeightRepo) DeleteAllTx(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM max_weight_per_exercise")
	return mapErr(err)
}

// InsertManyTx bulk-inserts derived rows.
func (r *MaxWeightRepo) InsertManyTx(ctx context.Context, tx *sql.Tx, rows []model.MaxWeight) error {
	if len(rows) == 0 {
		return nil
	}
	query := `INSERT INTO max_weight_per_exercise
		(user_id, body_part, exercise_name, user_nick_name, max_weight, achieve_date) VALUES `
	args := make([]any, 0, len(rows)*6)
	for i, m := range rows {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?)"
		args = append(args, m.UserID, string(m.BodyPart), m.ExerciseName, m.UserNickName, m.MaxWeight, m.AchieveDate.UTC())
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return mapErr(err)
}

// List returns the current snapshot ordered by body part, exercise and
// weight (heaviest first).
func (r *MaxWeightRepo) List(ctx context.Context) ([]model.MaxWeight, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, user_id, body_part, exercise_name, user_nick_name, max_weight, achieve_date
		FROM max_weight_per_exercise
		ORDER BY body_part, exercise_name, max_weight DESC, achieve_date, user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.MaxWeight{}
	for rows.Next() {
		var (
			m        model.MaxWeight
			bodyPart string
		)
		if err := rows.Scan(&m.ID, &m.UserID, &bodyPart, &m.ExerciseName, &m.UserNickName, &m.MaxWeight, &m.AchieveDate); err != nil {
			return nil, err
		}
		m.BodyPart = model.BodyPart(bodyPart)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

// RenameExerciseTx rewrites the exercise name in the snapshot.
func (r *MaxWeightRepo) RenameExerciseTx(ctx context.Context, tx *sql.Tx, bodyPart model.BodyPart, oldName, newName string) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE max_weight_per_exercise SET exercise_name = ? WHERE body_part = ? AND exercise_name = ?",
		newName, string(bodyPart), oldName)
	return mapErr(err)
}

// RenameNickNameTx rewrites the nickname of one user in the snapshot.
func (r *MaxWeightRepo) RenameNickNameTx(ctx context.Context, tx *sql.Tx, userID uint64, nickName string) error {
	_, err := tx.ExecContext(ctx, "UPDATE max_weight_per_exercise SET user_nick_name = ? WHERE user_id = ?", nickName, userID)
	return mapErr(err)
}
