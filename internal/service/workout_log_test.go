package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/workout-tracker/internal/model"
)

func entry(t *testing.T, bodyPart, name string, sets int, weight float64, reps int) model.WorkoutEntry {
	t.Helper()
	e, err := model.NewWorkoutEntry(bodyPart, name, sets, weight, reps)
	require.NoError(t, err)
	return e
}

func patch(t *testing.T, id uint64, sets int, weight float64, reps int) model.WorkoutLogPatch {
	t.Helper()
	p, err := model.NewWorkoutLogPatch(id, sets, weight, reps)
	require.NoError(t, err)
	return p
}

func TestBulkInsert(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	uid := h.signUp(t, "a@example.com", "alice")

	logs, err := h.workouts.BulkInsert(ctx, uid, []model.WorkoutEntry{
		entry(t, "LEGS", "squat", 3, 100, 5),
		entry(t, "LEGS", "squat", 3, 105, 3),
		entry(t, "CHEST", "bench press", 5, 80, 5),
	})
	require.NoError(t, err)
	require.Len(t, logs, 3)
	for _, l := range logs {
		assert.NotZero(t, l.ID)
		assert.Equal(t, "alice", l.UserNickName)
	}
	assert.Equal(t, logs[0].ExerciseID, logs[1].ExerciseID)
	assert.Len(t, h.db.t.exercises, 2)
}

func TestBulkInsertIsAtomic(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	uid := h.signUp(t, "a@example.com", "alice")
	*h.logs.failInsertAt = 2

	_, err := h.workouts.BulkInsert(ctx, uid, []model.WorkoutEntry{
		entry(t, "LEGS", "squat", 3, 100, 5),
		entry(t, "BACK", "deadlift", 1, 180, 1),
	})
	require.Error(t, err)
	assert.Empty(t, h.db.t.logs, "first log must be rolled back")
	assert.Empty(t, h.db.t.exercises, "resolved exercises must be rolled back")
}

func TestBulkInsertUnknownUser(t *testing.T) {
	h := newHarness(t)
	_, err := h.workouts.BulkInsert(context.Background(), 99, []model.WorkoutEntry{entry(t, "LEGS", "squat", 3, 100, 5)})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBulkUpdateFailsEntirelyOnForeignID(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := h.signUp(t, "a@example.com", "alice")
	bob := h.signUp(t, "b@example.com", "bob")

	mine, err := h.workouts.BulkInsert(ctx, alice, []model.WorkoutEntry{
		entry(t, "LEGS", "squat", 3, 100, 5),
		entry(t, "LEGS", "squat", 3, 100, 5),
	})
	require.NoError(t, err)
	theirs, err := h.workouts.BulkInsert(ctx, bob, []model.WorkoutEntry{entry(t, "LEGS", "squat", 3, 60, 5)})
	require.NoError(t, err)

	_, err = h.workouts.BulkUpdate(ctx, alice, []model.WorkoutLogPatch{
		patch(t, mine[0].ID, 4, 110, 4),
		patch(t, theirs[0].ID, 4, 110, 4),
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 100.0, h.db.t.logs[mine[0].ID].Weight, "no partial update")
	assert.Equal(t, 60.0, h.db.t.logs[theirs[0].ID].Weight)

	updated, err := h.workouts.BulkUpdate(ctx, alice, []model.WorkoutLogPatch{
		patch(t, mine[0].ID, 4, 110, 4),
		patch(t, mine[1].ID, 2, 120, 2),
	})
	require.NoError(t, err)
	require.Len(t, updated, 2)
	assert.Equal(t, 110.0, updated[0].Weight)
	assert.Equal(t, 2, updated[1].RepeatCount)
}

func TestBulkUpdateRejectsDuplicateIDs(t *testing.T) {
	h := newHarness(t)
	_, err := h.workouts.BulkUpdate(context.Background(), 1, []model.WorkoutLogPatch{
		patch(t, 5, 1, 10, 1),
		patch(t, 5, 2, 20, 2),
	})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestSoftDeleteWorkoutLogs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := h.signUp(t, "a@example.com", "alice")
	bob := h.signUp(t, "b@example.com", "bob")

	mine, err := h.workouts.BulkInsert(ctx, alice, []model.WorkoutEntry{entry(t, "LEGS", "squat", 3, 100, 5)})
	require.NoError(t, err)
	theirs, err := h.workouts.BulkInsert(ctx, bob, []model.WorkoutEntry{entry(t, "LEGS", "squat", 3, 60, 5)})
	require.NoError(t, err)

	err = h.workouts.SoftDelete(ctx, alice, []uint64{mine[0].ID, theirs[0].ID})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, h.db.t.logs[mine[0].ID].DeletedAt)

	require.NoError(t, h.workouts.SoftDelete(ctx, alice, []uint64{mine[0].ID}))
	assert.NotNil(t, h.db.t.logs[mine[0].ID].DeletedAt)

	_, err = h.workouts.BulkUpdate(ctx, alice, []model.WorkoutLogPatch{patch(t, mine[0].ID, 1, 1, 1)})
	assert.ErrorIs(t, err, ErrNotFound, "deleted logs cannot be updated")
}

func TestFindByDay(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	uid := h.signUp(t, "a@example.com", "alice")

	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	h.workouts.now = func() time.Time { return day.Add(23 * time.Hour) }
	_, err := h.workouts.BulkInsert(ctx, uid, []model.WorkoutEntry{entry(t, "LEGS", "squat", 3, 100, 5)})
	require.NoError(t, err)
	h.workouts.now = func() time.Time { return day.Add(24 * time.Hour) }
	_, err = h.workouts.BulkInsert(ctx, uid, []model.WorkoutEntry{entry(t, "LEGS", "squat", 3, 105, 5)})
	require.NoError(t, err)

	logs, err := h.workouts.FindByDay(ctx, uid, day.Add(12*time.Hour))
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, 100.0, logs[0].Weight)

	other, err := h.workouts.FindByDay(ctx, uid+1, day)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestAggregateWeights(t *testing.T) {
	at := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 9, 0, 0, 0, time.UTC) }
	logs := []model.WorkoutLog{
		{BodyPart: model.BodyPartLegs, ExerciseName: "squat", Weight: 100, CreatedAt: at(2023, 12, 30)},
		{BodyPart: model.BodyPartLegs, ExerciseName: "squat", Weight: 100, CreatedAt: at(2024, 1, 2)},
		{BodyPart: model.BodyPartLegs, ExerciseName: "squat", Weight: 105, CreatedAt: at(2024, 1, 9)},
		{BodyPart: model.BodyPartChest, ExerciseName: "bench press", Weight: 80, CreatedAt: at(2024, 1, 9)},
		{BodyPart: model.BodyPartLegs, ExerciseName: "squat", Weight: 110, CreatedAt: at(2024, 2, 1)},
	}

	got := AggregateWeights(logs)
	assert.Equal(t, WeightHistory{
		2023: {12: {model.BodyPartLegs: {"squat": {100}}}},
		2024: {
			1: {
				model.BodyPartLegs:  {"squat": {100, 105}},
				model.BodyPartChest: {"bench press": {80}},
			},
			2: {model.BodyPartLegs: {"squat": {110}}},
		},
	}, got)
	assert.Empty(t, AggregateWeights(nil))
}

func TestAggregateByYear(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	uid := h.signUp(t, "a@example.com", "alice")

	h.workouts.now = func() time.Time { return time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC) }
	_, err := h.workouts.BulkInsert(ctx, uid, []model.WorkoutEntry{entry(t, "LEGS", "squat", 3, 90, 5)})
	require.NoError(t, err)
	h.workouts.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	_, err = h.workouts.BulkInsert(ctx, uid, []model.WorkoutEntry{entry(t, "LEGS", "squat", 3, 100, 5)})
	require.NoError(t, err)

	year, err := h.workouts.Aggregate(ctx, uid, 2024)
	require.NoError(t, err)
	assert.Equal(t, WeightHistory{2024: {6: {model.BodyPartLegs: {"squat": {100}}}}}, year)

	all, err := h.workouts.Aggregate(ctx, uid, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
