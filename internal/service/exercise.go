package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/workout-tracker/internal/database"
	"github.com/iliyamo/workout-tracker/internal/model"
	"github.com/iliyamo/workout-tracker/internal/repository"
)

// ExerciseResolver turns requested natural keys into catalog rows inside a
// caller-owned transaction.  The routine builder and the workout log
// recorder use it for every write that references an exercise.
type ExerciseResolver interface {
	ResolveOrCreate(ctx context.Context, tx *sql.Tx, keys []model.ExerciseKey) ([]model.Exercise, error)
}

// ExerciseService owns the shared exercise catalog.
type ExerciseService struct {
	tx         database.Transactor
	exercises  ExerciseStore
	logs       WorkoutLogStore
	maxWeights MaxWeightStore
	log        *zap.Logger
}

func NewExerciseService(tx database.Transactor, exercises ExerciseStore, logs WorkoutLogStore, maxWeights MaxWeightStore, log *zap.Logger) *ExerciseService {
	return &ExerciseService{tx: tx, exercises: exercises, logs: logs, maxWeights: maxWeights, log: log.Named("exercise")}
}

// ResolveOrCreate returns one exercise per key, in request order, with the
// stored spelling of the name.  All
// candidate rows, soft-deleted ones included, are locked FOR UPDATE before
// anything is checked: deleted matches are revived and missing keys are
// inserted.  Calling it twice with the same keys never creates new rows
// the second time.
func (s *ExerciseService) ResolveOrCreate(ctx context.Context, tx *sql.Tx, keys []model.ExerciseKey) ([]model.Exercise, error) {
	uniq := model.DedupeKeys(keys)
	if len(uniq) == 0 {
		return []model.Exercise{}, nil
	}
	found, err := s.exercises.FindByKeysTx(ctx, tx, uniq, true, repository.LockForUpdate)
	if err != nil {
		return nil, fmt.Errorf("lock exercises: %w", err)
	}
	byKey := indexExercises(found)

	var (
		missing []model.ExerciseKey
		revive  []uint64
	)
	for _, k := range uniq {
		e, ok := byKey[k.Fold()]
		switch {
		case !ok:
			missing = append(missing, k)
		case e.DeletedAt != nil:
			revive = append(revive, e.ID)
		}
	}

	if len(revive) > 0 {
		if err := s.exercises.RestoreTx(ctx, tx, revive); err != nil {
			return nil, fmt.Errorf("restore exercises: %w", err)
		}
	}
	if len(missing) > 0 {
		if err := s.exercises.InsertManyTx(ctx, tx, missing); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return nil, conflict("exercise inserted concurrently")
			}
			return nil, fmt.Errorf("insert exercises: %w", err)
		}
		s.log.Debug("exercises created", zap.Int("count", len(missing)))
	}
	if len(missing) > 0 || len(revive) > 0 {
		found, err = s.exercises.FindByKeysTx(ctx, tx, uniq, false, repository.LockForUpdate)
		if err != nil {
			return nil, fmt.Errorf("reload exercises: %w", err)
		}
		byKey = indexExercises(found)
	}

	out := make([]model.Exercise, len(keys))
	for i, k := range keys {
		e, ok := byKey[k.Fold()]
		if !ok || e.DeletedAt != nil {
			return nil, fmt.Errorf("exercise %s missing after resolve", k)
		}
		out[i] = e
	}
	return out, nil
}

// Create adds new catalog entries.  It fails with ErrConflict when any key
// already exists as a live exercise; soft-deleted keys are revived.
func (s *ExerciseService) Create(ctx context.Context, keys []model.ExerciseKey) ([]model.Exercise, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: at least one exercise is required", model.ErrValidation)
	}
	uniq := model.DedupeKeys(keys)
	var out []model.Exercise
	err := withinTx(ctx, s.tx, func(tx *sql.Tx) error {
		existing, err := s.exercises.FindByKeysTx(ctx, tx, uniq, false, repository.LockForUpdate)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return conflict("exercise already exists: %s", joinKeys(exerciseKeys(existing)))
		}
		out, err = s.ResolveOrCreate(ctx, tx, uniq)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// List returns the live exercises of one body part.
func (s *ExerciseService) List(ctx context.Context, bodyPart model.BodyPart) ([]model.Exercise, error) {
	return s.exercises.ListByBodyPart(ctx, bodyPart)
}

// ListAll returns the whole catalog, optionally with soft-deleted rows.
func (s *ExerciseService) ListAll(ctx context.Context, includeDeleted bool) ([]model.Exercise, error) {
	return s.exercises.ListAll(ctx, includeDeleted)
}

// Delete soft-deletes every key.  If any key is not a live exercise the
// call fails with ErrNotFound and nothing is deleted.
func (s *ExerciseService) Delete(ctx context.Context, keys []model.ExerciseKey) error {
	uniq := model.DedupeKeys(keys)
	if len(uniq) == 0 {
		return fmt.Errorf("%w: at least one exercise is required", model.ErrValidation)
	}
	return withinTx(ctx, s.tx, func(tx *sql.Tx) error {
		found, err := s.exercises.FindByKeysTx(ctx, tx, uniq, false, repository.LockForUpdate)
		if err != nil {
			return err
		}
		byKey := indexExercises(found)
		var missing []model.ExerciseKey
		ids := make([]uint64, 0, len(found))
		for _, k := range uniq {
			e, ok := byKey[k.Fold()]
			if !ok {
				missing = append(missing, k)
				continue
			}
			ids = append(ids, e.ID)
		}
		if len(missing) > 0 {
			return notFound("exercise %s", joinKeys(missing))
		}
		return s.exercises.SoftDeleteTx(ctx, tx, ids)
	})
}

// Rename changes the name of a live exercise and rewrites the
// denormalized name on workout logs and max-weight rows in the same
// transaction.
func (s *ExerciseService) Rename(ctx context.Context, bodyPart, oldName, newName string) (*model.Exercise, error) {
	oldKey, err := model.NewExerciseKey(bodyPart, oldName)
	if err != nil {
		return nil, err
	}
	newKey, err := model.NewExerciseKey(bodyPart, newName)
	if err != nil {
		return nil, err
	}
	if oldKey == newKey {
		return nil, fmt.Errorf("%w: new exercise name equals the current one", model.ErrValidation)
	}

	var renamed model.Exercise
	err = withinTx(ctx, s.tx, func(tx *sql.Tx) error {
		found, err := s.exercises.FindByKeysTx(ctx, tx, []model.ExerciseKey{oldKey, newKey}, true, repository.LockForUpdate)
		if err != nil {
			return err
		}
		byKey := indexExercises(found)
		cur, ok := byKey[oldKey.Fold()]
		if !ok || cur.DeletedAt != nil {
			return notFound("exercise %s", oldKey)
		}
		// A case-only rename finds the row itself under the new key.
		if other, taken := byKey[newKey.Fold()]; taken && other.ID != cur.ID {
			return conflict("exercise already exists: %s", newKey)
		}

		if err := s.exercises.RenameTx(ctx, tx, cur.ID, newKey.ExerciseName); err != nil {
			switch {
			case errors.Is(err, repository.ErrDuplicate):
				return conflict("exercise already exists: %s", newKey)
			case errors.Is(err, repository.ErrNotFound):
				return notFound("exercise %s", oldKey)
			}
			return err
		}
		if err := s.logs.RenameExerciseTx(ctx, tx, cur.ID, newKey.ExerciseName); err != nil {
			return fmt.Errorf("rename on workout logs: %w", err)
		}
		if err := s.maxWeights.RenameExerciseTx(ctx, tx, cur.BodyPart, cur.ExerciseName, newKey.ExerciseName); err != nil {
			return fmt.Errorf("rename on max weights: %w", err)
		}

		reloaded, err := s.exercises.FindByKeysTx(ctx, tx, []model.ExerciseKey{newKey}, false, repository.LockNone)
		if err != nil {
			return err
		}
		if len(reloaded) != 1 {
			return fmt.Errorf("exercise %s missing after rename", newKey)
		}
		renamed = reloaded[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("exercise renamed", zap.Uint64("exercise_id", renamed.ID),
		zap.String("from", oldKey.ExerciseName), zap.String("to", newKey.ExerciseName))
	return &renamed, nil
}

// indexExercises keys rows by their folded natural key.
func indexExercises(list []model.Exercise) map[model.ExerciseKey]model.Exercise {
	m := make(map[model.ExerciseKey]model.Exercise, len(list))
	for _, e := range list {
		m[e.Key().Fold()] = e
	}
	return m
}

func exerciseKeys(list []model.Exercise) []model.ExerciseKey {
	out := make([]model.ExerciseKey, len(list))
	for i, e := range list {
		out[i] = e.Key()
	}
	return out
}

func joinKeys(keys []model.ExerciseKey) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k.String()
	}
	return strings.Join(parts, ", ")
}
