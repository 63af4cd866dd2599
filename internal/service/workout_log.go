package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/workout-tracker/internal/database"
	"github.com/iliyamo/workout-tracker/internal/model"
	"github.com/iliyamo/workout-tracker/internal/repository"
)

// WeightHistory groups logged weights by year, month (1-12), body part and
// exercise name.  Weights are in chronological order.
type WeightHistory map[int]map[int]map[model.BodyPart]map[string][]float64

// WorkoutLogService records performed sets.
type WorkoutLogService struct {
	tx      database.Transactor
	logs    WorkoutLogStore
	users   UserStore
	catalog ExerciseResolver
	log     *zap.Logger
	now     func() time.Time
}

func NewWorkoutLogService(tx database.Transactor, logs WorkoutLogStore, users UserStore, catalog ExerciseResolver, log *zap.Logger) *WorkoutLogService {
	return &WorkoutLogService{tx: tx, logs: logs, users: users, catalog: catalog, log: log.Named("workout_log"),
		now: func() time.Time { return time.Now().UTC() }}
}

// BulkInsert records every entry for userID in one transaction: either all
// logs are stored or none.  Exercises are resolved through the catalog so
// unknown (bodyPart, exerciseName) pairs are created on the fly.
func (s *WorkoutLogService) BulkInsert(ctx context.Context, userID uint64, entries []model.WorkoutEntry) ([]model.WorkoutLog, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: at least one entry is required", model.ErrValidation)
	}
	out := make([]model.WorkoutLog, 0, len(entries))
	err := withinTx(ctx, s.tx, func(tx *sql.Tx) error {
		user, err := s.users.GetByIDTx(ctx, tx, userID, repository.LockNone)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound("user %d", userID)
			}
			return err
		}
		keys := make([]model.ExerciseKey, len(entries))
		for i, e := range entries {
			keys[i] = e.Key
		}
		exercises, err := s.catalog.ResolveOrCreate(ctx, tx, keys)
		if err != nil {
			return err
		}

		now := s.now()
		for i, e := range entries {
			l := model.WorkoutLog{
				UserID:       user.ID,
				ExerciseID:   exercises[i].ID,
				BodyPart:     exercises[i].BodyPart,
				ExerciseName: exercises[i].ExerciseName,
				UserNickName: user.NickName,
				SetCount:     e.SetCount,
				Weight:       e.Weight,
				RepeatCount:  e.RepeatCount,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			id, err := s.logs.InsertTx(ctx, tx, l)
			if err != nil {
				return fmt.Errorf("insert workout log %d: %w", i, err)
			}
			l.ID = id
			out = append(out, l)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("workout logs recorded", zap.Uint64("user_id", userID), zap.Int("count", len(out)))
	return out, nil
}

// BulkUpdate overwrites the numeric fields of the given logs.  Every id
// must be a live log of userID, otherwise the whole call fails with
// ErrNotFound and nothing is updated.
func (s *WorkoutLogService) BulkUpdate(ctx context.Context, userID uint64, patches []model.WorkoutLogPatch) ([]model.WorkoutLog, error) {
	if len(patches) == 0 {
		return nil, fmt.Errorf("%w: at least one entry is required", model.ErrValidation)
	}
	ids := make([]uint64, len(patches))
	for i, p := range patches {
		ids[i] = p.ID
	}
	if uniq := dedupeIDs(ids); len(uniq) != len(ids) {
		return nil, fmt.Errorf("%w: duplicate workout log id", model.ErrValidation)
	}

	var out []model.WorkoutLog
	err := withinTx(ctx, s.tx, func(tx *sql.Tx) error {
		if err := s.lockOwned(ctx, tx, userID, ids); err != nil {
			return err
		}
		for _, p := range patches {
			if err := s.logs.UpdateNumbersTx(ctx, tx, p); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return notFound("workout log %d", p.ID)
				}
				return err
			}
		}
		var err error
		out, err = s.logs.FindByIDsAndUserTx(ctx, tx, ids, userID, repository.LockNone)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SoftDelete removes the given logs of userID with the same all-or-nothing
// ownership check as BulkUpdate.
func (s *WorkoutLogService) SoftDelete(ctx context.Context, userID uint64, ids []uint64) error {
	uniq := dedupeIDs(ids)
	if len(uniq) == 0 {
		return fmt.Errorf("%w: at least one workout log id is required", model.ErrValidation)
	}
	return withinTx(ctx, s.tx, func(tx *sql.Tx) error {
		if err := s.lockOwned(ctx, tx, userID, uniq); err != nil {
			return err
		}
		return s.logs.SoftDeleteTx(ctx, tx, uniq)
	})
}

// FindByDay returns the logs userID recorded on the UTC calendar day of
// date.
func (s *WorkoutLogService) FindByDay(ctx context.Context, userID uint64, date time.Time) ([]model.WorkoutLog, error) {
	d := date.UTC()
	from := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return s.logs.ListByUserBetween(ctx, userID, from, from.AddDate(0, 0, 1))
}

// Aggregate groups the weights of userID by year and month.  A zero year
// covers the whole history.
func (s *WorkoutLogService) Aggregate(ctx context.Context, userID uint64, year int) (WeightHistory, error) {
	var (
		logs []model.WorkoutLog
		err  error
	)
	if year > 0 {
		from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		logs, err = s.logs.ListByUserBetween(ctx, userID, from, from.AddDate(1, 0, 0))
	} else {
		logs, err = s.logs.ListByUser(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	return AggregateWeights(logs), nil
}

// AggregateWeights buckets logs into a WeightHistory.  logs must already be
// in chronological order.
func AggregateWeights(logs []model.WorkoutLog) WeightHistory {
	out := WeightHistory{}
	for _, l := range logs {
		t := l.CreatedAt.UTC()
		months, ok := out[t.Year()]
		if !ok {
			months = map[int]map[model.BodyPart]map[string][]float64{}
			out[t.Year()] = months
		}
		parts, ok := months[int(t.Month())]
		if !ok {
			parts = map[model.BodyPart]map[string][]float64{}
			months[int(t.Month())] = parts
		}
		names, ok := parts[l.BodyPart]
		if !ok {
			names = map[string][]float64{}
			parts[l.BodyPart] = names
		}
		names[l.ExerciseName] = append(names[l.ExerciseName], l.Weight)
	}
	return out
}

func (s *WorkoutLogService) lockOwned(ctx context.Context, tx *sql.Tx, userID uint64, ids []uint64) error {
	found, err := s.logs.FindByIDsAndUserTx(ctx, tx, ids, userID, repository.LockForUpdate)
	if err != nil {
		return err
	}
	got := make(map[uint64]struct{}, len(found))
	for _, l := range found {
		got[l.ID] = struct{}{}
	}
	if missing := missingIDs(ids, got); len(missing) > 0 {
		return notFound("workout log %s", joinIDs(missing))
	}
	return nil
}
