package service

import (
	"context"
	"database/sql"
	"sort"

	"go.uber.org/zap"

	"github.com/iliyamo/workout-tracker/internal/database"
	"github.com/iliyamo/workout-tracker/internal/model"
	"github.com/iliyamo/workout-tracker/internal/queue"
)

// MaxWeightService maintains the derived max_weight_per_exercise table.
type MaxWeightService struct {
	tx         database.Transactor
	logs       WorkoutLogStore
	maxWeights MaxWeightStore
	publisher  EventPublisher
	log        *zap.Logger
}

func NewMaxWeightService(tx database.Transactor, logs WorkoutLogStore, maxWeights MaxWeightStore, publisher EventPublisher, log *zap.Logger) *MaxWeightService {
	return &MaxWeightService{tx: tx, logs: logs, maxWeights: maxWeights, publisher: publisher, log: log.Named("max_weight")}
}

// Renewal rebuilds the table from scratch in one transaction and returns
// the derived rows.  Two renewals over the same logs return equal slices.
func (s *MaxWeightService) Renewal(ctx context.Context) ([]model.MaxWeight, error) {
	var rows []model.MaxWeight
	err := withinTx(ctx, s.tx, func(tx *sql.Tx) error {
		if err := s.maxWeights.DeleteAllTx(ctx, tx); err != nil {
			return err
		}
		logs, err := s.logs.ListForRenewalTx(ctx, tx)
		if err != nil {
			return err
		}
		rows = DeriveMaxWeights(logs)
		return s.maxWeights.InsertManyTx(ctx, tx, rows)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("max weights renewed", zap.Int("rows", len(rows)))
	_ = s.publisher.Publish(ctx, queue.NewMaxWeightRenewed(len(rows)))
	return rows, nil
}

// List returns the last renewal's snapshot.
func (s *MaxWeightService) List(ctx context.Context) ([]model.MaxWeight, error) {
	return s.maxWeights.List(ctx)
}

type bestSetKey struct {
	userID       uint64
	bodyPart     model.BodyPart
	exerciseName string
}

// DeriveMaxWeights picks the best set per (user, body part, exercise):
// the heaviest weight, and among equal weights the earliest log (lowest id
// on equal timestamps).  The result is sorted by body part, exercise name,
// weight descending, achieve date and user id.
func DeriveMaxWeights(logs []model.WorkoutLog) []model.MaxWeight {
	best := make(map[bestSetKey]model.WorkoutLog)
	for _, l := range logs {
		k := bestSetKey{userID: l.UserID, bodyPart: l.BodyPart, exerciseName: l.ExerciseName}
		cur, ok := best[k]
		if !ok || better(l, cur) {
			best[k] = l
		}
	}

	out := make([]model.MaxWeight, 0, len(best))
	for _, l := range best {
		out = append(out, model.MaxWeight{
			UserID:       l.UserID,
			BodyPart:     l.BodyPart,
			ExerciseName: l.ExerciseName,
			UserNickName: l.UserNickName,
			MaxWeight:    l.Weight,
			AchieveDate:  l.CreatedAt.UTC(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.BodyPart != b.BodyPart {
			return a.BodyPart.Rank() < b.BodyPart.Rank()
		}
		if a.ExerciseName != b.ExerciseName {
			return a.ExerciseName < b.ExerciseName
		}
		if a.MaxWeight != b.MaxWeight {
			return a.MaxWeight > b.MaxWeight
		}
		if !a.AchieveDate.Equal(b.AchieveDate) {
			return a.AchieveDate.Before(b.AchieveDate)
		}
		return a.UserID < b.UserID
	})
	return out
}

func better(a, b model.WorkoutLog) bool {
	if a.Weight != b.Weight {
		return a.Weight > b.Weight
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
