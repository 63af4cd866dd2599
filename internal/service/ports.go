package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/workout-tracker/internal/model"
	"github.com/iliyamo/workout-tracker/internal/queue"
	"github.com/iliyamo/workout-tracker/internal/repository"
)

// The interfaces below list exactly the repository methods each service
// calls.  The *Repo types in internal/repository satisfy them.

type ExerciseStore interface {
	FindByKeysTx(ctx context.Context, tx *sql.Tx, keys []model.ExerciseKey, includeDeleted bool, lock repository.Lock) ([]model.Exercise, error)
	InsertManyTx(ctx context.Context, tx *sql.Tx, keys []model.ExerciseKey) error
	RestoreTx(ctx context.Context, tx *sql.Tx, ids []uint64) error
	SoftDeleteTx(ctx context.Context, tx *sql.Tx, ids []uint64) error
	RenameTx(ctx context.Context, tx *sql.Tx, id uint64, newName string) error
	ListByBodyPart(ctx context.Context, bodyPart model.BodyPart) ([]model.Exercise, error)
	ListAll(ctx context.Context, includeDeleted bool) ([]model.Exercise, error)
}

type RoutineStore interface {
	FindByOwnerAndNameTx(ctx context.Context, tx *sql.Tx, ownerID uint64, name string, lock repository.Lock) (*model.Routine, error)
	CreateTx(ctx context.Context, tx *sql.Tx, ownerID uint64, name string) (uint64, error)
	GetByIDAndOwnerTx(ctx context.Context, tx *sql.Tx, id, ownerID uint64, lock repository.Lock) (*model.Routine, error)
	GetByIDAndOwner(ctx context.Context, id, ownerID uint64) (*model.Routine, error)
	FindByIDsAndOwnerTx(ctx context.Context, tx *sql.Tx, ids []uint64, ownerID uint64, lock repository.Lock) ([]model.Routine, error)
	ListByOwner(ctx context.Context, ownerID uint64) ([]model.Routine, error)
	TouchTx(ctx context.Context, tx *sql.Tx, id uint64) error
	SoftDeleteTx(ctx context.Context, tx *sql.Tx, ids []uint64) error
}

type RoutineSlotStore interface {
	ListByRoutinesTx(ctx context.Context, tx *sql.Tx, routineIDs []uint64) ([]model.RoutineExercise, error)
	ListByRoutines(ctx context.Context, routineIDs []uint64) ([]model.RoutineExercise, error)
	InsertManyTx(ctx context.Context, tx *sql.Tx, routineID uint64, slots []repository.SlotRecord) error
	SoftDeleteByRoutinesTx(ctx context.Context, tx *sql.Tx, routineIDs []uint64) error
}

type WorkoutLogStore interface {
	InsertTx(ctx context.Context, tx *sql.Tx, log model.WorkoutLog) (uint64, error)
	FindByIDsAndUserTx(ctx context.Context, tx *sql.Tx, ids []uint64, userID uint64, lock repository.Lock) ([]model.WorkoutLog, error)
	UpdateNumbersTx(ctx context.Context, tx *sql.Tx, p model.WorkoutLogPatch) error
	SoftDeleteTx(ctx context.Context, tx *sql.Tx, ids []uint64) error
	ListByUserBetween(ctx context.Context, userID uint64, from, to time.Time) ([]model.WorkoutLog, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.WorkoutLog, error)
	ListForRenewalTx(ctx context.Context, tx *sql.Tx) ([]model.WorkoutLog, error)
	RenameExerciseTx(ctx context.Context, tx *sql.Tx, exerciseID uint64, newName string) error
	RenameNickNameTx(ctx context.Context, tx *sql.Tx, userID uint64, nickName string) error
}

type MaxWeightStore interface {
	DeleteAllTx(ctx context.Context, tx *sql.Tx) error
	InsertManyTx(ctx context.Context, tx *sql.Tx, rows []model.MaxWeight) error
	List(ctx context.Context) ([]model.MaxWeight, error)
	RenameExerciseTx(ctx context.Context, tx *sql.Tx, bodyPart model.BodyPart, oldName, newName string) error
	RenameNickNameTx(ctx context.Context, tx *sql.Tx, userID uint64, nickName string) error
}

type UserStore interface {
	Create(ctx context.Context, email, password, nickName string, cost int) (uint64, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64, lock repository.Lock) (*model.User, error)
	UpdateNickNameTx(ctx context.Context, tx *sql.Tx, id uint64, nickName string) error
	SoftDeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error
}

type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUserTx(ctx context.Context, tx *sql.Tx, userID uint64) error
}

// EventPublisher delivers domain events to the broker.  Services call it
// after commit and only log its failures.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.Event) error
}

var (
	_ ExerciseStore    = (*repository.ExerciseRepo)(nil)
	_ RoutineStore     = (*repository.RoutineRepo)(nil)
	_ RoutineSlotStore = (*repository.RoutineExerciseRepo)(nil)
	_ WorkoutLogStore  = (*repository.WorkoutLogRepo)(nil)
	_ MaxWeightStore   = (*repository.MaxWeightRepo)(nil)
	_ UserStore        = (*repository.UserRepo)(nil)
	_ TokenStore       = (*repository.TokenRepo)(nil)
)
