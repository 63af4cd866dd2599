package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/iliyamo/workout-tracker/internal/database"
	"github.com/iliyamo/workout-tracker/internal/model"
	"github.com/iliyamo/workout-tracker/internal/queue"
	"github.com/iliyamo/workout-tracker/internal/repository"
)

// UpdateOutcome tells the caller whether a routine update wrote anything.
type UpdateOutcome string

const (
	OutcomeNotUpdated UpdateOutcome = "NOT_UPDATED"
	OutcomeReplaced   UpdateOutcome = "REPLACED"
)

// UpdateResult is returned by RoutineService.Update.
type UpdateResult struct {
	Outcome UpdateOutcome  `json:"outcome"`
	Routine *model.Routine `json:"routine"`
}

// RoutineService composes user-owned routines out of catalog exercises.
type RoutineService struct {
	tx        database.Transactor
	routines  RoutineStore
	slots     RoutineSlotStore
	catalog   ExerciseResolver
	publisher EventPublisher
	log       *zap.Logger
}

func NewRoutineService(tx database.Transactor, routines RoutineStore, slots RoutineSlotStore, catalog ExerciseResolver, publisher EventPublisher, log *zap.Logger) *RoutineService {
	return &RoutineService{tx: tx, routines: routines, slots: slots, catalog: catalog, publisher: publisher, log: log.Named("routine")}
}

// Create stores a new routine for ownerID.  The (owner, name) lookup runs
// FOR UPDATE so two concurrent creators of the same name serialize and
// the second one gets ErrConflict.
func (s *RoutineService) Create(ctx context.Context, ownerID uint64, name string, slots []model.RoutineSlot) (*model.Routine, error) {
	name, err := model.NewRoutineName(name)
	if err != nil {
		return nil, err
	}
	if err := model.ValidateSlots(slots); err != nil {
		return nil, err
	}

	var out *model.Routine
	err = withinTx(ctx, s.tx, func(tx *sql.Tx) error {
		_, err := s.routines.FindByOwnerAndNameTx(ctx, tx, ownerID, name, repository.LockForUpdate)
		switch {
		case err == nil:
			return conflict("routine %q already exists", name)
		case !errors.Is(err, repository.ErrNotFound):
			return err
		}

		id, err := s.routines.CreateTx(ctx, tx, ownerID, name)
		if err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return conflict("routine %q already exists", name)
			}
			return err
		}
		if err := s.insertSlots(ctx, tx, id, slots); err != nil {
			return err
		}
		out, err = s.loadTx(ctx, tx, id, ownerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("routine created", zap.Uint64("routine_id", out.ID), zap.Uint64("owner_id", ownerID))
	return out, nil
}

// Update replaces the slots of a routine when the requested composition
// differs from the stored one.  An identical list (compared by order,
// exercise name and body part) performs no writes and reports
// OutcomeNotUpdated; otherwise every current slot is soft-deleted, the new
// set is inserted and a routine.updated event is published after commit.
func (s *RoutineService) Update(ctx context.Context, ownerID, routineID uint64, slots []model.RoutineSlot) (*UpdateResult, error) {
	if err := model.ValidateSlots(slots); err != nil {
		return nil, err
	}

	res := &UpdateResult{Outcome: OutcomeNotUpdated}
	err := withinTx(ctx, s.tx, func(tx *sql.Tx) error {
		rt, err := s.routines.GetByIDAndOwnerTx(ctx, tx, routineID, ownerID, repository.LockForUpdate)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound("routine %d", routineID)
			}
			return err
		}
		current, err := s.slots.ListByRoutinesTx(ctx, tx, []uint64{rt.ID})
		if err != nil {
			return err
		}
		rt.Exercises = current
		if model.SameComposition(slotsOf(current), slots) {
			res.Routine = rt
			return nil
		}

		if err := s.slots.SoftDeleteByRoutinesTx(ctx, tx, []uint64{rt.ID}); err != nil {
			return err
		}
		if err := s.insertSlots(ctx, tx, rt.ID, slots); err != nil {
			return err
		}
		if err := s.routines.TouchTx(ctx, tx, rt.ID); err != nil {
			return err
		}
		res.Outcome = OutcomeReplaced
		res.Routine, err = s.loadTx(ctx, tx, rt.ID, ownerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if res.Outcome == OutcomeReplaced {
		labels := make([]string, len(res.Routine.Exercises))
		for i, re := range res.Routine.Exercises {
			labels[i] = re.Slot().Key.String()
		}
		ev := queue.NewRoutineUpdated(ownerID, res.Routine.ID, res.Routine.Name, labels)
		// The publisher logs its own failures; a lost event never fails the update.
		_ = s.publisher.Publish(ctx, ev)
	}
	return res, nil
}

// Delete soft-deletes the given routines and their slots.  Every id must
// exist and belong to ownerID, otherwise nothing is deleted.
func (s *RoutineService) Delete(ctx context.Context, ownerID uint64, ids []uint64) error {
	uniq := dedupeIDs(ids)
	if len(uniq) == 0 {
		return fmt.Errorf("%w: at least one routine id is required", model.ErrValidation)
	}
	return withinTx(ctx, s.tx, func(tx *sql.Tx) error {
		found, err := s.routines.FindByIDsAndOwnerTx(ctx, tx, uniq, ownerID, repository.LockForUpdate)
		if err != nil {
			return err
		}
		got := make(map[uint64]struct{}, len(found))
		for _, r := range found {
			got[r.ID] = struct{}{}
		}
		if missing := missingIDs(uniq, got); len(missing) > 0 {
			return notFound("routine %s", joinIDs(missing))
		}
		if err := s.slots.SoftDeleteByRoutinesTx(ctx, tx, uniq); err != nil {
			return err
		}
		return s.routines.SoftDeleteTx(ctx, tx, uniq)
	})
}

// List returns every live routine of ownerID with its slots.
func (s *RoutineService) List(ctx context.Context, ownerID uint64) ([]model.Routine, error) {
	routines, err := s.routines.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(routines) == 0 {
		return routines, nil
	}
	ids := make([]uint64, len(routines))
	for i, r := range routines {
		ids[i] = r.ID
	}
	slots, err := s.slots.ListByRoutines(ctx, ids)
	if err != nil {
		return nil, err
	}
	byRoutine := make(map[uint64][]model.RoutineExercise, len(routines))
	for _, re := range slots {
		byRoutine[re.RoutineID] = append(byRoutine[re.RoutineID], re)
	}
	for i := range routines {
		routines[i].Exercises = byRoutine[routines[i].ID]
		if routines[i].Exercises == nil {
			routines[i].Exercises = []model.RoutineExercise{}
		}
	}
	return routines, nil
}

// Get returns one routine of ownerID.
func (s *RoutineService) Get(ctx context.Context, ownerID, routineID uint64) (*model.Routine, error) {
	rt, err := s.routines.GetByIDAndOwner(ctx, routineID, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("routine %d", routineID)
		}
		return nil, err
	}
	slots, err := s.slots.ListByRoutines(ctx, []uint64{rt.ID})
	if err != nil {
		return nil, err
	}
	rt.Exercises = slots
	return rt, nil
}

func (s *RoutineService) insertSlots(ctx context.Context, tx *sql.Tx, routineID uint64, slots []model.RoutineSlot) error {
	sorted := model.SortSlots(slots)
	keys := make([]model.ExerciseKey, len(sorted))
	for i, sl := range sorted {
		keys[i] = sl.Key
	}
	exercises, err := s.catalog.ResolveOrCreate(ctx, tx, keys)
	if err != nil {
		return err
	}
	records := make([]repository.SlotRecord, len(sorted))
	for i, sl := range sorted {
		records[i] = repository.SlotRecord{ExerciseID: exercises[i].ID, Order: sl.Order}
	}
	return s.slots.InsertManyTx(ctx, tx, routineID, records)
}

func (s *RoutineService) loadTx(ctx context.Context, tx *sql.Tx, id, ownerID uint64) (*model.Routine, error) {
	rt, err := s.routines.GetByIDAndOwnerTx(ctx, tx, id, ownerID, repository.LockNone)
	if err != nil {
		return nil, err
	}
	rt.Exercises, err = s.slots.ListByRoutinesTx(ctx, tx, []uint64{id})
	if err != nil {
		return nil, err
	}
	return rt, nil
}

func slotsOf(list []model.RoutineExercise) []model.RoutineSlot {
	out := make([]model.RoutineSlot, len(list))
	for i, re := range list {
		out[i] = re.Slot()
	}
	return out
}
