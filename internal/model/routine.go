package model

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// Routine is a named, user-owned, ordered collection of exercises.  It
// corresponds to a row in the `routines` table; Exercises is filled from
// the non-deleted `routine_exercises` rows of the routine.
//
// Fields:
//
//	ID          – primary key identifier.
//	OwnerUserID – user that owns the routine.
//	Name        – unique per owner among non-deleted routines.
//	Exercises   – slots ordered by Order.
type Routine struct {
	ID          uint64            `json:"id"`
	OwnerUserID uint64            `json:"ownerUserId"`
	Name        string            `json:"name"`
	Exercises   []RoutineExercise `json:"exercises"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
	DeletedAt   *time.Time        `json:"deletedAt,omitempty"`
}

// RoutineExercise is one ordered slot of a routine (`routine_exercises`).
// BodyPart and ExerciseName are joined from `exercises` when loaded.
type RoutineExercise struct {
	ID           uint64   `json:"id"`
	RoutineID    uint64   `json:"routineId"`
	ExerciseID   uint64   `json:"exerciseId"`
	Order        int      `json:"order"`
	BodyPart     BodyPart `json:"bodyPart"`
	ExerciseName string   `json:"exerciseName"`
}

// Slot converts a stored slot back to the comparable request form.
func (re RoutineExercise) Slot() RoutineSlot {
	return RoutineSlot{Order: re.Order, Key: ExerciseKey{BodyPart: re.BodyPart, ExerciseName: re.ExerciseName}}
}

// RoutineSlot is a requested slot: an order position and the exercise that
// should occupy it.
type RoutineSlot struct {
	Order int
	Key   ExerciseKey
}

// NewRoutineSlot validates one requested slot.
func NewRoutineSlot(order int, bodyPart, exerciseName string) (RoutineSlot, error) {
	if order < 1 {
		return RoutineSlot{}, fmt.Errorf("%w: order must be positive, got %d", ErrValidation, order)
	}
	key, err := NewExerciseKey(bodyPart, exerciseName)
	if err != nil {
		return RoutineSlot{}, err
	}
	return RoutineSlot{Order: order, Key: key}, nil
}

// ValidateSlots rejects an empty list and duplicate order positions.
func ValidateSlots(slots []RoutineSlot) error {
	if len(slots) == 0 {
		return fmt.Errorf("%w: a routine needs at least one exercise", ErrValidation)
	}
	seen := make(map[int]struct{}, len(slots))
	for _, s := range slots {
		if _, dup := seen[s.Order]; dup {
			return fmt.Errorf("%w: duplicate order %d", ErrValidation, s.Order)
		}
		seen[s.Order] = struct{}{}
	}
	return nil
}

// NewRoutineName trims and validates a routine name (1–50 characters).
func NewRoutineName(name string) (string, error) {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	if n == 0 || n > 50 {
		return "", fmt.Errorf("%w: routine name must be 1-50 characters", ErrValidation)
	}
	return name, nil
}

// SortSlots returns a copy of slots ordered by Order.
func SortSlots(slots []RoutineSlot) []RoutineSlot {
	out := make([]RoutineSlot, len(slots))
	copy(out, slots)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// SameComposition compares two slot lists by (order, exerciseName, bodyPart)
// after sorting both by order.  Names compare as ExerciseKey.Fold does.
func SameComposition(a, b []RoutineSlot) bool {
	if len(a) != len(b) {
		return false
	}
	sa, sb := SortSlots(a), SortSlots(b)
	for i := range sa {
		if sa[i].Order != sb[i].Order || sa[i].Key.Fold() != sb[i].Key.Fold() {
			return false
		}
	}
	return true
}
