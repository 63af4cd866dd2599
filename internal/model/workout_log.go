package model

import (
	"fmt"
	"math"
	"time"
)

// WorkoutLog records one performed set against an exercise.  ExerciseName,
// BodyPart and UserNickName are denormalized copies kept in sync by the
// rename operations of the exercise catalog and the user account.
type WorkoutLog struct {
	ID           uint64     `json:"id"`
	UserID       uint64     `json:"userId"`
	ExerciseID   uint64     `json:"exerciseId"`
	BodyPart     BodyPart   `json:"bodyPart"`
	ExerciseName string     `json:"exerciseName"`
	UserNickName string     `json:"userNickName"`
	SetCount     int        `json:"setCount"`
	Weight       float64    `json:"weight"`
	RepeatCount  int        `json:"repeatCount"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	DeletedAt    *time.Time `json:"deletedAt,omitempty"`
}

// WorkoutEntry is a validated request to record a set.
type WorkoutEntry struct {
	Key         ExerciseKey
	SetCount    int
	Weight      float64
	RepeatCount int
}

// NewWorkoutEntry validates the numeric fields and the exercise key.
func NewWorkoutEntry(bodyPart, exerciseName string, setCount int, weight float64, repeatCount int) (WorkoutEntry, error) {
	key, err := NewExerciseKey(bodyPart, exerciseName)
	if err != nil {
		return WorkoutEntry{}, err
	}
	if err := validateSetNumbers(setCount, weight, repeatCount); err != nil {
		return WorkoutEntry{}, err
	}
	return WorkoutEntry{Key: key, SetCount: setCount, Weight: weight, RepeatCount: repeatCount}, nil
}

// WorkoutLogPatch replaces the numeric fields of an existing log.
type WorkoutLogPatch struct {
	ID          uint64
	SetCount    int
	Weight      float64
	RepeatCount int
}

// NewWorkoutLogPatch validates an update of log id.
func NewWorkoutLogPatch(id uint64, setCount int, weight float64, repeatCount int) (WorkoutLogPatch, error) {
	if id == 0 {
		return WorkoutLogPatch{}, fmt.Errorf("%w: workout log id is required", ErrValidation)
	}
	if err := validateSetNumbers(setCount, weight, repeatCount); err != nil {
		return WorkoutLogPatch{}, err
	}
	return WorkoutLogPatch{ID: id, SetCount: setCount, Weight: weight, RepeatCount: repeatCount}, nil
}

// WeightLimit is the largest weight the DECIMAL(7,2) weight columns hold.
// Weights carry at most two decimals.
const WeightLimit = 99999.99

func validateSetNumbers(setCount int, weight float64, repeatCount int) error {
	if setCount < 1 {
		return fmt.Errorf("%w: setCount must be at least 1", ErrValidation)
	}
	if repeatCount < 1 {
		return fmt.Errorf("%w: repeatCount must be at least 1", ErrValidation)
	}
	if !(weight >= 0) {
		return fmt.Errorf("%w: weight must not be negative", ErrValidation)
	}
	if weight > WeightLimit {
		return fmt.Errorf("%w: weight must not exceed %.2f", ErrValidation, WeightLimit)
	}
	if cents := weight * 100; math.Abs(cents-math.Round(cents)) > 1e-6 {
		return fmt.Errorf("%w: weight has more than two decimals", ErrValidation)
	}
	return nil
}
