package model

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// ErrValidation marks every error produced by the constructors in this
// package.  Handlers translate it into HTTP 400.
var ErrValidation = errors.New("validation failed")

// BodyPart is the muscle-group category an exercise belongs to.  It is
// stored in the `exercises.body_part` ENUM column.
type BodyPart string

const (
	BodyPartChest     BodyPart = "CHEST"
	BodyPartBack      BodyPart = "BACK"
	BodyPartLegs      BodyPart = "LEGS"
	BodyPartShoulders BodyPart = "SHOULDERS"
	BodyPartArms      BodyPart = "ARMS"
	BodyPartCore      BodyPart = "CORE"
)

// BodyParts lists every accepted body part in catalog order.
var BodyParts = []BodyPart{
	BodyPartChest,
	BodyPartBack,
	BodyPartLegs,
	BodyPartShoulders,
	BodyPartArms,
	BodyPartCore,
}

// Valid reports whether b is one of the six known body parts.
func (b BodyPart) Valid() bool {
	for _, p := range BodyParts {
		if p == b {
			return true
		}
	}
	return false
}

// Rank is the position of b in BodyParts, matching the sort order of the
// ENUM column.  Unknown values sort last.
func (b BodyPart) Rank() int {
	for i, p := range BodyParts {
		if p == b {
			return i
		}
	}
	return len(BodyParts)
}

// ParseBodyPart normalizes s (trim + upper case) and validates it.
func ParseBodyPart(s string) (BodyPart, error) {
	b := BodyPart(strings.ToUpper(strings.TrimSpace(s)))
	if !b.Valid() {
		return "", fmt.Errorf("%w: unknown body part %q", ErrValidation, s)
	}
	return b, nil
}

// exerciseNamePattern accepts ASCII letters, digits and Hangul syllables,
// with single inner spaces between words.
var exerciseNamePattern = regexp.MustCompile(`^[0-9A-Za-z가-힣]+( [0-9A-Za-z가-힣]+)*$`)

// ValidExerciseName reports whether name is 2–50 characters long, made of
// letters, digits or Hangul, and has no leading or trailing space.
func ValidExerciseName(name string) bool {
	n := utf8.RuneCountInString(name)
	if n < 2 || n > 50 {
		return false
	}
	return exerciseNamePattern.MatchString(name)
}

// Exercise mirrors a row of the `exercises` table.  Exercises are shared by
// every user; the (BodyPart, ExerciseName) pair is unique.
type Exercise struct {
	ID           uint64     `json:"id"`
	BodyPart     BodyPart   `json:"bodyPart"`
	ExerciseName string     `json:"exerciseName"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	DeletedAt    *time.Time `json:"deletedAt,omitempty"`
}

// Key returns the natural key of the exercise.
func (e Exercise) Key() ExerciseKey {
	return ExerciseKey{BodyPart: e.BodyPart, ExerciseName: e.ExerciseName}
}

// ExerciseKey is the natural key of an exercise.  Build it with
// NewExerciseKey so that both halves are validated.
type ExerciseKey struct {
	BodyPart     BodyPart `json:"bodyPart"`
	ExerciseName string   `json:"exerciseName"`
}

// NewExerciseKey validates and returns an ExerciseKey.
func NewExerciseKey(bodyPart, exerciseName string) (ExerciseKey, error) {
	bp, err := ParseBodyPart(bodyPart)
	if err != nil {
		return ExerciseKey{}, err
	}
	if !ValidExerciseName(exerciseName) {
		return ExerciseKey{}, fmt.Errorf("%w: invalid exercise name %q", ErrValidation, exerciseName)
	}
	return ExerciseKey{BodyPart: bp, ExerciseName: exerciseName}, nil
}

func (k ExerciseKey) String() string {
	return string(k.BodyPart) + "/" + k.ExerciseName
}

// Fold returns the identity of k.  Exercise names compare
// case-insensitively, the same way the exercise_name columns are collated,
// so "Squat" and "squat" name one catalog row.
func (k ExerciseKey) Fold() ExerciseKey {
	return ExerciseKey{BodyPart: k.BodyPart, ExerciseName: strings.ToLower(k.ExerciseName)}
}

// DedupeKeys returns keys with duplicates removed, keeping first-seen order
// and spelling.  Keys that differ only in letter case are duplicates.
func DedupeKeys(keys []ExerciseKey) []ExerciseKey {
	seen := make(map[ExerciseKey]struct{}, len(keys))
	out := make([]ExerciseKey, 0, len(keys))
	for _, k := range keys {
		f := k.Fold()
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, k)
	}
	return out
}
