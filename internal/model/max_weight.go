package model

import "time"

// MaxWeight is a row of the derived `max_weight_per_exercise` table: the
// heaviest set a user has logged for an exercise and when it was first
// reached.  The table is rebuilt from scratch on every renewal, so ID is
// only set on rows read back from the table.
type MaxWeight struct {
	ID           uint64    `json:"id,omitempty"`
	UserID       uint64    `json:"userId"`
	BodyPart     BodyPart  `json:"bodyPart"`
	ExerciseName string    `json:"exerciseName"`
	UserNickName string    `json:"userNickName"`
	MaxWeight    float64   `json:"maxWeight"`
	AchieveDate  time.Time `json:"achieveDate"`
}
