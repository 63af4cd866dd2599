// Package queue defines the domain events exchanged over RabbitMQ together
// with the publisher used by the API and the consumer run by
// cmd/activity-consumer.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// ActivityQueue is the durable queue every event is published to.
const ActivityQueue = "workout.activity"

// EventType names a domain event.  It is also sent as the AMQP message type.
type EventType string

const (
	EventRoutineUpdated   EventType = "routine.updated"
	EventMaxWeightRenewed EventType = "max_weight.renewed"
)

// Event is the JSON payload of every message on ActivityQueue.  Fields that
// do not apply to a type are omitted.
type Event struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	UserID      uint64    `json:"user_id,omitempty"`
	RoutineID   uint64    `json:"routine_id,omitempty"`
	RoutineName string    `json:"routine_name,omitempty"`
	Exercises   []string  `json:"exercises,omitempty"`
	Rows        int       `json:"rows,omitempty"`
	OccurredAt  string    `json:"occurred_at"`
}

// NewRoutineUpdated describes a routine whose slots were replaced.
// exercises holds "BODYPART/name" labels in slot order.
func NewRoutineUpdated(userID, routineID uint64, name string, exercises []string) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        EventRoutineUpdated,
		UserID:      userID,
		RoutineID:   routineID,
		RoutineName: name,
		Exercises:   exercises,
		OccurredAt:  time.Now().UTC().Format(time.RFC3339),
	}
}

// NewMaxWeightRenewed reports a finished renewal that produced rows entries.
func NewMaxWeightRenewed(rows int) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       EventMaxWeightRenewed,
		Rows:       rows,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
}
