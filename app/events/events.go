package events

import (
	"context"
	"errors"
	"time"

	"tasklist/app/models"
	"tasklist/app/store"

	"github.com/sirupsen/logrus"
)

// Type names a task lifecycle transition.
type Type string

const (
	TaskCreated   Type = "task.created"
	TaskCompleted Type = "task.completed"
	TaskReopened  Type = "task.reopened"
	TaskDeleted   Type = "task.deleted"
)

// Event records one change applied by the store. Seq is the store's change
// sequence number; consumers that may see events out of order use it to keep
// only the latest state of each task.
type Event struct {
	Seq         uint64    `json:"seq"`
	Type        Type      `json:"type"`
	TaskID      string    `json:"task_id"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	At          time.Time `json:"at"`
}

// ForChange builds the event for a change reported by the store.
func ForChange(typ Type, change store.Change) Event {
	return Event{
		Seq:         change.Seq,
		Type:        typ,
		TaskID:      change.Task.ID,
		Description: change.Task.Description,
		Completed:   change.Task.Completed,
		At:          change.At,
	}
}

// ToggleType picks completed or reopened from the task's new state.
func ToggleType(task models.Task) Type {
	if task.Completed {
		return TaskCompleted
	}
	return TaskReopened
}

// Publisher receives task events. Publishing is best effort: the store has
// already applied the change by the time an event is published.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// LogPublisher writes events to a logger at debug level.
type LogPublisher struct {
	Logger logrus.FieldLogger
}

func (p LogPublisher) Publish(_ context.Context, event Event) error {
	p.Logger.WithFields(logrus.Fields{
		"seq":       event.Seq,
		"event":     string(event.Type),
		"task_id":   event.TaskID,
		"completed": event.Completed,
	}).Debug("task event")
	return nil
}

// Fanout publishes every event to each of its publishers.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
