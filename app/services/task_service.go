package services

import (
	"context"

	"tasklist/app/events"
	"tasklist/app/metrics"
	"tasklist/app/models"
	"tasklist/app/store"

	"github.com/sirupsen/logrus"
)

// TaskService handles task-related operations on top of the store.
type TaskService struct {
	store     *store.TaskStore
	publisher events.Publisher
	metrics   *metrics.Metrics
	log       logrus.FieldLogger
}

// NewTaskService creates a new instance of TaskService.
func NewTaskService(st *store.TaskStore, publisher events.Publisher, m *metrics.Metrics, log logrus.FieldLogger) *TaskService {
	s := &TaskService{
		store:     st,
		publisher: publisher,
		metrics:   m,
		log:       log.WithField("component", "task_service"),
	}
	s.metrics.ObserveProgress(0, st.Progress())
	return s
}

// CreateTask validates the description and adds a task. Validation failures
// are returned as models.ErrEmptyDescription or models.ErrDescriptionTooLong.
func (s *TaskService) CreateTask(ctx context.Context, description string) (models.Task, error) {
	if _, err := models.NormalizeDescription(description); err != nil {
		s.metrics.CountOperation("create", metrics.ResultRejected)
		s.log.WithError(err).Debug("task rejected")
		return models.Task{}, err
	}

	change, ok := s.store.CreateChange(description)
	if !ok {
		// NormalizeDescription already accepted the input, so this cannot happen
		// unless the two disagree.
		s.metrics.CountOperation("create", metrics.ResultRejected)
		return models.Task{}, models.ErrEmptyDescription
	}

	s.applied(ctx, "create", events.TaskCreated, change)
	return change.Task, nil
}

// ToggleTask flips the completion state of a task. ok is false when no task
// has the id.
func (s *TaskService) ToggleTask(ctx context.Context, id string) (models.Task, bool) {
	change, ok := s.store.ToggleChange(id)
	if !ok {
		s.noop("toggle", id)
		return models.Task{}, false
	}

	s.applied(ctx, "toggle", events.ToggleType(change.Task), change)
	return change.Task, true
}

// DeleteTask removes a task for good. It reports whether a task was removed.
func (s *TaskService) DeleteTask(ctx context.Context, id string) bool {
	change, ok := s.store.DeleteChange(id)
	if !ok {
		s.noop("delete", id)
		return false
	}

	s.applied(ctx, "delete", events.TaskDeleted, change)
	return true
}

// GetTask retrieves a single task by its ID.
func (s *TaskService) GetTask(_ context.Context, id string) (models.Task, bool) {
	return s.store.Get(id)
}

// ListTasks returns the tasks in display order.
func (s *TaskService) ListTasks(_ context.Context) []models.Task {
	return s.store.View()
}

// Progress returns the completion summary.
func (s *TaskService) Progress(_ context.Context) models.Progress {
	return s.store.Progress()
}

// Snapshot returns the display list and the progress of that same list.
func (s *TaskService) Snapshot(_ context.Context) ([]models.Task, models.Progress) {
	return s.store.Snapshot()
}

func (s *TaskService) applied(ctx context.Context, op string, typ events.Type, change store.Change) {
	event := events.ForChange(typ, change)

	s.metrics.CountOperation(op, metrics.ResultApplied)
	s.metrics.ObserveProgress(change.Seq, change.Progress)

	log := s.log.WithFields(logrus.Fields{
		"op":      op,
		"task_id": event.TaskID,
		"seq":     event.Seq,
	})
	log.Info("task changed")

	// Event publishing is best-effort; log but don't fail the operation
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.WithError(err).Warn("failed to publish task event")
	}
}

func (s *TaskService) noop(op, id string) {
	s.metrics.CountOperation(op, metrics.ResultNoop)
	s.log.WithFields(logrus.Fields{
		"op":      op,
		"task_id": id,
	}).Debug("unknown task, nothing to do")
}
