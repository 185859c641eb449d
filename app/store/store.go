package store

import (
	"slices"
	"sync"
	"time"

	"tasklist/app/models"

	"github.com/google/uuid"
)

// TaskStore owns the task collection and is the only thing allowed to change it.
// It is safe for concurrent use: mutations are serialized and reads always see
// fully applied state.
type TaskStore struct {
	mu    sync.RWMutex
	tasks []*models.Task // insertion order
	byID  map[string]*models.Task
	clock clock
	newID func() string

	completed int
	seq       uint64
}

// Change describes one applied mutation. Seq and At are assigned under the
// write lock, so they order changes exactly as the store applied them.
// Progress is the state right after the change.
type Change struct {
	Seq      uint64
	At       time.Time
	Task     models.Task
	Progress models.Progress
}

// Option configures a TaskStore.
type Option func(*TaskStore)

// WithClock replaces time.Now as the source of timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *TaskStore) { s.clock.now = now }
}

// WithIDGenerator replaces the uuid based id generator.
func WithIDGenerator(newID func() string) Option {
	return func(s *TaskStore) { s.newID = newID }
}

// New creates an empty TaskStore.
func New(opts ...Option) *TaskStore {
	s := &TaskStore{
		byID:  make(map[string]*models.Task),
		clock: clock{now: time.Now},
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create adds a task with the trimmed description. Empty or over-length input
// is ignored and ok is false.
func (s *TaskStore) Create(raw string) (task models.Task, ok bool) {
	c, ok := s.CreateChange(raw)
	return c.Task, ok
}

// CreateChange is Create, also reporting the change it applied.
func (s *TaskStore) CreateChange(raw string) (Change, bool) {
	description, err := models.NormalizeDescription(raw)
	if err != nil {
		return Change{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := &models.Task{
		ID:          s.freshID(),
		Description: description,
		CreatedAt:   s.clock.Now(),
	}
	s.tasks = append(s.tasks, t)
	s.byID[t.ID] = t
	return s.change(t, t.CreatedAt), true
}

func (s *TaskStore) freshID() string {
	for {
		id := s.newID()
		if _, taken := s.byID[id]; id != "" && !taken {
			return id
		}
	}
}

// change stamps a mutation. Callers must hold the write lock.
func (s *TaskStore) change(t *models.Task, at time.Time) Change {
	s.seq++
	return Change{
		Seq:      s.seq,
		At:       at,
		Task:     t.Clone(),
		Progress: s.progress(),
	}
}

// Toggle flips the completion state of the task with the given id.
// Unknown ids are a no-op.
func (s *TaskStore) Toggle(id string) (task models.Task, ok bool) {
	c, ok := s.ToggleChange(id)
	return c.Task, ok
}

// ToggleChange is Toggle, also reporting the change it applied.
func (s *TaskStore) ToggleChange(id string) (Change, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, found := s.byID[id]
	if !found {
		return Change{}, false
	}
	now := s.clock.Now()
	if t.Completed {
		t.Completed = false
		t.CompletedAt = nil
		s.completed--
	} else {
		t.Completed = true
		t.CompletedAt = &now
		s.completed++
	}
	return s.change(t, now), true
}

// Delete removes the task with the given id for good and returns it.
// Unknown ids are a no-op.
func (s *TaskStore) Delete(id string) (task models.Task, ok bool) {
	c, ok := s.DeleteChange(id)
	return c.Task, ok
}

// DeleteChange is Delete, also reporting the change it applied.
func (s *TaskStore) DeleteChange(id string) (Change, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, found := s.byID[id]
	if !found {
		return Change{}, false
	}
	delete(s.byID, id)
	s.tasks = slices.DeleteFunc(s.tasks, func(t *models.Task) bool { return t.ID == id })
	if t.Completed {
		s.completed--
	}
	return s.change(t, s.clock.Now()), true
}

// Get returns a copy of the task with the given id.
func (s *TaskStore) Get(id string) (models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, found := s.byID[id]
	if !found {
		return models.Task{}, false
	}
	return t.Clone(), true
}

// Len reports how many tasks the store holds.
func (s *TaskStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// View returns a sorted snapshot: open tasks before completed ones, newest
// first within each group. Tasks created at the same instant keep insertion order.
func (s *TaskStore) View() []models.Task {
	view, _ := s.Snapshot()
	return view
}

// Snapshot returns View and Progress computed from the same state.
func (s *TaskStore) Snapshot() ([]models.Task, models.Progress) {
	s.mu.RLock()
	view := make([]models.Task, len(s.tasks))
	for i, t := range s.tasks {
		view[i] = t.Clone()
	}
	progress := s.progress()
	s.mu.RUnlock()

	slices.SortStableFunc(view, compareForView)
	return view, progress
}

func compareForView(a, b models.Task) int {
	if a.Completed != b.Completed {
		if a.Completed {
			return 1
		}
		return -1
	}
	return b.CreatedAt.Compare(a.CreatedAt)
}

// Progress reports completed and total counts and the completed percentage.
func (s *TaskStore) Progress() models.Progress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progress()
}

func (s *TaskStore) progress() models.Progress {
	p := models.Progress{
		CompletedCount: s.completed,
		TotalCount:     len(s.tasks),
	}
	if p.TotalCount > 0 {
		p.Percentage = 100 * float64(p.CompletedCount) / float64(p.TotalCount)
	}
	return p
}
