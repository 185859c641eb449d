package store

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"tasklist/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances by step on every call.
type fakeClock struct {
	t    time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

func newTestStore(t *testing.T) *TaskStore {
	t.Helper()
	c := &fakeClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), step: time.Second}
	n := 0
	return New(
		WithClock(c.Now),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("task-%d", n)
		}),
	)
}

func descriptions(tasks []models.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Description
	}
	return out
}

func assertInvariant(t *testing.T, s *TaskStore) {
	t.Helper()
	for _, task := range s.View() {
		assert.Equal(t, task.Completed, task.CompletedAt != nil, "task %s", task.ID)
	}
}

func TestCreate(t *testing.T) {
	s := newTestStore(t)

	task, ok := s.Create("  Buy milk \n")
	require.True(t, ok)
	assert.Equal(t, "task-1", task.ID)
	assert.Equal(t, "Buy milk", task.Description)
	assert.False(t, task.Completed)
	assert.Nil(t, task.CompletedAt)
	assert.False(t, task.CreatedAt.IsZero())
	assert.Equal(t, 1, s.Len())

	got, found := s.Get(task.ID)
	require.True(t, found)
	assert.Equal(t, task, got)
}

func TestCreate_Rejected(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace only", " \t\n "},
		{"byte order mark only", "\uFEFF "},
		{"over length", strings.Repeat("a", models.MaxDescriptionLength+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			_, ok := s.Create(tt.raw)
			assert.False(t, ok)
			assert.Equal(t, 0, s.Len())
		})
	}
}

func TestCreate_LengthCountsCharacters(t *testing.T) {
	s := newTestStore(t)

	exact := strings.Repeat("é", models.MaxDescriptionLength)
	_, ok := s.Create(exact)
	assert.True(t, ok)

	padded := "   " + strings.Repeat("x", models.MaxDescriptionLength) + "   "
	task, ok := s.Create(padded)
	require.True(t, ok)
	assert.Len(t, task.Description, models.MaxDescriptionLength)
}

func TestCreate_SkipsTakenIDs(t *testing.T) {
	ids := []string{"a", "a", "", "b"}
	s := New(WithIDGenerator(func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}))

	first, _ := s.Create("one")
	second, _ := s.Create("two")
	assert.Equal(t, "a", first.ID)
	assert.Equal(t, "b", second.ID)
}

func TestToggle(t *testing.T) {
	s := newTestStore(t)
	task, _ := s.Create("Walk dog")

	done, ok := s.Toggle(task.ID)
	require.True(t, ok)
	assert.True(t, done.Completed)
	require.NotNil(t, done.CompletedAt)
	assert.True(t, done.CompletedAt.After(task.CreatedAt))
	assert.Equal(t, task.ID, done.ID)
	assert.Equal(t, task.Description, done.Description)
	assert.Equal(t, task.CreatedAt, done.CreatedAt)
	assertInvariant(t, s)

	reopened, ok := s.Toggle(task.ID)
	require.True(t, ok)
	assert.Equal(t, task, reopened)
	assertInvariant(t, s)
}

func TestUnknownIDIsNoop(t *testing.T) {
	s := newTestStore(t)
	s.Create("Buy milk")
	a, _ := s.Create("Walk dog")
	s.Toggle(a.ID)

	before := s.View()
	progress := s.Progress()

	_, ok := s.Toggle("missing")
	assert.False(t, ok)
	_, ok = s.Delete("missing")
	assert.False(t, ok)

	assert.Equal(t, before, s.View())
	assert.Equal(t, progress, s.Progress())
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	a, _ := s.Create("A")
	s.Create("B")

	removed, ok := s.Delete(a.ID)
	require.True(t, ok)
	assert.Equal(t, a, removed)
	_, ok = s.Delete(a.ID)
	assert.False(t, ok)
	_, found := s.Get(a.ID)
	assert.False(t, found)
	assert.Equal(t, []string{"B"}, descriptions(s.View()))

	_, ok = s.Toggle(a.ID)
	assert.False(t, ok)
}

func TestView_NewestFirst(t *testing.T) {
	s := newTestStore(t)
	s.Create("Buy milk")
	s.Create("Walk dog")

	assert.Equal(t, []string{"Walk dog", "Buy milk"}, descriptions(s.View()))
}

func TestView_CompletedLast(t *testing.T) {
	s := newTestStore(t)
	a, _ := s.Create("A")
	s.Create("B")

	s.Toggle(a.ID)

	view := s.View()
	assert.Equal(t, []string{"B", "A"}, descriptions(view))
	assert.True(t, view[1].Completed)
}

func TestView_Ordering(t *testing.T) {
	s := newTestStore(t)
	var ids []string
	for i := 0; i < 10; i++ {
		task, _ := s.Create(fmt.Sprintf("task %d", i))
		ids = append(ids, task.ID)
	}
	for i, id := range ids {
		if i%3 == 0 {
			s.Toggle(id)
		}
	}

	view := s.View()
	require.Len(t, view, 10)
	for i := 1; i < len(view); i++ {
		prev, cur := view[i-1], view[i]
		assert.False(t, prev.Completed && !cur.Completed, "completed task before open task at %d", i)
		if prev.Completed == cur.Completed {
			assert.False(t, cur.CreatedAt.After(prev.CreatedAt), "createdAt increases at %d", i)
		}
	}
}

func TestView_EqualTimestampsKeepInsertionOrder(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	s := New(WithClock(func() time.Time { return fixed }))
	s.Create("first")
	s.Create("second")

	// the store clock never repeats an instant, so the later task sorts first
	view := s.View()
	assert.Equal(t, []string{"second", "first"}, descriptions(view))
	assert.True(t, view[0].CreatedAt.After(view[1].CreatedAt))

	tasks := []models.Task{
		{Description: "x", CreatedAt: fixed},
		{Description: "y", CreatedAt: fixed},
	}
	assert.Equal(t, 0, compareForView(tasks[0], tasks[1]))
}

func TestView_IsSnapshot(t *testing.T) {
	s := newTestStore(t)
	task, _ := s.Create("A")
	s.Toggle(task.ID)

	view := s.View()
	view[0].Description = "changed"
	*view[0].CompletedAt = time.Time{}

	got, _ := s.Get(task.ID)
	assert.Equal(t, "A", got.Description)
	assert.False(t, got.CompletedAt.IsZero())

	s.Create("B")
	assert.Len(t, view, 1)
}

func TestProgress(t *testing.T) {
	s := newTestStore(t)
	assert.Equal(t, models.Progress{}, s.Progress())

	a, _ := s.Create("A")
	s.Create("B")
	s.Create("C")
	s.Toggle(a.ID)

	p := s.Progress()
	assert.Equal(t, 1, p.CompletedCount)
	assert.Equal(t, 3, p.TotalCount)
	assert.Equal(t, 2, p.Remaining())
	assert.InDelta(t, 33.333, p.Percentage, 0.001)

	s.Delete(a.ID)
	assert.Equal(t, models.Progress{TotalCount: 2}, s.Progress())
}

func TestChanges_OrderedBySeqAndTime(t *testing.T) {
	frozen := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	s := New(WithClock(func() time.Time { return frozen }))

	created, ok := s.CreateChange("Walk dog")
	require.True(t, ok)
	completed, ok := s.ToggleChange(created.Task.ID)
	require.True(t, ok)
	reopened, ok := s.ToggleChange(created.Task.ID)
	require.True(t, ok)
	deleted, ok := s.DeleteChange(created.Task.ID)
	require.True(t, ok)

	changes := []Change{created, completed, reopened, deleted}
	for i := 1; i < len(changes); i++ {
		assert.Equal(t, changes[i-1].Seq+1, changes[i].Seq, "change %d", i)
		assert.True(t, changes[i].At.After(changes[i-1].At), "change %d", i)
	}

	assert.Equal(t, created.Task.CreatedAt, created.At)
	require.NotNil(t, completed.Task.CompletedAt)
	assert.Equal(t, *completed.Task.CompletedAt, completed.At)

	assert.Equal(t, models.Progress{TotalCount: 1}, created.Progress)
	assert.Equal(t, models.Progress{CompletedCount: 1, TotalCount: 1, Percentage: 100}, completed.Progress)
	assert.Equal(t, models.Progress{TotalCount: 1}, reopened.Progress)
	assert.Equal(t, models.Progress{}, deleted.Progress)
	assert.Equal(t, "Walk dog", deleted.Task.Description)

	_, ok = s.ToggleChange(created.Task.ID)
	assert.False(t, ok)
	next, ok := s.CreateChange("Read book")
	require.True(t, ok)
	assert.Equal(t, deleted.Seq+1, next.Seq)
}

func TestSnapshot(t *testing.T) {
	s := newTestStore(t)
	a, _ := s.Create("A")
	s.Create("B")
	s.Toggle(a.ID)

	view, p := s.Snapshot()
	assert.Equal(t, []string{"B", "A"}, descriptions(view))
	assert.Equal(t, models.Progress{CompletedCount: 1, TotalCount: 2, Percentage: 50}, p)
}

func TestSnapshot_ConsistentUnderConcurrentChanges(t *testing.T) {
	s := New()
	stop := make(chan struct{})
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				task, _ := s.Create("Buy milk")
				s.Toggle(task.ID)
				s.Delete(task.ID)
			}
		}()
	}

	for i := 0; i < 2000; i++ {
		view, p := s.Snapshot()
		completed := 0
		for _, task := range view {
			if task.Completed {
				completed++
			}
		}
		if !assert.Len(t, view, p.TotalCount) || !assert.Equal(t, p.CompletedCount, completed) {
			break
		}
	}
	close(stop)
	wg.Wait()
}

func TestClock_NeverRepeats(t *testing.T) {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	readings := []time.Time{base, base.Add(-time.Hour), base, base.Add(time.Second)}
	c := clock{now: func() time.Time {
		r := readings[0]
		readings = readings[1:]
		return r
	}}

	var last time.Time
	for i := 0; i < 4; i++ {
		now := c.Now()
		assert.True(t, now.After(last), "reading %d", i)
		last = now
	}
	assert.Equal(t, base.Add(time.Second), last)
}

func TestConcurrentAccess(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				task, ok := s.Create(fmt.Sprintf("worker %d item %d", w, i))
				if !ok {
					t.Error("create failed")
					return
				}
				s.Toggle(task.ID)
				if i%2 == 0 {
					s.Delete(task.ID)
				}
				_ = s.View()
				_ = s.Progress()
			}
		}(w)
	}
	wg.Wait()

	p := s.Progress()
	assert.Equal(t, 8*25, p.TotalCount)
	assert.Equal(t, p.TotalCount, p.CompletedCount)
	assertInvariant(t, s)
}
