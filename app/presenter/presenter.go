// Package presenter turns store snapshots into the labels a task list screen
// shows: relative timestamps, the remaining-tasks header and the progress bar.
package presenter

import (
	"fmt"
	"math"
	"time"

	"tasklist/app/models"
)

const (
	EmptyTitle = "All caught up!"
	EmptyHint  = "Add your first task above to get started on your productivity journey."
	IdleHeader = "Ready to be productive?"
)

// FormatTimestamp renders t relative to now: a clock time within the last day,
// weekday and time within the last week, a calendar date otherwise.
func FormatTimestamp(t, now time.Time) string {
	diff := now.Sub(t)
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff < 24*time.Hour:
		return t.Format("15:04")
	case diff < 7*24*time.Hour:
		return t.Format("Mon 15:04")
	default:
		return t.Format("Jan 2, 2006")
	}
}

// Summary is the header line above the list.
func Summary(p models.Progress) string {
	if p.TotalCount == 0 {
		return IdleHeader
	}
	return fmt.Sprintf("%d of %d remaining", p.Remaining(), p.TotalCount)
}

// PercentLabel rounds the progress percentage for display.
func PercentLabel(p models.Progress) string {
	return fmt.Sprintf("%d%% complete", int(math.Round(p.Percentage)))
}

// TaskItem is one rendered row.
type TaskItem struct {
	models.Task
	CreatedLabel   string `json:"created_label"`
	CompletedLabel string `json:"completed_label,omitempty"`
}

// EmptyState is shown instead of the list when there are no tasks.
type EmptyState struct {
	Title string `json:"title"`
	Hint  string `json:"hint"`
}

// Board is everything the task screen renders.
type Board struct {
	Summary       string          `json:"summary"`
	ProgressLabel string          `json:"progress_label,omitempty"`
	Progress      models.Progress `json:"progress"`
	Tasks         []TaskItem      `json:"tasks"`
	Empty         *EmptyState     `json:"empty,omitempty"`
}

// NewBoard renders view, which must already be in display order.
func NewBoard(view []models.Task, progress models.Progress, now time.Time) Board {
	board := Board{
		Summary:  Summary(progress),
		Progress: progress,
		Tasks:    make([]TaskItem, 0, len(view)),
	}
	if progress.TotalCount > 0 {
		board.ProgressLabel = PercentLabel(progress)
	}
	for _, task := range view {
		item := TaskItem{
			Task:         task,
			CreatedLabel: "Created: " + FormatTimestamp(task.CreatedAt, now),
		}
		if task.Completed && task.CompletedAt != nil {
			item.CompletedLabel = "Completed: " + FormatTimestamp(*task.CompletedAt, now)
		}
		board.Tasks = append(board.Tasks, item)
	}
	if len(view) == 0 {
		board.Empty = &EmptyState{Title: EmptyTitle, Hint: EmptyHint}
	}
	return board
}
