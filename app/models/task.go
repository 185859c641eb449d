package models

import (
	"errors"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// MaxDescriptionLength is the longest description a task may carry, in characters.
const MaxDescriptionLength = 200

var (
	ErrEmptyDescription   = errors.New("task description is empty")
	ErrDescriptionTooLong = errors.New("task description is too long")
)

// Task represents a single to-do item.
type Task struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Clone returns a copy that shares no memory with t.
func (t Task) Clone() Task {
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		t.CompletedAt = &at
	}
	return t
}

// Progress summarizes how much of the list is done.
type Progress struct {
	CompletedCount int     `json:"completed_count"`
	TotalCount     int     `json:"total_count"`
	Percentage     float64 `json:"percentage"`
}

// Remaining is the number of tasks still open.
func (p Progress) Remaining() int {
	return p.TotalCount - p.CompletedCount
}

// NormalizeDescription trims raw input and checks it against the description rules.
// The trimmed text is returned even when it is rejected.
func NormalizeDescription(raw string) (string, error) {
	description := strings.TrimFunc(raw, isTrimmable)
	if description == "" {
		return description, ErrEmptyDescription
	}
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return description, ErrDescriptionTooLong
	}
	return description, nil
}

// isTrimmable matches Unicode white space plus the byte order mark, which
// pasted text often carries.
func isTrimmable(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}
