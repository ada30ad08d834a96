package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

const maxJournalContent = 20000

// JournalEntry is a private note a user writes for a day, optionally about
// a task.
type JournalEntry struct {
	ID            int64     `json:"id"`
	UserID        string    `json:"user_id"`
	TaskID        *int64    `json:"task_id"`
	TaskTitle     string    `json:"task_title,omitempty"`
	ExerciseTitle string    `json:"exercise_title,omitempty"`
	EntryDate     Date      `json:"entry_date"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// JournalRequest is the client representation of a journal write.
type JournalRequest struct {
	EntryDate string `json:"entry_date"`
	Content   string `json:"content"`
	TaskID    *int64 `json:"task_id"`
}

// JournalInput is a validated journal write.
type JournalInput struct {
	EntryDate Date
	Content   string
	TaskID    *int64
}

// NewJournalInput validates req. Timestamps in entry_date are read in loc.
func NewJournalInput(req JournalRequest, loc *time.Location) (JournalInput, error) {
	if strings.TrimSpace(req.EntryDate) == "" {
		return JournalInput{}, invalid("entry_date", "required")
	}
	day, err := ParseDate(req.EntryDate, loc)
	if err != nil {
		return JournalInput{}, invalid("entry_date", "expected YYYY-MM-DD or RFC 3339")
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return JournalInput{}, invalid("content", "required")
	}
	if utf8.RuneCountInString(content) > maxJournalContent {
		return JournalInput{}, invalid("content", "too long")
	}
	if req.TaskID != nil && *req.TaskID <= 0 {
		return JournalInput{}, invalid("task_id", "must be positive")
	}
	return JournalInput{EntryDate: day, Content: content, TaskID: req.TaskID}, nil
}

// JournalFilter narrows a journal listing. Nil fields do not filter.
type JournalFilter struct {
	From   *Date
	To     *Date
	TaskID *int64
}

// NewJournalFilter parses the optional from, to and task_id query values.
func NewJournalFilter(from, to string, taskID *int64, loc *time.Location) (JournalFilter, error) {
	var f JournalFilter
	if strings.TrimSpace(from) != "" {
		d, err := ParseDate(from, loc)
		if err != nil {
			return JournalFilter{}, invalid("from", "expected YYYY-MM-DD or RFC 3339")
		}
		f.From = &d
	}
	if strings.TrimSpace(to) != "" {
		d, err := ParseDate(to, loc)
		if err != nil {
			return JournalFilter{}, invalid("to", "expected YYYY-MM-DD or RFC 3339")
		}
		f.To = &d
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return JournalFilter{}, invalid("to", "must not be before from")
	}
	if taskID != nil && *taskID <= 0 {
		return JournalFilter{}, invalid("task_id", "must be positive")
	}
	f.TaskID = taskID
	return f, nil
}
