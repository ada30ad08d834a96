package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Exercise is a named, ordered collection of tasks.
type Exercise struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	SortOrder   *int      `json:"sort_order,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ExerciseInput is a validated exercise write.
type ExerciseInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	SortOrder   *int   `json:"sort_order"`
}

// Validate trims fields and checks bounds.
func (in *ExerciseInput) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return invalid("title", "required")
	}
	if utf8.RuneCountInString(in.Title) > 255 {
		return invalid("title", "must be at most 255 characters")
	}
	if in.SortOrder != nil && *in.SortOrder < 0 {
		return invalid("sort_order", "must not be negative")
	}
	return nil
}

// Task is a scheduled unit of practice inside an exercise.
type Task struct {
	ID            int64     `json:"id"`
	ExerciseID    int64     `json:"exercise_id"`
	ExerciseTitle string    `json:"exercise_title,omitempty"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	Schedule      Period    `json:"schedule"`
	DurationDays  *int      `json:"duration_days,omitempty"`
	StartDate     *Date     `json:"start_date,omitempty"`
	IsActive      bool      `json:"is_active"`
	SortOrder     *int      `json:"sort_order,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// TaskRequest is the client representation of a task write.
type TaskRequest struct {
	ExerciseID   int64  `json:"exercise_id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Schedule     string `json:"schedule"`
	DurationDays *int   `json:"duration_days"`
	StartDate    string `json:"start_date"`
	IsActive     *bool  `json:"is_active"`
	SortOrder    *int   `json:"sort_order"`
}

// TaskInput is a validated task write.
type TaskInput struct {
	ExerciseID   int64
	Title        string
	Description  string
	Schedule     Period
	DurationDays *int
	StartDate    *Date
	IsActive     bool
	SortOrder    *int
}

// NewTaskInput validates req. Timestamps in start_date are read in loc.
func NewTaskInput(req TaskRequest, loc *time.Location) (TaskInput, error) {
	in := TaskInput{
		ExerciseID:   req.ExerciseID,
		Title:        strings.TrimSpace(req.Title),
		Description:  strings.TrimSpace(req.Description),
		DurationDays: req.DurationDays,
		SortOrder:    req.SortOrder,
	}
	if in.ExerciseID <= 0 {
		return TaskInput{}, invalid("exercise_id", "required")
	}
	if in.Title == "" {
		return TaskInput{}, invalid("title", "required")
	}
	if utf8.RuneCountInString(in.Title) > 255 {
		return TaskInput{}, invalid("title", "must be at most 255 characters")
	}
	schedule, err := ParsePeriod(strings.TrimSpace(req.Schedule))
	if err != nil {
		return TaskInput{}, invalid("schedule", "must be one of single, daily, weekly")
	}
	in.Schedule = schedule
	if in.DurationDays != nil && *in.DurationDays < 0 {
		return TaskInput{}, invalid("duration_days", "must not be negative")
	}
	if in.SortOrder != nil && *in.SortOrder < 0 {
		return TaskInput{}, invalid("sort_order", "must not be negative")
	}
	if s := strings.TrimSpace(req.StartDate); s != "" {
		d, err := ParseDate(s, loc)
		if err != nil {
			return TaskInput{}, invalid("start_date", "expected YYYY-MM-DD or RFC 3339")
		}
		in.StartDate = &d
	}
	if req.IsActive != nil {
		in.IsActive = *req.IsActive
	}
	return in, nil
}

// ProgressEntry asserts that a user completed a task for one period
// occurrence.
type ProgressEntry struct {
	UserID    string    `json:"user_id"`
	TaskID    int64     `json:"task_id"`
	Period    Period    `json:"period"`
	PeriodKey string    `json:"period_key"`
	DoneAt    time.Time `json:"done_at"`
}
