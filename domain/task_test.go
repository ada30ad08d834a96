package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewTaskInput(t *testing.T) {
	active := true
	days := 7
	negative := -1

	in, err := NewTaskInput(TaskRequest{
		ExerciseID:   3,
		Title:        "  Morning prayer ",
		Schedule:     "daily",
		DurationDays: &days,
		StartDate:    "2025-03-04",
		IsActive:     &active,
	}, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.Title != "Morning prayer" || in.Schedule != PeriodDaily || !in.IsActive {
		t.Fatalf("unexpected input %+v", in)
	}
	if in.StartDate == nil || in.StartDate.String() != "2025-03-04" {
		t.Fatalf("unexpected start date %v", in.StartDate)
	}

	tests := []struct {
		name  string
		req   TaskRequest
		field string
	}{
		{name: "missingExercise", req: TaskRequest{Title: "x", Schedule: "daily"}, field: "exercise_id"},
		{name: "blankTitle", req: TaskRequest{ExerciseID: 1, Title: "   ", Schedule: "daily"}, field: "title"},
		{name: "longTitle", req: TaskRequest{ExerciseID: 1, Title: strings.Repeat("a", 256), Schedule: "daily"}, field: "title"},
		{name: "badSchedule", req: TaskRequest{ExerciseID: 1, Title: "x", Schedule: "monthly"}, field: "schedule"},
		{name: "negativeDuration", req: TaskRequest{ExerciseID: 1, Title: "x", Schedule: "daily", DurationDays: &negative}, field: "duration_days"},
		{name: "negativeSortOrder", req: TaskRequest{ExerciseID: 1, Title: "x", Schedule: "weekly", SortOrder: &negative}, field: "sort_order"},
		{name: "badStartDate", req: TaskRequest{ExerciseID: 1, Title: "x", Schedule: "single", StartDate: "soon"}, field: "start_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTaskInput(tt.req, time.UTC)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if verr.Field != tt.field {
				t.Fatalf("expected field %q, got %q", tt.field, verr.Field)
			}
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatal("validation error does not wrap ErrInvalidInput")
			}
		})
	}
}

func TestNewTaskInputDefaultsInactive(t *testing.T) {
	in, err := NewTaskInput(TaskRequest{ExerciseID: 1, Title: "Fast", Schedule: "weekly"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.IsActive || in.StartDate != nil {
		t.Fatalf("unexpected defaults %+v", in)
	}
}
