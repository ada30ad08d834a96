package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewJournalInput(t *testing.T) {
	eat := time.FixedZone("EAT", 3*3600)
	taskID := int64(7)
	zero := int64(0)

	in, err := NewJournalInput(JournalRequest{EntryDate: "2025-03-10T22:30:00Z", Content: "  thankful \n", TaskID: &taskID}, eat)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.EntryDate.String() != "2025-03-11" || in.Content != "thankful" || *in.TaskID != 7 {
		t.Fatalf("unexpected input %+v", in)
	}

	tests := []struct {
		name  string
		req   JournalRequest
		field string
	}{
		{name: "missingDate", req: JournalRequest{Content: "x"}, field: "entry_date"},
		{name: "badDate", req: JournalRequest{EntryDate: "someday", Content: "x"}, field: "entry_date"},
		{name: "blankContent", req: JournalRequest{EntryDate: "2025-03-10", Content: " \t"}, field: "content"},
		{name: "longContent", req: JournalRequest{EntryDate: "2025-03-10", Content: strings.Repeat("é", maxJournalContent+1)}, field: "content"},
		{name: "zeroTask", req: JournalRequest{EntryDate: "2025-03-10", Content: "x", TaskID: &zero}, field: "task_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewJournalInput(tt.req, time.UTC)
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.field {
				t.Fatalf("expected validation error on %s, got %v", tt.field, err)
			}
		})
	}
}

func TestNewJournalFilter(t *testing.T) {
	taskID := int64(3)
	f, err := NewJournalFilter("2025-03-01", "2025-03-31", &taskID, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.From.String() != "2025-03-01" || f.To.String() != "2025-03-31" || *f.TaskID != 3 {
		t.Fatalf("unexpected filter %+v", f)
	}

	f, err = NewJournalFilter("", " ", nil, time.UTC)
	if err != nil || f.From != nil || f.To != nil || f.TaskID != nil {
		t.Fatalf("expected empty filter, got %+v, %v", f, err)
	}

	negative := int64(-1)
	for name, args := range map[string][2]string{
		"badFrom":  {"march", ""},
		"badTo":    {"", "2025-13-01"},
		"inverted": {"2025-03-10", "2025-03-09"},
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := NewJournalFilter(args[0], args[1], nil, time.UTC); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
		})
	}
	if _, err := NewJournalFilter("", "", &negative, time.UTC); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid task_id, got %v", err)
	}
}

func TestIdentityInputValidate(t *testing.T) {
	in := IdentityInput{Statement: "  I am faithful ", Category: " character "}
	if err := in.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.Statement != "I am faithful" || in.Category != "character" {
		t.Fatalf("expected trimmed input, got %+v", in)
	}

	for _, tt := range []struct {
		in    IdentityInput
		field string
	}{
		{in: IdentityInput{Category: "c"}, field: "statement"},
		{in: IdentityInput{Statement: strings.Repeat("s", 256), Category: "c"}, field: "statement"},
		{in: IdentityInput{Statement: "s"}, field: "category"},
		{in: IdentityInput{Statement: "s", Category: strings.Repeat("c", 51)}, field: "category"},
	} {
		err := tt.in.Validate()
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Field != tt.field {
			t.Fatalf("expected validation error on %s, got %v", tt.field, err)
		}
	}
}

func TestNewReflectionInputReadsTimestampsInLocation(t *testing.T) {
	eat := time.FixedZone("EAT", 3*3600)
	in, err := NewReflectionInput(ReflectionRequest{Title: " Morning ", ScheduledDate: "2025-03-10T22:30:00Z"}, eat)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.ScheduledDate.String() != "2025-03-11" {
		t.Fatalf("expected scheduled date in EAT, got %s", in.ScheduledDate)
	}
	if in.Title != "Morning" || in.Type != ReflectionText {
		t.Fatalf("unexpected input %+v", in)
	}

	_, err = NewReflectionInput(ReflectionRequest{Title: "x", ScheduledDate: "tomorrow"}, eat)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "scheduled_date" {
		t.Fatalf("expected scheduled_date error, got %v", err)
	}
	if _, err := NewReflectionInput(ReflectionRequest{Title: "x"}, eat); err == nil {
		t.Fatal("expected missing scheduled_date to fail")
	}
}
