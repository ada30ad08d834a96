package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/dmachibya/faithexercises-api/domain"
)

func TestTaskMessage(t *testing.T) {
	task := domain.Task{
		ID:            7,
		ExerciseID:    3,
		ExerciseTitle: "Lent",
		Title:         "Pray",
		Description:   " Ten minutes of silence ",
		Schedule:      domain.PeriodDaily,
	}
	msg := TaskMessage(task)
	if msg.Title != "Pray" {
		t.Fatalf("unexpected title %q", msg.Title)
	}
	if msg.Body != "Lent: Ten minutes of silence" {
		t.Fatalf("unexpected body %q", msg.Body)
	}
	want := map[string]string{"type": "task", "task_id": "7", "exercise_id": "3", "schedule": "daily"}
	for k, v := range want {
		if msg.Data[k] != v {
			t.Fatalf("data[%s] = %q, want %q", k, msg.Data[k], v)
		}
	}
}

func TestTaskMessageWithoutExerciseTitle(t *testing.T) {
	msg := TaskMessage(domain.Task{Title: "Read", Description: "Psalm 23"})
	if msg.Body != "Psalm 23" {
		t.Fatalf("expected colon segment to be omitted, got %q", msg.Body)
	}
	msg = TaskMessage(domain.Task{Title: "Read", ExerciseTitle: "Advent"})
	if msg.Body != "Advent:" {
		t.Fatalf("expected trimmed body, got %q", msg.Body)
	}
}

func TestCustomMessage(t *testing.T) {
	n := domain.CustomNotification{ID: 12, Title: "Welcome", Content: "<p>" + strings.Repeat("a", 150) + "</p>", ImageURL: "https://img"}
	msg := CustomMessage(n)
	if len(msg.Body) != customBodyLimit || strings.Contains(msg.Body, "<") {
		t.Fatalf("expected stripped and truncated body, got %q", msg.Body)
	}
	if msg.Data["type"] != "custom_notification" || msg.Data["id"] != "12" || msg.Data["title"] != "Welcome" {
		t.Fatalf("unexpected data %#v", msg.Data)
	}
	if msg.ImageURL != "https://img" {
		t.Fatalf("expected image url to be forwarded")
	}

	n.Description = "Short"
	if got := CustomMessage(n).Body; got != "Short" {
		t.Fatalf("expected description as body, got %q", got)
	}
}

func TestStringifyData(t *testing.T) {
	got := StringifyData(map[string]any{
		"s":    "x",
		"i":    4,
		"i64":  int64(9),
		"f":    1.5,
		"b":    true,
		"nil":  nil,
		"date": domain.NewDate(2025, time.May, 1),
		"list": []int{1, 2},
	})
	want := map[string]string{"s": "x", "i": "4", "i64": "9", "f": "1.5", "b": "true", "nil": "", "date": "2025-05-01", "list": "[1,2]"}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("StringifyData[%s] = %q, want %q", k, got[k], v)
		}
	}
}
